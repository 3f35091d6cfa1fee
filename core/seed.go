package core

// DefaultState returns the snapshot used when no prior state exists: the
// starter catalog, no commands, and a closed till. Absence of saved state
// is a normal first-run condition, never an error.
func DefaultState() *AppState {
	return &AppState{
		Products: []Product{
			{
				ID:          "1",
				Name:        "Chopp Amanteigado",
				Description: "O clássico do bar com espuma cremosa.",
				Price:       12.5,
				Category:    CategoryBeer,
				ImageURL:    "https://picsum.photos/400/400?random=1",
			},
			{
				ID:          "2",
				Name:        "Costela do Xerife",
				Description: "Costela assada por 12 horas.",
				Price:       85.0,
				Category:    CategoryFood,
				ImageURL:    "https://picsum.photos/400/400?random=2",
			},
		},
		Commands: []Command{},
		Cashier: CashierState{
			IsOpen:         false,
			InitialBalance: 0,
			CurrentBalance: 0,
			Transactions:   []Transaction{},
		},
	}
}
