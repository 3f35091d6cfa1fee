package core

// Category classifies a catalog product. The values are the display labels
// used by the menu, so they are part of the persisted schema.
type Category string

const (
	CategoryBeer    Category = "Cervejas"
	CategoryDrink   Category = "Drinks"
	CategoryFood    Category = "Comidas"
	CategoryPortion Category = "Porções"
	CategoryDessert Category = "Sobremesas"
)

// Categories lists every valid category in menu display order.
func Categories() []Category {
	return []Category{CategoryBeer, CategoryDrink, CategoryFood, CategoryPortion, CategoryDessert}
}

// CommandStatus is the lifecycle state of a command. There are exactly two
// states; a closed command never reopens.
type CommandStatus string

const (
	CommandOpen   CommandStatus = "open"
	CommandClosed CommandStatus = "closed"
)

// PaymentMethod identifies how a command was settled.
type PaymentMethod string

const (
	PaymentCash PaymentMethod = "cash"
	PaymentCard PaymentMethod = "card"
	PaymentPix  PaymentMethod = "pix"
)

// Product is a catalog entry. Products are owned by the catalog alone;
// order lines copy the fields they need instead of referencing a Product.
type Product struct {
	ID          string   `json:"id" validate:"required"`
	Name        string   `json:"name" validate:"required"`
	Description string   `json:"description"`
	Price       float64  `json:"price" validate:"gte=0"`
	Category    Category `json:"category" validate:"required,oneof=Cervejas Drinks Comidas Porções Sobremesas"`
	ImageURL    string   `json:"imageUrl"`
}

// OrderItem is one line of a command. Price and Name are captured when the
// line is first added, so later catalog edits never change a ticket.
type OrderItem struct {
	ProductID string  `json:"productId"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
	Name      string  `json:"name"`
}

// Command is one table's running ticket.
type Command struct {
	ID           string        `json:"id"`
	TableNumber  string        `json:"tableNumber"`
	CustomerName string        `json:"customerName,omitempty"`
	Items        []OrderItem   `json:"items"`
	Status       CommandStatus `json:"status"`
	OpenedAt     int64         `json:"openedAt"`
	Total        float64       `json:"total"`
}

// RecomputeTotal rebuilds Total from the item lines. Called after every item
// mutation; Total is never updated any other way.
func (c *Command) RecomputeTotal() {
	total := 0.0
	for _, item := range c.Items {
		total += item.Price * float64(item.Quantity)
	}
	c.Total = total
}

// Transaction is the immutable receipt created when a command is settled.
type Transaction struct {
	ID        string        `json:"id"`
	CommandID string        `json:"commandId"`
	Amount    float64       `json:"amount"`
	Timestamp int64         `json:"timestamp"`
	Method    PaymentMethod `json:"method"`
}

// CashierState is the till for the current shift. Opening a shift resets the
// transaction list; closing only flips IsOpen, leaving the history readable
// until the next open.
type CashierState struct {
	IsOpen         bool          `json:"isOpen"`
	OpenedAt       int64         `json:"openedAt,omitempty"`
	InitialBalance float64       `json:"initialBalance"`
	CurrentBalance float64       `json:"currentBalance"`
	Transactions   []Transaction `json:"transactions"`
}

// AppState is the root aggregate and the unit of persistence and broadcast.
// Every mutation reads the whole snapshot and writes the whole snapshot back.
type AppState struct {
	Products []Product    `json:"products"`
	Commands []Command    `json:"commands"`
	Cashier  CashierState `json:"cashier"`
}

// FindProduct returns the product with the given id, or nil.
func (s *AppState) FindProduct(id string) *Product {
	for i := range s.Products {
		if s.Products[i].ID == id {
			return &s.Products[i]
		}
	}
	return nil
}

// FindCommand returns the command with the given id, or nil.
func (s *AppState) FindCommand(id string) *Command {
	for i := range s.Commands {
		if s.Commands[i].ID == id {
			return &s.Commands[i]
		}
	}
	return nil
}

// Clone returns a deep copy of the snapshot. Mutation operations work on a
// copy so a failed save never leaves a half-applied state visible.
func (s *AppState) Clone() *AppState {
	out := &AppState{
		Products: make([]Product, len(s.Products)),
		Commands: make([]Command, len(s.Commands)),
		Cashier:  s.Cashier,
	}
	copy(out.Products, s.Products)
	for i, cmd := range s.Commands {
		c := cmd
		c.Items = make([]OrderItem, len(cmd.Items))
		copy(c.Items, cmd.Items)
		out.Commands[i] = c
	}
	out.Cashier.Transactions = make([]Transaction, len(s.Cashier.Transactions))
	copy(out.Cashier.Transactions, s.Cashier.Transactions)
	return out
}
