package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/amorimbar/barpos/core"
)

// validate rejects malformed input before it reaches the store; the store
// itself performs no validation by contract.
var validate = validator.New()

func (a *app) runProduct(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: barpos product list|add|update|delete")
	}
	switch args[0] {
	case "list":
		state, err := a.store.GetState(ctx)
		if err != nil {
			return err
		}
		for _, p := range state.Products {
			fmt.Printf("%-10s %-30s %8.2f  %s\n", p.ID, p.Name, p.Price, p.Category)
		}
		return nil

	case "add", "update":
		fs := flag.NewFlagSet("product "+args[0], flag.ContinueOnError)
		id := fs.String("id", "", "product id (update only)")
		name := fs.String("name", "", "product name")
		desc := fs.String("desc", "", "product description")
		price := fs.Float64("price", 0, "unit price")
		category := fs.String("category", string(core.CategoryBeer), "category")
		image := fs.String("image", "", "image URL")
		suggest := fs.Bool("suggest", false, "fill empty description/price from the AI helper")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}

		product := core.Product{
			ID:          *id,
			Name:        *name,
			Description: *desc,
			Price:       *price,
			Category:    core.Category(*category),
			ImageURL:    *image,
		}
		if args[0] == "add" {
			product.ID = core.NewUUIDGenerator().NewID()
		}

		if *suggest && (product.Description == "" || product.Price == 0) {
			// Enrichment is help, not a dependency: on failure keep going
			// with whatever the operator typed.
			suggestion, err := a.enricher.SuggestDetails(ctx, product.Name)
			if err != nil {
				a.logger.Warn("Enrichment failed", map[string]interface{}{
					"product": product.Name,
					"error":   err.Error(),
				})
			} else {
				if product.Description == "" {
					product.Description = suggestion.Description
				}
				if product.Price == 0 {
					product.Price = suggestion.SuggestedPrice
				}
			}
		}

		if err := validate.Struct(product); err != nil {
			return fmt.Errorf("%w: %v", core.ErrInvalidInput, err)
		}

		if args[0] == "add" {
			if err := a.store.AddProduct(ctx, product); err != nil {
				return err
			}
			fmt.Printf("added product %s\n", product.ID)
			return nil
		}
		if err := a.store.UpdateProduct(ctx, product); err != nil {
			return err
		}
		fmt.Printf("updated product %s\n", product.ID)
		return nil

	case "delete":
		fs := flag.NewFlagSet("product delete", flag.ContinueOnError)
		id := fs.String("id", "", "product id")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if *id == "" {
			return fmt.Errorf("%w: -id is required", core.ErrInvalidInput)
		}
		return a.store.DeleteProduct(ctx, *id)

	default:
		return fmt.Errorf("unknown product subcommand %q", args[0])
	}
}

func (a *app) runCommand(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: barpos command open|add|close|list")
	}
	switch args[0] {
	case "open":
		fs := flag.NewFlagSet("command open", flag.ContinueOnError)
		table := fs.String("table", "", "table label")
		customer := fs.String("customer", "", "customer name")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if *table == "" {
			return fmt.Errorf("%w: -table is required", core.ErrInvalidInput)
		}
		command, err := a.store.OpenCommand(ctx, *table, *customer)
		if err != nil {
			return err
		}
		fmt.Printf("opened command %s for table %s\n", command.ID, command.TableNumber)
		return nil

	case "add":
		fs := flag.NewFlagSet("command add", flag.ContinueOnError)
		commandID := fs.String("command", "", "command id")
		productID := fs.String("product", "", "product id")
		qty := fs.Int("qty", 1, "quantity")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if *commandID == "" || *productID == "" {
			return fmt.Errorf("%w: -command and -product are required", core.ErrInvalidInput)
		}
		if *qty <= 0 {
			return fmt.Errorf("%w: quantity must be positive", core.ErrInvalidInput)
		}
		return a.store.AddItemToCommand(ctx, *commandID, *productID, *qty)

	case "close":
		fs := flag.NewFlagSet("command close", flag.ContinueOnError)
		commandID := fs.String("command", "", "command id")
		method := fs.String("method", string(core.PaymentCash), "payment method: cash, card or pix")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if *commandID == "" {
			return fmt.Errorf("%w: -command is required", core.ErrInvalidInput)
		}
		switch core.PaymentMethod(*method) {
		case core.PaymentCash, core.PaymentCard, core.PaymentPix:
		default:
			return fmt.Errorf("%w: unknown payment method %q", core.ErrInvalidInput, *method)
		}
		return a.store.CloseCommand(ctx, *commandID, core.PaymentMethod(*method))

	case "list":
		state, err := a.store.GetState(ctx)
		if err != nil {
			return err
		}
		for _, c := range state.Commands {
			opened := time.UnixMilli(c.OpenedAt).Format("2006-01-02 15:04")
			fmt.Printf("%-10s table %-6s %-6s %8.2f  opened %s", c.ID, c.TableNumber, c.Status, c.Total, opened)
			if c.CustomerName != "" {
				fmt.Printf("  (%s)", c.CustomerName)
			}
			fmt.Println()
			for _, item := range c.Items {
				fmt.Printf("    %dx %-28s %8.2f\n", item.Quantity, item.Name, item.Price*float64(item.Quantity))
			}
		}
		return nil

	default:
		return fmt.Errorf("unknown command subcommand %q", args[0])
	}
}

func (a *app) runCashier(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: barpos cashier open|close|status")
	}
	switch args[0] {
	case "open":
		fs := flag.NewFlagSet("cashier open", flag.ContinueOnError)
		balance := fs.Float64("balance", 0, "opening float")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if *balance < 0 {
			return fmt.Errorf("%w: opening balance must not be negative", core.ErrInvalidInput)
		}
		return a.store.OpenCashier(ctx, *balance)

	case "close":
		return a.store.CloseCashier(ctx)

	case "status":
		state, err := a.store.GetState(ctx)
		if err != nil {
			return err
		}
		cashier := state.Cashier
		status := "closed"
		if cashier.IsOpen {
			status = "open since " + time.UnixMilli(cashier.OpenedAt).Format("2006-01-02 15:04")
		}
		fmt.Printf("till %s\n", status)
		fmt.Printf("initial balance: %8.2f\n", cashier.InitialBalance)
		fmt.Printf("current balance: %8.2f\n", cashier.CurrentBalance)
		fmt.Printf("transactions:    %d\n", len(cashier.Transactions))
		for _, t := range cashier.Transactions {
			fmt.Printf("  %-10s %8.2f %-4s command %s\n", t.ID, t.Amount, t.Method, t.CommandID)
		}
		return nil

	default:
		return fmt.Errorf("unknown cashier subcommand %q", args[0])
	}
}

// runMenu prints the read-only customer-facing menu grouped by category.
func (a *app) runMenu(ctx context.Context) error {
	state, err := a.store.GetState(ctx)
	if err != nil {
		return err
	}
	for _, category := range core.Categories() {
		printed := false
		for _, p := range state.Products {
			if p.Category != category {
				continue
			}
			if !printed {
				fmt.Printf("\n== %s ==\n", category)
				printed = true
			}
			fmt.Printf("%-30s %8.2f\n", p.Name, p.Price)
			if p.Description != "" {
				fmt.Printf("    %s\n", p.Description)
			}
		}
	}
	return nil
}

func (a *app) runSuggest(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: barpos suggest <product name>")
	}
	suggestion, err := a.enricher.SuggestDetails(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("description: %s\n", suggestion.Description)
	fmt.Printf("suggested price: %.2f\n", suggestion.SuggestedPrice)
	return nil
}

// runWatch follows the broadcast channel and prints a one-line summary for
// each snapshot saved by another context, until interrupted.
func (a *app) runWatch(ctx context.Context) error {
	unsubscribe := a.store.Subscribe(func(state *core.AppState) {
		open := 0
		for _, c := range state.Commands {
			if c.Status == core.CommandOpen {
				open++
			}
		}
		fmt.Printf("[%s] products=%d commands=%d open=%d balance=%.2f\n",
			time.Now().Format("15:04:05"), len(state.Products), len(state.Commands),
			open, state.Cashier.CurrentBalance)
	})
	defer unsubscribe()

	fmt.Println("watching for changes (ctrl-c to stop)")
	<-ctx.Done()
	return nil
}
