// Package store implements the single authority over the shared AppState:
// every read, mutation, save and broadcast goes through a Store instance.
//
// Each mutation is a synchronous whole-snapshot read-modify-write: load the
// current snapshot, apply one change on a copy, recompute derived fields,
// persist, publish to other contexts, notify local subscribers, return.
// A mutex serializes mutations within one context. Across contexts there is
// no arbiter: two contexts mutating concurrently race, and whichever saves
// last wins at whole-snapshot granularity. That last-write-wins gap is a
// documented property of the system, accepted for a single-venue,
// human-operated deployment where concurrent edits to the same entity are
// rare; the store deliberately adds no locking or merge protocol on top.
package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/amorimbar/barpos/core"
)

// Store owns the canonical AppState. Construct one per execution context
// with New; there is no package-level instance.
type Store struct {
	storage     core.Storage
	broadcaster core.Broadcaster
	ids         core.IDGenerator
	logger      core.Logger
	telemetry   core.Telemetry
	now         func() time.Time
	origin      string

	mu          sync.Mutex
	subMu       sync.RWMutex
	nextSubID   int
	subscribers map[int]func(*core.AppState)
	stopRemote  func()
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. Defaults to a no-op.
func WithLogger(l core.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTelemetry sets the telemetry provider. Defaults to a no-op.
func WithTelemetry(t core.Telemetry) Option {
	return func(s *Store) {
		if t != nil {
			s.telemetry = t
		}
	}
}

// WithIDGenerator swaps the identifier source, e.g. for deterministic tests.
func WithIDGenerator(g core.IDGenerator) Option {
	return func(s *Store) {
		if g != nil {
			s.ids = g
		}
	}
}

// WithClock swaps the time source, e.g. for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a Store over the given persistence and broadcast backends and
// wires remote snapshots into the local subscriber list. Incoming remote
// snapshots are forwarded, never re-saved, so two live contexts cannot feed
// each other's broadcasts back into storage.
func New(ctx context.Context, storage core.Storage, broadcaster core.Broadcaster, opts ...Option) (*Store, error) {
	if storage == nil {
		return nil, fmt.Errorf("store: storage is required")
	}
	if broadcaster == nil {
		return nil, fmt.Errorf("store: broadcaster is required")
	}

	s := &Store{
		storage:     storage,
		broadcaster: broadcaster,
		ids:         core.NewUUIDGenerator(),
		logger:      &core.NoOpLogger{},
		telemetry:   &core.NoOpTelemetry{},
		now:         time.Now,
		origin:      uuid.New().String(),
		subscribers: make(map[int]func(*core.AppState)),
	}
	for _, opt := range opts {
		opt(s)
	}

	// The subscription and every publish carry this store's origin token,
	// so a shared in-process broadcaster never echoes a store's own saves
	// back at it.
	stop, err := broadcaster.Subscribe(core.WithOrigin(ctx, s.origin), s.notify)
	if err != nil {
		return nil, fmt.Errorf("store: failed to subscribe to broadcaster: %w", err)
	}
	s.stopRemote = stop

	return s, nil
}

// Close detaches the store from the broadcaster. It does not close the
// backends; their lifecycle belongs to whoever constructed them.
func (s *Store) Close() {
	if s.stopRemote != nil {
		s.stopRemote()
		s.stopRemote = nil
	}
}

// Subscribe registers a callback invoked with every new snapshot this
// context observes: its own successful mutations and snapshots broadcast by
// other contexts. Returns the deregistration function.
func (s *Store) Subscribe(callback func(*core.AppState)) func() {
	s.subMu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = callback
	s.subMu.Unlock()
	return func() {
		s.subMu.Lock()
		delete(s.subscribers, id)
		s.subMu.Unlock()
	}
}

// notify fans a snapshot out to local subscribers.
func (s *Store) notify(state *core.AppState) {
	s.subMu.RLock()
	callbacks := make([]func(*core.AppState), 0, len(s.subscribers))
	for _, cb := range s.subscribers {
		callbacks = append(callbacks, cb)
	}
	s.subMu.RUnlock()
	for _, cb := range callbacks {
		cb(state)
	}
}

// GetState returns the current snapshot, or the default seed state when no
// prior state exists. Absence of saved state is not an error.
func (s *Store) GetState(ctx context.Context) (*core.AppState, error) {
	state, err := s.storage.Load(ctx)
	if err != nil {
		return nil, core.NewStoreError("store.GetState", "storage", err)
	}
	if state == nil {
		return core.DefaultState(), nil
	}
	return state, nil
}

// mutate runs the whole-snapshot read-modify-write cycle under the mutex.
// apply returns false to signal a silent no-op: nothing is saved, nothing
// is broadcast, and the caller sees no error.
func (s *Store) mutate(ctx context.Context, op string, apply func(*core.AppState) (bool, error)) error {
	ctx, span := s.telemetry.StartSpan(ctx, op)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.GetState(ctx)
	if err != nil {
		span.RecordError(err)
		return err
	}

	state = state.Clone()
	changed, err := apply(state)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if !changed {
		span.SetAttribute("store.noop", true)
		return nil
	}

	if err := s.storage.Save(ctx, state); err != nil {
		err = core.NewStoreError(op, "storage", err)
		span.RecordError(err)
		s.logger.Error("Failed to persist state", map[string]interface{}{
			"operation": op,
			"error":     err.Error(),
		})
		return err
	}

	// Best effort: the mutation is durable at this point, so a failed
	// publish only delays other contexts until their next load.
	if err := s.broadcaster.Publish(core.WithOrigin(ctx, s.origin), state); err != nil {
		span.RecordError(err)
		s.logger.Warn("Failed to broadcast state", map[string]interface{}{
			"operation": op,
			"error":     err.Error(),
		})
	}

	s.notify(state)
	return nil
}

// AddProduct appends a catalog entry. The caller supplies a fully formed
// Product, identifier included; input validation happens at the edge, not
// here.
func (s *Store) AddProduct(ctx context.Context, product core.Product) error {
	return s.mutate(ctx, "store.AddProduct", func(state *core.AppState) (bool, error) {
		state.Products = append(state.Products, product)
		s.logger.Debug("Product added", map[string]interface{}{
			"product_id": product.ID,
			"name":       product.Name,
		})
		return true, nil
	})
}

// UpdateProduct replaces the product with a matching identifier. A missing
// identifier is a silent no-op, preserving idempotent UI retries.
func (s *Store) UpdateProduct(ctx context.Context, product core.Product) error {
	return s.mutate(ctx, "store.UpdateProduct", func(state *core.AppState) (bool, error) {
		existing := state.FindProduct(product.ID)
		if existing == nil {
			return false, nil
		}
		*existing = product
		return true, nil
	})
}

// DeleteProduct removes the product with the given identifier; silent no-op
// when absent. Existing order lines keep their captured price and name.
func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	return s.mutate(ctx, "store.DeleteProduct", func(state *core.AppState) (bool, error) {
		for i := range state.Products {
			if state.Products[i].ID == id {
				state.Products = append(state.Products[:i], state.Products[i+1:]...)
				return true, nil
			}
		}
		return false, nil
	})
}

// OpenCommand starts a ticket for a table and returns it, so the caller can
// navigate straight into it without waiting for a broadcast round-trip.
func (s *Store) OpenCommand(ctx context.Context, tableNumber, customerName string) (*core.Command, error) {
	command := core.Command{
		ID:           s.ids.NewID(),
		TableNumber:  tableNumber,
		CustomerName: customerName,
		Items:        []core.OrderItem{},
		Status:       core.CommandOpen,
		OpenedAt:     s.now().UnixMilli(),
		Total:        0,
	}
	err := s.mutate(ctx, "store.OpenCommand", func(state *core.AppState) (bool, error) {
		state.Commands = append(state.Commands, command)
		s.logger.Info("Command opened", map[string]interface{}{
			"command_id": command.ID,
			"table":      tableNumber,
		})
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return &command, nil
}

// AddItemToCommand adds quantity of a product to a ticket. A missing
// command or product is a silent no-op. When the ticket already carries a
// line for the product, quantities accumulate and the price and name
// captured on the first add are kept, so a later catalog edit never
// rewrites a running ticket. Adding to a closed command is rejected with
// ErrCommandClosed.
func (s *Store) AddItemToCommand(ctx context.Context, commandID, productID string, quantity int) error {
	return s.mutate(ctx, "store.AddItemToCommand", func(state *core.AppState) (bool, error) {
		command := state.FindCommand(commandID)
		product := state.FindProduct(productID)
		if command == nil || product == nil {
			return false, nil
		}
		if command.Status != core.CommandOpen {
			return false, core.NewStoreError("store.AddItemToCommand", "command", core.ErrCommandClosed)
		}

		found := false
		for i := range command.Items {
			if command.Items[i].ProductID == productID {
				command.Items[i].Quantity += quantity
				found = true
				break
			}
		}
		if !found {
			command.Items = append(command.Items, core.OrderItem{
				ProductID: productID,
				Quantity:  quantity,
				Price:     product.Price,
				Name:      product.Name,
			})
		}
		command.RecomputeTotal()
		return true, nil
	})
}

// CloseCommand settles an open ticket: marks it closed, appends a payment
// Transaction to the till and adds the amount to the current balance. A
// missing or already-closed command is a silent no-op, which makes the
// operation idempotent against double taps.
//
// The till's open flag is only a shift marker: settling while the till is
// closed still succeeds and accrues balance.
func (s *Store) CloseCommand(ctx context.Context, commandID string, method core.PaymentMethod) error {
	return s.mutate(ctx, "store.CloseCommand", func(state *core.AppState) (bool, error) {
		command := state.FindCommand(commandID)
		if command == nil || command.Status != core.CommandOpen {
			return false, nil
		}

		command.Status = core.CommandClosed
		transaction := core.Transaction{
			ID:        s.ids.NewID(),
			CommandID: command.ID,
			Amount:    command.Total,
			Timestamp: s.now().UnixMilli(),
			Method:    method,
		}
		state.Cashier.Transactions = append(state.Cashier.Transactions, transaction)
		state.Cashier.CurrentBalance += transaction.Amount

		s.logger.Info("Command closed", map[string]interface{}{
			"command_id":     command.ID,
			"transaction_id": transaction.ID,
			"amount":         transaction.Amount,
			"method":         string(method),
		})
		return true, nil
	})
}

// OpenCashier starts a shift: flips the till open, stamps the opening time,
// sets both balances to initialBalance and resets the transaction list.
// Prior commands stay in the snapshot for history; only the till view
// resets at the shift boundary. The value is accepted as given - coercing
// it to something sensible is the caller's job.
func (s *Store) OpenCashier(ctx context.Context, initialBalance float64) error {
	return s.mutate(ctx, "store.OpenCashier", func(state *core.AppState) (bool, error) {
		state.Cashier = core.CashierState{
			IsOpen:         true,
			OpenedAt:       s.now().UnixMilli(),
			InitialBalance: initialBalance,
			CurrentBalance: initialBalance,
			Transactions:   []core.Transaction{},
		}
		s.logger.Info("Cashier opened", map[string]interface{}{
			"initial_balance": initialBalance,
		})
		return true, nil
	})
}

// CloseCashier ends the shift by flipping the open flag. Balances and the
// transaction history stay visible until the next open.
func (s *Store) CloseCashier(ctx context.Context) error {
	return s.mutate(ctx, "store.CloseCashier", func(state *core.AppState) (bool, error) {
		state.Cashier.IsOpen = false
		s.logger.Info("Cashier closed", map[string]interface{}{
			"current_balance": state.Cashier.CurrentBalance,
			"transactions":    len(state.Cashier.Transactions),
		})
		return true, nil
	})
}
