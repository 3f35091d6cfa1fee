package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amorimbar/barpos/core"
	"github.com/amorimbar/barpos/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	return newTestStoreWith(t, core.NewInMemoryStorage(), core.NewLoopbackBroadcaster())
}

func newTestStoreWith(t *testing.T, stg core.Storage, bc core.Broadcaster) *store.Store {
	t.Helper()
	s, err := store.New(context.Background(), stg, bc,
		store.WithIDGenerator(core.NewSequenceGenerator("id")),
		store.WithClock(func() time.Time { return time.UnixMilli(1700000000000) }),
	)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func TestGetStateReturnsDefaultWhenEmpty(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	state, err := s.GetState(ctx)
	require.NoError(t, err)

	assert.NotEmpty(t, state.Products, "default catalog must not be empty")
	assert.Empty(t, state.Commands)
	assert.False(t, state.Cashier.IsOpen)
	assert.Zero(t, state.Cashier.CurrentBalance)
}

func TestAddUpdateDeleteProduct(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	product := core.Product{
		ID:       "p1",
		Name:     "Caipirinha",
		Price:    18.0,
		Category: core.CategoryDrink,
	}
	require.NoError(t, s.AddProduct(ctx, product))

	state, err := s.GetState(ctx)
	require.NoError(t, err)
	require.NotNil(t, state.FindProduct("p1"))

	product.Price = 20.0
	require.NoError(t, s.UpdateProduct(ctx, product))
	state, err = s.GetState(ctx)
	require.NoError(t, err)
	assert.Equal(t, 20.0, state.FindProduct("p1").Price)

	// Updating an unknown id is a silent no-op, not an error.
	unknown := product
	unknown.ID = "nope"
	require.NoError(t, s.UpdateProduct(ctx, unknown))
	state, err = s.GetState(ctx)
	require.NoError(t, err)
	assert.Nil(t, state.FindProduct("nope"))

	require.NoError(t, s.DeleteProduct(ctx, "p1"))
	require.NoError(t, s.DeleteProduct(ctx, "p1")) // idempotent
	state, err = s.GetState(ctx)
	require.NoError(t, err)
	assert.Nil(t, state.FindProduct("p1"))
}

func TestOpenCommandPostconditions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.OpenCommand(ctx, "5", "")
	require.NoError(t, err)
	second, err := s.OpenCommand(ctx, "5", "Zé")
	require.NoError(t, err)

	assert.Equal(t, core.CommandOpen, first.Status)
	assert.Empty(t, first.Items)
	assert.Zero(t, first.Total)
	assert.NotEmpty(t, first.ID)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, "Zé", second.CustomerName)

	state, err := s.GetState(ctx)
	require.NoError(t, err)
	require.Len(t, state.Commands, 2)
	assert.Equal(t, first.ID, state.Commands[0].ID)
}

func TestAddItemAccumulatesAndKeepsPriceSnapshot(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Seed catalog has product "1" at 12.5.
	command, err := s.OpenCommand(ctx, "5", "")
	require.NoError(t, err)

	require.NoError(t, s.AddItemToCommand(ctx, command.ID, "1", 2))
	require.NoError(t, s.AddItemToCommand(ctx, command.ID, "1", 1))

	state, err := s.GetState(ctx)
	require.NoError(t, err)
	got := state.FindCommand(command.ID)
	require.Len(t, got.Items, 1)
	assert.Equal(t, 3, got.Items[0].Quantity)
	assert.Equal(t, 12.5, got.Items[0].Price)
	assert.Equal(t, 37.5, got.Total)

	// A price edit must not rewrite the open ticket: the first-add snapshot
	// of price and name is retained.
	edited := *state.FindProduct("1")
	edited.Price = 99.0
	edited.Name = "Chopp Novo"
	require.NoError(t, s.UpdateProduct(ctx, edited))
	require.NoError(t, s.AddItemToCommand(ctx, command.ID, "1", 1))

	state, err = s.GetState(ctx)
	require.NoError(t, err)
	got = state.FindCommand(command.ID)
	require.Len(t, got.Items, 1)
	assert.Equal(t, 4, got.Items[0].Quantity)
	assert.Equal(t, 12.5, got.Items[0].Price)
	assert.Equal(t, "Chopp Amanteigado", got.Items[0].Name)
	assert.Equal(t, 50.0, got.Total)
}

func TestTotalAlwaysMatchesItems(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	command, err := s.OpenCommand(ctx, "3", "")
	require.NoError(t, err)

	adds := []struct {
		productID string
		qty       int
	}{
		{"1", 1}, {"2", 2}, {"1", 3}, {"2", 1},
	}
	for _, add := range adds {
		require.NoError(t, s.AddItemToCommand(ctx, command.ID, add.productID, add.qty))

		state, err := s.GetState(ctx)
		require.NoError(t, err)
		got := state.FindCommand(command.ID)
		want := 0.0
		for _, item := range got.Items {
			want += item.Price * float64(item.Quantity)
		}
		assert.Equal(t, want, got.Total)
	}
}

func TestAddItemUnknownIDsAreSilentNoOps(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	command, err := s.OpenCommand(ctx, "1", "")
	require.NoError(t, err)

	require.NoError(t, s.AddItemToCommand(ctx, "missing", "1", 1))
	require.NoError(t, s.AddItemToCommand(ctx, command.ID, "missing", 1))

	state, err := s.GetState(ctx)
	require.NoError(t, err)
	assert.Empty(t, state.FindCommand(command.ID).Items)
}

func TestAddItemToClosedCommandIsRejected(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	command, err := s.OpenCommand(ctx, "7", "")
	require.NoError(t, err)
	require.NoError(t, s.AddItemToCommand(ctx, command.ID, "1", 1))
	require.NoError(t, s.CloseCommand(ctx, command.ID, core.PaymentCash))

	err = s.AddItemToCommand(ctx, command.ID, "1", 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrCommandClosed))

	// The rejected mutation must not have touched the ticket.
	state, err := s.GetState(ctx)
	require.NoError(t, err)
	got := state.FindCommand(command.ID)
	assert.Equal(t, 1, got.Items[0].Quantity)
	assert.Equal(t, 12.5, got.Total)
}

func TestCloseCommandSettlesIntoCashier(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.OpenCashier(ctx, 50))

	command, err := s.OpenCommand(ctx, "2", "")
	require.NoError(t, err)
	require.NoError(t, s.AddItemToCommand(ctx, command.ID, "1", 2)) // 25.0

	require.NoError(t, s.CloseCommand(ctx, command.ID, core.PaymentPix))

	state, err := s.GetState(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.CommandClosed, state.FindCommand(command.ID).Status)
	require.Len(t, state.Cashier.Transactions, 1)

	transaction := state.Cashier.Transactions[0]
	assert.Equal(t, command.ID, transaction.CommandID)
	assert.Equal(t, 25.0, transaction.Amount)
	assert.Equal(t, core.PaymentPix, transaction.Method)
	assert.Equal(t, 75.0, state.Cashier.CurrentBalance)
}

func TestCloseCommandTwiceIsNoOp(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.OpenCashier(ctx, 0))
	command, err := s.OpenCommand(ctx, "2", "")
	require.NoError(t, err)
	require.NoError(t, s.AddItemToCommand(ctx, command.ID, "1", 1))

	require.NoError(t, s.CloseCommand(ctx, command.ID, core.PaymentCash))
	require.NoError(t, s.CloseCommand(ctx, command.ID, core.PaymentCard))
	require.NoError(t, s.CloseCommand(ctx, "missing", core.PaymentCash))

	state, err := s.GetState(ctx)
	require.NoError(t, err)
	assert.Len(t, state.Cashier.Transactions, 1)
	assert.Equal(t, 12.5, state.Cashier.CurrentBalance)
}

func TestCloseCommandWithClosedTillStillAccrues(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Till never opened: settling is still allowed, the open flag is only a
	// shift marker.
	command, err := s.OpenCommand(ctx, "9", "")
	require.NoError(t, err)
	require.NoError(t, s.AddItemToCommand(ctx, command.ID, "1", 1))
	require.NoError(t, s.CloseCommand(ctx, command.ID, core.PaymentCash))

	state, err := s.GetState(ctx)
	require.NoError(t, err)
	assert.False(t, state.Cashier.IsOpen)
	assert.Equal(t, 12.5, state.Cashier.CurrentBalance)
	assert.Len(t, state.Cashier.Transactions, 1)
}

func TestShiftScenario(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddProduct(ctx, core.Product{
		ID: "beer", Name: "Long Neck", Price: 10.0, Category: core.CategoryBeer,
	}))
	require.NoError(t, s.AddProduct(ctx, core.Product{
		ID: "snack", Name: "Torresmo", Price: 25.5, Category: core.CategoryPortion,
	}))

	require.NoError(t, s.OpenCashier(ctx, 100))

	first, err := s.OpenCommand(ctx, "1", "")
	require.NoError(t, err)
	require.NoError(t, s.AddItemToCommand(ctx, first.ID, "beer", 2)) // 20.00
	require.NoError(t, s.CloseCommand(ctx, first.ID, core.PaymentCash))

	second, err := s.OpenCommand(ctx, "2", "")
	require.NoError(t, err)
	require.NoError(t, s.AddItemToCommand(ctx, second.ID, "snack", 1)) // 25.50
	require.NoError(t, s.CloseCommand(ctx, second.ID, core.PaymentCard))

	state, err := s.GetState(ctx)
	require.NoError(t, err)
	assert.Equal(t, 145.50, state.Cashier.CurrentBalance)
	assert.Len(t, state.Cashier.Transactions, 2)
}

func TestOpenCashierResetsShift(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.OpenCashier(ctx, 10))
	command, err := s.OpenCommand(ctx, "4", "")
	require.NoError(t, err)
	require.NoError(t, s.AddItemToCommand(ctx, command.ID, "1", 1))
	require.NoError(t, s.CloseCommand(ctx, command.ID, core.PaymentCash))
	require.NoError(t, s.CloseCashier(ctx))

	state, err := s.GetState(ctx)
	require.NoError(t, err)
	// Close only flips the flag; history stays readable.
	assert.False(t, state.Cashier.IsOpen)
	assert.Equal(t, 22.5, state.Cashier.CurrentBalance)
	assert.Len(t, state.Cashier.Transactions, 1)

	require.NoError(t, s.OpenCashier(ctx, 200))
	state, err = s.GetState(ctx)
	require.NoError(t, err)
	assert.True(t, state.Cashier.IsOpen)
	assert.Equal(t, 200.0, state.Cashier.InitialBalance)
	assert.Equal(t, 200.0, state.Cashier.CurrentBalance)
	assert.Empty(t, state.Cashier.Transactions)
	// Commands survive the shift boundary.
	assert.Len(t, state.Commands, 1)
}

func TestLocalSubscriberSeesEveryMutation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var snapshots []*core.AppState
	unsubscribe := s.Subscribe(func(state *core.AppState) {
		snapshots = append(snapshots, state)
	})
	defer unsubscribe()

	command, err := s.OpenCommand(ctx, "1", "")
	require.NoError(t, err)
	require.NoError(t, s.AddItemToCommand(ctx, command.ID, "1", 2))

	require.Len(t, snapshots, 2)
	last := snapshots[len(snapshots)-1]
	assert.Equal(t, 25.0, last.FindCommand(command.ID).Total)

	// No-op mutations do not notify.
	require.NoError(t, s.DeleteProduct(ctx, "missing"))
	assert.Len(t, snapshots, 2)

	unsubscribe()
	require.NoError(t, s.CloseCommand(ctx, command.ID, core.PaymentCash))
	assert.Len(t, snapshots, 2)
}

func TestCrossContextSubscriberReceivesSavedSnapshot(t *testing.T) {
	// Two stores over the same storage and broadcaster stand in for two
	// open tabs of the same venue.
	bc := core.NewLoopbackBroadcaster()
	stg := core.NewInMemoryStorage()
	ctx := context.Background()

	writer, err := store.New(ctx, stg, bc,
		store.WithIDGenerator(core.NewSequenceGenerator("w")),
	)
	require.NoError(t, err)
	defer writer.Close()

	reader, err := store.New(ctx, stg, bc)
	require.NoError(t, err)
	defer reader.Close()

	var received []*core.AppState
	reader.Subscribe(func(state *core.AppState) {
		received = append(received, state)
	})

	command, err := writer.OpenCommand(ctx, "12", "Maria")
	require.NoError(t, err)
	require.NoError(t, writer.AddItemToCommand(ctx, command.ID, "1", 2))

	require.Len(t, received, 2)
	got := received[len(received)-1].FindCommand(command.ID)
	require.NotNil(t, got)
	assert.Equal(t, "Maria", got.CustomerName)
	assert.Equal(t, 25.0, got.Total)

	// The received snapshot equals what the writer persisted.
	saved, err := writer.GetState(ctx)
	require.NoError(t, err)
	assert.Equal(t, saved, received[len(received)-1])
}

type failingStorage struct {
	core.Storage
	fail bool
}

func (f *failingStorage) Save(ctx context.Context, state *core.AppState) error {
	if f.fail {
		return core.ErrStorageUnavailable
	}
	return f.Storage.Save(ctx, state)
}

func TestStorageFailurePropagatesAndLeavesStateUntouched(t *testing.T) {
	stg := &failingStorage{Storage: core.NewInMemoryStorage()}
	s := newTestStoreWith(t, stg, core.NewLoopbackBroadcaster())
	ctx := context.Background()

	command, err := s.OpenCommand(ctx, "1", "")
	require.NoError(t, err)

	notified := 0
	s.Subscribe(func(*core.AppState) { notified++ })

	stg.fail = true
	err = s.AddItemToCommand(ctx, command.ID, "1", 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrStorageUnavailable))
	assert.Zero(t, notified, "a failed save must not notify subscribers")

	stg.fail = false
	state, err := s.GetState(ctx)
	require.NoError(t, err)
	assert.Empty(t, state.FindCommand(command.ID).Items)
}
