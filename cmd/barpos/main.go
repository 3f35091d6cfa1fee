// Command barpos is the operator console for the bar POS engine. It owns
// construction and lifecycle: it builds the configured storage and
// broadcast backends, hands them to a store instance, runs one subcommand
// against it, and tears everything down on exit.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/amorimbar/barpos/broadcast"
	"github.com/amorimbar/barpos/core"
	"github.com/amorimbar/barpos/enrich"
	"github.com/amorimbar/barpos/storage"
	"github.com/amorimbar/barpos/store"
	"github.com/amorimbar/barpos/telemetry"
)

const usage = `Usage: barpos [-config file] <command> [args]

Commands:
  product list|add|update|delete   manage the catalog
  command open|add|close|list      manage table tickets
  cashier open|close|status        manage the till shift
  menu                             print the customer-facing menu
  suggest <product name>           AI description/price suggestion
  watch                            follow snapshots from other contexts
`

func main() {
	// A local .env is a convenience for development; absence is fine.
	_ = godotenv.Load()

	configPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(*configPath, flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "barpos: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, args []string) error {
	cfg, err := core.LoadConfig(configPath)
	if err != nil {
		return err
	}

	logger := core.NewSimpleLogger()
	logger.SetLevel(cfg.LogLevel)

	otel, err := telemetry.New("barpos")
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	defer func() { _ = otel.Shutdown(context.Background()) }()

	app, err := newApp(ctx, cfg, logger, otel)
	if err != nil {
		return err
	}
	defer app.close()

	return app.dispatch(ctx, args)
}

// app bundles the constructed collaborators for the subcommand handlers.
type app struct {
	store    *store.Store
	enricher *enrich.Client
	logger   core.Logger
	cleanup  []func()
}

func newApp(ctx context.Context, cfg *core.Config, logger core.Logger, otel core.Telemetry) (*app, error) {
	a := &app{logger: logger}

	stg, err := buildStorage(cfg, logger)
	if err != nil {
		return nil, err
	}
	if c, ok := stg.(interface{ Close() error }); ok {
		a.cleanup = append(a.cleanup, func() { _ = c.Close() })
	}

	bc, err := buildBroadcaster(cfg, logger)
	if err != nil {
		a.close()
		return nil, err
	}
	a.cleanup = append(a.cleanup, func() { _ = bc.Close() })

	st, err := store.New(ctx, stg, bc,
		store.WithLogger(logger),
		store.WithTelemetry(otel),
	)
	if err != nil {
		a.close()
		return nil, err
	}
	a.cleanup = append(a.cleanup, st.Close)

	a.store = st
	a.enricher = enrich.NewClient(cfg.AI, logger)
	return a, nil
}

func (a *app) close() {
	for i := len(a.cleanup) - 1; i >= 0; i-- {
		a.cleanup[i]()
	}
	a.cleanup = nil
}

func buildStorage(cfg *core.Config, logger core.Logger) (core.Storage, error) {
	switch cfg.Storage.Backend {
	case "memory":
		return core.NewInMemoryStorage(), nil
	case "file":
		return storage.NewFile(cfg.Storage.FilePath, logger)
	case "redis":
		return storage.NewRedis(storage.RedisOptions{
			RedisURL: cfg.Storage.RedisURL,
			Key:      cfg.Storage.Key,
			Logger:   logger,
		})
	default:
		return nil, fmt.Errorf("%w: unknown storage backend %q", core.ErrInvalidInput, cfg.Storage.Backend)
	}
}

func buildBroadcaster(cfg *core.Config, logger core.Logger) (core.Broadcaster, error) {
	switch cfg.Broadcast.Backend {
	case "loopback":
		return core.NewLoopbackBroadcaster(), nil
	case "redis":
		return broadcast.NewRedis(broadcast.RedisOptions{
			RedisURL: cfg.Broadcast.RedisURL,
			Channel:  cfg.Broadcast.Channel,
			Logger:   logger,
		})
	default:
		return nil, fmt.Errorf("%w: unknown broadcast backend %q", core.ErrInvalidInput, cfg.Broadcast.Backend)
	}
}

func (a *app) dispatch(ctx context.Context, args []string) error {
	switch args[0] {
	case "product":
		return a.runProduct(ctx, args[1:])
	case "command":
		return a.runCommand(ctx, args[1:])
	case "cashier":
		return a.runCashier(ctx, args[1:])
	case "menu":
		return a.runMenu(ctx)
	case "suggest":
		return a.runSuggest(ctx, args[1:])
	case "watch":
		return a.runWatch(ctx)
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}
