package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/kestrelworks/eventguard-go/connectors/eghttp"
	"github.com/kestrelworks/eventguard-go/eg"
	"github.com/kestrelworks/eventguard-go/guard"
	"github.com/kestrelworks/eventguard-go/projection"
	"github.com/kestrelworks/eventguard-go/samples/orders"
	"github.com/kestrelworks/eventguard-go/stores/jetstream"
	"github.com/kestrelworks/eventguard-go/stores/memory"
	"github.com/kestrelworks/eventguard-go/support"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Logger = zerolog.New(os.Stdout).With().
		Timestamp().
		Str("service", "eventguardd").
		Logger()

	config, err := support.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	if err := run(ctx, config); err != nil {
		log.Fatal().Err(err).Msg("service failed")
	}
}

func run(ctx context.Context, config support.Config) error {
	stopTracing, err := config.Tracing(ctx, "eventguardd")
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := stopTracing(flushCtx); err != nil {
			log.Error().Err(err).Msg("failed to flush traces")
		}
	}()

	states := guard.NewMemoryStateStore()
	storeGuard := config.StoreGuard(states)
	queryGuard := config.QueryGuard(states)
	projectionGuard := config.ProjectionGuard(states)

	store, err := openStore(config)
	if err != nil {
		return err
	}

	summaries := orders.NewSummaries()

	engine := projection.NewEngine(store, projection.NewMemoryCursorStore(), projectionGuard)
	tenants := make([]eg.TenantID, len(config.Tenants))
	for i, tenant := range config.Tenants {
		tenants[i] = eg.TenantID(tenant)
	}
	engine.Subscribe(summaries, tenants...)

	go func() {
		if err := engine.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("projection engine stopped")
		}
	}()

	queries := eg.NewQueryService(
		summaries.QueryHandlers(),
		queryGuard,
		eg.WithFallback(config.Fallback()),
	)

	service := orders.NewService(store, storeGuard)

	handler := eghttp.NewHandler(
		map[string]eg.CommandExecutor{orders.AggregateType: service},
		queries,
		eghttp.NewHealth(storeGuard, queryGuard, projectionGuard),
	)

	server := &http.Server{Addr: config.HTTPAddr, Handler: handler}

	errs := make(chan error, 1)
	go func() {
		log.Info().Str("addr", config.HTTPAddr).Msg("eventguardd listening")
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	return server.Shutdown(shutdownCtx)
}

func openStore(config support.Config) (eg.EventStore, error) {
	switch config.Store {
	case "jetstream":
		nc, err := nats.Connect(config.NATSURL)
		if err != nil {
			return nil, err
		}

		return jetstream.NewEventStore("eventguard", nc)
	default:
		return memory.NewStore(), nil
	}
}
