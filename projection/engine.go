package projection

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/kestrelworks/eventguard-go/eg"
	"github.com/kestrelworks/eventguard-go/guard"
)

const (
	DefaultPollInterval = 250 * time.Millisecond
	DefaultBatchSize    = 64
)

type EngineOption func(engine *Engine)

func WithPollInterval(interval time.Duration) EngineOption {
	return func(e *Engine) {
		e.poll = interval
	}
}

func WithBatchSize(size int) EngineOption {
	return func(e *Engine) {
		e.batch = size
	}
}

func WithLogger(logger *zerolog.Logger) EngineOption {
	return func(e *Engine) {
		e.log = logger
	}
}

// Engine runs one consumer loop per (projection, tenant). Loops for
// different tenants run in parallel; within a tenant, events are applied in
// global append order. Command acknowledgement never waits on the engine.
type Engine struct {
	store   eg.EventStore
	cursors CursorStore
	guard   *guard.Executor
	log     *zerolog.Logger
	poll    time.Duration
	batch   int

	subscriptions []subscription
}

type subscription struct {
	projection Projection
	tenant     eg.TenantID
}

func NewEngine(store eg.EventStore, cursors CursorStore, executor *guard.Executor, options ...EngineOption) *Engine {
	engine := &Engine{
		store:   store,
		cursors: cursors,
		guard:   executor,
		poll:    DefaultPollInterval,
		batch:   DefaultBatchSize,
	}

	for _, option := range options {
		option(engine)
	}

	if engine.log == nil {
		engine.log = &log.Logger
	}

	return engine
}

func (e *Engine) Subscribe(p Projection, tenants ...eg.TenantID) {
	for _, tenant := range tenants {
		e.subscriptions = append(e.subscriptions, subscription{projection: p, tenant: tenant})
	}
}

// Run consumes until the context is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	for _, sub := range e.subscriptions {
		wg.Add(1)
		go func(sub subscription) {
			defer wg.Done()
			e.consume(ctx, sub)
		}(sub)
	}

	wg.Wait()
	return ctx.Err()
}

func (e *Engine) consume(ctx context.Context, sub subscription) {
	logger := e.log.With().
		Str("projection", sub.projection.Name()).
		Str("tenant", sub.tenant.String()).
		Logger()

	cursor, err := e.cursors.Load(ctx, sub.projection.Name(), sub.tenant)
	if err != nil {
		logger.Error().Err(err).Msg("failed to load cursor")
		return
	}

	for {
		if ctx.Err() != nil {
			return
		}

		batch, err := guard.Do(ctx, e.guard, func(ctx context.Context) ([]eg.RecordedEvent, error) {
			return e.store.ReadAll(ctx, sub.tenant, cursor, e.batch)
		})
		if err != nil {
			if ctx.Err() != nil {
				return
			}

			logger.Warn().Err(err).Msg("event feed unavailable")
			if !e.wait(ctx) {
				return
			}
			continue
		}

		if len(batch) == 0 {
			if !e.wait(ctx) {
				return
			}
			continue
		}

		applied, err := e.apply(ctx, sub, batch)
		if applied > 0 {
			cursor = batch[applied-1].Position
			if saveErr := e.cursors.Save(ctx, sub.projection.Name(), sub.tenant, cursor); saveErr != nil {
				logger.Error().Err(saveErr).Msg("failed to save cursor")
				return
			}
		}

		if err != nil {
			if ctx.Err() != nil {
				return
			}

			logger.Warn().Err(err).Msg("projection apply failed, will replay")
			if !e.wait(ctx) {
				return
			}
		}
	}
}

// apply processes a batch in order, returning how many events were applied.
// A failure stops the batch without advancing past the failed event, so the
// next pass redelivers it.
func (e *Engine) apply(ctx context.Context, sub subscription, batch []eg.RecordedEvent) (int, error) {
	for i, event := range batch {
		evt := event
		err := e.guard.Do(ctx, func(ctx context.Context) error {
			return sub.projection.Apply(ctx, evt)
		})
		if err != nil {
			return i, err
		}
	}

	return len(batch), nil
}

func (e *Engine) wait(ctx context.Context) bool {
	timer := time.NewTimer(e.poll)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
