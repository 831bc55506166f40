// Package support holds service wiring helpers shared by binaries.
package support

import (
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/kestrelworks/eventguard-go/guard"
)

// Config is the environment-driven service configuration. The resilience
// values are the per-dependency policy inputs; the defaults mirror the
// guard package's.
type Config struct {
	HTTPAddr string   `env:"HTTP_ADDR" envDefault:":8080"`
	NATSURL  string   `env:"NATS_URL"`
	Store    string   `env:"EVENT_STORE" envDefault:"memory"`
	Tenants  []string `env:"TENANTS" envSeparator:"," envDefault:"default"`

	StoreFailureThreshold int           `env:"STORE_BREAKER_THRESHOLD" envDefault:"5"`
	StoreOpenDuration     time.Duration `env:"STORE_BREAKER_OPEN" envDefault:"60s"`
	StoreRetryAttempts    int           `env:"STORE_RETRY_ATTEMPTS" envDefault:"3"`
	StoreRetryBase        time.Duration `env:"STORE_RETRY_BASE" envDefault:"1s"`
	StoreCallTimeout      time.Duration `env:"STORE_CALL_TIMEOUT" envDefault:"10s"`

	QueryFailureThreshold int           `env:"QUERY_BREAKER_THRESHOLD" envDefault:"3"`
	QueryOpenDuration     time.Duration `env:"QUERY_BREAKER_OPEN" envDefault:"30s"`
	QueryRetryAttempts    int           `env:"QUERY_RETRY_ATTEMPTS" envDefault:"2"`
	QueryRetryBase        time.Duration `env:"QUERY_RETRY_BASE" envDefault:"2s"`
	QueryCallTimeout      time.Duration `env:"QUERY_CALL_TIMEOUT" envDefault:"15s"`

	ProjectionRetryAttempts int           `env:"PROJECTION_RETRY_ATTEMPTS" envDefault:"2"`
	ProjectionRetryBase     time.Duration `env:"PROJECTION_RETRY_BASE" envDefault:"2s"`

	BreakerWindow     time.Duration `env:"BREAKER_WINDOW" envDefault:"60s"`
	FallbackCacheSize int           `env:"FALLBACK_CACHE_SIZE" envDefault:"1024"`
	FallbackCacheTTL  time.Duration `env:"FALLBACK_CACHE_TTL" envDefault:"10m"`

	TraceExporter string `env:"TRACE_EXPORTER" envDefault:"none"`
	OTLPEndpoint  string `env:"OTLP_ENDPOINT" envDefault:"localhost:4317"`
}

func Load() (Config, error) {
	var config Config
	if err := env.Parse(&config); err != nil {
		return Config{}, err
	}

	return config, nil
}

func (c Config) StoreGuard(store guard.StateStore) *guard.Executor {
	return guard.New("event-store",
		guard.WithStateStore(store),
		guard.WithBreakerSettings(guard.BreakerSettings{
			FailureThreshold: c.StoreFailureThreshold,
			Window:           c.BreakerWindow,
			OpenDuration:     c.StoreOpenDuration,
		}),
		guard.WithRetry(guard.RetryPolicy{
			MaxAttempts: c.StoreRetryAttempts,
			BaseDelay:   c.StoreRetryBase,
			MaxDelay:    c.StoreOpenDuration,
		}),
		guard.WithTimeout(c.StoreCallTimeout),
	)
}

func (c Config) QueryGuard(store guard.StateStore) *guard.Executor {
	return guard.New("query-path",
		guard.WithStateStore(store),
		guard.WithBreakerSettings(guard.BreakerSettings{
			FailureThreshold: c.QueryFailureThreshold,
			Window:           c.BreakerWindow,
			OpenDuration:     c.QueryOpenDuration,
		}),
		guard.WithRetry(guard.RetryPolicy{
			MaxAttempts: c.QueryRetryAttempts,
			BaseDelay:   c.QueryRetryBase,
			MaxDelay:    c.QueryOpenDuration,
		}),
		guard.WithTimeout(c.QueryCallTimeout),
	)
}

func (c Config) ProjectionGuard(store guard.StateStore) *guard.Executor {
	return guard.New("projections",
		guard.WithStateStore(store),
		guard.WithBreakerSettings(guard.BreakerSettings{
			FailureThreshold: c.StoreFailureThreshold,
			Window:           c.BreakerWindow,
			OpenDuration:     c.StoreOpenDuration,
		}),
		guard.WithRetry(guard.RetryPolicy{
			MaxAttempts: c.ProjectionRetryAttempts,
			BaseDelay:   c.ProjectionRetryBase,
			MaxDelay:    c.StoreOpenDuration,
		}),
		guard.WithTimeout(c.StoreCallTimeout),
	)
}

func (c Config) Fallback() *guard.FallbackCache {
	return guard.NewFallbackCache(c.FallbackCacheSize, c.FallbackCacheTTL)
}
