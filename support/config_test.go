package support

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	config, err := Load()

	require.NoError(t, err)
	assert.Equal(t, ":8080", config.HTTPAddr)
	assert.Equal(t, "memory", config.Store)
	assert.Equal(t, []string{"default"}, config.Tenants)
	assert.Equal(t, 5, config.StoreFailureThreshold)
	assert.Equal(t, time.Minute, config.StoreOpenDuration)
	assert.Equal(t, "none", config.TraceExporter)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("TENANTS", "acme,globex")
	t.Setenv("EVENT_STORE", "jetstream")
	t.Setenv("STORE_RETRY_ATTEMPTS", "5")
	t.Setenv("TRACE_EXPORTER", "console")

	config, err := Load()

	require.NoError(t, err)
	assert.Equal(t, []string{"acme", "globex"}, config.Tenants)
	assert.Equal(t, "jetstream", config.Store)
	assert.Equal(t, 5, config.StoreRetryAttempts)
	assert.Equal(t, "console", config.TraceExporter)
}

func TestTracingWithoutExporterIsNoop(t *testing.T) {
	config := Config{TraceExporter: "none"}

	shutdown, err := config.Tracing(context.Background(), "test")

	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestTracingConsoleExporter(t *testing.T) {
	config := Config{TraceExporter: "console"}

	shutdown, err := config.Tracing(context.Background(), "test")

	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}
