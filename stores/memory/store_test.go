package memory_test

import (
	"context"
	"testing"

	"github.com/kestrelworks/eventguard-go/eg"
	"github.com/kestrelworks/eventguard-go/stores/memory"
)

func TestEventStore(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	t.Run("memory event store validation", func(t *testing.T) {
		suite := eg.NewEventStoreValidationSuite(ctx, store)
		suite.Run(t)
	})
}
