package jetstream_test

import (
	"context"
	"testing"

	"github.com/kestrelworks/eventguard-go/eg"
	"github.com/kestrelworks/eventguard-go/stores/jetstream"
)

func TestEventStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping embedded NATS store test in short mode")
	}

	ctx := context.Background()
	store, cleanup, err := jetstream.NewTestStore()
	if err != nil {
		t.Fatal(err)
	}
	defer cleanup()

	t.Run("jetstream event store validation", func(t *testing.T) {
		suite := eg.NewEventStoreValidationSuite(ctx, store)
		suite.Run(t)
	})
}
