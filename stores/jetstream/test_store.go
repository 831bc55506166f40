package jetstream

import (
	"os"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
)

// NewTestStore runs an embedded JetStream-enabled NATS server and returns a
// store bound to it.
func NewTestStore(options ...EventStoreOption) (*EventStore, func(), error) {
	dir, err := os.MkdirTemp("", "eventguard-jetstream-test")
	if err != nil {
		return nil, nil, err
	}

	opts := &natsserver.Options{
		Host:      "127.0.0.1",
		Port:      -1,
		JetStream: true,
		StoreDir:  dir,
	}
	srv, err := natsserver.NewServer(opts)
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, nil, err
	}

	srv.Start()
	if !srv.ReadyForConnections(5 * time.Second) {
		srv.Shutdown()
		_ = os.RemoveAll(dir)
		return nil, nil, errors.New("embedded NATS not ready")
	}

	nc, err := nats.Connect(srv.ClientURL())
	if err != nil {
		srv.Shutdown()
		_ = os.RemoveAll(dir)
		return nil, nil, err
	}

	cleanup := func() {
		nc.Close()
		srv.Shutdown()
		_ = os.RemoveAll(dir)
	}

	store, err := NewEventStore("test", nc, options...)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	return store, cleanup, nil
}
