package storage

import (
	"context"
	"fmt"
	"wqd/internal/providers"
	"wqd/internal/storage/interfaces"
	"wqd/internal/structures"
)

// Backend is the configured reading store plus, for the file driver, the
// snapshot manager that persists it.
type Backend struct {
	Store      interfaces.ReadingStore
	Snapshots  *FileManager
	compressor interfaces.CompressorInterface
}

func NewBackend(conf *structures.Config, logger providers.Logger, metrics providers.MetricsProviderInterface, compressor interfaces.CompressorInterface) (*Backend, error) {
	var (
		store     interfaces.ReadingStore
		snapshots *FileManager
	)

	switch conf.Store.Driver {
	case "", "memory":
		store = NewMemoryStore()
	case "file":
		mem := NewMemoryStore()
		snapshots = NewFileManager(compressor, mem, logger)
		store = mem
	case "mongo":
		ctx := context.Background()
		client, err := NewMongoConnection(ctx, conf.Store.Mongo.URI)
		if err != nil {
			return nil, err
		}
		mongoStore, err := NewMongoReadingStore(ctx, client, conf.Store.Mongo)
		if err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
		store = mongoStore
	case "postgres":
		pgStore, err := NewPostgresReadingStore(conf.Store.Postgres.DSN)
		if err != nil {
			return nil, err
		}
		store = pgStore
	default:
		return nil, fmt.Errorf("unknown store driver %q", conf.Store.Driver)
	}

	logger.Infof(providers.TypeApp, "Reading store initialized: driver=%s timeout=%s", conf.Store.Driver, conf.Store.Timeout)
	return &Backend{
		Store:      WithTimeout(store, conf.Store.Timeout, metrics),
		Snapshots:  snapshots,
		compressor: compressor,
	}, nil
}

// Close releases the store connection and the compressor.
func (b *Backend) Close() error {
	err := b.Store.Close()
	if b.compressor != nil {
		b.compressor.Close()
	}
	return err
}

func ProvideReadingStore(b *Backend) interfaces.ReadingStore {
	return b.Store
}
