package interfaces

import (
	"context"
	"time"
	"wqd/internal/models"
)

// ReadingStore is the durable, per-source, time-ordered log of readings.
// Latest and LatestByField return models.ErrNotFound when the source has no
// matching readings. History returns an empty, non-nil slice instead.
type ReadingStore interface {
	Append(ctx context.Context, sourceID string, r models.Reading) (models.Handle, error)
	Latest(ctx context.Context, sourceID string) (models.Reading, error)
	LatestByField(ctx context.Context, sourceID string, field models.Field) (models.FieldValue, error)
	History(ctx context.Context, sourceID string, limit int) ([]models.Reading, error)
	Close() error
}

// Snapshotter is implemented by stores that can be dumped to and loaded from a file.
type Snapshotter interface {
	Snapshot() models.Snapshot
	Restore(snapshot models.Snapshot) error
}

type CompressorInterface interface {
	Compress(val []byte) ([]byte, error)
	Decompress(val []byte) ([]byte, error)
	Close()
}

type SchedulerInterface interface {
	Init()
	Stop()
	Restore() error
	Persist() error
}

// AlertEvictor drops alert state that has been idle past its inactivity window.
type AlertEvictor interface {
	Evict(now time.Time) int
	Len() int
}
