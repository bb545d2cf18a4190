package storage

import (
	"context"
	"sort"
	"sync"
	"wqd/internal/models"
	"wqd/internal/storage/interfaces"

	"github.com/google/uuid"
)

// DefaultHistoryLimit is applied when History is called with a non-positive limit.
const DefaultHistoryLimit = 100

// MemoryStore keeps every source's readings sorted by RecordedAt, oldest first.
// Readings with equal timestamps keep their insertion order.
type MemoryStore struct {
	mu      sync.RWMutex
	sources map[string][]models.Reading
}

var (
	_ interfaces.ReadingStore = (*MemoryStore)(nil)
	_ interfaces.Snapshotter  = (*MemoryStore)(nil)
)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sources: make(map[string][]models.Reading)}
}

func newReadingID() string {
	return uuid.Must(uuid.NewV7()).String()
}

func (s *MemoryStore) Append(ctx context.Context, sourceID string, r models.Reading) (models.Handle, error) {
	if err := ctx.Err(); err != nil {
		return models.Handle{}, err
	}
	r.SourceID = sourceID
	if r.ID == "" {
		r.ID = newReadingID()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.sources[sourceID]
	i := sort.Search(len(list), func(i int) bool {
		return list[i].RecordedAt.After(r.RecordedAt)
	})
	list = append(list, models.Reading{})
	copy(list[i+1:], list[i:])
	list[i] = r
	s.sources[sourceID] = list

	return models.Handle{ID: r.ID, SourceID: sourceID, RecordedAt: r.RecordedAt}, nil
}

func (s *MemoryStore) Latest(ctx context.Context, sourceID string) (models.Reading, error) {
	if err := ctx.Err(); err != nil {
		return models.Reading{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.sources[sourceID]
	if len(list) == 0 {
		return models.Reading{}, models.ErrNotFound
	}
	return list[len(list)-1], nil
}

func (s *MemoryStore) LatestByField(ctx context.Context, sourceID string, field models.Field) (models.FieldValue, error) {
	if err := ctx.Err(); err != nil {
		return models.FieldValue{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.sources[sourceID]
	for i := len(list) - 1; i >= 0; i-- {
		if v, ok := list[i].Value(field); ok {
			return models.FieldValue{Field: field, Value: v, RecordedAt: list[i].RecordedAt}, nil
		}
	}
	return models.FieldValue{}, models.ErrNotFound
}

// History returns up to limit readings, newest first.
func (s *MemoryStore) History(ctx context.Context, sourceID string, limit int) ([]models.Reading, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.sources[sourceID]
	n := min(limit, len(list))
	out := make([]models.Reading, 0, n)
	for i := len(list) - 1; i >= len(list)-n; i-- {
		out = append(out, list[i])
	}
	return out, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

func (s *MemoryStore) Snapshot() models.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sources := make(map[string][]models.Reading, len(s.sources))
	for id, list := range s.sources {
		sources[id] = append([]models.Reading(nil), list...)
	}
	return models.Snapshot{Version: models.SnapshotVersion, Sources: sources}
}

// Restore replaces the whole content of the store.
func (s *MemoryStore) Restore(snapshot models.Snapshot) error {
	sources := make(map[string][]models.Reading, len(snapshot.Sources))
	for id, list := range snapshot.Sources {
		sorted := append([]models.Reading(nil), list...)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].RecordedAt.Before(sorted[j].RecordedAt)
		})
		for i := range sorted {
			sorted[i].SourceID = id
			if sorted[i].ID == "" {
				sorted[i].ID = newReadingID()
			}
		}
		sources[id] = sorted
	}

	s.mu.Lock()
	s.sources = sources
	s.mu.Unlock()
	return nil
}

// Count returns the number of readings held for sourceID.
func (s *MemoryStore) Count(sourceID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sources[sourceID])
}
