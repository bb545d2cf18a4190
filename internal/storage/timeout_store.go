package storage

import (
	"context"
	"errors"
	"fmt"
	"time"
	"wqd/internal/models"
	"wqd/internal/providers"
	"wqd/internal/storage/interfaces"
)

// timeoutStore bounds every call of the wrapped store and maps backend
// failures onto the models error kinds.
type timeoutStore struct {
	inner   interfaces.ReadingStore
	timeout time.Duration
	metrics providers.MetricsProviderInterface
}

// WithTimeout wraps inner so that each call runs with its own deadline.
// A non-positive timeout keeps only the caller's deadline.
func WithTimeout(inner interfaces.ReadingStore, timeout time.Duration, metrics providers.MetricsProviderInterface) interfaces.ReadingStore {
	return &timeoutStore{inner: inner, timeout: timeout, metrics: metrics}
}

func (s *timeoutStore) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *timeoutStore) observe(op string, start time.Time) {
	s.metrics.ObserveStoreDuration(op, time.Since(start))
}

func classify(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, models.ErrNotFound), errors.Is(err, models.ErrTimeout), errors.Is(err, models.ErrStorageUnavailable):
		return err
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return fmt.Errorf("%s: %w", op, models.ErrTimeout)
	}
	return fmt.Errorf("%s: %w: %v", op, models.ErrStorageUnavailable, err)
}

func (s *timeoutStore) Append(ctx context.Context, sourceID string, r models.Reading) (models.Handle, error) {
	defer s.observe("append", time.Now())
	ctx, cancel := s.bound(ctx)
	defer cancel()
	h, err := s.inner.Append(ctx, sourceID, r)
	return h, classify("append", err)
}

func (s *timeoutStore) Latest(ctx context.Context, sourceID string) (models.Reading, error) {
	defer s.observe("latest", time.Now())
	ctx, cancel := s.bound(ctx)
	defer cancel()
	r, err := s.inner.Latest(ctx, sourceID)
	return r, classify("latest", err)
}

func (s *timeoutStore) LatestByField(ctx context.Context, sourceID string, field models.Field) (models.FieldValue, error) {
	defer s.observe("latest_by_field", time.Now())
	ctx, cancel := s.bound(ctx)
	defer cancel()
	v, err := s.inner.LatestByField(ctx, sourceID, field)
	return v, classify("latest_by_field", err)
}

func (s *timeoutStore) History(ctx context.Context, sourceID string, limit int) ([]models.Reading, error) {
	defer s.observe("history", time.Now())
	ctx, cancel := s.bound(ctx)
	defer cancel()
	list, err := s.inner.History(ctx, sourceID, limit)
	return list, classify("history", err)
}

func (s *timeoutStore) Close() error {
	return s.inner.Close()
}
