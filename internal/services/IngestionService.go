package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"wqd/internal/models"
	"wqd/internal/notifier"
	"wqd/internal/providers"
	"wqd/internal/quality"
	"wqd/internal/storage/interfaces"
	"wqd/internal/structures"

	"go.uber.org/atomic"
)

const (
	MaxHistoryLimit      = 100
	DefaultNotifyTimeout = 10 * time.Second
)

type IngestionServiceInterface interface {
	Ingest(ctx context.Context, raw map[string]any) (*models.IngestResult, error)
	Latest(ctx context.Context, sourceID string) (*models.LatestResult, error)
	LatestField(ctx context.Context, sourceID, pin string) (*models.FieldResult, error)
	History(ctx context.Context, sourceID string, limit int) ([]models.Reading, error)
	DefaultSource() string
	Stats() models.IngestStats
}

type IngestionService struct {
	normalizer    *quality.Normalizer
	evaluator     *quality.Evaluator
	gate          *quality.AlertGate
	store         interfaces.ReadingStore
	notifier      notifier.Notifier
	logger        providers.Logger
	metrics       providers.MetricsProviderInterface
	locks         *sourceLocks
	notifyTimeout time.Duration
	now           func() time.Time

	ingested       atomic.Uint64
	rejected       atomic.Uint64
	notified       atomic.Uint64
	notifyFailures atomic.Uint64
}

func NewIngestionService(
	conf *structures.Config,
	logger providers.Logger,
	normalizer *quality.Normalizer,
	evaluator *quality.Evaluator,
	gate *quality.AlertGate,
	store interfaces.ReadingStore,
	n notifier.Notifier,
	metrics providers.MetricsProviderInterface,
) IngestionServiceInterface {
	timeout := conf.Notifier.Timeout
	if timeout <= 0 {
		timeout = DefaultNotifyTimeout
	}
	return &IngestionService{
		normalizer:    normalizer,
		evaluator:     evaluator,
		gate:          gate,
		store:         store,
		notifier:      n,
		logger:        logger,
		metrics:       metrics,
		locks:         newSourceLocks(),
		notifyTimeout: timeout,
		now:           time.Now,
	}
}

func (s *IngestionService) reject(err error) {
	s.rejected.Inc()
	s.metrics.IncRejected(models.ErrorReason(err))
}

// Ingest normalizes, evaluates and stores one payload, then notifies when
// the alert gate allows it. A failed notification does not fail the call.
func (s *IngestionService) Ingest(ctx context.Context, raw map[string]any) (*models.IngestResult, error) {
	r, err := s.normalizer.Normalize(raw)
	if err != nil {
		s.reject(err)
		s.logger.Debugf(providers.TypePost, "Rejected reading: %s", err)
		return nil, err
	}
	verdict := s.evaluator.Evaluate(r)

	release, err := s.locks.acquire(ctx, r.SourceID)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			err = fmt.Errorf("waiting for source %s: %w", r.SourceID, err)
		} else {
			err = fmt.Errorf("waiting for source %s: %w: %w", r.SourceID, models.ErrTimeout, err)
		}
		s.reject(err)
		s.logger.Warnf(providers.TypePost, "Ingest abandoned: %s", err)
		return nil, err
	}
	defer release()

	h, err := s.store.Append(ctx, r.SourceID, r)
	if err != nil {
		s.reject(err)
		s.logger.Errorf(providers.TypePost, "Append failed for %s: %s", r.SourceID, err)
		return nil, err
	}
	r.ID = h.ID
	r.RecordedAt = h.RecordedAt

	s.ingested.Inc()
	s.metrics.IncIngested(verdict.Label())
	result := &models.IngestResult{Stored: r, Verdict: verdict}

	now := s.now()
	if !s.gate.ShouldNotify(r.SourceID, r, verdict, now) {
		if !verdict.IsSafe {
			s.metrics.IncNotifications("suppressed")
		}
		return result, nil
	}

	if err := s.notify(ctx, notifier.NewAlert(r.SourceID, r, verdict, now)); err != nil {
		s.notifyFailures.Inc()
		s.metrics.IncNotifications("failed")
		s.logger.Errorf(providers.TypePost, "Alert for %s not delivered: %s", r.SourceID, err)
		result.NotifyError = err.Error()
	} else {
		s.gate.RecordNotified(r.SourceID, r, s.now())
		s.notified.Inc()
		s.metrics.IncNotifications("delivered")
		result.Notified = true
	}
	s.metrics.SetAlertStates(s.gate.Len())
	return result, nil
}

// notify runs detached from the request's cancellation, bounded by notifyTimeout.
func (s *IngestionService) notify(ctx context.Context, alert notifier.Alert) error {
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notifyTimeout)
	defer cancel()

	err := s.notifier.Notify(nctx, alert)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", models.ErrNotifierFailure, models.ErrTimeout)
	}
	return fmt.Errorf("%w: %v", models.ErrNotifierFailure, err)
}

func (s *IngestionService) source(sourceID string) string {
	if sourceID = strings.TrimSpace(sourceID); sourceID == "" {
		return s.normalizer.DefaultSource()
	}
	return sourceID
}

func (s *IngestionService) Latest(ctx context.Context, sourceID string) (*models.LatestResult, error) {
	r, err := s.store.Latest(ctx, s.source(sourceID))
	if err != nil {
		return nil, err
	}
	return &models.LatestResult{Reading: r, Verdict: s.evaluator.Evaluate(r)}, nil
}

func (s *IngestionService) LatestField(ctx context.Context, sourceID, pin string) (*models.FieldResult, error) {
	field, err := s.normalizer.Pins().Resolve(pin)
	if err != nil {
		return nil, err
	}
	fv, err := s.store.LatestByField(ctx, s.source(sourceID), field)
	if err != nil {
		return nil, err
	}
	return &models.FieldResult{
		Pin:        strings.ToLower(pin),
		Field:      fv.Field,
		Value:      fv.Value,
		RecordedAt: fv.RecordedAt,
	}, nil
}

// History returns at most MaxHistoryLimit readings, newest first.
func (s *IngestionService) History(ctx context.Context, sourceID string, limit int) ([]models.Reading, error) {
	if limit <= 0 || limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	return s.store.History(ctx, s.source(sourceID), limit)
}

func (s *IngestionService) DefaultSource() string {
	return s.normalizer.DefaultSource()
}

func (s *IngestionService) Stats() models.IngestStats {
	return models.IngestStats{
		Ingested:       s.ingested.Load(),
		Rejected:       s.rejected.Load(),
		Notified:       s.notified.Load(),
		NotifyFailures: s.notifyFailures.Load(),
		AlertStates:    s.gate.Len(),
	}
}
