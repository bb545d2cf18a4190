package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
	"wqd/internal/models"
	"wqd/internal/notifier"
	"wqd/internal/providers"
)

// MockLogger implements providers.Logger and records calls.
type MockLogger struct {
	mu   sync.Mutex
	Logs []LogEntry
}

type LogEntry struct {
	Level  string
	Type   providers.TypeEnum
	Format string
	Args   []interface{}
}

func (m *MockLogger) record(level string, t providers.TypeEnum, format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Logs = append(m.Logs, LogEntry{Level: level, Type: t, Format: format, Args: args})
}

func (m *MockLogger) Errorf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("error", t, format, args...)
}
func (m *MockLogger) Warnf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("warn", t, format, args...)
}
func (m *MockLogger) Debugf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("debug", t, format, args...)
}
func (m *MockLogger) Infof(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("info", t, format, args...)
}
func (m *MockLogger) Fatalf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("fatal", t, format, args...)
}
func (m *MockLogger) Close() {}

// Count returns how many entries were logged at level.
func (m *MockLogger) Count(level string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.Logs {
		if e.Level == level {
			n++
		}
	}
	return n
}

// Messages returns every formatted message logged at level.
func (m *MockLogger) Messages(level string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, e := range m.Logs {
		if e.Level == level {
			out = append(out, fmt.Sprintf(e.Format, e.Args...))
		}
	}
	return out
}

// MockStore implements interfaces.ReadingStore on top of a map, with
// injectable failures per operation.
type MockStore struct {
	mu          sync.Mutex
	Readings    map[string][]models.Reading
	AppendCalls int
	AppendErr   error
	ReadErr     error
	AppendDelay time.Duration
	Closed      bool
	seq         int
}

func NewMockStore() *MockStore {
	return &MockStore{Readings: make(map[string][]models.Reading)}
}

func (m *MockStore) Append(ctx context.Context, sourceID string, r models.Reading) (models.Handle, error) {
	if m.AppendDelay > 0 {
		select {
		case <-time.After(m.AppendDelay):
		case <-ctx.Done():
			return models.Handle{}, ctx.Err()
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AppendCalls++
	if m.AppendErr != nil {
		return models.Handle{}, m.AppendErr
	}
	m.seq++
	r.SourceID = sourceID
	if r.ID == "" {
		r.ID = fmt.Sprintf("r-%d", m.seq)
	}
	list := append(m.Readings[sourceID], r)
	sort.SliceStable(list, func(i, j int) bool { return list[i].RecordedAt.Before(list[j].RecordedAt) })
	m.Readings[sourceID] = list
	return models.Handle{ID: r.ID, SourceID: sourceID, RecordedAt: r.RecordedAt}, nil
}

func (m *MockStore) Latest(_ context.Context, sourceID string) (models.Reading, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ReadErr != nil {
		return models.Reading{}, m.ReadErr
	}
	list := m.Readings[sourceID]
	if len(list) == 0 {
		return models.Reading{}, models.ErrNotFound
	}
	return list[len(list)-1], nil
}

func (m *MockStore) LatestByField(_ context.Context, sourceID string, field models.Field) (models.FieldValue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ReadErr != nil {
		return models.FieldValue{}, m.ReadErr
	}
	list := m.Readings[sourceID]
	for i := len(list) - 1; i >= 0; i-- {
		if v, ok := list[i].Value(field); ok {
			return models.FieldValue{Field: field, Value: v, RecordedAt: list[i].RecordedAt}, nil
		}
	}
	return models.FieldValue{}, models.ErrNotFound
}

func (m *MockStore) History(_ context.Context, sourceID string, limit int) ([]models.Reading, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	list := m.Readings[sourceID]
	out := []models.Reading{}
	for i := len(list) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, list[i])
	}
	return out, nil
}

func (m *MockStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}

func (m *MockStore) Appends() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.AppendCalls
}

// MockNotifier implements notifier.Notifier and records delivered alerts.
type MockNotifier struct {
	mu     sync.Mutex
	Alerts []notifier.Alert
	Err    error
	Delay  time.Duration
}

func (m *MockNotifier) Notify(ctx context.Context, alert notifier.Alert) error {
	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Alerts = append(m.Alerts, alert)
	return nil
}

func (m *MockNotifier) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Alerts)
}

func (m *MockNotifier) SetErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Err = err
}

// MockMetrics implements providers.MetricsProviderInterface and counts calls by label.
type MockMetrics struct {
	mu            sync.Mutex
	Ingested      map[string]int
	Rejected      map[string]int
	Notifications map[string]int
	AlertStates   int
	Persisted     int
	StoreOps      map[string]int
}

func NewMockMetrics() *MockMetrics {
	return &MockMetrics{
		Ingested:      make(map[string]int),
		Rejected:      make(map[string]int),
		Notifications: make(map[string]int),
		StoreOps:      make(map[string]int),
	}
}

func (m *MockMetrics) IncRequestsTotal(_ string, _ int)                 {}
func (m *MockMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}
func (m *MockMetrics) IncCacheHits(_ string)                            {}
func (m *MockMetrics) IncCacheMisses(_ string)                          {}

func (m *MockMetrics) ObservePersistenceDuration(_ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Persisted++
}

func (m *MockMetrics) IncIngested(verdict string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Ingested[verdict]++
}

func (m *MockMetrics) IncRejected(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Rejected[reason]++
}

func (m *MockMetrics) IncNotifications(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Notifications[outcome]++
}

func (m *MockMetrics) SetAlertStates(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AlertStates = count
}

func (m *MockMetrics) ObserveStoreDuration(op string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StoreOps[op]++
}

// MockCache implements providers.CacheProviderInterface.
type MockCache struct {
	mu   sync.Mutex
	Data map[string][]byte
}

func NewMockCache() *MockCache {
	return &MockCache{Data: make(map[string][]byte)}
}

func (m *MockCache) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.Data[key]
	return val, ok
}

func (m *MockCache) Set(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Data[key] = value
}

// MockCompressor implements interfaces.CompressorInterface with injectable behavior.
type MockCompressor struct {
	CompressFn   func([]byte) ([]byte, error)
	DecompressFn func([]byte) ([]byte, error)
	Closed       bool
}

func (m *MockCompressor) Compress(val []byte) ([]byte, error) {
	if m.CompressFn != nil {
		return m.CompressFn(val)
	}
	// Default: return as-is (identity)
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (m *MockCompressor) Decompress(val []byte) ([]byte, error) {
	if m.DecompressFn != nil {
		return m.DecompressFn(val)
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (m *MockCompressor) Close() {
	m.Closed = true
}
