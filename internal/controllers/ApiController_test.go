package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"
	"wqd/internal/models"
	"wqd/internal/providers"
	"wqd/internal/structures"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

// --- local mocks (scoped to controller tests) ---

type mockLogger struct{}

func (m *mockLogger) Errorf(_ providers.TypeEnum, _ string, _ ...interface{}) {}
func (m *mockLogger) Warnf(_ providers.TypeEnum, _ string, _ ...interface{})  {}
func (m *mockLogger) Debugf(_ providers.TypeEnum, _ string, _ ...interface{}) {}
func (m *mockLogger) Infof(_ providers.TypeEnum, _ string, _ ...interface{})  {}
func (m *mockLogger) Fatalf(_ providers.TypeEnum, _ string, _ ...interface{}) {}
func (m *mockLogger) Close()                                                  {}

type mockService struct {
	ingestCalls []map[string]any
	ingestErr   error
	latest      *models.LatestResult
	field       *models.FieldResult
	history     []models.Reading
	readErr     error
	latestCalls int
	sources     []string
	pins        []string
	limits      []int
	stats       models.IngestStats
}

func (m *mockService) Ingest(_ context.Context, raw map[string]any) (*models.IngestResult, error) {
	m.ingestCalls = append(m.ingestCalls, raw)
	if m.ingestErr != nil {
		return nil, m.ingestErr
	}
	src, _ := raw["source_id"].(string)
	if src == "" {
		src = m.DefaultSource()
	}
	return &models.IngestResult{
		Stored:  models.Reading{ID: "r1", SourceID: src}.With(models.FieldPH, 7),
		Verdict: models.Verdict{IsSafe: true, Violations: []models.Field{}},
	}, nil
}

func (m *mockService) Latest(_ context.Context, sourceID string) (*models.LatestResult, error) {
	m.latestCalls++
	m.sources = append(m.sources, sourceID)
	if m.readErr != nil {
		return nil, m.readErr
	}
	return m.latest, nil
}

func (m *mockService) LatestField(_ context.Context, sourceID, pin string) (*models.FieldResult, error) {
	m.sources = append(m.sources, sourceID)
	m.pins = append(m.pins, pin)
	if m.readErr != nil {
		return nil, m.readErr
	}
	return m.field, nil
}

func (m *mockService) History(_ context.Context, sourceID string, limit int) ([]models.Reading, error) {
	m.sources = append(m.sources, sourceID)
	m.limits = append(m.limits, limit)
	if m.readErr != nil {
		return nil, m.readErr
	}
	return m.history, nil
}

func (m *mockService) DefaultSource() string     { return "default" }
func (m *mockService) Stats() models.IngestStats { return m.stats }

type mockCache struct {
	data map[string][]byte
}

func newMockCache() *mockCache                     { return &mockCache{data: make(map[string][]byte)} }
func (m *mockCache) Get(key string) ([]byte, bool) { v, ok := m.data[key]; return v, ok }
func (m *mockCache) Set(key string, value []byte)  { m.data[key] = value }

// --- helpers ---

func newTestController(svc *mockService, cache *mockCache) *ApiController {
	return NewApiController(&structures.Config{}, &mockLogger{}, svc, cache)
}

func latestFixture() *models.LatestResult {
	return &models.LatestResult{
		Reading: models.Reading{ID: "r1", SourceID: "default", RecordedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}.With(models.FieldPH, 7.2),
		Verdict: models.Verdict{IsSafe: true, Violations: []models.Field{}},
	}
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body["error"]
}

// --- Ingest tests ---

func TestIngest_ValidPayload(t *testing.T) {
	svc := &mockService{}
	ac := newTestController(svc, newMockCache())

	req := httptest.NewRequest(http.MethodPost, "/api/ingest", strings.NewReader(`{"source_id":"tank-1","ph":7.1}`))
	rr := httptest.NewRecorder()
	ac.Ingest(rr, req)

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	require.Len(t, svc.ingestCalls, 1)
	assert.Equal(t, "tank-1", svc.ingestCalls[0]["source_id"])

	var resp models.IngestResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "tank-1", resp.Stored.SourceID)
	assert.True(t, resp.Verdict.IsSafe)
}

func TestIngest_NumbersKeepPrecision(t *testing.T) {
	svc := &mockService{}
	ac := newTestController(svc, newMockCache())

	req := httptest.NewRequest(http.MethodPost, "/api/ingest", strings.NewReader(`{"ph":7.123456789}`))
	ac.Ingest(httptest.NewRecorder(), req)

	require.Len(t, svc.ingestCalls, 1)
	assert.Equal(t, "7.123456789", fmt.Sprint(svc.ingestCalls[0]["ph"]))
}

func TestIngest_SourceFromQuery(t *testing.T) {
	svc := &mockService{}
	ac := newTestController(svc, newMockCache())

	req := httptest.NewRequest(http.MethodPost, "/api/ingest?user=pond", strings.NewReader(`{"ph":7}`))
	ac.Ingest(httptest.NewRecorder(), req)

	require.Len(t, svc.ingestCalls, 1)
	assert.Equal(t, "pond", svc.ingestCalls[0]["source_id"])
}

func TestIngest_BodySourceWinsOverQuery(t *testing.T) {
	svc := &mockService{}
	ac := newTestController(svc, newMockCache())

	req := httptest.NewRequest(http.MethodPost, "/api/ingest?source=pond", strings.NewReader(`{"source_id":"tank","ph":7}`))
	ac.Ingest(httptest.NewRecorder(), req)

	require.Len(t, svc.ingestCalls, 1)
	assert.Equal(t, "tank", svc.ingestCalls[0]["source_id"])
}

func TestIngest_InvalidJSON(t *testing.T) {
	for _, body := range []string{"not json", "", "null", "[1,2]"} {
		t.Run(body, func(t *testing.T) {
			svc := &mockService{}
			ac := newTestController(svc, newMockCache())

			rr := httptest.NewRecorder()
			ac.Ingest(rr, httptest.NewRequest(http.MethodPost, "/api/ingest", strings.NewReader(body)))

			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Empty(t, svc.ingestCalls)
		})
	}
}

func TestIngest_OversizedBody(t *testing.T) {
	svc := &mockService{}
	ac := newTestController(svc, newMockCache())

	big := `{"ph":"` + strings.Repeat("x", maxRequestBodySize+1) + `"}`
	rr := httptest.NewRecorder()
	ac.Ingest(rr, httptest.NewRequest(http.MethodPost, "/api/ingest", strings.NewReader(big)))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Empty(t, svc.ingestCalls)
}

func TestIngest_ConfiguredBodyLimit(t *testing.T) {
	svc := &mockService{}
	conf := &structures.Config{Ingest: structures.IngestConfig{MaxBodySize: 16}}
	ac := NewApiController(conf, &mockLogger{}, svc, newMockCache())

	rr := httptest.NewRecorder()
	ac.Ingest(rr, httptest.NewRequest(http.MethodPost, "/api/ingest", strings.NewReader(`{"source_id":"a-long-source","ph":7}`)))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestIngest_ErrorStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"invalid pin", fmt.Errorf("%w: 9", models.ErrInvalidPin), http.StatusBadRequest},
		{"invalid value", models.ErrInvalidValue, http.StatusBadRequest},
		{"empty reading", models.ErrEmptyReading, http.StatusBadRequest},
		{"timeout", models.ErrTimeout, http.StatusGatewayTimeout},
		{"storage", fmt.Errorf("append: %w: db down", models.ErrStorageUnavailable), http.StatusServiceUnavailable},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockService{ingestErr: tt.err}
			ac := newTestController(svc, newMockCache())

			rr := httptest.NewRecorder()
			ac.Ingest(rr, httptest.NewRequest(http.MethodPost, "/api/ingest", strings.NewReader(`{"ph":7}`)))

			assert.Equal(t, tt.status, rr.Code)
			assert.Equal(t, tt.err.Error(), decodeError(t, rr))
		})
	}
}

// --- read tests ---

func TestGetLatest_ReturnsJSON(t *testing.T) {
	svc := &mockService{latest: latestFixture()}
	ac := newTestController(svc, newMockCache())

	rr := httptest.NewRecorder()
	ac.GetLatest(rr, httptest.NewRequest(http.MethodGet, "/api/latest", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.Equal(t, []string{"default"}, svc.sources)

	var resp models.LatestResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	ph, ok := resp.Reading.Value(models.FieldPH)
	require.True(t, ok)
	assert.Equal(t, 7.2, ph)
}

func TestGetLatest_NotFound(t *testing.T) {
	svc := &mockService{readErr: models.ErrNotFound}
	cache := newMockCache()
	ac := newTestController(svc, cache)

	rr := httptest.NewRecorder()
	ac.GetLatest(rr, httptest.NewRequest(http.MethodGet, "/api/latest?source=pond", nil))

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "not found", decodeError(t, rr))
	assert.Empty(t, cache.data, "errors are not cached")
}

func TestGetLatestField_UsesPathPin(t *testing.T) {
	svc := &mockService{field: &models.FieldResult{Pin: "1", Field: models.FieldPH, Value: 7}}
	ac := newTestController(svc, newMockCache())

	req := httptest.NewRequest(http.MethodGet, "/api/latest/PH?user=tank", nil)
	req.SetPathValue("pin", "PH")
	rr := httptest.NewRecorder()
	ac.GetLatestField(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{"ph"}, svc.pins)
	assert.Equal(t, []string{"tank"}, svc.sources)
}

func TestGetLatestField_InvalidPin(t *testing.T) {
	svc := &mockService{readErr: models.ErrInvalidPin}
	ac := newTestController(svc, newMockCache())

	req := httptest.NewRequest(http.MethodGet, "/api/latest/zz", nil)
	req.SetPathValue("pin", "zz")
	rr := httptest.NewRecorder()
	ac.GetLatestField(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGetHistory_Limit(t *testing.T) {
	tests := []struct {
		query  string
		status int
		limit  int
	}{
		{"", http.StatusOK, 100},
		{"?limit=5", http.StatusOK, 5},
		{"?limit=500", http.StatusOK, 100},
		{"?limit=0", http.StatusBadRequest, 0},
		{"?limit=-3", http.StatusBadRequest, 0},
		{"?limit=abc", http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			svc := &mockService{history: []models.Reading{}}
			ac := newTestController(svc, newMockCache())

			rr := httptest.NewRecorder()
			ac.GetHistory(rr, httptest.NewRequest(http.MethodGet, "/api/history"+tt.query, nil))

			assert.Equal(t, tt.status, rr.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, []int{tt.limit}, svc.limits)
				assert.Equal(t, "[]", rr.Body.String())
			} else {
				assert.Empty(t, svc.limits)
			}
		})
	}
}

// --- cache tests ---

func TestCacheHit_ServiceNotCalled(t *testing.T) {
	svc := &mockService{latest: latestFixture()}
	ac := newTestController(svc, newMockCache())

	for range 3 {
		rr := httptest.NewRecorder()
		ac.GetLatest(rr, httptest.NewRequest(http.MethodGet, "/api/latest", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
	}
	assert.Equal(t, 1, svc.latestCalls)
}

func TestCache_InvalidatedByIngest(t *testing.T) {
	svc := &mockService{latest: latestFixture()}
	ac := newTestController(svc, newMockCache())

	ac.GetLatest(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/latest", nil))
	ac.Ingest(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/ingest", strings.NewReader(`{"ph":7}`)))
	ac.GetLatest(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/latest", nil))

	assert.Equal(t, 2, svc.latestCalls)
}

func TestCache_OtherSourceUnaffected(t *testing.T) {
	svc := &mockService{latest: latestFixture()}
	ac := newTestController(svc, newMockCache())

	ac.GetLatest(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/latest?source=pond", nil))
	ac.Ingest(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/ingest", strings.NewReader(`{"source_id":"tank","ph":7}`)))
	ac.GetLatest(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/latest?source=pond", nil))

	assert.Equal(t, 1, svc.latestCalls)
}

func TestCacheKey_IncludesGeneration(t *testing.T) {
	ac := newTestController(&mockService{}, newMockCache())

	before := ac.cacheKey("field", "tank", "ph")
	assert.Equal(t, "field:tank:0:ph", before)
	ac.generation("tank").Inc()
	assert.Equal(t, "field:tank:1:ph", ac.cacheKey("field", "tank", "ph"))
}

func TestGeneration_Bounded(t *testing.T) {
	ac := newTestController(&mockService{}, newMockCache())

	seen := make(map[*atomic.Uint64]bool)
	for i := range 10 * generationSlots {
		seen[ac.generation("src-"+strconv.Itoa(i))] = true
	}
	assert.LessOrEqual(t, len(seen), generationSlots)
	assert.Same(t, ac.generation("tank"), ac.generation("tank"))
}

func TestGetSource(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"/api/latest", ""},
		{"/api/latest?user=tank", "tank"},
		{"/api/latest?source=pond", "pond"},
		{"/api/latest?user=tank&source=pond", "tank"},
		{"/api/latest?user=%20", ""},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, getSource(httptest.NewRequest(http.MethodGet, tt.url, nil)))
		})
	}
}
