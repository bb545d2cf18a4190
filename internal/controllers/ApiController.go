package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"wqd/internal/models"
	"wqd/internal/providers"
	"wqd/internal/quality"
	"wqd/internal/services"
	"wqd/internal/structures"

	"github.com/cespare/xxhash/v2"
	json "github.com/goccy/go-json"
	"go.uber.org/atomic"
)

const (
	maxRequestBodySize = 1 << 20 // 1 MB

	// sources sharing a slot also share cache invalidation
	generationSlots = 1024
)

type ApiController struct {
	logger      providers.Logger
	service     services.IngestionServiceInterface
	cache       providers.CacheProviderInterface
	maxBodySize int64
	generations [generationSlots]atomic.Uint64
}

func NewApiController(conf *structures.Config, logger providers.Logger, service services.IngestionServiceInterface, cache providers.CacheProviderInterface) *ApiController {
	size := conf.Ingest.MaxBodySize
	if size <= 0 {
		size = maxRequestBodySize
	}
	return &ApiController{
		logger:      logger,
		service:     service,
		cache:       cache,
		maxBodySize: size,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func statusForError(err error) int {
	switch {
	case models.IsClientError(err):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, models.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	gson, err := json.Marshal(body)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(gson)
}

func (ac *ApiController) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusForError(err)
	if status >= http.StatusInternalServerError {
		ac.logger.Errorf(providers.GetLogTypeByRequestType(r.Method), "%s %s: %s", r.Method, r.URL.Path, err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// getSource reads the source from ?user= or ?source=.
func getSource(r *http.Request) string {
	q := r.URL.Query()
	if user := strings.TrimSpace(q.Get("user")); user != "" {
		return user
	}
	return strings.TrimSpace(q.Get("source"))
}

func (ac *ApiController) resolveSource(r *http.Request) string {
	if src := getSource(r); src != "" {
		return src
	}
	return ac.service.DefaultSource()
}

func (ac *ApiController) generation(source string) *atomic.Uint64 {
	return &ac.generations[xxhash.Sum64String(source)%generationSlots]
}

func (ac *ApiController) cacheKey(kind, source string, parts ...string) string {
	key := kind + ":" + source + ":" + strconv.FormatUint(ac.generation(source).Load(), 10)
	for _, p := range parts {
		key += ":" + p
	}
	return key
}

func (ac *ApiController) serveFromCacheOrCompute(w http.ResponseWriter, r *http.Request, cacheKey string, compute func() (any, error)) {
	if data, ok := ac.cache.Get(cacheKey); ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
		return
	}

	result, err := compute()
	if err != nil {
		ac.writeError(w, r, err)
		return
	}

	gson, err := json.Marshal(result)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	ac.cache.Set(cacheKey, gson)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(gson)
}

func (ac *ApiController) Ingest(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, ac.maxBodySize)

	var raw map[string]any
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil || raw == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "body must be a JSON object"})
		return
	}
	if !quality.HasSource(raw) {
		if src := getSource(r); src != "" {
			raw["source_id"] = src
		}
	}

	res, err := ac.service.Ingest(r.Context(), raw)
	if err != nil {
		ac.writeError(w, r, err)
		return
	}
	ac.generation(res.Stored.SourceID).Inc()

	ac.logger.Debugf(providers.TypePost, "Stored reading %s for %s: %s", res.Stored.ID, res.Stored.SourceID, res.Verdict.Label())
	writeJSON(w, http.StatusCreated, res)
}

func (ac *ApiController) GetLatest(w http.ResponseWriter, r *http.Request) {
	src := ac.resolveSource(r)
	ac.serveFromCacheOrCompute(w, r, ac.cacheKey("latest", src), func() (any, error) {
		return ac.service.Latest(r.Context(), src)
	})
}

func (ac *ApiController) GetLatestField(w http.ResponseWriter, r *http.Request) {
	src := ac.resolveSource(r)
	pin := strings.ToLower(r.PathValue("pin"))
	ac.serveFromCacheOrCompute(w, r, ac.cacheKey("field", src, pin), func() (any, error) {
		return ac.service.LatestField(r.Context(), src, pin)
	})
}

func (ac *ApiController) GetHistory(w http.ResponseWriter, r *http.Request) {
	limit := services.MaxHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = min(n, services.MaxHistoryLimit)
	}

	src := ac.resolveSource(r)
	ac.serveFromCacheOrCompute(w, r, ac.cacheKey("history", src, strconv.Itoa(limit)), func() (any, error) {
		return ac.service.History(r.Context(), src, limit)
	})
}
