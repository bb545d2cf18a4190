package controllers

import (
	"fmt"
	"net/http"
	"time"
	"wqd/internal/services"

	json "github.com/goccy/go-json"
)

type HealthController struct {
	service   services.IngestionServiceInterface
	startTime time.Time
}

type healthResponse struct {
	Status         string  `json:"status"`
	Uptime         string  `json:"uptime"`
	UptimeSeconds  float64 `json:"uptime_seconds"`
	Ingested       uint64  `json:"ingested"`
	Rejected       uint64  `json:"rejected"`
	Notified       uint64  `json:"notified"`
	NotifyFailures uint64  `json:"notify_failures"`
	AlertStates    int     `json:"alert_states"`
}

func (hc *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(hc.startTime)
	stats := hc.service.Stats()
	resp := healthResponse{
		Status:         "ok",
		Uptime:         formatDuration(uptime),
		UptimeSeconds:  uptime.Seconds(),
		Ingested:       stats.Ingested,
		Rejected:       stats.Rejected,
		Notified:       stats.Notified,
		NotifyFailures: stats.NotifyFailures,
		AlertStates:    stats.AlertStates,
	}

	gson, err := json.Marshal(resp)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(gson)
}

func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
}

func NewHealthController(service services.IngestionServiceInterface) *HealthController {
	return &HealthController{
		service:   service,
		startTime: time.Now(),
	}
}
