package notifier

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"wqd/internal/models"
)

// ErrNoSubscribers is returned by the hub when no websocket client is connected.
var ErrNoSubscribers = errors.New("no subscribers")

// Notifier delivers an alert over one channel. A nil error means delivered.
type Notifier interface {
	Notify(ctx context.Context, alert Alert) error
}

type Alert struct {
	SourceID   string         `json:"source_id"`
	Reading    models.Reading `json:"reading"`
	Verdict    models.Verdict `json:"verdict"`
	DetectedAt time.Time      `json:"detected_at"`
	Message    string         `json:"message"`
}

func NewAlert(sourceID string, r models.Reading, verdict models.Verdict, now time.Time) Alert {
	parts := make([]string, 0, len(verdict.Violations))
	for _, f := range verdict.Violations {
		v, _ := r.Value(f)
		parts = append(parts, string(f)+"="+strconv.FormatFloat(v, 'f', -1, 64))
	}
	return Alert{
		SourceID:   sourceID,
		Reading:    r,
		Verdict:    verdict,
		DetectedAt: now.UTC(),
		Message:    fmt.Sprintf("unsafe water at %s: %s", sourceID, strings.Join(parts, ", ")),
	}
}
