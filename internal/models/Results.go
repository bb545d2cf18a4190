package models

import "time"

type IngestResult struct {
	Stored      Reading `json:"stored"`
	Verdict     Verdict `json:"verdict"`
	Notified    bool    `json:"notified"`
	NotifyError string  `json:"notify_error,omitempty"`
}

type LatestResult struct {
	Reading Reading `json:"reading"`
	Verdict Verdict `json:"verdict"`
}

type FieldResult struct {
	Pin        string    `json:"pin"`
	Field      Field     `json:"field"`
	Value      float64   `json:"value"`
	RecordedAt time.Time `json:"recorded_at"`
}

// IngestStats is a point-in-time view of the ingestion counters.
type IngestStats struct {
	Ingested       uint64 `json:"ingested"`
	Rejected       uint64 `json:"rejected"`
	Notified       uint64 `json:"notified"`
	NotifyFailures uint64 `json:"notify_failures"`
	AlertStates    int    `json:"alert_states"`
}

// Snapshot is the on-disk envelope of the file store.
type Snapshot struct {
	Version int                  `json:"version"`
	Sources map[string][]Reading `json:"sources"`
}

const SnapshotVersion = 1
