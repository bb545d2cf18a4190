package models

import "time"

// Reading is one canonical sensor sample. Values are never written through
// their pointers; With returns a copy carrying a fresh pointer.
type Reading struct {
	ID              string    `json:"id,omitempty" bson:"_id,omitempty"`
	SourceID        string    `json:"source_id" bson:"source_id"`
	PH              *float64  `json:"ph,omitempty" bson:"ph,omitempty"`
	TemperatureC    *float64  `json:"temperature_c,omitempty" bson:"temperature_c,omitempty"`
	TurbidityNTU    *float64  `json:"turbidity_ntu,omitempty" bson:"turbidity_ntu,omitempty"`
	TDSPPM          *float64  `json:"tds_ppm,omitempty" bson:"tds_ppm,omitempty"`
	DissolvedOxygen *float64  `json:"dissolved_oxygen,omitempty" bson:"dissolved_oxygen,omitempty"`
	Pin             string    `json:"pin,omitempty" bson:"pin,omitempty"`
	RecordedAt      time.Time `json:"recorded_at" bson:"recorded_at"`
}

func (r *Reading) slot(f Field) **float64 {
	switch f {
	case FieldPH:
		return &r.PH
	case FieldTemperature:
		return &r.TemperatureC
	case FieldTurbidity:
		return &r.TurbidityNTU
	case FieldTDS:
		return &r.TDSPPM
	case FieldDissolvedOxygen:
		return &r.DissolvedOxygen
	}
	return nil
}

// Value returns the measurement for f and whether it is present.
func (r Reading) Value(f Field) (float64, bool) {
	p := r.slot(f)
	if p == nil || *p == nil {
		return 0, false
	}
	return **p, true
}

// With returns a copy of r with f set to v.
func (r Reading) With(f Field, v float64) Reading {
	if p := r.slot(f); p != nil {
		*p = &v
	}
	return r
}

// Present lists the populated fields in canonical order.
func (r Reading) Present() []Field {
	out := make([]Field, 0, len(Fields))
	for _, f := range Fields {
		if _, ok := r.Value(f); ok {
			out = append(out, f)
		}
	}
	return out
}

func (r Reading) HasValues() bool {
	for _, f := range Fields {
		if _, ok := r.Value(f); ok {
			return true
		}
	}
	return false
}

// SameValues compares the numeric fields only, presence included.
func (r Reading) SameValues(other Reading) bool {
	for _, f := range Fields {
		a, okA := r.Value(f)
		b, okB := other.Value(f)
		if okA != okB || a != b {
			return false
		}
	}
	return true
}

// Handle identifies an appended reading.
type Handle struct {
	ID         string    `json:"id"`
	SourceID   string    `json:"source_id"`
	RecordedAt time.Time `json:"recorded_at"`
}

// FieldValue is the most recent value of a single field for a source.
type FieldValue struct {
	Field      Field     `json:"field"`
	Value      float64   `json:"value"`
	RecordedAt time.Time `json:"recorded_at"`
}
