package quality

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/spf13/cast"

	"wqd/internal/models"
	"wqd/internal/structures"
)

var (
	sourceKeys    = []string{"source_id", "sourceId", "user"}
	timestampKeys = []string{"recorded_at", "timestamp"}

	minTimestamp = time.Unix(0, 0).UTC()
	maxTimestamp = time.Date(3000, 1, 1, 0, 0, 0, 0, time.UTC)
)

// PinMap resolves sensor-cloud pins to measured fields.
type PinMap map[string]models.Field

func DefaultPinMap() PinMap {
	return PinMap{
		"v1": models.FieldPH,
		"v2": models.FieldTemperature,
		"v3": models.FieldTurbidity,
		"v4": models.FieldTDS,
		"v5": models.FieldDissolvedOxygen,
	}
}

// NewPinMap builds a table from pin → alias pairs. An empty input yields the defaults.
func NewPinMap(pins map[string]string) (PinMap, error) {
	if len(pins) == 0 {
		return DefaultPinMap(), nil
	}
	out := make(PinMap, len(pins))
	for pin, target := range pins {
		f, ok := models.FieldByAlias(target)
		if !ok {
			return nil, fmt.Errorf("pin %s: unknown field %q", pin, target)
		}
		out[strings.ToLower(strings.TrimSpace(pin))] = f
	}
	return out, nil
}

func (p PinMap) Resolve(pin string) (models.Field, error) {
	f, ok := p[strings.ToLower(strings.TrimSpace(pin))]
	if !ok {
		return "", fmt.Errorf("%w: %q", models.ErrInvalidPin, pin)
	}
	return f, nil
}

// Normalizer turns raw payloads of either shape into a canonical Reading.
type Normalizer struct {
	pins          PinMap
	defaultSource string
	now           func() time.Time
}

func NewNormalizer(pins PinMap, defaultSource string) *Normalizer {
	return &Normalizer{
		pins:          pins,
		defaultSource: defaultSource,
		now:           time.Now,
	}
}

func ProvideNormalizer(conf *structures.Config) (*Normalizer, error) {
	pins, err := NewPinMap(conf.Pins)
	if err != nil {
		return nil, err
	}
	return NewNormalizer(pins, conf.Ingest.DefaultSource), nil
}

func (n *Normalizer) Pins() PinMap {
	return n.pins
}

func (n *Normalizer) DefaultSource() string {
	return n.defaultSource
}

func (n *Normalizer) Normalize(raw map[string]any) (models.Reading, error) {
	source, err := n.source(raw)
	if err != nil {
		return models.Reading{}, err
	}
	recordedAt, err := n.timestamp(raw)
	if err != nil {
		return models.Reading{}, err
	}

	r := models.Reading{SourceID: source, RecordedAt: recordedAt}

	if pinRaw, ok := raw["pin"]; ok && pinRaw != nil {
		r, err = n.fromPin(r, pinRaw, raw)
	} else {
		r, err = fromVector(r, raw)
	}
	if err != nil {
		return models.Reading{}, err
	}

	if !r.HasValues() {
		return models.Reading{}, models.ErrEmptyReading
	}
	return r, nil
}

func (n *Normalizer) fromPin(r models.Reading, pinRaw any, raw map[string]any) (models.Reading, error) {
	pin, ok := pinRaw.(string)
	if !ok {
		return r, fmt.Errorf("%w: %v", models.ErrInvalidPin, pinRaw)
	}
	field, err := n.pins.Resolve(pin)
	if err != nil {
		return r, err
	}
	val, ok := raw["value"]
	if !ok || val == nil {
		return r, fmt.Errorf("%w: pin %s has no value", models.ErrInvalidValue, pin)
	}
	v, err := toNumber(val)
	if err != nil {
		return r, fmt.Errorf("pin %s: %w", pin, err)
	}
	r = r.With(field, v)
	r.Pin = strings.ToLower(strings.TrimSpace(pin))
	return r, nil
}

func fromVector(r models.Reading, raw map[string]any) (models.Reading, error) {
	for key, val := range raw {
		field, ok := models.FieldByAlias(key)
		if !ok || val == nil {
			continue
		}
		v, err := toNumber(val)
		if err != nil {
			return r, fmt.Errorf("%s: %w", key, err)
		}
		if prev, seen := r.Value(field); seen && prev != v {
			return r, fmt.Errorf("%w: conflicting values for %s", models.ErrInvalidValue, field)
		}
		r = r.With(field, v)
	}
	return r, nil
}

func (n *Normalizer) source(raw map[string]any) (string, error) {
	for _, key := range sourceKeys {
		val, ok := raw[key]
		if !ok || val == nil {
			continue
		}
		s, ok := val.(string)
		if !ok {
			return "", fmt.Errorf("%w: %s must be a string", models.ErrInvalidValue, key)
		}
		if s = strings.TrimSpace(s); s != "" {
			return s, nil
		}
	}
	return n.defaultSource, nil
}

func (n *Normalizer) timestamp(raw map[string]any) (time.Time, error) {
	for _, key := range timestampKeys {
		val, ok := raw[key]
		if !ok || val == nil {
			continue
		}
		if s, ok := val.(string); ok {
			t, err := time.Parse(time.RFC3339Nano, s)
			if err != nil {
				return time.Time{}, fmt.Errorf("%w: %s: %v", models.ErrInvalidValue, key, err)
			}
			return checkTimestamp(key, t)
		}
		secs, err := toNumber(val)
		if err != nil {
			return time.Time{}, fmt.Errorf("%s: %w", key, err)
		}
		if secs < float64(minTimestamp.Unix()) || secs >= float64(maxTimestamp.Unix()) {
			return time.Time{}, fmt.Errorf("%w: %s %v is not unix seconds in range", models.ErrInvalidValue, key, secs)
		}
		whole, frac := math.Modf(secs)
		return checkTimestamp(key, time.Unix(int64(whole), int64(frac*1e9)))
	}
	return n.now().UTC(), nil
}

// checkTimestamp keeps recorded_at inside the range every store and the
// JSON encoder can represent.
func checkTimestamp(key string, t time.Time) (time.Time, error) {
	t = t.UTC()
	if t.Before(minTimestamp) || !t.Before(maxTimestamp) {
		return time.Time{}, fmt.Errorf("%w: %s %s out of range", models.ErrInvalidValue, key, t.Format(time.RFC3339))
	}
	return t, nil
}

// HasSource reports whether raw names its own source.
func HasSource(raw map[string]any) bool {
	for _, key := range sourceKeys {
		if s, ok := raw[key].(string); ok && strings.TrimSpace(s) != "" {
			return true
		}
	}
	return false
}

type floatNumber interface {
	Float64() (float64, error)
}

func toNumber(val any) (float64, error) {
	var (
		f   float64
		err error
	)
	switch v := val.(type) {
	case bool:
		return 0, fmt.Errorf("%w: boolean %v", models.ErrInvalidValue, v)
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, fmt.Errorf("%w: empty string", models.ErrInvalidValue)
		}
		f, err = cast.ToFloat64E(s)
	case floatNumber:
		f, err = v.Float64()
	default:
		f, err = cast.ToFloat64E(val)
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %v", models.ErrInvalidValue, err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %v is not finite", models.ErrInvalidValue, f)
	}
	return f, nil
}
