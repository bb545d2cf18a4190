package quality

import (
	"fmt"
	"math"

	"wqd/internal/models"
	"wqd/internal/structures"
)

// Bound is an inclusive safe range. Unbounded sides are ±Inf.
type Bound struct {
	Min float64
	Max float64
}

func (b Bound) Contains(v float64) bool {
	return v >= b.Min && v <= b.Max
}

type Thresholds map[models.Field]Bound

func DefaultThresholds() Thresholds {
	return Thresholds{
		models.FieldPH:              {Min: 6.5, Max: 8.5},
		models.FieldTemperature:     {Min: 20, Max: 35},
		models.FieldTurbidity:       {Min: math.Inf(-1), Max: 5},
		models.FieldTDS:             {Min: math.Inf(-1), Max: 500},
		models.FieldDissolvedOxygen: {Min: 6.5, Max: 8.5},
	}
}

// NewThresholds applies per-field overrides on top of the defaults.
func NewThresholds(overrides map[string]structures.ThresholdBound) (Thresholds, error) {
	t := DefaultThresholds()
	for name, o := range overrides {
		f, ok := models.FieldByAlias(name)
		if !ok {
			return nil, fmt.Errorf("thresholds: unknown field %q", name)
		}
		b := t[f]
		if o.Min != nil {
			b.Min = *o.Min
		}
		if o.Max != nil {
			b.Max = *o.Max
		}
		if b.Min > b.Max {
			return nil, fmt.Errorf("thresholds: %s min %v is above max %v", f, b.Min, b.Max)
		}
		t[f] = b
	}
	return t, nil
}

type Evaluator struct {
	thresholds Thresholds
}

func NewEvaluator(thresholds Thresholds) *Evaluator {
	return &Evaluator{thresholds: thresholds}
}

func ProvideEvaluator(conf *structures.Config) (*Evaluator, error) {
	t, err := NewThresholds(conf.Thresholds)
	if err != nil {
		return nil, err
	}
	return NewEvaluator(t), nil
}

// Evaluate judges only the fields present in r.
func (e *Evaluator) Evaluate(r models.Reading) models.Verdict {
	violations := make([]models.Field, 0)
	for _, f := range models.Fields {
		v, ok := r.Value(f)
		if !ok {
			continue
		}
		b, ok := e.thresholds[f]
		if !ok {
			continue
		}
		if !b.Contains(v) {
			violations = append(violations, f)
		}
	}
	return models.Verdict{
		IsSafe:     len(violations) == 0,
		Violations: violations,
	}
}
