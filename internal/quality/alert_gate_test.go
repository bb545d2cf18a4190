package quality

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"wqd/internal/models"
)

var (
	unsafeVerdict = models.Verdict{IsSafe: false, Violations: []models.Field{models.FieldPH}}
	safeVerdict   = models.Verdict{IsSafe: true, Violations: []models.Field{}}
)

func badReading(ph float64) models.Reading {
	return models.Reading{SourceID: "tank"}.With(models.FieldPH, ph)
}

func newTestGate() *AlertGate {
	return NewAlertGate(time.Minute, 5*time.Minute, time.Hour)
}

func TestAlertGate_NeverOnSafe(t *testing.T) {
	g := newTestGate()
	assert.False(t, g.ShouldNotify("tank", badReading(7), safeVerdict, fixedNow))
	assert.Equal(t, 0, g.Len(), "safe readings do not create state")
}

func TestAlertGate_FirstUnsafeNotifies(t *testing.T) {
	g := newTestGate()
	assert.True(t, g.ShouldNotify("tank", badReading(9), unsafeVerdict, fixedNow))
	assert.Equal(t, 1, g.Len())
}

func TestAlertGate_IdenticalWithinCooldown(t *testing.T) {
	g := newTestGate()
	r := badReading(9)

	assert.True(t, g.ShouldNotify("tank", r, unsafeVerdict, fixedNow))
	g.RecordNotified("tank", r, fixedNow)

	assert.False(t, g.ShouldNotify("tank", r, unsafeVerdict, fixedNow.Add(10*time.Second)))
}

func TestAlertGate_IdenticalSuppressedAfterCooldown(t *testing.T) {
	g := newTestGate()
	r := badReading(9)
	g.RecordNotified("tank", r, fixedNow)

	assert.False(t, g.ShouldNotify("tank", r, unsafeVerdict, fixedNow.Add(2*time.Minute)))
}

func TestAlertGate_IdenticalAfterSuppressionExpires(t *testing.T) {
	g := newTestGate()
	r := badReading(9)
	g.RecordNotified("tank", r, fixedNow)

	assert.True(t, g.ShouldNotify("tank", r, unsafeVerdict, fixedNow.Add(5*time.Minute+time.Second)))
}

func TestAlertGate_DifferentValueRespectsCooldown(t *testing.T) {
	g := newTestGate()
	g.RecordNotified("tank", badReading(9), fixedNow)

	assert.False(t, g.ShouldNotify("tank", badReading(10), unsafeVerdict, fixedNow.Add(30*time.Second)))
	assert.True(t, g.ShouldNotify("tank", badReading(10), unsafeVerdict, fixedNow.Add(61*time.Second)))
}

func TestAlertGate_WithoutRecordStaysOpen(t *testing.T) {
	g := newTestGate()
	r := badReading(9)

	assert.True(t, g.ShouldNotify("tank", r, unsafeVerdict, fixedNow))
	// delivery failed, so nothing was recorded
	assert.True(t, g.ShouldNotify("tank", r, unsafeVerdict, fixedNow.Add(time.Second)))
}

func TestAlertGate_SourcesIndependent(t *testing.T) {
	g := newTestGate()
	r := badReading(9)
	g.RecordNotified("a", r, fixedNow)

	assert.True(t, g.ShouldNotify("b", r, unsafeVerdict, fixedNow))
}

func TestAlertGate_Evict(t *testing.T) {
	g := newTestGate()
	g.RecordNotified("old", badReading(9), fixedNow)
	g.RecordNotified("fresh", badReading(9), fixedNow.Add(50*time.Minute))

	evicted := g.Evict(fixedNow.Add(61 * time.Minute))
	assert.Equal(t, 1, evicted)
	assert.Equal(t, 1, g.Len())
	assert.True(t, g.ShouldNotify("old", badReading(9), unsafeVerdict, fixedNow.Add(61*time.Minute)))
}

func TestAlertGate_SafeReadingKeepsStateAlive(t *testing.T) {
	g := newTestGate()
	g.RecordNotified("tank", badReading(9), fixedNow)
	g.ShouldNotify("tank", badReading(7), safeVerdict, fixedNow.Add(59*time.Minute))

	assert.Equal(t, 0, g.Evict(fixedNow.Add(61*time.Minute)))
}

func TestNewAlertGate_Defaults(t *testing.T) {
	g := NewAlertGate(0, 0, 0)
	assert.Equal(t, DefaultCooldown, g.cooldown)
	assert.Equal(t, DefaultSuppression, g.suppression)
	assert.Equal(t, DefaultInactivity, g.inactivity)

	g = NewAlertGate(time.Second, time.Hour, time.Minute)
	assert.Equal(t, time.Hour, g.inactivity)
}
