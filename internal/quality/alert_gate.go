package quality

import (
	"sync"
	"time"

	"wqd/internal/models"
	"wqd/internal/structures"
)

const (
	DefaultCooldown    = 60 * time.Second
	DefaultSuppression = 5 * time.Minute
	DefaultInactivity  = time.Hour
)

type alertState struct {
	lastValues      models.Reading
	lastAlertAt     time.Time
	suppressedUntil time.Time
	lastSeen        time.Time
	alerted         bool
}

// AlertGate decides whether an unsafe reading is worth a notification.
// Callers serialize ShouldNotify → notify → RecordNotified per source.
type AlertGate struct {
	mu          sync.Mutex
	states      map[string]*alertState
	cooldown    time.Duration
	suppression time.Duration
	inactivity  time.Duration
}

func NewAlertGate(cooldown, suppression, inactivity time.Duration) *AlertGate {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	if suppression <= 0 {
		suppression = DefaultSuppression
	}
	if inactivity <= 0 {
		inactivity = DefaultInactivity
	}
	// a state must outlive its suppression window
	if inactivity < suppression {
		inactivity = suppression
	}
	return &AlertGate{
		states:      make(map[string]*alertState),
		cooldown:    cooldown,
		suppression: suppression,
		inactivity:  inactivity,
	}
}

func ProvideAlertGate(conf *structures.Config) *AlertGate {
	return NewAlertGate(conf.Alert.Cooldown, conf.Alert.Suppression, conf.Alert.Inactivity)
}

func (g *AlertGate) ShouldNotify(sourceID string, r models.Reading, verdict models.Verdict, now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	st, ok := g.states[sourceID]
	if verdict.IsSafe {
		if ok {
			st.lastSeen = now
		}
		return false
	}
	if !ok {
		st = &alertState{}
		g.states[sourceID] = st
	}
	st.lastSeen = now

	if !st.alerted {
		return true
	}
	if now.Sub(st.lastAlertAt) < g.cooldown {
		return false
	}
	if st.lastValues.SameValues(r) && now.Before(st.suppressedUntil) {
		return false
	}
	return true
}

// RecordNotified must only be called once delivery succeeded.
func (g *AlertGate) RecordNotified(sourceID string, r models.Reading, now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()

	st, ok := g.states[sourceID]
	if !ok {
		st = &alertState{}
		g.states[sourceID] = st
	}
	st.lastValues = r
	st.lastAlertAt = now
	st.suppressedUntil = now.Add(g.suppression)
	st.lastSeen = now
	st.alerted = true
}

// Evict drops states idle for longer than the inactivity window.
func (g *AlertGate) Evict(now time.Time) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	evicted := 0
	for id, st := range g.states {
		if now.Sub(st.lastSeen) > g.inactivity {
			delete(g.states, id)
			evicted++
		}
	}
	return evicted
}

func (g *AlertGate) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.states)
}
