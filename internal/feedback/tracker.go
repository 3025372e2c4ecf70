// Package feedback tracks which fingertips are highlighted after a press.
package feedback

import (
	"sort"
	"time"

	"github.com/ayusman/airkeys/internal/gesture"
)

// DefaultDwell is how long a fingertip stays highlighted after a press.
const DefaultDwell = 200 * time.Millisecond

// Set is a read-only snapshot of highlighted fingertips.
type Set map[gesture.FingerID]struct{}

// Has reports whether id is highlighted.
func (s Set) Has(id gesture.FingerID) bool {
	_, ok := s[id]
	return ok
}

// IDs returns the highlighted ids ordered by hand, then tip.
func (s Set) IDs() []gesture.FingerID {
	ids := make([]gesture.FingerID, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if ids[i].Hand != ids[j].Hand {
			return ids[i].Hand < ids[j].Hand
		}
		return ids[i].Tip < ids[j].Tip
	})
	return ids
}

type expiry struct {
	id       gesture.FingerID
	deadline time.Time
}

// Tracker maintains the Active Highlight Set. Every press schedules its own
// removal; removals are applied when Expire is called with the current
// time, so there are no timer callbacks to cancel.
//
// A second press on an id before the first removal is due schedules a
// second removal, and the first one due clears the id. A quick re-press can
// therefore lose its highlight before its own dwell has elapsed.
//
// Tracker is not safe for concurrent use.
type Tracker struct {
	dwell    time.Duration
	active   Set
	expiries []expiry
}

// NewTracker creates a Tracker that highlights for dwell after each press.
func NewTracker(dwell time.Duration) *Tracker {
	if dwell <= 0 {
		dwell = DefaultDwell
	}
	return &Tracker{
		dwell:  dwell,
		active: make(Set),
	}
}

// Dwell returns the highlight duration.
func (t *Tracker) Dwell() time.Duration {
	return t.dwell
}

// Add highlights id and schedules its removal dwell after now.
func (t *Tracker) Add(id gesture.FingerID, now time.Time) {
	t.active[id] = struct{}{}

	e := expiry{id: id, deadline: now.Add(t.dwell)}
	// Keep expiries ordered by deadline; appends are the common case.
	i := len(t.expiries)
	for i > 0 && t.expiries[i-1].deadline.After(e.deadline) {
		i--
	}
	t.expiries = append(t.expiries, expiry{})
	copy(t.expiries[i+1:], t.expiries[i:])
	t.expiries[i] = e
}

// Expire applies every removal due at or before now and returns how many
// ids were un-highlighted.
func (t *Tracker) Expire(now time.Time) int {
	removed := 0
	n := 0
	for n < len(t.expiries) && !t.expiries[n].deadline.After(now) {
		id := t.expiries[n].id
		if _, ok := t.active[id]; ok {
			delete(t.active, id)
			removed++
		}
		n++
	}
	if n > 0 {
		t.expiries = append(t.expiries[:0], t.expiries[n:]...)
	}
	return removed
}

// Active reports whether id is highlighted.
func (t *Tracker) Active(id gesture.FingerID) bool {
	return t.active.Has(id)
}

// Snapshot returns a copy of the highlighted ids.
func (t *Tracker) Snapshot() Set {
	out := make(Set, len(t.active))
	for id := range t.active {
		out[id] = struct{}{}
	}
	return out
}

// Len returns the number of highlighted ids.
func (t *Tracker) Len() int {
	return len(t.active)
}

// Pending returns the number of scheduled removals.
func (t *Tracker) Pending() int {
	return len(t.expiries)
}

// Clear drops every highlight and every scheduled removal.
func (t *Tracker) Clear() {
	t.active = make(Set)
	t.expiries = nil
}
