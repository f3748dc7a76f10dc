// Package vectorclock implements the per-participant logical clocks used
// to causally order operations across a room's concurrent participants.
package vectorclock

import "sort"

// Clock is a per-userId counter map. The zero value is an empty clock.
type Clock map[string]uint64

// New returns an empty clock.
func New() Clock {
	return make(Clock)
}

// Snapshot returns a defensive copy, safe to hand to callers who must not
// observe later mutation of the room's live clock.
func (c Clock) Snapshot() Clock {
	cp := make(Clock, len(c))
	for k, v := range c {
		cp[k] = v
	}
	return cp
}

// Increment raises c[userID] by one and returns the resulting snapshot.
// The receiver is mutated; callers that need the pre-increment clock must
// snapshot first.
func (c Clock) Increment(userID string) Clock {
	c[userID] = c[userID] + 1
	return c.Snapshot()
}

// Merge folds remote into c, taking the componentwise max of every key
// that appears in either clock. c is mutated in place.
func (c Clock) Merge(remote Clock) {
	for k, v := range remote {
		if v > c[k] {
			c[k] = v
		}
	}
}

// Compare returns -1 if a happens-before b (every component of a is <= the
// matching component of b, and at least one is strictly less), +1 for the
// mirror image, and 0 if a and b are equal or concurrent.
func Compare(a, b Clock) int {
	keys := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		keys[k] = struct{}{}
	}
	for k := range b {
		keys[k] = struct{}{}
	}

	aLess, bLess := false, false
	for k := range keys {
		av, bv := a[k], b[k]
		switch {
		case av < bv:
			aLess = true
		case av > bv:
			bLess = true
		}
	}

	switch {
	case aLess && !bLess:
		return -1
	case bLess && !aLess:
		return 1
	default:
		return 0
	}
}

// Event is anything that carries a causal clock and a tiebreaker
// timestamp; SortEvents operates against this interface so it can sort
// operations, or any other clocked record, without a dependency on the
// room package.
type Event interface {
	CausalClock() Clock
	CausalTimestamp() int64
}

// SortEvents produces a stable total order over events: causal order where
// one event happens-before another, and ascending timestamp to break ties
// among concurrent events. Equal-clock, equal-timestamp events keep their
// relative input order (stable sort), so repeated calls over the same
// input are idempotent.
func SortEvents[E Event](events []E) {
	sort.SliceStable(events, func(i, j int) bool {
		switch Compare(events[i].CausalClock(), events[j].CausalClock()) {
		case -1:
			return true
		case 1:
			return false
		default:
			return events[i].CausalTimestamp() < events[j].CausalTimestamp()
		}
	})
}
