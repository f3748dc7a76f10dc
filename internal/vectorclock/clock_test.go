package vectorclock_test

import (
	"reflect"
	"runtime/debug"
	"testing"

	"canvasroom/internal/vectorclock"
)

func fatalf(t *testing.T, format string, v ...interface{}) {
	debug.PrintStack()
	t.Fatalf(format, v...)
}

func eq(t *testing.T, got, want interface{}) {
	if !reflect.DeepEqual(got, want) {
		fatalf(t, "got %v, want %v", got, want)
	}
}

func TestIncrementIsPerUser(t *testing.T) {
	c := vectorclock.New()
	c1 := c.Increment("alice")
	eq(t, c1["alice"], uint64(1))
	c2 := c1.Increment("bob")
	eq(t, c2["alice"], uint64(1))
	eq(t, c2["bob"], uint64(1))
}

func TestIncrementMutatesReceiverButReturnsSnapshot(t *testing.T) {
	c := vectorclock.New()
	snap := c.Increment("alice")
	eq(t, c["alice"], uint64(1))
	eq(t, snap["alice"], uint64(1))
	c["alice"] = 99
	eq(t, snap["alice"], uint64(1)) // snapshot is a defensive copy
}

func TestMergeTakesMax(t *testing.T) {
	a := vectorclock.Clock{"alice": 3, "bob": 1}
	b := vectorclock.Clock{"alice": 2, "bob": 5, "carol": 1}
	a.Merge(b)
	eq(t, a["alice"], uint64(3))
	eq(t, a["bob"], uint64(5))
	eq(t, a["carol"], uint64(1))
}

func TestMergeDoesNotMutateArgument(t *testing.T) {
	a := vectorclock.Clock{"alice": 1}
	b := vectorclock.Clock{"alice": 2}
	a.Merge(b)
	eq(t, b["alice"], uint64(2))
}

func TestCompareBefore(t *testing.T) {
	a := vectorclock.Clock{"alice": 1}
	b := vectorclock.Clock{"alice": 2}
	eq(t, vectorclock.Compare(a, b), -1)
	eq(t, vectorclock.Compare(b, a), 1)
}

func TestCompareEqual(t *testing.T) {
	a := vectorclock.Clock{"alice": 2, "bob": 1}
	b := vectorclock.Clock{"alice": 2, "bob": 1}
	eq(t, vectorclock.Compare(a, b), 0)
}

func TestCompareConcurrent(t *testing.T) {
	a := vectorclock.Clock{"alice": 2, "bob": 0}
	b := vectorclock.Clock{"alice": 0, "bob": 2}
	eq(t, vectorclock.Compare(a, b), 0)
}

type fakeEvent struct {
	clock vectorclock.Clock
	ts    int64
	label string
}

func (e fakeEvent) CausalClock() vectorclock.Clock { return e.clock }
func (e fakeEvent) CausalTimestamp() int64         { return e.ts }

func TestSortEventsOrdersByCausality(t *testing.T) {
	events := []fakeEvent{
		{clock: vectorclock.Clock{"alice": 2}, ts: 100, label: "second"},
		{clock: vectorclock.Clock{"alice": 1}, ts: 50, label: "first"},
	}
	vectorclock.SortEvents(events)
	eq(t, events[0].label, "first")
	eq(t, events[1].label, "second")
}

func TestSortEventsFallsBackToTimestampWhenConcurrent(t *testing.T) {
	events := []fakeEvent{
		{clock: vectorclock.Clock{"bob": 1}, ts: 200, label: "later"},
		{clock: vectorclock.Clock{"alice": 1}, ts: 100, label: "earlier"},
	}
	vectorclock.SortEvents(events)
	eq(t, events[0].label, "earlier")
	eq(t, events[1].label, "later")
}
