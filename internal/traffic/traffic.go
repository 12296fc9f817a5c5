package traffic

import (
	"sync"
	"time"
)

// DefaultRetention is how long outcomes are kept when no retention is set.
const DefaultRetention = 15 * time.Minute

var defaultTracker Tracker

// RecordSuccess records a refresh tick that wrote live weather.
func RecordSuccess() {
	defaultTracker.RecordSuccess()
}

// RecordError records a refresh tick that wrote the placeholder.
func RecordError() {
	defaultTracker.RecordError()
}

// SetRetention sets how far back outcomes are kept. It must cover the longest
// window callers ask about.
func SetRetention(d time.Duration) {
	defaultTracker.SetRetention(d)
}

// FailureRate returns (failed ticks, total ticks) within the window.
func FailureRate(window time.Duration) (failures, total int) {
	return defaultTracker.FailureRate(window)
}

// LastSuccess returns the time of the most recent successful tick, or zero.
func LastSuccess() time.Time {
	return defaultTracker.LastSuccess()
}

// Reset clears all recorded outcomes. For tests only.
func Reset() {
	defaultTracker.Reset()
}

// Tracker keeps sliding windows of tick outcome timestamps. The zero value is
// ready to use.
type Tracker struct {
	mu           sync.Mutex
	retention    time.Duration
	successTimes []time.Time
	errorTimes   []time.Time
}

// RecordSuccess records a successful tick.
func (t *Tracker) RecordSuccess() {
	t.record(&t.successTimes)
}

// RecordError records a failed tick.
func (t *Tracker) RecordError() {
	t.record(&t.errorTimes)
}

// SetRetention sets how long outcomes are kept. Non-positive restores DefaultRetention.
func (t *Tracker) SetRetention(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.retention = d
	t.pruneLocked(time.Now())
}

func (t *Tracker) record(slice *[]time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now()
	*slice = append(*slice, now)
	t.pruneLocked(now)
}

// FailureRate returns (failed ticks, total ticks) within the window.
func (t *Tracker) FailureRate(window time.Duration) (failures, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := time.Now().Add(-window)
	failures = countSince(t.errorTimes, cutoff)
	return failures, failures + countSince(t.successTimes, cutoff)
}

// LastSuccess returns the most recent successful tick still retained, or zero.
func (t *Tracker) LastSuccess() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	if n := len(t.successTimes); n > 0 {
		return t.successTimes[n-1]
	}
	return time.Time{}
}

// Reset clears all recorded outcomes.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.successTimes = nil
	t.errorTimes = nil
}

// countSince counts timestamps not before cutoff.
func countSince(times []time.Time, cutoff time.Time) int {
	n := 0
	for _, ts := range times {
		if !ts.Before(cutoff) {
			n++
		}
	}
	return n
}

// pruneLocked drops timestamps older than the retention. Slices are append-only
// and therefore sorted.
func (t *Tracker) pruneLocked(now time.Time) {
	retention := t.retention
	if retention <= 0 {
		retention = DefaultRetention
	}
	cutoff := now.Add(-retention)
	prune := func(slice *[]time.Time) {
		times := *slice
		i := 0
		for ; i < len(times) && times[i].Before(cutoff); i++ {
		}
		if i > 0 {
			*slice = append(times[:0], times[i:]...)
		}
	}
	prune(&t.successTimes)
	prune(&t.errorTimes)
}
