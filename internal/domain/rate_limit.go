package domain

import "time"

// RateLimitPolicy caps accepted votes per (voter, subject) pair over a
// trailing window. The count is always recomputed from persisted votes, never
// from process memory, so the limit holds across instances and restarts.
type RateLimitPolicy struct {
	Window   time.Duration
	MaxVotes int
}

// DefaultRateLimitPolicy mirrors the widget's public limits: 14 votes per
// 5 minutes.
var DefaultRateLimitPolicy = RateLimitPolicy{
	Window:   5 * time.Minute,
	MaxVotes: 14,
}

// Exceeded reports whether a voter with count votes already inside the window
// must be rejected.
func (p RateLimitPolicy) Exceeded(count int64) bool {
	return count >= int64(p.MaxVotes)
}

// WindowStart returns the inclusive lower bound of the trailing window at now.
func (p RateLimitPolicy) WindowStart(now time.Time) time.Time {
	return now.Add(-p.Window)
}
