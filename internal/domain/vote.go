package domain

import (
	"math"
	"time"

	"github.com/google/uuid"
)

const (
	// MinValue and MaxValue bound the "first image that isn't The Rock" slider.
	MinValue = 0
	MaxValue = 100
)

// Vote is one accepted submission. VoterIP and CreatedAt are always
// server-assigned; a vote is never mutated after insert.
type Vote struct {
	ID        uuid.UUID
	Subject   Subject
	Value     int
	VoterIP   string
	CreatedAt time.Time
}

// ParseValue validates a raw JSON number as a vote value. The value must be
// integral and within [MinValue, MaxValue].
func ParseValue(raw float64) (int, error) {
	if math.IsNaN(raw) || math.IsInf(raw, 0) || raw != math.Trunc(raw) {
		return 0, ErrValueNotIntegral
	}
	v := int(raw)
	if v < MinValue || v > MaxValue {
		return 0, ErrValueOutOfRange
	}
	return v, nil
}

// VoteStats is the aggregate for one subject. Mean is nil when no votes exist.
type VoteStats struct {
	Subject Subject  `json:"model"`
	Count   int64    `json:"count"`
	Mean    *float64 `json:"mean"`
}

// ComputeStats aggregates a set of values into VoteStats. The result does not
// depend on the order of values.
func ComputeStats(subject Subject, values []int) VoteStats {
	stats := VoteStats{Subject: subject, Count: int64(len(values))}
	if len(values) == 0 {
		return stats
	}
	var sum int64
	for _, v := range values {
		sum += int64(v)
	}
	mean := float64(sum) / float64(len(values))
	stats.Mean = &mean
	return stats
}
