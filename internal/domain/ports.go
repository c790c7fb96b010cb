package domain

import (
	"context"
	"time"
)

// VoteRepository persists votes and answers the queries the rate limiter and
// the aggregate read path need.
type VoteRepository interface {
	// Insert stores one vote and returns it with the assigned ID.
	Insert(ctx context.Context, vote Vote) (Vote, error)
	// CountSince counts persisted votes for (subject, voterIP) with
	// CreatedAt >= since.
	CountSince(ctx context.Context, subject Subject, voterIP string, since time.Time) (int64, error)
	// StatsForSubject aggregates all persisted votes for one subject.
	StatsForSubject(ctx context.Context, subject Subject) (VoteStats, error)
	// StatsForAll aggregates all persisted votes grouped by subject. Subjects
	// without votes are absent from the result.
	StatsForAll(ctx context.Context) (map[Subject]VoteStats, error)
}

// SubscriberRepository stores newsletter signups.
type SubscriberRepository interface {
	// Insert stores one subscriber email. Returns ErrDuplicateSubscriber when
	// the email is already present.
	Insert(ctx context.Context, email string) error
}

// StatsCache is a read-through cache in front of VoteRepository aggregates.
// It is strictly an optimization for the read path; rate limit counts never
// go through it.
type StatsCache interface {
	GetSubject(ctx context.Context, subject Subject) (VoteStats, bool, error)
	SetSubject(ctx context.Context, stats VoteStats) error
	GetAll(ctx context.Context) (map[Subject]VoteStats, bool, error)
	SetAll(ctx context.Context, stats map[Subject]VoteStats) error
	// InvalidateSubject drops cached aggregates touched by a new vote.
	InvalidateSubject(ctx context.Context, subject Subject) error
}
