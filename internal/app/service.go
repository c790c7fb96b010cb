package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/singleflight"

	"github.com/shrimbly/willienotwilly/internal/domain"
	"github.com/shrimbly/willienotwilly/internal/metrics"
)

// Service implements the vote use cases. Handlers stay thin; everything that
// touches more than one collaborator lives here.
//
// There is no transaction spanning the rate check and the insert: a burst of
// concurrent requests from one identity can slightly overshoot the limit.
// That is an accepted tradeoff for a soft anti-abuse measure.
type Service struct {
	votes       domain.VoteRepository
	subscribers domain.SubscriberRepository
	cache       domain.StatsCache // nil when Redis is not configured
	policy      domain.RateLimitPolicy
	clock       clockwork.Clock
	metrics     *metrics.VoteMetrics

	// rateCheckBreaker guards the count query. When the read path is sick the
	// check fails open: a transient count failure must not block legitimate
	// voters (missing configuration fails closed before the service is ever
	// reached).
	rateCheckBreaker *gobreaker.CircuitBreaker
	statsGroup       singleflight.Group
}

// NewService creates the application layer service. cache may be nil.
func NewService(votes domain.VoteRepository, subscribers domain.SubscriberRepository, cache domain.StatsCache, policy domain.RateLimitPolicy, clock clockwork.Clock, m *metrics.VoteMetrics) *Service {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name: "vote-rate-check",
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Circuit breaker state changed", "component", name, "from", from.String(), "to", to.String())
		},
	})

	return &Service{
		votes:            votes,
		subscribers:      subscribers,
		cache:            cache,
		policy:           policy,
		clock:            clock,
		metrics:          m,
		rateCheckBreaker: breaker,
	}
}

// Policy returns the active rate limit policy.
func (s *Service) Policy() domain.RateLimitPolicy {
	return s.policy
}

// SubmitVote validates and persists one vote. rawValue is the JSON number as
// received; voterIP is the server-derived identity. The returned vote carries
// the assigned ID and timestamp.
func (s *Service) SubmitVote(ctx context.Context, subject domain.Subject, rawValue float64, voterIP string) (domain.Vote, error) {
	if !domain.KnownSubject(subject) {
		s.metrics.VotesSubmitted.WithLabelValues("rejected_invalid").Inc()
		return domain.Vote{}, domain.ErrUnknownSubject
	}

	value, err := domain.ParseValue(rawValue)
	if err != nil {
		s.metrics.VotesSubmitted.WithLabelValues("rejected_invalid").Inc()
		return domain.Vote{}, err
	}

	now := s.clock.Now().UTC()

	count, err := s.countInWindow(ctx, subject, voterIP, now)
	if err != nil {
		// Fail open: a transient failure of the count query must not block
		// voters. The vote proceeds and the failure is logged and counted.
		slog.Warn("Rate limit check failed, allowing vote",
			"subject", subject, "voter_ip", voterIP, "error", err)
		s.metrics.RateCheckFailOpen.Inc()
	} else if s.policy.Exceeded(count) {
		s.metrics.VotesSubmitted.WithLabelValues("rejected_rate_limited").Inc()
		return domain.Vote{}, domain.ErrRateLimited
	}

	vote := domain.Vote{
		Subject:   subject,
		Value:     value,
		VoterIP:   voterIP,
		CreatedAt: now,
	}

	vote, err = s.votes.Insert(ctx, vote)
	if err != nil {
		s.metrics.VotesSubmitted.WithLabelValues("failed").Inc()
		return domain.Vote{}, fmt.Errorf("failed to persist vote: %w", err)
	}

	s.metrics.VotesSubmitted.WithLabelValues("accepted").Inc()
	s.metrics.VotesBySubject.WithLabelValues(string(subject)).Inc()

	s.invalidateStats(ctx, subject)

	return vote, nil
}

func (s *Service) countInWindow(ctx context.Context, subject domain.Subject, voterIP string, now time.Time) (int64, error) {
	result, err := s.rateCheckBreaker.Execute(func() (any, error) {
		return s.votes.CountSince(ctx, subject, voterIP, s.policy.WindowStart(now))
	})
	if err != nil {
		return 0, err
	}
	return result.(int64), nil
}

func (s *Service) invalidateStats(ctx context.Context, subject domain.Subject) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateSubject(ctx, subject); err != nil {
		slog.Debug("Failed to invalidate stats cache", "subject", subject, "error", err)
	}
}

// Stats returns the aggregate for one subject, via the cache when available.
// Concurrent identical lookups are collapsed into a single repository query.
func (s *Service) Stats(ctx context.Context, subject domain.Subject) (domain.VoteStats, error) {
	if !domain.KnownSubject(subject) {
		return domain.VoteStats{}, domain.ErrUnknownSubject
	}

	if s.cache != nil {
		stats, ok, err := s.cache.GetSubject(ctx, subject)
		switch {
		case err != nil:
			s.metrics.StatsCacheRequests.WithLabelValues("error").Inc()
		case ok:
			s.metrics.StatsCacheRequests.WithLabelValues("hit").Inc()
			return stats, nil
		default:
			s.metrics.StatsCacheRequests.WithLabelValues("miss").Inc()
		}
	}

	result, err, _ := s.statsGroup.Do("subject:"+string(subject), func() (any, error) {
		stats, err := s.votes.StatsForSubject(ctx, subject)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			if err := s.cache.SetSubject(ctx, stats); err != nil {
				slog.Debug("Failed to cache stats", "subject", subject, "error", err)
			}
		}
		return stats, nil
	})
	if err != nil {
		return domain.VoteStats{}, fmt.Errorf("failed to load stats for %s: %w", subject, err)
	}
	return result.(domain.VoteStats), nil
}

// StatsAll returns aggregates for every catalog subject. Subjects without
// votes are present with a zero count and nil mean.
func (s *Service) StatsAll(ctx context.Context) (map[domain.Subject]domain.VoteStats, error) {
	if s.cache != nil {
		stats, ok, err := s.cache.GetAll(ctx)
		switch {
		case err != nil:
			s.metrics.StatsCacheRequests.WithLabelValues("error").Inc()
		case ok:
			s.metrics.StatsCacheRequests.WithLabelValues("hit").Inc()
			return stats, nil
		default:
			s.metrics.StatsCacheRequests.WithLabelValues("miss").Inc()
		}
	}

	result, err, _ := s.statsGroup.Do("all", func() (any, error) {
		stats, err := s.votes.StatsForAll(ctx)
		if err != nil {
			return nil, err
		}

		full := make(map[domain.Subject]domain.VoteStats, len(domain.Subjects()))
		for _, info := range domain.Subjects() {
			if st, ok := stats[info.Key]; ok {
				full[info.Key] = st
			} else {
				full[info.Key] = domain.VoteStats{Subject: info.Key}
			}
		}

		if s.cache != nil {
			if err := s.cache.SetAll(ctx, full); err != nil {
				slog.Debug("Failed to cache stats", "error", err)
			}
		}
		return full, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load stats: %w", err)
	}
	return result.(map[domain.Subject]domain.VoteStats), nil
}

// Subscribe stores a newsletter signup. The email is expected to be
// normalized and format-checked by the caller.
func (s *Service) Subscribe(ctx context.Context, email string) error {
	if err := s.subscribers.Insert(ctx, email); err != nil {
		return err
	}
	return nil
}
