package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shrimbly/willienotwilly/internal/domain"
)

// VoteRepo implements domain.VoteRepository backed by PostgreSQL.
type VoteRepo struct {
	pool *pgxpool.Pool
}

// NewVoteRepo creates a VoteRepo from the shared connection pool.
func NewVoteRepo(pool *pgxpool.Pool) *VoteRepo {
	return &VoteRepo{pool: pool}
}

func (r *VoteRepo) Insert(ctx context.Context, vote domain.Vote) (domain.Vote, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO rock_votes (model, first_not_rock, voter_ip, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, string(vote.Subject), vote.Value, vote.VoterIP, vote.CreatedAt).Scan(&vote.ID)

	if err != nil {
		return domain.Vote{}, fmt.Errorf("failed to insert vote: %w", err)
	}
	return vote, nil
}

func (r *VoteRepo) CountSince(ctx context.Context, subject domain.Subject, voterIP string, since time.Time) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM rock_votes
		WHERE model = $1 AND voter_ip = $2 AND created_at >= $3
	`, string(subject), voterIP, since).Scan(&count)

	if err != nil {
		return 0, fmt.Errorf("failed to count votes in window: %w", err)
	}
	return count, nil
}

func (r *VoteRepo) StatsForSubject(ctx context.Context, subject domain.Subject) (domain.VoteStats, error) {
	stats := domain.VoteStats{Subject: subject}

	var mean *float64
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*), AVG(first_not_rock)
		FROM rock_votes
		WHERE model = $1
	`, string(subject)).Scan(&stats.Count, &mean)

	if err != nil {
		return domain.VoteStats{}, fmt.Errorf("failed to aggregate votes for %s: %w", subject, err)
	}

	stats.Mean = mean
	return stats, nil
}

func (r *VoteRepo) StatsForAll(ctx context.Context) (map[domain.Subject]domain.VoteStats, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT model, COUNT(*), AVG(first_not_rock)
		FROM rock_votes
		GROUP BY model
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate votes: %w", err)
	}
	defer rows.Close()

	out := make(map[domain.Subject]domain.VoteStats)
	for rows.Next() {
		var (
			model string
			stats domain.VoteStats
			mean  *float64
		)
		if err := rows.Scan(&model, &stats.Count, &mean); err != nil {
			return nil, fmt.Errorf("failed to scan vote aggregate: %w", err)
		}
		stats.Subject = domain.Subject(model)
		stats.Mean = mean
		out[stats.Subject] = stats
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read vote aggregates: %w", err)
	}

	return out, nil
}
