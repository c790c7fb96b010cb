package metrics

import "github.com/prometheus/client_golang/prometheus"

// VoteMetrics holds Prometheus metrics for the vote ingestion pipeline.
type VoteMetrics struct {
	VotesSubmitted     *prometheus.CounterVec
	VotesBySubject     *prometheus.CounterVec
	RateCheckFailOpen  prometheus.Counter
	StatsCacheRequests *prometheus.CounterVec
	HTTPErrors         *prometheus.CounterVec
}

// NewVoteMetrics creates and registers vote pipeline metrics on the given registry.
func NewVoteMetrics(reg prometheus.Registerer) *VoteMetrics {
	m := &VoteMetrics{
		VotesSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "votes_submitted_total",
			Help:      "Total vote submissions, by result.",
		}, []string{"result"}),
		VotesBySubject: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "votes_by_subject_total",
			Help:      "Total accepted votes, by subject.",
		}, []string{"subject"}),
		RateCheckFailOpen: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_check_fail_open_total",
			Help:      "Votes accepted because the rate-limit count query failed transiently.",
		}),
		StatsCacheRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stats_cache_requests_total",
			Help:      "Aggregate stats cache lookups, by outcome (hit, miss, error).",
		}, []string{"outcome"}),
		HTTPErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_errors_total",
			Help:      "Total HTTP errors by error type.",
		}, []string{"type"}),
	}

	reg.MustRegister(m.VotesSubmitted, m.VotesBySubject, m.RateCheckFailOpen, m.StatsCacheRequests, m.HTTPErrors)
	return m
}
