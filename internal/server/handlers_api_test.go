package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shrimbly/willienotwilly/internal/app"
	"github.com/shrimbly/willienotwilly/internal/config"
	"github.com/shrimbly/willienotwilly/internal/domain"
	"github.com/shrimbly/willienotwilly/internal/metrics"
)

type memVoteRepo struct {
	votes     []domain.Vote
	countErr  error
	insertErr error
	statsErr  error
}

func (r *memVoteRepo) Insert(_ context.Context, vote domain.Vote) (domain.Vote, error) {
	if r.insertErr != nil {
		return domain.Vote{}, r.insertErr
	}
	vote.ID = uuid.New()
	r.votes = append(r.votes, vote)
	return vote, nil
}

func (r *memVoteRepo) CountSince(_ context.Context, subject domain.Subject, voterIP string, since time.Time) (int64, error) {
	if r.countErr != nil {
		return 0, r.countErr
	}
	var count int64
	for _, v := range r.votes {
		if v.Subject == subject && v.VoterIP == voterIP && !v.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (r *memVoteRepo) StatsForSubject(_ context.Context, subject domain.Subject) (domain.VoteStats, error) {
	if r.statsErr != nil {
		return domain.VoteStats{}, r.statsErr
	}
	var values []int
	for _, v := range r.votes {
		if v.Subject == subject {
			values = append(values, v.Value)
		}
	}
	return domain.ComputeStats(subject, values), nil
}

func (r *memVoteRepo) StatsForAll(_ context.Context) (map[domain.Subject]domain.VoteStats, error) {
	if r.statsErr != nil {
		return nil, r.statsErr
	}
	grouped := make(map[domain.Subject][]int)
	for _, v := range r.votes {
		grouped[v.Subject] = append(grouped[v.Subject], v.Value)
	}
	out := make(map[domain.Subject]domain.VoteStats)
	for subject, values := range grouped {
		out[subject] = domain.ComputeStats(subject, values)
	}
	return out, nil
}

type memSubscriberRepo struct {
	emails    []string
	insertErr error
}

func (r *memSubscriberRepo) Insert(_ context.Context, email string) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	for _, e := range r.emails {
		if e == email {
			return domain.ErrDuplicateSubscriber
		}
	}
	r.emails = append(r.emails, email)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		AppEnv:               "test",
		Port:                 "0",
		RequestRatePerSecond: 1000,
		RequestBurst:         1000,
	}
}

type serverFixture struct {
	srv   *Server
	votes *memVoteRepo
	subs  *memSubscriberRepo
	clock *clockwork.FakeClock
}

func newServerFixture(t *testing.T) *serverFixture {
	t.Helper()

	votes := &memVoteRepo{}
	subs := &memSubscriberRepo{}
	clock := clockwork.NewFakeClock()
	registry := prometheus.NewRegistry()
	voteMetrics := metrics.NewVoteMetrics(registry)

	svc := app.NewService(votes, subs, nil, domain.DefaultRateLimitPolicy, clock, voteMetrics)
	srv := NewServer(testConfig(), svc, voteMetrics, registry, nil)

	return &serverFixture{srv: srv, votes: votes, subs: subs, clock: clock}
}

func (f *serverFixture) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.srv.echo.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestSubmitVote_Success(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(http.MethodPost, "/api/vote", `{"model":"flux","first_not_rock":42}`,
		map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"})

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])

	require.Len(t, f.votes.votes, 1)
	assert.Equal(t, "203.0.113.7", f.votes.votes[0].VoterIP)
	assert.Equal(t, 42, f.votes.votes[0].Value)
}

func TestSubmitVote_MissingFields(t *testing.T) {
	f := newServerFixture(t)

	for _, body := range []string{
		`{}`,
		`{"model":"flux"}`,
		`{"first_not_rock":42}`,
		`{"model":"flux","first_not_rock":"abc"}`,
		`not json`,
	} {
		rec := f.do(http.MethodPost, "/api/vote", body, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %q", body)
	}
	assert.Empty(t, f.votes.votes)
}

func TestSubmitVote_ValueOutOfRange(t *testing.T) {
	f := newServerFixture(t)

	for _, body := range []string{
		`{"model":"flux","first_not_rock":-1}`,
		`{"model":"flux","first_not_rock":101}`,
		`{"model":"flux","first_not_rock":49.5}`,
	} {
		rec := f.do(http.MethodPost, "/api/vote", body, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %q", body)
	}
	assert.Empty(t, f.votes.votes)
}

func TestSubmitVote_UnknownModel(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(http.MethodPost, "/api/vote", `{"model":"dalle","first_not_rock":42}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, f.votes.votes)
}

func TestSubmitVote_RateLimited(t *testing.T) {
	f := newServerFixture(t)
	headers := map[string]string{"X-Forwarded-For": "203.0.113.7"}

	for i := 0; i < domain.DefaultRateLimitPolicy.MaxVotes; i++ {
		rec := f.do(http.MethodPost, "/api/vote", `{"model":"gpt","first_not_rock":50}`, headers)
		require.Equal(t, http.StatusOK, rec.Code, "vote %d", i+1)
	}

	rec := f.do(http.MethodPost, "/api/vote", `{"model":"gpt","first_not_rock":50}`, headers)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["rateLimited"])
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// A different subject from the same identity is still accepted.
	rec = f.do(http.MethodPost, "/api/vote", `{"model":"qwen","first_not_rock":50}`, headers)
	assert.Equal(t, http.StatusOK, rec.Code)

	// The same subject from a different identity is still accepted.
	rec = f.do(http.MethodPost, "/api/vote", `{"model":"gpt","first_not_rock":50}`,
		map[string]string{"X-Forwarded-For": "198.51.100.9"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSubmitVote_RateLimitWindowExpires(t *testing.T) {
	f := newServerFixture(t)
	headers := map[string]string{"X-Forwarded-For": "203.0.113.7"}

	for i := 0; i < domain.DefaultRateLimitPolicy.MaxVotes; i++ {
		rec := f.do(http.MethodPost, "/api/vote", `{"model":"gpt","first_not_rock":50}`, headers)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := f.do(http.MethodPost, "/api/vote", `{"model":"gpt","first_not_rock":50}`, headers)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	f.clock.Advance(domain.DefaultRateLimitPolicy.Window + time.Second)

	rec = f.do(http.MethodPost, "/api/vote", `{"model":"gpt","first_not_rock":50}`, headers)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSubmitVote_FailOpenOnCountError(t *testing.T) {
	f := newServerFixture(t)
	f.votes.countErr = errors.New("read timeout")

	rec := f.do(http.MethodPost, "/api/vote", `{"model":"flux","first_not_rock":42}`, nil)
	assert.Equal(t, http.StatusOK, rec.Code, "transient count failure fails open")
	assert.Len(t, f.votes.votes, 1)
}

func TestSubmitVote_InsertFailure(t *testing.T) {
	f := newServerFixture(t)
	f.votes.insertErr = errors.New("constraint violation")

	rec := f.do(http.MethodPost, "/api/vote", `{"model":"flux","first_not_rock":42}`, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestSubmitVote_NotConfigured(t *testing.T) {
	registry := prometheus.NewRegistry()
	voteMetrics := metrics.NewVoteMetrics(registry)
	srv := NewServer(testConfig(), nil, voteMetrics, registry, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/vote", strings.NewReader(`{"model":"flux","first_not_rock":42}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSubjectStats(t *testing.T) {
	f := newServerFixture(t)

	for _, body := range []string{
		`{"model":"seedream","first_not_rock":10}`,
		`{"model":"seedream","first_not_rock":20}`,
		`{"model":"seedream","first_not_rock":30}`,
	} {
		rec := f.do(http.MethodPost, "/api/vote", body, nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := f.do(http.MethodGet, "/api/votes/seedream/stats", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "seedream", body["model"])
	assert.Equal(t, float64(3), body["count"])
	assert.InDelta(t, 20.0, body["mean"].(float64), 1e-9)
}

func TestSubjectStats_Unknown(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(http.MethodGet, "/api/votes/dalle/stats", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAllStats_IncludesEverySubject(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(http.MethodGet, "/api/votes/stats", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Len(t, body, len(domain.Subjects()))
}

func TestSubscribe_Success(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(http.MethodPost, "/api/subscribe", `{"email":"  Reader@Example.COM "}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, f.subs.emails, 1)
	assert.Equal(t, "reader@example.com", f.subs.emails[0], "email is normalized before storage")
}

func TestSubscribe_InvalidEmail(t *testing.T) {
	f := newServerFixture(t)

	for _, body := range []string{
		`{}`,
		`{"email":""}`,
		`{"email":"not-an-email"}`,
		`{"email":"missing@tld"}`,
		`{"email":42}`,
	} {
		rec := f.do(http.MethodPost, "/api/subscribe", body, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %q", body)
	}
	assert.Empty(t, f.subs.emails)
}

func TestSubscribe_Duplicate(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(http.MethodPost, "/api/subscribe", `{"email":"reader@example.com"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodPost, "/api/subscribe", `{"email":"reader@example.com"}`, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}
