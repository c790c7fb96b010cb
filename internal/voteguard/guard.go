package voteguard

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/shrimbly/willienotwilly/internal/domain"
)

// State is the guard's position in the view/compose cycle.
type State int

const (
	StateViewing State = iota
	StateComposing
)

func (s State) String() string {
	switch s {
	case StateViewing:
		return "viewing"
	case StateComposing:
		return "composing"
	default:
		return "unknown"
	}
}

// DefaultCooldown mirrors the server's rate window, but the two are
// independent layers: clearing this one still leaves the server limit.
const DefaultCooldown = 5 * time.Minute

const defaultSelection = 50

var (
	ErrCooldownActive = errors.New("already voted for this subject recently")
	ErrNotComposing   = errors.New("no vote is being composed")
	ErrSubmitInFlight = errors.New("a submission is already in flight")
)

// Guard drives one subject's voting widget. All methods are safe for
// concurrent use; a submission in flight never blocks reads.
type Guard struct {
	client   *Client
	store    CooldownStore
	clock    clockwork.Clock
	cooldown time.Duration

	mu        sync.Mutex
	subject   domain.Subject
	state     State
	selection int
	loading   bool
	message   string
	yourVote  *int
	stats     domain.VoteStats
}

// NewGuard creates a guard for the given subject and loads its aggregate.
// A stats fetch failure leaves a placeholder aggregate; it never blocks
// interaction.
func NewGuard(ctx context.Context, client *Client, store CooldownStore, clock clockwork.Clock, subject domain.Subject) *Guard {
	g := &Guard{
		client:    client,
		store:     store,
		clock:     clock,
		cooldown:  DefaultCooldown,
		subject:   subject,
		state:     StateViewing,
		selection: defaultSelection,
	}
	g.RefreshStats(ctx)
	return g
}

// SetCooldown overrides the cooldown duration (used in tests and by the CLI).
func (g *Guard) SetCooldown(d time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cooldown = d
}

// SetSubject switches the guard to a different subject: back to viewing,
// message cleared, aggregate reloaded. A submission still in flight for the
// old subject resolves without touching the new subject's state.
func (g *Guard) SetSubject(ctx context.Context, subject domain.Subject) {
	g.mu.Lock()
	g.subject = subject
	g.state = StateViewing
	g.message = ""
	g.yourVote = nil
	g.selection = defaultSelection
	g.mu.Unlock()

	g.RefreshStats(ctx)
}

func (g *Guard) Subject() domain.Subject { g.mu.Lock(); defer g.mu.Unlock(); return g.subject }
func (g *Guard) State() State            { g.mu.Lock(); defer g.mu.Unlock(); return g.state }
func (g *Guard) Message() string         { g.mu.Lock(); defer g.mu.Unlock(); return g.message }
func (g *Guard) Selection() int          { g.mu.Lock(); defer g.mu.Unlock(); return g.selection }

// Stats returns the currently displayed aggregate (a zero-count placeholder
// after a failed fetch).
func (g *Guard) Stats() domain.VoteStats { g.mu.Lock(); defer g.mu.Unlock(); return g.stats }

// YourVote returns the value submitted this session, if any.
func (g *Guard) YourVote() (int, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.yourVote == nil {
		return 0, false
	}
	return *g.yourVote, true
}

// SetSelection moves the slider while composing. Values are clamped to the
// vote range.
func (g *Guard) SetSelection(value int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if value < domain.MinValue {
		value = domain.MinValue
	}
	if value > domain.MaxValue {
		value = domain.MaxValue
	}
	g.selection = value
}

// ActiveCooldown returns the unexpired cooldown record for the current
// subject, if one exists. Expired records are discarded on sight.
func (g *Guard) ActiveCooldown() (CooldownRecord, bool) {
	g.mu.Lock()
	subject := g.subject
	cooldown := g.cooldown
	g.mu.Unlock()

	rec, ok, err := g.store.Get(subject)
	if err != nil || !ok {
		return CooldownRecord{}, false
	}
	if g.clock.Now().Sub(rec.Timestamp) >= cooldown {
		_ = g.store.Delete(subject)
		return CooldownRecord{}, false
	}
	return rec, true
}

// BeginCompose transitions viewing -> composing. It is rejected without any
// network call while an unexpired cooldown record exists for the subject.
func (g *Guard) BeginCompose() error {
	if _, active := g.ActiveCooldown(); active {
		return ErrCooldownActive
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = StateComposing
	g.message = ""
	return nil
}

// Cancel transitions composing -> viewing with no side effect.
func (g *Guard) Cancel() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state == StateComposing {
		g.state = StateViewing
		g.message = ""
	}
}

// Submit sends the current selection. On rejection the guard stays in
// composing with the server's reason surfaced, so the caller can see why no
// vote was recorded. On success the cooldown record is written (only after
// the acknowledgment), the aggregate is refreshed, and the guard returns to
// viewing.
func (g *Guard) Submit(ctx context.Context) error {
	g.mu.Lock()
	if g.state != StateComposing {
		g.mu.Unlock()
		return ErrNotComposing
	}
	if g.loading {
		g.mu.Unlock()
		return ErrSubmitInFlight
	}
	g.loading = true
	subject := g.subject
	value := g.selection
	g.mu.Unlock()

	err := g.client.SubmitVote(ctx, subject, value)

	g.mu.Lock()
	g.loading = false
	if g.subject != subject {
		// Subject changed while the request was in flight: discard the
		// result rather than touching the new subject's state.
		g.mu.Unlock()
		return err
	}

	if err != nil {
		var submitErr *SubmitError
		if errors.As(err, &submitErr) {
			g.message = submitErr.Message
		} else {
			g.message = "vote failed, please try again"
		}
		g.mu.Unlock()
		return err
	}

	g.yourVote = &value
	g.state = StateViewing
	g.message = ""
	g.mu.Unlock()

	_ = g.store.Put(CooldownRecord{
		Subject:   subject,
		Value:     value,
		Timestamp: g.clock.Now(),
	})

	g.RefreshStats(ctx)
	return nil
}

// RefreshStats reloads the displayed aggregate. On failure it falls back to
// an empty placeholder so the widget keeps rendering.
func (g *Guard) RefreshStats(ctx context.Context) {
	g.mu.Lock()
	subject := g.subject
	g.mu.Unlock()

	stats, err := g.client.Stats(ctx, subject)
	if err != nil {
		stats = domain.VoteStats{Subject: subject}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.subject != subject {
		return
	}
	g.stats = stats
	if stats.Mean != nil {
		g.selection = int(*stats.Mean + 0.5)
	}
}
