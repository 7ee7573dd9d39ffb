package client

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/J0YY/the-world-unscripted-sub001/internal/geosim"
)

// DefaultSchedule staggers poll delays: short at first, growing later,
// holding at the last value. Tuned empirically; the qualitative
// contract is bounded total wait without overwhelming the server.
var DefaultSchedule = []time.Duration{
	900 * time.Millisecond,
	1200 * time.Millisecond,
	1600 * time.Millisecond,
	2200 * time.Millisecond,
	3 * time.Second,
	4200 * time.Millisecond,
	6 * time.Second,
	8500 * time.Millisecond,
	10 * time.Second,
}

const (
	// ActiveBudget bounds the attentive wait right after a turn
	// submission.
	ActiveBudget = 14 * time.Second
	// BackgroundBudget bounds passive catch-up polling.
	BackgroundBudget = 45 * time.Second
	// DefaultHiddenPenalty is added to every delay while the tab is
	// not visible, to avoid wasted fetches nobody is looking at.
	DefaultHiddenPenalty = 2500 * time.Millisecond
)

// BriefingComplete reports whether a snapshot has fully hydrated: the
// enrichment-dependent briefing collections have reached their
// expected minimum sizes.
func BriefingComplete(snap *geosim.GameSnapshot) bool {
	if snap == nil {
		return false
	}
	b := snap.PlayerView.Briefing
	if b == nil {
		return false
	}
	return len(b.Headlines) >= 2 &&
		len(b.IntelBriefs) >= 2 &&
		len(b.DiplomaticMessages) >= 1 &&
		len(b.Rumors) >= 1 &&
		len(snap.PlayerView.IncomingEvents) >= 1
}

// SnapshotFetcher fetches the current snapshot for a game.
type SnapshotFetcher func(ctx context.Context, gameID string) (*geosim.GameSnapshot, error)

// PollOptions tunes one poll loop. Zero values take the defaults.
type PollOptions struct {
	Schedule      []time.Duration
	Budget        time.Duration
	HiddenPenalty time.Duration
	// Hidden reports whether the UI is currently not visible. May be
	// nil (always visible).
	Hidden func() bool
	// Complete overrides the completeness predicate. May be nil.
	Complete func(*geosim.GameSnapshot) bool
}

// PollResult is the terminal state of one poll loop. An exhausted
// budget is not an error: Complete is simply false and the caller
// continues in the background. Superseded means a newer loop took
// over and this one stopped without touching state.
type PollResult struct {
	Snapshot   *geosim.GameSnapshot
	Complete   bool
	Superseded bool
	Polls      int
}

// Poller runs hydration poll loops. Loops are cancellable two ways:
// via context, and via generation tokens — every Start claims the next
// generation and invalidates all older loops, so a stale loop becomes
// a no-op at its next wake-up instead of racing a fresher one.
type Poller struct {
	fetch      SnapshotFetcher
	generation atomic.Uint64
}

func NewPoller(fetch SnapshotFetcher) *Poller {
	return &Poller{fetch: fetch}
}

// PollerFor wires a Poller to a Client's snapshot endpoint.
func PollerFor(c *Client) *Poller {
	return NewPoller(c.Snapshot)
}

// Start runs a poll loop until the snapshot is complete, the budget is
// exhausted, the context is cancelled, or a newer Start supersedes it.
func (p *Poller) Start(ctx context.Context, gameID string, opts PollOptions) (PollResult, error) {
	schedule := opts.Schedule
	if len(schedule) == 0 {
		schedule = DefaultSchedule
	}
	budget := opts.Budget
	if budget <= 0 {
		budget = ActiveBudget
	}
	penalty := opts.HiddenPenalty
	if penalty <= 0 {
		penalty = DefaultHiddenPenalty
	}
	complete := opts.Complete
	if complete == nil {
		complete = BriefingComplete
	}

	gen := p.generation.Add(1)
	deadline := time.Now().Add(budget)

	var result PollResult
	for attempt := 0; ; attempt++ {
		if p.generation.Load() != gen {
			result.Superseded = true
			return result, nil
		}

		snap, err := p.fetch(ctx, gameID)
		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			// Transient fetch failures ride the same schedule.
		} else {
			result.Snapshot = snap
			result.Polls++
			if complete(snap) {
				result.Complete = true
				return result, nil
			}
		}

		delay := schedule[min(attempt, len(schedule)-1)]
		if opts.Hidden != nil && opts.Hidden() {
			delay += penalty
		}
		if time.Now().Add(delay).After(deadline) {
			// Budget exhausted: hand off to background catch-up.
			return result, nil
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return result, ctx.Err()
		case <-timer.C:
		}
	}
}
