package optimistic

import (
	"context"

	"taskboard/internal/board"
	"taskboard/internal/service"
)

// Outcome is the terminal state of a mutation.
type Outcome int

const (
	// OutcomePending means the confirmation has not resolved yet.
	OutcomePending Outcome = iota
	// OutcomeNoop means nothing was changed and no confirmation was requested.
	OutcomeNoop
	// OutcomeCommitted means the backing service confirmed the mutation.
	OutcomeCommitted
	// OutcomeRolledBack means a tentative move was rejected and undone.
	OutcomeRolledBack
	// OutcomeRejected means a save was rejected; the store was not touched.
	OutcomeRejected
)

func (o Outcome) String() string {
	switch o {
	case OutcomePending:
		return "pending"
	case OutcomeNoop:
		return "noop"
	case OutcomeCommitted:
		return "committed"
	case OutcomeRolledBack:
		return "rolled back"
	case OutcomeRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Pending is the handle of a mutation whose confirmation may still be in flight.
type Pending struct {
	done    chan struct{}
	outcome Outcome
	card    *service.Card
	err     error
}

func newPending() *Pending {
	return &Pending{done: make(chan struct{})}
}

func resolved(o Outcome) *Pending {
	p := newPending()
	p.resolve(o, nil, nil)
	return p
}

func (p *Pending) resolve(o Outcome, card *service.Card, err error) {
	p.outcome = o
	if card != nil {
		c := board.CloneCard(*card)
		p.card = &c
	}
	p.err = err
	close(p.done)
}

// Done is closed once the mutation reached a terminal outcome.
func (p *Pending) Done() <-chan struct{} { return p.done }

// Wait blocks until the mutation resolves or ctx is done.
// Giving up on ctx does not cancel the confirmation.
func (p *Pending) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-p.done:
		return p.outcome, p.err
	case <-ctx.Done():
		return OutcomePending, ctx.Err()
	}
}

// Outcome returns the terminal outcome, or OutcomePending.
func (p *Pending) Outcome() Outcome {
	select {
	case <-p.done:
		return p.outcome
	default:
		return OutcomePending
	}
}

// Err returns the rejection cause once resolved.
func (p *Pending) Err() error {
	select {
	case <-p.done:
		return p.err
	default:
		return nil
	}
}

// Card returns the card confirmed by the backing service, if any.
func (p *Pending) Card() (service.Card, bool) {
	select {
	case <-p.done:
		if p.card == nil {
			return service.Card{}, false
		}
		return *p.card, true
	default:
		return service.Card{}, false
	}
}
