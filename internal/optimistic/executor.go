// Package optimistic applies board mutations locally before the backing
// service confirms them, and reconciles or rolls back once it answers.
//
// Moves are applied to the store immediately and undone from a snapshot if
// the confirmation is rejected. Creates and updates are held in a draft
// buffer and only reach the store once confirmed.
package optimistic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"taskboard/internal/board"
	"taskboard/internal/notify"
	"taskboard/internal/service"
)

// MoveFailedMessage is shown when a move is rejected and reverted.
const MoveFailedMessage = "Failed to move card. Reverting."

// ErrMutationInFlight is returned when a card already has a mutation awaiting confirmation.
var ErrMutationInFlight = errors.New("mutation already in progress")

// Options configures an Executor.
type Options struct {
	// ToastDuration is passed to the sink. Defaults to notify.DefaultDuration.
	ToastDuration time.Duration

	// Logger receives mutation lifecycle logs. Defaults to the standard logger.
	Logger *log.Entry
}

type draft struct {
	card   service.Card
	saving bool
}

// Executor orchestrates optimistic mutations against a board store.
type Executor struct {
	store    *board.Store
	ch       Channel
	sink     notify.Sink
	duration time.Duration
	log      *log.Entry

	mu     sync.Mutex
	moving map[string]bool
	drafts map[string]*draft

	wg sync.WaitGroup
}

// NewExecutor creates an executor mutating store, confirming through ch and
// reporting failures to sink.
func NewExecutor(store *board.Store, ch Channel, sink notify.Sink, opts Options) *Executor {
	if sink == nil {
		sink = notify.Discard
	}
	if opts.ToastDuration <= 0 {
		opts.ToastDuration = notify.DefaultDuration
	}
	if opts.Logger == nil {
		opts.Logger = log.NewEntry(log.StandardLogger())
	}
	return &Executor{
		store:    store,
		ch:       ch,
		sink:     sink,
		duration: opts.ToastDuration,
		log:      opts.Logger,
		moving:   make(map[string]bool),
		drafts:   make(map[string]*draft),
	}
}

// Store returns the store the executor mutates.
func (e *Executor) Store() *board.Store { return e.store }

// Move moves a card between columns optimistically.
//
// Moving a card to the column it is already in resolves immediately as a
// no-op without contacting the backing service. Invalid input (unknown card
// or column) and a move of a card that already has one in flight are
// returned as errors before anything changes, as is a move of a card whose
// update is still awaiting confirmation.
func (e *Executor) Move(ctx context.Context, cardID, fromColumnID, toColumnID string) (*Pending, error) {
	if fromColumnID == toColumnID {
		return resolved(OutcomeNoop), nil
	}
	if !e.lockCard(cardID) {
		return nil, fmt.Errorf("card %s: %w", cardID, ErrMutationInFlight)
	}

	snap := e.store.Capture()
	index := positionOf(snap.Board(), cardID, fromColumnID)

	version, err := e.store.Move(cardID, fromColumnID, toColumnID)
	if err != nil {
		e.unlockCard(cardID)
		return nil, err
	}

	fields := log.Fields{"card": cardID, "from": fromColumnID, "to": toColumnID}
	e.log.WithFields(fields).Debug("move applied optimistically")

	in := Intent{Kind: IntentMove, CardID: cardID, FromColumnID: fromColumnID, ToColumnID: toColumnID}
	p := newPending()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer e.unlockCard(cardID)

		_, err := e.confirm(ctx, in)
		if err == nil {
			e.log.WithFields(fields).Debug("move confirmed")
			p.resolve(OutcomeCommitted, nil, nil)
			return
		}

		e.rollbackMove(snap, version, cardID, fromColumnID, toColumnID, index)
		e.log.WithFields(fields).WithError(err).Warn("move rejected, reverted")
		e.sink.Notify(MoveFailedMessage, notify.Error, e.duration)
		p.resolve(OutcomeRolledBack, nil, service.Reject(in.Kind.String(), err))
	}()

	return p, nil
}

// rollbackMove undoes a rejected move. When nothing else touched the store
// since the move, the snapshot is restored as a whole. Otherwise only the
// card is put back where it was so that newer mutations survive.
func (e *Executor) rollbackMove(snap board.Snapshot, version uint64, cardID, from, to string, index int) {
	if snap.Version()+1 == version {
		if _, ok := e.store.RestoreIf(snap, version); ok {
			return
		}
	}
	if _, err := e.store.MoveAt(cardID, to, from, index); err != nil {
		e.log.WithFields(log.Fields{"card": cardID, "from": to, "to": from}).WithError(err).Error("rollback failed")
	}
}

// DraftKey identifies the draft of a card: its id, or its column for a new card.
func DraftKey(card service.Card) string {
	if card.ID != "" {
		return card.ID
	}
	return "new:" + card.ColumnID
}

// Validate checks a card before it is submitted.
func Validate(card service.Card) error {
	if strings.TrimSpace(card.Title) == "" {
		return service.ValidationError{Field: "title", Message: "is required"}
	}
	if card.ColumnID == "" {
		return service.ValidationError{Field: "column", Message: "is required"}
	}
	return nil
}

// Save submits a card (create when its id is empty, update otherwise).
//
// The card is kept in the draft buffer until the backing service confirms
// it; only then is the confirmed card upserted into the store. On rejection
// the store is left untouched and the draft stays available via Draft.
// Invalid cards are returned as service.ValidationError without a request.
// Updating a card that is being moved fails with ErrMutationInFlight.
func (e *Executor) Save(ctx context.Context, card service.Card) (*Pending, error) {
	if err := Validate(card); err != nil {
		return nil, err
	}

	key := DraftKey(card)
	e.mu.Lock()
	if d, ok := e.drafts[key]; ok && d.saving {
		e.mu.Unlock()
		return nil, fmt.Errorf("draft %s: %w", key, ErrMutationInFlight)
	}
	if card.ID != "" && e.moving[card.ID] {
		e.mu.Unlock()
		return nil, fmt.Errorf("card %s: %w", card.ID, ErrMutationInFlight)
	}
	e.drafts[key] = &draft{card: board.CloneCard(card), saving: true}
	e.mu.Unlock()

	in := Intent{Kind: IntentUpdate, Card: board.CloneCard(card)}
	if card.IsDraft() {
		in.Kind = IntentCreate
	}
	fields := log.Fields{"draft": key, "column": card.ColumnID}
	e.log.WithFields(fields).Debugf("%s submitted", in.Kind)

	p := newPending()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()

		saved, err := e.confirm(ctx, in)
		if err == nil && (saved == nil || saved.ID == "") {
			err = errors.New("backing service returned no card")
		}
		if err != nil {
			e.keepDraft(key)
			rejected := service.Reject(in.Kind.String(), err)
			e.log.WithFields(fields).WithError(err).Warnf("%s rejected", in.Kind)
			e.sink.Notify(rejectionMessage(rejected), notify.Error, e.duration)
			p.resolve(OutcomeRejected, nil, rejected)
			return
		}

		if _, err := e.store.Upsert(*saved); err != nil {
			e.log.WithFields(fields).WithError(err).Warn("confirmed card does not fit the board")
		}
		e.dropDraft(key)
		e.log.WithFields(fields).WithField("card", saved.ID).Debugf("%s confirmed", in.Kind)
		e.sink.Notify(savedMessage(in.Kind), notify.Success, e.duration)
		p.resolve(OutcomeCommitted, saved, nil)
	}()

	return p, nil
}

// Draft returns the buffered edit for key, e.g. to reopen an editor after a rejected save.
func (e *Executor) Draft(key string) (service.Card, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	d, ok := e.drafts[key]
	if !ok {
		return service.Card{}, false
	}
	return board.CloneCard(d.card), true
}

// Saving reports whether the draft for key is awaiting confirmation.
func (e *Executor) Saving(key string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	d, ok := e.drafts[key]
	return ok && d.saving
}

// DiscardDraft forgets a draft that is not in flight, e.g. when its editor closes.
func (e *Executor) DiscardDraft(key string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if d, ok := e.drafts[key]; ok && !d.saving {
		delete(e.drafts, key)
	}
}

// Moving reports whether a move of cardID is awaiting confirmation.
func (e *Executor) Moving(cardID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.moving[cardID]
}

// Wait blocks until every confirmation started so far has resolved.
func (e *Executor) Wait() {
	e.wg.Wait()
}

// confirm runs a single confirmation. In-flight requests are not cancelled
// when the caller's context is, so the store always reaches a terminal state.
func (e *Executor) confirm(ctx context.Context, in Intent) (card *service.Card, err error) {
	defer func() {
		if r := recover(); r != nil {
			card, err = nil, fmt.Errorf("confirmation panicked: %v", r)
		}
	}()
	return e.ch.Confirm(context.WithoutCancel(ctx), in)
}

// lockCard marks cardID as moving unless a move or a save of it is pending.
func (e *Executor) lockCard(cardID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.moving[cardID] {
		return false
	}
	if d, ok := e.drafts[cardID]; ok && d.saving {
		return false
	}
	e.moving[cardID] = true
	return true
}

func (e *Executor) unlockCard(cardID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.moving, cardID)
}

func (e *Executor) keepDraft(key string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if d, ok := e.drafts[key]; ok {
		d.saving = false
	}
}

func (e *Executor) dropDraft(key string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.drafts, key)
}

func positionOf(b service.Board, cardID, columnID string) int {
	col, ok := b.Column(columnID)
	if !ok {
		return -1
	}
	for i, c := range col.Cards {
		if c.ID == cardID {
			return i
		}
	}
	return -1
}

// rejectionMessage is the user-facing text of a rejected save: the backing
// service's own message when it has one.
func rejectionMessage(err error) string {
	var rejected *service.RejectedError
	if errors.As(err, &rejected) && rejected.Err != nil {
		return rejected.Err.Error()
	}
	if err != nil {
		return err.Error()
	}
	return "An unknown error occurred."
}

func savedMessage(kind IntentKind) string {
	if kind == IntentCreate {
		return "Card created."
	}
	return "Card updated."
}
