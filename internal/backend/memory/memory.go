// Package memory implements service.Service on in-process demo data with
// simulated latency and injectable failures.
package memory

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"taskboard/internal/backend/seed"
	"taskboard/internal/board"
	"taskboard/internal/commentfeed"
	"taskboard/internal/service"
)

const (
	// DefaultLatency delays every successful call.
	DefaultLatency = 500 * time.Millisecond

	// DefaultFailureLatency delays every failed mutation.
	DefaultFailureLatency = time.Second

	// DefaultFailureRate is the share of mutations that fail.
	DefaultFailureRate = 0.1

	// DefaultLiveCommentInterval spaces the synthetic comments of a live stream.
	DefaultLiveCommentInterval = 5 * time.Second
)

// Failure messages returned for injected faults.
var (
	ErrMoveFailed   = errors.New("Failed to move card")
	ErrCreateFailed = errors.New("Failed to add card")
	ErrUpdateFailed = errors.New("Failed to update card")
)

// Options configures a Backend. The zero value has no latency, no faults
// and no synthetic comments.
type Options struct {
	Latency        time.Duration
	FailureLatency time.Duration
	Faults         Faults

	// LiveCommentInterval spaces synthetic comments on subscribed cards. Zero disables them.
	LiveCommentInterval time.Duration

	// Feed carries live comments. Defaults to a private commentfeed.Local.
	Feed commentfeed.Feed

	// Seed drives the choice of synthetic comment authors.
	Seed uint64

	Now    func() time.Time
	Logger *log.Entry
}

// Backend is an in-memory service.Service.
type Backend struct {
	mu       sync.RWMutex
	boards   []service.Board
	comments map[string][]service.Comment
	users    []service.User
	labels   []service.Label

	opts  Options
	feed  commentfeed.Feed
	owned bool
	done  chan struct{}
	stop  sync.Once
	wg    sync.WaitGroup
	rngMu sync.Mutex
	rng   *rand.Rand
	log   *log.Entry
}

// New creates a backend holding boards. Every card starts with the seeded
// opening thread.
func New(boards []service.Board, opts Options) *Backend {
	if opts.Faults == nil {
		opts.Faults = NoFaults
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = log.WithField("backend", "memory")
	}
	b := &Backend{
		comments: make(map[string][]service.Comment),
		users:    seed.Users(),
		labels:   seed.Labels(),
		opts:     opts,
		feed:     opts.Feed,
		done:     make(chan struct{}),
		rng:      rand.New(rand.NewPCG(opts.Seed, opts.Seed+1)),
		log:      opts.Logger,
	}
	if b.feed == nil {
		b.feed = commentfeed.NewLocal()
		b.owned = true
	}
	now := opts.Now()
	for _, bd := range boards {
		b.boards = append(b.boards, board.Clone(bd))
		for _, col := range bd.Columns {
			for _, c := range col.Cards {
				b.comments[c.ID] = seed.Comments(c.ID, now)
			}
		}
	}
	return b
}

// NewDemo creates a backend with the demo boards and the default latency,
// failure rate and live comment interval.
func NewDemo(seedValue uint64) *Backend {
	return New(seed.Boards(), Options{
		Latency:             DefaultLatency,
		FailureLatency:      DefaultFailureLatency,
		Faults:              NewRandomFaults(DefaultFailureRate, seedValue),
		LiveCommentInterval: DefaultLiveCommentInterval,
		Seed:                seedValue,
	})
}

// Close stops the live comment simulation and releases the comment feed if
// the backend created it.
func (b *Backend) Close() error {
	b.stop.Do(func() { close(b.done) })
	b.wg.Wait()
	if b.owned {
		return b.feed.Close()
	}
	return nil
}

// ListBoards implements service.Service. Columns are omitted.
func (b *Backend) ListBoards(ctx context.Context) ([]service.Board, error) {
	if err := sleep(ctx, b.opts.Latency); err != nil {
		return nil, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]service.Board, len(b.boards))
	for i, bd := range b.boards {
		out[i] = service.Board{ID: bd.ID, Name: bd.Name, Description: bd.Description}
	}
	return out, nil
}

// GetBoard implements service.Service.
func (b *Backend) GetBoard(ctx context.Context, id string) (service.Board, error) {
	if err := sleep(ctx, b.opts.Latency); err != nil {
		return service.Board{}, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, bd := range b.boards {
		if bd.ID == id {
			return board.Clone(bd), nil
		}
	}
	return service.Board{}, fmt.Errorf("board %s: %w", id, service.ErrNotFound)
}

// MoveCard implements service.Service. The card is appended to the target column.
func (b *Backend) MoveCard(ctx context.Context, cardID, toColumnID, fromColumnID string) error {
	if err := b.fault(ctx, OpMove, ErrMoveFailed); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.boards {
		bd := &b.boards[i]
		if _, ok := bd.Column(fromColumnID); !ok {
			continue
		}
		next := board.Clone(*bd)
		if err := moveCard(&next, cardID, fromColumnID, toColumnID); err != nil {
			return err
		}
		*bd = next
		b.log.WithFields(log.Fields{"card": cardID, "from": fromColumnID, "to": toColumnID}).Debug("card moved")
		return nil
	}
	return fmt.Errorf("column %s: %w", fromColumnID, service.ErrNotFound)
}

// CreateCard implements service.Service. The card is inserted at the head of its column.
func (b *Backend) CreateCard(ctx context.Context, draft service.Card) (service.Card, error) {
	if err := b.fault(ctx, OpCreate, ErrCreateFailed); err != nil {
		return service.Card{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	bd, ci := b.column(draft.ColumnID)
	if bd == nil {
		return service.Card{}, fmt.Errorf("column %s: %w", draft.ColumnID, service.ErrNotFound)
	}
	card := board.CloneCard(draft)
	card.ID = "card-" + uuid.NewString()
	card.CommentCount = 0
	col := &bd.Columns[ci]
	col.Cards = append([]service.Card{card}, col.Cards...)
	b.log.WithFields(log.Fields{"card": card.ID, "column": card.ColumnID}).Debug("card created")
	return board.CloneCard(card), nil
}

// UpdateCard implements service.Service. The comment count is owned by the
// backend and is not taken from the request.
func (b *Backend) UpdateCard(ctx context.Context, card service.Card) (service.Card, error) {
	if err := b.fault(ctx, OpUpdate, ErrUpdateFailed); err != nil {
		return service.Card{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	bd, ci := b.column(card.ColumnID)
	if bd == nil {
		return service.Card{}, fmt.Errorf("column %s: %w", card.ColumnID, service.ErrNotFound)
	}
	existing, _, ok := bd.FindCard(card.ID)
	if !ok {
		return service.Card{}, fmt.Errorf("card %s: %w", card.ID, service.ErrNotFound)
	}
	saved := board.CloneCard(card)
	saved.CommentCount = existing.CommentCount

	col := &bd.Columns[ci]
	for i := range col.Cards {
		if col.Cards[i].ID == card.ID {
			col.Cards[i] = saved
			return board.CloneCard(saved), nil
		}
	}
	// The card lives in another column of this board: move it to the head.
	for i := range bd.Columns {
		other := &bd.Columns[i]
		for j := range other.Cards {
			if other.Cards[j].ID == card.ID {
				other.Cards = append(other.Cards[:j:j], other.Cards[j+1:]...)
				break
			}
		}
	}
	col.Cards = append([]service.Card{saved}, col.Cards...)
	return board.CloneCard(saved), nil
}

// ListComments implements service.Service.
func (b *Backend) ListComments(ctx context.Context, cardID string) ([]service.Comment, error) {
	if err := sleep(ctx, b.opts.Latency); err != nil {
		return nil, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if _, ok := b.findCard(cardID); !ok {
		return nil, fmt.Errorf("card %s: %w", cardID, service.ErrNotFound)
	}
	return append([]service.Comment{}, b.comments[cardID]...), nil
}

// SubscribeComments implements service.Service. With a live comment interval
// set, other users appear to comment on the card periodically.
func (b *Backend) SubscribeComments(ctx context.Context, cardID string) (<-chan service.Comment, error) {
	b.mu.RLock()
	_, ok := b.findCard(cardID)
	b.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("card %s: %w", cardID, service.ErrNotFound)
	}

	ch, err := b.feed.Subscribe(ctx, cardID)
	if err != nil {
		return nil, err
	}
	if b.opts.LiveCommentInterval > 0 {
		b.wg.Add(1)
		go b.simulate(ctx, cardID)
	}
	return ch, nil
}

// simulate posts live comments until ctx is done or the backend is closed.
func (b *Backend) simulate(ctx context.Context, cardID string) {
	defer b.wg.Done()
	ticker := time.NewTicker(b.opts.LiveCommentInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-b.done:
			return
		case <-ticker.C:
			if _, err := b.addComment(ctx, cardID, b.randomUser(), seed.LiveCommentText); err != nil {
				b.log.WithField("card", cardID).WithError(err).Warn("live comment dropped")
			}
		}
	}
}

// PostComment implements service.Service.
func (b *Backend) PostComment(ctx context.Context, cardID, text string) (service.Comment, error) {
	if err := service.ValidateCommentText(text); err != nil {
		return service.Comment{}, err
	}
	if err := sleep(ctx, b.opts.Latency); err != nil {
		return service.Comment{}, err
	}
	return b.addComment(ctx, cardID, seed.CurrentUser, text)
}

func (b *Backend) addComment(ctx context.Context, cardID string, user service.User, text string) (service.Comment, error) {
	b.mu.Lock()
	card, ok := b.findCard(cardID)
	if !ok {
		b.mu.Unlock()
		return service.Comment{}, fmt.Errorf("card %s: %w", cardID, service.ErrNotFound)
	}
	c := service.Comment{
		ID:        "comment-" + uuid.NewString(),
		CardID:    cardID,
		User:      user,
		Text:      text,
		Timestamp: b.opts.Now(),
	}
	b.comments[cardID] = append(b.comments[cardID], c)
	card.CommentCount++
	b.mu.Unlock()

	if err := b.feed.Publish(ctx, c); err != nil {
		b.log.WithField("card", cardID).WithError(err).Warn("publish comment")
	}
	return c, nil
}

// ListUsers implements service.Service.
func (b *Backend) ListUsers(ctx context.Context) ([]service.User, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]service.User{}, b.users...), nil
}

// ListLabels implements service.Service.
func (b *Backend) ListLabels(ctx context.Context) ([]service.Label, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]service.Label{}, b.labels...), nil
}

// fault waits out the latency of a mutation and returns failure when the
// faults say so.
func (b *Backend) fault(ctx context.Context, op Op, failure error) error {
	if b.opts.Faults.Fail(op) {
		if err := sleep(ctx, b.opts.FailureLatency); err != nil {
			return err
		}
		b.log.WithField("op", op).Debug("injected failure")
		return failure
	}
	return sleep(ctx, b.opts.Latency)
}

func (b *Backend) randomUser() service.User {
	b.rngMu.Lock()
	defer b.rngMu.Unlock()
	return b.users[b.rng.IntN(len(b.users))]
}

// column returns the board holding columnID and the column index. Callers hold b.mu.
func (b *Backend) column(columnID string) (*service.Board, int) {
	for i := range b.boards {
		for ci := range b.boards[i].Columns {
			if b.boards[i].Columns[ci].ID == columnID {
				return &b.boards[i], ci
			}
		}
	}
	return nil, -1
}

// findCard returns a pointer to the stored card. Callers hold b.mu.
func (b *Backend) findCard(cardID string) (*service.Card, bool) {
	for i := range b.boards {
		for ci := range b.boards[i].Columns {
			col := &b.boards[i].Columns[ci]
			for k := range col.Cards {
				if col.Cards[k].ID == cardID {
					return &col.Cards[k], true
				}
			}
		}
	}
	return nil, false
}

func moveCard(b *service.Board, cardID, fromColumnID, toColumnID string) error {
	fi, ti := -1, -1
	for i := range b.Columns {
		switch b.Columns[i].ID {
		case fromColumnID:
			fi = i
		case toColumnID:
			ti = i
		}
	}
	if fi < 0 {
		return fmt.Errorf("column %s: %w", fromColumnID, service.ErrNotFound)
	}
	if ti < 0 {
		return fmt.Errorf("column %s: %w", toColumnID, service.ErrNotFound)
	}
	from := &b.Columns[fi]
	for i, c := range from.Cards {
		if c.ID == cardID {
			from.Cards = append(from.Cards[:i:i], from.Cards[i+1:]...)
			c.ColumnID = toColumnID
			b.Columns[ti].Cards = append(b.Columns[ti].Cards, c)
			return nil
		}
	}
	return fmt.Errorf("card %s in column %s: %w", cardID, fromColumnID, service.ErrNotFound)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
