// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"taskboard/internal/service"
)

// ErrNotFound is returned when a resource is not found.
var ErrNotFound = service.ErrNotFound

// FakeService is an in-memory implementation of service.Service for testing.
// Outcomes are injected explicitly; nothing is random.
type FakeService struct {
	mu       sync.RWMutex
	boards   []service.Board
	comments map[string][]service.Comment
	streams  map[string][]*stream
	users    []service.User
	labels   []service.Label
	nextID   int

	// Error injection for testing
	ListBoardsErr   error
	GetBoardErr     error
	MoveCardErr     error
	CreateCardErr   error
	UpdateCardErr   error
	ListCommentsErr error
	SubscribeErr    error
	PostCommentErr  error

	// Gate, when set, holds MoveCard, CreateCard and UpdateCard until a value
	// is received, so tests can observe the optimistic state.
	Gate chan struct{}

	// Calls counts invocations per method name.
	Calls map[string]int

	// Now stamps posted comments.
	Now func() time.Time

	// CurrentUser authors posted comments.
	CurrentUser service.User
}

// NewFakeService creates an empty FakeService.
func NewFakeService() *FakeService {
	return &FakeService{
		comments:    make(map[string][]service.Comment),
		streams:     make(map[string][]*stream),
		Calls:       make(map[string]int),
		Now:         func() time.Time { return time.Date(2024, 8, 1, 12, 0, 0, 0, time.UTC) },
		CurrentUser: service.User{ID: "user-1", Name: "Alex"},
	}
}

// AddBoard adds a board to the fake service.
func (f *FakeService) AddBoard(b service.Board) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.boards = append(f.boards, cloneBoard(b))
}

// AddComment adds a comment to a card without notifying subscribers.
func (f *FakeService) AddComment(c service.Comment) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.comments[c.CardID] = append(f.comments[c.CardID], c)
}

// SetUsers sets the user catalogue.
func (f *FakeService) SetUsers(users ...service.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users = users
}

// SetLabels sets the label catalogue.
func (f *FakeService) SetLabels(labels ...service.Label) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.labels = labels
}

// Push delivers a comment to live subscribers of its card, as another user would.
func (f *FakeService) Push(c service.Comment) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, s := range f.streams[c.CardID] {
		select {
		case s.ch <- c:
		case <-s.done:
		}
	}
}

type stream struct {
	ch   chan service.Comment
	done chan struct{}
}

// CallCount returns how many times method was called.
func (f *FakeService) CallCount(method string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.Calls[method]
}

// Board returns the fake's own copy of a board.
func (f *FakeService) Board(id string) (service.Board, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, b := range f.boards {
		if b.ID == id {
			return cloneBoard(b), true
		}
	}
	return service.Board{}, false
}

func (f *FakeService) record(method string) {
	f.mu.Lock()
	f.Calls[method]++
	f.mu.Unlock()
}

func (f *FakeService) wait(ctx context.Context) error {
	if f.Gate == nil {
		return nil
	}
	select {
	case <-f.Gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ListBoards implements service.Service.
func (f *FakeService) ListBoards(ctx context.Context) ([]service.Board, error) {
	f.record("ListBoards")
	if f.ListBoardsErr != nil {
		return nil, f.ListBoardsErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	result := make([]service.Board, len(f.boards))
	for i, b := range f.boards {
		result[i] = service.Board{ID: b.ID, Name: b.Name, Description: b.Description}
	}
	return result, nil
}

// GetBoard implements service.Service.
func (f *FakeService) GetBoard(ctx context.Context, id string) (service.Board, error) {
	f.record("GetBoard")
	if f.GetBoardErr != nil {
		return service.Board{}, f.GetBoardErr
	}
	if b, ok := f.Board(id); ok {
		return b, nil
	}
	return service.Board{}, fmt.Errorf("board %s: %w", id, ErrNotFound)
}

// MoveCard implements service.Service.
func (f *FakeService) MoveCard(ctx context.Context, cardID, toColumnID, fromColumnID string) error {
	f.record("MoveCard")
	if err := f.wait(ctx); err != nil {
		return err
	}
	if f.MoveCardErr != nil {
		return f.MoveCardErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for bi := range f.boards {
		b := &f.boards[bi]
		from, to := columnIdx(b, fromColumnID), columnIdx(b, toColumnID)
		if from < 0 || to < 0 {
			continue
		}
		for ci, c := range b.Columns[from].Cards {
			if c.ID == cardID {
				b.Columns[from].Cards = append(b.Columns[from].Cards[:ci:ci], b.Columns[from].Cards[ci+1:]...)
				c.ColumnID = toColumnID
				b.Columns[to].Cards = append(b.Columns[to].Cards, c)
				return nil
			}
		}
	}
	return ErrNotFound
}

// CreateCard implements service.Service.
func (f *FakeService) CreateCard(ctx context.Context, draft service.Card) (service.Card, error) {
	f.record("CreateCard")
	if err := f.wait(ctx); err != nil {
		return service.Card{}, err
	}
	if f.CreateCardErr != nil {
		return service.Card{}, f.CreateCardErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for bi := range f.boards {
		b := &f.boards[bi]
		if ci := columnIdx(b, draft.ColumnID); ci >= 0 {
			f.nextID++
			card := draft
			card.ID = fmt.Sprintf("new-%d", f.nextID)
			card.CommentCount = 0
			b.Columns[ci].Cards = append([]service.Card{card}, b.Columns[ci].Cards...)
			return card, nil
		}
	}
	return service.Card{}, ErrNotFound
}

// UpdateCard implements service.Service.
func (f *FakeService) UpdateCard(ctx context.Context, card service.Card) (service.Card, error) {
	f.record("UpdateCard")
	if err := f.wait(ctx); err != nil {
		return service.Card{}, err
	}
	if f.UpdateCardErr != nil {
		return service.Card{}, f.UpdateCardErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for bi := range f.boards {
		b := &f.boards[bi]
		if ci := columnIdx(b, card.ColumnID); ci >= 0 {
			for i, c := range b.Columns[ci].Cards {
				if c.ID == card.ID {
					b.Columns[ci].Cards[i] = card
					return card, nil
				}
			}
		}
	}
	return service.Card{}, ErrNotFound
}

// ListComments implements service.Service.
func (f *FakeService) ListComments(ctx context.Context, cardID string) ([]service.Comment, error) {
	f.record("ListComments")
	if f.ListCommentsErr != nil {
		return nil, f.ListCommentsErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]service.Comment(nil), f.comments[cardID]...), nil
}

// SubscribeComments implements service.Service.
// Subscribers receive comments delivered with Push until ctx is done.
func (f *FakeService) SubscribeComments(ctx context.Context, cardID string) (<-chan service.Comment, error) {
	f.record("SubscribeComments")
	if f.SubscribeErr != nil {
		return nil, f.SubscribeErr
	}
	s := &stream{ch: make(chan service.Comment), done: make(chan struct{})}

	f.mu.Lock()
	f.streams[cardID] = append(f.streams[cardID], s)
	f.mu.Unlock()

	go func() {
		<-ctx.Done()
		close(s.done)
		f.mu.Lock()
		defer f.mu.Unlock()
		subs := f.streams[cardID]
		for i, sub := range subs {
			if sub == s {
				f.streams[cardID] = append(subs[:i:i], subs[i+1:]...)
				break
			}
		}
		close(s.ch)
	}()
	return s.ch, nil
}

// PostComment implements service.Service.
func (f *FakeService) PostComment(ctx context.Context, cardID, text string) (service.Comment, error) {
	f.record("PostComment")
	if f.PostCommentErr != nil {
		return service.Comment{}, f.PostCommentErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	c := service.Comment{
		ID:        fmt.Sprintf("comment-%d", f.nextID),
		CardID:    cardID,
		User:      f.CurrentUser,
		Text:      text,
		Timestamp: f.Now(),
	}
	f.comments[cardID] = append(f.comments[cardID], c)
	return c, nil
}

// ListUsers implements service.Service.
func (f *FakeService) ListUsers(ctx context.Context) ([]service.User, error) {
	f.record("ListUsers")
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]service.User(nil), f.users...), nil
}

// ListLabels implements service.Service.
func (f *FakeService) ListLabels(ctx context.Context) ([]service.Label, error) {
	f.record("ListLabels")
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]service.Label(nil), f.labels...), nil
}

func columnIdx(b *service.Board, id string) int {
	for i := range b.Columns {
		if b.Columns[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneBoard(b service.Board) service.Board {
	out := b
	out.Columns = make([]service.Column, len(b.Columns))
	for i, col := range b.Columns {
		out.Columns[i] = col
		out.Columns[i].Cards = append([]service.Card(nil), col.Cards...)
	}
	return out
}
