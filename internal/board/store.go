// Package board holds the local copy of the board being viewed and the
// structural operations applied to it.
package board

import (
	"errors"
	"fmt"
	"sync"

	"taskboard/internal/service"
)

// Listener is called after every change with the new board and store version.
// Calls are serialized in version order. Listeners run outside the store lock
// and may read the store, but must not block or mutate it.
type Listener func(b service.Board, version uint64)

// Store holds the current board. Every mutation builds a new board value and
// swaps it in under the lock, so readers never observe a partial update.
type Store struct {
	mu        sync.RWMutex
	board     service.Board
	version   uint64
	listeners map[int]Listener
	nextID    int

	// notifyMu is taken before mu is released, so deliveries keep version order.
	notifyMu sync.Mutex
}

// NewStore creates a store holding b.
func NewStore(b service.Board) *Store {
	return &Store{
		board:     Clone(b),
		listeners: make(map[int]Listener),
	}
}

// Current returns a copy of the current board.
func (s *Store) Current() service.Board {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Clone(s.board)
}

// Version returns the number of mutations applied so far.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Capture takes a snapshot of the current board.
func (s *Store) Capture() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{board: Clone(s.board), version: s.version}
}

// Subscribe registers l for change notifications. The returned func removes it.
func (s *Store) Subscribe(l Listener) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// Replace swaps in a whole board, e.g. after a confirmed reload.
func (s *Store) Replace(b service.Board) uint64 {
	v, _ := s.apply(func(*service.Board) (service.Board, error) {
		return Clone(b), nil
	})
	return v
}

// Restore puts a snapshot back unconditionally.
func (s *Store) Restore(snap Snapshot) uint64 {
	return s.Replace(snap.board)
}

// RestoreIf puts a snapshot back only if the store is still at version.
// It reports whether the snapshot was restored.
func (s *Store) RestoreIf(snap Snapshot, version uint64) (uint64, bool) {
	v, err := s.apply(func(*service.Board) (service.Board, error) {
		if s.version != version {
			return service.Board{}, errStale
		}
		return Clone(snap.board), nil
	})
	return v, err == nil
}

// Move removes a card from one column and appends it to another, updating its ColumnID.
func (s *Store) Move(cardID, fromColumnID, toColumnID string) (uint64, error) {
	return s.MoveAt(cardID, fromColumnID, toColumnID, -1)
}

// MoveAt is Move with an explicit target index. A negative or out of range
// index appends to the target column.
func (s *Store) MoveAt(cardID, fromColumnID, toColumnID string, index int) (uint64, error) {
	return s.apply(func(cur *service.Board) (service.Board, error) {
		next := Clone(*cur)
		if err := moveCard(&next, cardID, fromColumnID, toColumnID, index); err != nil {
			return service.Board{}, err
		}
		return next, nil
	})
}

// Upsert replaces the card in place if its id is in the card's column,
// otherwise inserts it at the head of that column. A card with the same id
// stored in another column is removed from there first.
func (s *Store) Upsert(card service.Card) (uint64, error) {
	return s.apply(func(cur *service.Board) (service.Board, error) {
		next := Clone(*cur)
		if err := upsertCard(&next, CloneCard(card)); err != nil {
			return service.Board{}, err
		}
		return next, nil
	})
}

func (s *Store) apply(fn func(cur *service.Board) (service.Board, error)) (uint64, error) {
	s.mu.Lock()
	next, err := fn(&s.board)
	if err != nil {
		v := s.version
		s.mu.Unlock()
		return v, err
	}
	s.board = next
	s.version++
	v := s.version
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.notifyMu.Lock()
	s.mu.Unlock()

	defer s.notifyMu.Unlock()
	for _, l := range listeners {
		l(Clone(next), v)
	}
	return v, nil
}

var errStale = errors.New("store changed since snapshot")

func columnIndex(b *service.Board, id string) int {
	for i := range b.Columns {
		if b.Columns[i].ID == id {
			return i
		}
	}
	return -1
}

func cardIndex(col *service.Column, id string) int {
	for i := range col.Cards {
		if col.Cards[i].ID == id {
			return i
		}
	}
	return -1
}

func moveCard(b *service.Board, cardID, fromColumnID, toColumnID string, index int) error {
	fi := columnIndex(b, fromColumnID)
	if fi < 0 {
		return fmt.Errorf("column %s: %w", fromColumnID, service.ErrNotFound)
	}
	ti := columnIndex(b, toColumnID)
	if ti < 0 {
		return fmt.Errorf("column %s: %w", toColumnID, service.ErrNotFound)
	}
	from := &b.Columns[fi]
	ci := cardIndex(from, cardID)
	if ci < 0 {
		return fmt.Errorf("card %s in column %s: %w", cardID, fromColumnID, service.ErrNotFound)
	}

	card := from.Cards[ci]
	from.Cards = append(from.Cards[:ci:ci], from.Cards[ci+1:]...)
	card.ColumnID = toColumnID

	to := &b.Columns[ti]
	if index < 0 || index > len(to.Cards) {
		index = len(to.Cards)
	}
	cards := make([]service.Card, 0, len(to.Cards)+1)
	cards = append(cards, to.Cards[:index]...)
	cards = append(cards, card)
	cards = append(cards, to.Cards[index:]...)
	to.Cards = cards
	return nil
}

func upsertCard(b *service.Board, card service.Card) error {
	if card.ID == "" {
		return fmt.Errorf("upsert: card has no id")
	}
	ti := columnIndex(b, card.ColumnID)
	if ti < 0 {
		return fmt.Errorf("column %s: %w", card.ColumnID, service.ErrNotFound)
	}

	to := &b.Columns[ti]
	if ci := cardIndex(to, card.ID); ci >= 0 {
		to.Cards[ci] = card
		return nil
	}

	for i := range b.Columns {
		if i == ti {
			continue
		}
		col := &b.Columns[i]
		if ci := cardIndex(col, card.ID); ci >= 0 {
			col.Cards = append(col.Cards[:ci:ci], col.Cards[ci+1:]...)
		}
	}
	to.Cards = append([]service.Card{card}, to.Cards...)
	return nil
}
