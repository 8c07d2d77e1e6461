// Package service defines the backend-agnostic interface for board operations.
package service

import (
	"fmt"
	"time"
)

// User is a reference entity shared by value across cards.
type User struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// Label is a reference entity shared by value across cards.
type Label struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Comment is owned by exactly one card and is append-only.
type Comment struct {
	ID        string    `json:"id"`
	CardID    string    `json:"cardId"`
	User      User      `json:"user"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Card is a task unit. A card with an empty ID is a draft that has not been persisted.
type Card struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	ColumnID     string     `json:"columnId"`
	Assignees    []User     `json:"assignees"`
	Labels       []Label    `json:"labels"`
	DueDate      *time.Time `json:"dueDate,omitempty"`
	CommentCount int        `json:"commentCount"`
}

// IsDraft reports whether the card has not been persisted yet.
func (c Card) IsDraft() bool { return c.ID == "" }

// Column is a named bucket holding an ordered sequence of cards.
type Column struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Cards []Card `json:"cards"`
}

// Board is the top-level container of ordered columns.
type Board struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Columns     []Column `json:"columns"`
}

// Column returns the column with the given id.
func (b Board) Column(id string) (Column, bool) {
	for _, col := range b.Columns {
		if col.ID == id {
			return col, true
		}
	}
	return Column{}, false
}

// FindCard returns the card with the given id and the index of the column holding it.
func (b Board) FindCard(id string) (Card, int, bool) {
	for ci, col := range b.Columns {
		for _, card := range col.Cards {
			if card.ID == id {
				return card, ci, true
			}
		}
	}
	return Card{}, -1, false
}

// Validate checks the structural invariants of a board:
// column ids are unique, a card id appears in exactly one column, and each
// card's ColumnID matches the column it is stored in.
func (b Board) Validate() error {
	columns := make(map[string]bool, len(b.Columns))
	cards := make(map[string]string)
	for _, col := range b.Columns {
		if columns[col.ID] {
			return fmt.Errorf("board %s: duplicate column id %q", b.ID, col.ID)
		}
		columns[col.ID] = true

		for _, card := range col.Cards {
			if card.ColumnID != col.ID {
				return fmt.Errorf("board %s: card %q stored in column %q has columnId %q", b.ID, card.ID, col.ID, card.ColumnID)
			}
			if prev, ok := cards[card.ID]; ok {
				return fmt.Errorf("board %s: card %q appears in columns %q and %q", b.ID, card.ID, prev, col.ID)
			}
			cards[card.ID] = col.ID
		}
	}
	return nil
}
