// Package service defines the backend-agnostic interface for board operations.
package service

import "context"

// Service defines the interface for backing service operations.
// All board reads and confirmations go through this interface.
// Commands and the mutation executor never import a backend directly.
type Service interface {
	// ListBoards returns all boards. Columns may be omitted.
	ListBoards(ctx context.Context) ([]Board, error)

	// GetBoard returns a board with its columns and cards.
	// Returns ErrNotFound if no board has the id.
	GetBoard(ctx context.Context, id string) (Board, error)

	// MoveCard moves a card from one column to another.
	MoveCard(ctx context.Context, cardID, toColumnID, fromColumnID string) error

	// CreateCard persists a draft card and returns the saved card with its
	// server-assigned id.
	CreateCard(ctx context.Context, draft Card) (Card, error)

	// UpdateCard replaces an existing card and returns the saved card.
	UpdateCard(ctx context.Context, card Card) (Card, error)

	// ListComments returns the comments of a card, oldest first.
	ListComments(ctx context.Context, cardID string) ([]Comment, error)

	// SubscribeComments streams new comments for a card.
	// The channel is closed once ctx is done.
	SubscribeComments(ctx context.Context, cardID string) (<-chan Comment, error)

	// PostComment appends a comment authored by the current user.
	PostComment(ctx context.Context, cardID, text string) (Comment, error)

	// ListUsers returns the users that can be assigned to cards.
	ListUsers(ctx context.Context) ([]User, error)

	// ListLabels returns the labels that can be attached to cards.
	ListLabels(ctx context.Context) ([]Label, error)
}
