package service

import (
	"context"
	"fmt"
	"strings"
)

// ResolveBoard finds a board by id, or by name (case-insensitive, trimmed).
// Returns the fully loaded board.
func ResolveBoard(ctx context.Context, svc Service, ref string) (Board, error) {
	ref = strings.TrimSpace(ref)

	boards, err := svc.ListBoards(ctx)
	if err != nil {
		return Board{}, err
	}

	refLower := strings.ToLower(ref)
	var matches []Board
	for _, b := range boards {
		if b.ID == ref {
			matches = []Board{b}
			break
		}
		if strings.ToLower(strings.TrimSpace(b.Name)) == refLower {
			matches = append(matches, b)
		}
	}

	switch len(matches) {
	case 0:
		return Board{}, fmt.Errorf("board %s: %w", ref, ErrNotFound)
	case 1:
		return svc.GetBoard(ctx, matches[0].ID)
	default:
		return Board{}, fmt.Errorf("board %s: %w", ref, ErrAmbiguous)
	}
}

// ResolveColumn finds a column of b by id, or by title (case-insensitive, trimmed).
func ResolveColumn(b Board, ref string) (Column, error) {
	ref = strings.TrimSpace(ref)
	if col, ok := b.Column(ref); ok {
		return col, nil
	}

	refLower := strings.ToLower(ref)
	var matches []Column
	for _, col := range b.Columns {
		if strings.ToLower(strings.TrimSpace(col.Title)) == refLower {
			matches = append(matches, col)
		}
	}

	switch len(matches) {
	case 0:
		return Column{}, fmt.Errorf("column %s: %w", ref, ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		return Column{}, fmt.Errorf("column %s: %w", ref, ErrAmbiguous)
	}
}
