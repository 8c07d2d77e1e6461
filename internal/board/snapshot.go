package board

import "taskboard/internal/service"

// Snapshot is an isolated copy of a board taken at a known store version.
// It is used only to roll back a tentative mutation.
type Snapshot struct {
	board   service.Board
	version uint64
}

// Board returns a copy of the captured board.
func (s Snapshot) Board() service.Board { return Clone(s.board) }

// Version returns the store version the snapshot was taken at.
func (s Snapshot) Version() uint64 { return s.version }

// Clone returns a deep copy of b. The copy shares no slices or pointers with b.
func Clone(b service.Board) service.Board {
	out := b
	if b.Columns == nil {
		return out
	}
	out.Columns = make([]service.Column, len(b.Columns))
	for i, col := range b.Columns {
		out.Columns[i] = cloneColumn(col)
	}
	return out
}

func cloneColumn(col service.Column) service.Column {
	out := col
	if col.Cards == nil {
		return out
	}
	out.Cards = make([]service.Card, len(col.Cards))
	for i, card := range col.Cards {
		out.Cards[i] = CloneCard(card)
	}
	return out
}

// CloneCard returns a deep copy of c.
func CloneCard(c service.Card) service.Card {
	out := c
	if c.Assignees != nil {
		out.Assignees = append([]service.User(nil), c.Assignees...)
	}
	if c.Labels != nil {
		out.Labels = append([]service.Label(nil), c.Labels...)
	}
	if c.DueDate != nil {
		due := *c.DueDate
		out.DueDate = &due
	}
	return out
}
