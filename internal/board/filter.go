package board

import (
	"slices"

	"taskboard/internal/service"
)

// NewDraft returns an empty, not yet persisted card for a column.
func NewDraft(columnID string) service.Card {
	return service.Card{
		ColumnID:  columnID,
		Assignees: []service.User{},
		Labels:    []service.Label{},
	}
}

// Filter returns a copy of b keeping only cards that carry one of labelIDs
// and are assigned to one of assigneeIDs. An empty set does not filter.
func Filter(b service.Board, labelIDs, assigneeIDs []string) service.Board {
	out := Clone(b)
	if len(labelIDs) == 0 && len(assigneeIDs) == 0 {
		return out
	}
	for i := range out.Columns {
		col := &out.Columns[i]
		kept := make([]service.Card, 0, len(col.Cards))
		for _, card := range col.Cards {
			if matchesLabel(card, labelIDs) && matchesAssignee(card, assigneeIDs) {
				kept = append(kept, card)
			}
		}
		col.Cards = kept
	}
	return out
}

func matchesLabel(card service.Card, ids []string) bool {
	if len(ids) == 0 {
		return true
	}
	return slices.ContainsFunc(card.Labels, func(l service.Label) bool {
		return slices.Contains(ids, l.ID)
	})
}

func matchesAssignee(card service.Card, ids []string) bool {
	if len(ids) == 0 {
		return true
	}
	return slices.ContainsFunc(card.Assignees, func(u service.User) bool {
		return slices.Contains(ids, u.ID)
	})
}

// UniqueLabels returns the labels used on b, in first-seen order.
func UniqueLabels(b service.Board) []service.Label {
	seen := make(map[string]bool)
	var out []service.Label
	for _, col := range b.Columns {
		for _, card := range col.Cards {
			for _, l := range card.Labels {
				if !seen[l.ID] {
					seen[l.ID] = true
					out = append(out, l)
				}
			}
		}
	}
	return out
}

// UniqueAssignees returns the users assigned on b, in first-seen order.
func UniqueAssignees(b service.Board) []service.User {
	seen := make(map[string]bool)
	var out []service.User
	for _, col := range b.Columns {
		for _, card := range col.Cards {
			for _, u := range card.Assignees {
				if !seen[u.ID] {
					seen[u.ID] = true
					out = append(out, u)
				}
			}
		}
	}
	return out
}

// Toggle adds id to ids if absent, removes it otherwise.
func Toggle(ids []string, id string) []string {
	if i := slices.Index(ids, id); i >= 0 {
		return slices.Delete(slices.Clone(ids), i, i+1)
	}
	return append(slices.Clone(ids), id)
}
