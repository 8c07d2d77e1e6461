package commands

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"taskboard/internal/output"
	"taskboard/internal/service"
)

// CardRef represents a parsed card reference.
type CardRef struct {
	ID     string // card id, empty for positional references
	Letter rune   // column letter 'a'-'z' for positional references
	Num    int    // 1-based position in the column
}

// Positional reports whether the reference addresses a card by column letter and number.
func (r CardRef) Positional() bool { return r.Letter != 0 }

func (r CardRef) String() string {
	if r.Positional() {
		return fmt.Sprintf("%c%d", r.Letter, r.Num)
	}
	return r.ID
}

// ErrCardRefRequired indicates no card reference was provided.
var ErrCardRefRequired = errors.New("card reference required")

// ParseCardRef parses a card reference.
//
// Parsing rules:
// 1. <letter><digits> (e.g. a1, c12) addresses the n-th card of a column as printed by show
// 2. Anything else is taken as a card id
// 3. Empty or whitespace-only input is an error
func ParseCardRef(arg string) (CardRef, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return CardRef{}, ErrCardRefRequired
	}

	if len(arg) > 1 && isLetter(rune(arg[0])) && isAllDigits(arg[1:]) {
		num, err := strconv.Atoi(arg[1:])
		if err != nil {
			return CardRef{}, fmt.Errorf("invalid card reference: %s", arg)
		}
		return CardRef{Letter: rune(arg[0]), Num: num}, nil
	}

	return CardRef{ID: arg}, nil
}

// ResolveCard finds the card ref points at on b.
func ResolveCard(b service.Board, ref CardRef) (service.Card, error) {
	if !ref.Positional() {
		card, _, ok := b.FindCard(ref.ID)
		if !ok {
			return service.Card{}, fmt.Errorf("card %s: %w", ref.ID, service.ErrNotFound)
		}
		return card, nil
	}

	for i, col := range b.Columns {
		if output.ColumnLetter(i) != ref.Letter {
			continue
		}
		if ref.Num < 1 || ref.Num > len(col.Cards) {
			return service.Card{}, fmt.Errorf("card number out of range: %s", ref)
		}
		return col.Cards[ref.Num-1], nil
	}
	return service.Card{}, fmt.Errorf("column letter not found: %c", ref.Letter)
}

// isAllDigits returns true if s consists only of ASCII digits and is non-empty.
func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r > unicode.MaxASCII || !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// isLetter returns true if r is a lowercase letter a-z.
func isLetter(r rune) bool {
	return r >= 'a' && r <= 'z'
}
