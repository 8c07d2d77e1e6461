package board

import (
	"sync"

	"taskboard/internal/service"
)

// Thread is the append-only comment list of one card. Comments arriving
// both from a post and from the live stream are kept once.
type Thread struct {
	mu       sync.Mutex
	cardID   string
	comments []service.Comment
	seen     map[string]bool
}

// NewThread creates an empty thread for cardID.
func NewThread(cardID string) *Thread {
	return &Thread{cardID: cardID, seen: make(map[string]bool)}
}

// CardID returns the card the thread belongs to.
func (t *Thread) CardID() string { return t.cardID }

// Append adds comments not seen yet and returns how many were added.
// Comments for other cards are ignored.
func (t *Thread) Append(comments ...service.Comment) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	added := 0
	for _, c := range comments {
		if c.CardID != "" && c.CardID != t.cardID {
			continue
		}
		if t.seen[c.ID] {
			continue
		}
		t.seen[c.ID] = true
		t.comments = append(t.comments, c)
		added++
	}
	return added
}

// Comments returns a copy of the thread.
func (t *Thread) Comments() []service.Comment {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]service.Comment(nil), t.comments...)
}

// Len returns the number of comments.
func (t *Thread) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.comments)
}
