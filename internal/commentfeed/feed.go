// Package commentfeed fans out newly posted comments to live subscribers of a card.
package commentfeed

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"

	"taskboard/internal/service"
)

// BufferSize is the number of comments buffered per subscriber.
const BufferSize = 16

// Feed publishes comments and streams them to subscribers of the same card.
type Feed interface {
	Publish(ctx context.Context, c service.Comment) error
	// Subscribe streams comments for cardID until ctx is done, then closes the channel.
	Subscribe(ctx context.Context, cardID string) (<-chan service.Comment, error)
	Close() error
}

// Local is an in-process Feed.
type Local struct {
	mu     sync.Mutex
	subs   map[string]map[int]chan service.Comment
	nextID int
	closed bool
	done   chan struct{}
	wg     sync.WaitGroup
	log    *log.Entry
}

// NewLocal creates an in-process feed.
func NewLocal() *Local {
	return &Local{
		subs: make(map[string]map[int]chan service.Comment),
		done: make(chan struct{}),
		log:  log.WithField("component", "commentfeed"),
	}
}

// Publish delivers c to every subscriber of c.CardID. A subscriber whose
// buffer is full misses the comment.
func (l *Local) Publish(ctx context.Context, c service.Comment) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, ch := range l.subs[c.CardID] {
		select {
		case ch <- c:
		default:
			l.log.WithFields(log.Fields{"card": c.CardID, "comment": c.ID}).Warn("subscriber is slow, dropping comment")
		}
	}
	return nil
}

// Subscribe implements Feed.
func (l *Local) Subscribe(ctx context.Context, cardID string) (<-chan service.Comment, error) {
	ch := make(chan service.Comment, BufferSize)

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		close(ch)
		return ch, nil
	}
	id := l.nextID
	l.nextID++
	if l.subs[cardID] == nil {
		l.subs[cardID] = make(map[int]chan service.Comment)
	}
	l.subs[cardID][id] = ch
	l.wg.Add(1)
	l.mu.Unlock()

	go func() {
		defer l.wg.Done()
		select {
		case <-ctx.Done():
		case <-l.done:
			return
		}
		l.mu.Lock()
		defer l.mu.Unlock()
		if _, ok := l.subs[cardID][id]; !ok {
			return
		}
		delete(l.subs[cardID], id)
		if len(l.subs[cardID]) == 0 {
			delete(l.subs, cardID)
		}
		close(ch)
	}()
	return ch, nil
}

// Subscribers returns the number of live subscribers of cardID.
func (l *Local) Subscribers(cardID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.subs[cardID])
}

// Close ends every subscription and waits for their goroutines to exit.
func (l *Local) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	close(l.done)
	for cardID, subs := range l.subs {
		for _, ch := range subs {
			close(ch)
		}
		delete(l.subs, cardID)
	}
	l.mu.Unlock()

	l.wg.Wait()
	return nil
}
