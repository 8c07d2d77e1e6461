package commentfeed

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"taskboard/internal/service"
)

func comment(id, cardID string) service.Comment {
	return service.Comment{
		ID:        id,
		CardID:    cardID,
		User:      service.User{ID: "user-2", Name: "Maria"},
		Text:      "looks good",
		Timestamp: time.Date(2024, 8, 1, 12, 0, 0, 0, time.UTC),
	}
}

func receive(t *testing.T, ch <-chan service.Comment) service.Comment {
	t.Helper()
	select {
	case c, ok := <-ch:
		if !ok {
			t.Fatal("channel closed")
		}
		return c
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for comment")
	}
	return service.Comment{}
}

func waitClosed(t *testing.T, ch <-chan service.Comment) {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("channel not closed")
		}
	}
}

func TestLocalDeliversToCardSubscribers(t *testing.T) {
	feed := NewLocal()
	defer feed.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	card1, err := feed.Subscribe(ctx, "card-1")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	card2, err := feed.Subscribe(ctx, "card-2")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	if err := feed.Publish(ctx, comment("c1", "card-1")); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if got := receive(t, card1); got.ID != "c1" {
		t.Errorf("expected c1, got %s", got.ID)
	}
	select {
	case c := <-card2:
		t.Errorf("card-2 received a comment for another card: %+v", c)
	default:
	}
}

func TestLocalUnsubscribesOnCancel(t *testing.T) {
	feed := NewLocal()
	ctx, cancel := context.WithCancel(context.Background())
	ch, err := feed.Subscribe(ctx, "card-1")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if feed.Subscribers("card-1") != 1 {
		t.Fatalf("expected one subscriber")
	}
	cancel()
	waitClosed(t, ch)
	if n := feed.Subscribers("card-1"); n != 0 {
		t.Errorf("expected no subscribers, got %d", n)
	}
	if err := feed.Publish(context.Background(), comment("c1", "card-1")); err != nil {
		t.Errorf("Publish after unsubscribe: %v", err)
	}
}

func TestLocalCloseEndsSubscriptions(t *testing.T) {
	feed := NewLocal()
	ch, err := feed.Subscribe(context.Background(), "card-1")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	feed.Close()
	waitClosed(t, ch)

	late, err := feed.Subscribe(context.Background(), "card-1")
	if err != nil {
		t.Fatalf("Subscribe after close: %v", err)
	}
	waitClosed(t, late)
}

func TestLocalCloseWaitsForSubscriptions(t *testing.T) {
	feed := NewLocal()
	var subs []<-chan service.Comment
	for _, card := range []string{"card-1", "card-1", "card-2"} {
		ch, err := feed.Subscribe(context.Background(), card)
		if err != nil {
			t.Fatalf("Subscribe: %v", err)
		}
		subs = append(subs, ch)
	}

	closed := make(chan struct{})
	go func() {
		feed.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("Close did not return with uncancelled subscriptions")
	}
	for _, ch := range subs {
		waitClosed(t, ch)
	}
	if err := feed.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestLocalDropsWhenSubscriberIsFull(t *testing.T) {
	feed := NewLocal()
	defer feed.Close()
	ch, err := feed.Subscribe(context.Background(), "card-1")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	for i := 0; i < BufferSize+5; i++ {
		if err := feed.Publish(context.Background(), comment("c", "card-1")); err != nil {
			t.Fatalf("Publish: %v", err)
		}
	}
	if len(ch) != BufferSize {
		t.Errorf("expected %d buffered comments, got %d", BufferSize, len(ch))
	}
}

func newRedis(t *testing.T) (*Redis, *redis.Client) {
	t.Helper()
	m, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(m.Close)
	rc := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { rc.Close() })
	return NewRedisClient(rc, "test:"), rc
}

func TestRedisPublishSubscribe(t *testing.T) {
	feed, _ := newRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := feed.Subscribe(ctx, "card-1")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	want := comment("c1", "card-1")
	if err := feed.Publish(ctx, want); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	got := receive(t, ch)
	if got.ID != want.ID || got.Text != want.Text || got.User != want.User {
		t.Errorf("expected %+v, got %+v", want, got)
	}
	if !got.Timestamp.Equal(want.Timestamp) {
		t.Errorf("expected timestamp %s, got %s", want.Timestamp, got.Timestamp)
	}

	cancel()
	waitClosed(t, ch)
}

func TestRedisSkipsMalformedPayloads(t *testing.T) {
	feed, rc := newRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := feed.Subscribe(ctx, "card-1")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if err := rc.Publish(ctx, feed.Channel("card-1"), "not json").Err(); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := feed.Publish(ctx, comment("c2", "card-1")); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if got := receive(t, ch); got.ID != "c2" {
		t.Errorf("expected c2, got %s", got.ID)
	}
}

func TestNewRedisRejectsBadURL(t *testing.T) {
	if _, err := NewRedis("http://example.com", ""); err == nil {
		t.Error("expected error for non-redis url")
	}
}

func TestRedisDefaultPrefix(t *testing.T) {
	feed := NewRedisClient(nil, "")
	if got := feed.Channel("card-1"); got != DefaultChannelPrefix+"card-1" {
		t.Errorf("unexpected channel %s", got)
	}
}
