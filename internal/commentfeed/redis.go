package commentfeed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"taskboard/internal/service"
)

// DefaultChannelPrefix namespaces the per-card pub/sub channels.
const DefaultChannelPrefix = "taskboard:comments:"

// Redis is a Feed on Redis pub/sub, one channel per card.
// Publishing is fire-and-forget: subscribers that are not connected miss the comment.
type Redis struct {
	rc     *redis.Client
	prefix string
	owned  bool
	log    *log.Entry
}

// NewRedis connects to the server at url (redis://host:port/db).
func NewRedis(url, prefix string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	r := NewRedisClient(redis.NewClient(opts), prefix)
	r.owned = true
	return r, nil
}

// NewRedisClient wraps an existing client. Close leaves the client open.
func NewRedisClient(rc *redis.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = DefaultChannelPrefix
	}
	return &Redis{rc: rc, prefix: prefix, log: log.WithField("component", "commentfeed")}
}

// Channel returns the pub/sub channel of cardID.
func (r *Redis) Channel(cardID string) string {
	return r.prefix + cardID
}

// Ping checks the connection.
func (r *Redis) Ping(ctx context.Context) error {
	return r.rc.Ping(ctx).Err()
}

// Publish implements Feed.
func (r *Redis) Publish(ctx context.Context, c service.Comment) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal comment: %w", err)
	}
	if err := r.rc.Publish(ctx, r.Channel(c.CardID), data).Err(); err != nil {
		return fmt.Errorf("publish comment: %w", err)
	}
	return nil
}

// Subscribe implements Feed. It returns once the subscription is active.
func (r *Redis) Subscribe(ctx context.Context, cardID string) (<-chan service.Comment, error) {
	sub := r.rc.Subscribe(ctx, r.Channel(cardID))
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", cardID, err)
	}

	out := make(chan service.Comment, BufferSize)
	go func() {
		defer close(out)
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var c service.Comment
				if err := json.Unmarshal([]byte(msg.Payload), &c); err != nil {
					r.log.WithError(err).WithField("channel", msg.Channel).Error("unable to parse comment")
					continue
				}
				if c.CardID != cardID {
					continue
				}
				select {
				case out <- c:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Close closes the client if the feed created it.
func (r *Redis) Close() error {
	if !r.owned {
		return nil
	}
	return r.rc.Close()
}
