package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"taskboard/internal/service"
)

func insertComment(ctx context.Context, q querier, c service.Comment) error {
	_, err := q.ExecContext(ctx, `INSERT INTO comments(id, card_id, user_id, text, created_at_unixms) VALUES(?, ?, ?, ?, ?)`,
		c.ID, c.CardID, c.User.ID, c.Text, c.Timestamp.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert comment %s: %w", c.ID, err)
	}
	return nil
}

func cardExists(ctx context.Context, q querier, cardID string) error {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM cards WHERE id = ?`, cardID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("card %s: %w", cardID, service.ErrNotFound)
	}
	return err
}

// ListComments implements service.Service.
func (b *Backend) ListComments(ctx context.Context, cardID string) ([]service.Comment, error) {
	if err := cardExists(ctx, b.db, cardID); err != nil {
		return nil, err
	}
	rows, err := b.db.QueryContext(ctx, `SELECT c.id, c.card_id, u.id, u.name, u.avatar_url, c.text, c.created_at_unixms
		FROM comments c JOIN users u ON u.id = c.user_id
		WHERE c.card_id = ? ORDER BY c.created_at_unixms, c.rowid`, cardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []service.Comment{}
	for rows.Next() {
		var (
			c  service.Comment
			ms int64
		)
		if err := rows.Scan(&c.ID, &c.CardID, &c.User.ID, &c.User.Name, &c.User.AvatarURL, &c.Text, &ms); err != nil {
			return nil, err
		}
		c.Timestamp = time.UnixMilli(ms).UTC()
		out = append(out, c)
	}
	return out, rows.Err()
}

// SubscribeComments implements service.Service. Comments arrive through the
// feed, so other processes sharing a Redis feed are seen too.
func (b *Backend) SubscribeComments(ctx context.Context, cardID string) (<-chan service.Comment, error) {
	if err := cardExists(ctx, b.db, cardID); err != nil {
		return nil, err
	}
	return b.feed.Subscribe(ctx, cardID)
}

// PostComment implements service.Service. The card's comment count is incremented.
func (b *Backend) PostComment(ctx context.Context, cardID, text string) (service.Comment, error) {
	if err := service.ValidateCommentText(text); err != nil {
		return service.Comment{}, err
	}
	c := service.Comment{
		ID:        "comment-" + uuid.NewString(),
		CardID:    cardID,
		User:      b.user,
		Text:      text,
		Timestamp: b.now().UTC().Truncate(time.Millisecond),
	}
	err := b.inTx(ctx, func(tx *sql.Tx) error {
		if err := cardExists(ctx, tx, cardID); err != nil {
			return err
		}
		if err := insertComment(ctx, tx, c); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `UPDATE cards SET comment_count = comment_count + 1 WHERE id = ?`, cardID)
		return err
	})
	if err != nil {
		return service.Comment{}, err
	}
	if err := b.feed.Publish(ctx, c); err != nil {
		b.log.WithField("card", cardID).WithError(err).Warn("publish comment")
	}
	return c, nil
}
