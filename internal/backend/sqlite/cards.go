package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"taskboard/internal/service"
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ListBoards implements service.Service. Columns are omitted.
func (b *Backend) ListBoards(ctx context.Context) ([]service.Board, error) {
	rows, err := b.db.QueryContext(ctx, `SELECT id, name, description FROM boards ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []service.Board
	for rows.Next() {
		var bd service.Board
		if err := rows.Scan(&bd.ID, &bd.Name, &bd.Description); err != nil {
			return nil, err
		}
		out = append(out, bd)
	}
	return out, rows.Err()
}

// GetBoard implements service.Service.
func (b *Backend) GetBoard(ctx context.Context, id string) (service.Board, error) {
	var bd service.Board
	err := b.db.QueryRowContext(ctx, `SELECT id, name, description FROM boards WHERE id = ?`, id).
		Scan(&bd.ID, &bd.Name, &bd.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return service.Board{}, fmt.Errorf("board %s: %w", id, service.ErrNotFound)
	}
	if err != nil {
		return service.Board{}, err
	}

	rows, err := b.db.QueryContext(ctx, `SELECT id, title FROM columns WHERE board_id = ? ORDER BY position`, id)
	if err != nil {
		return service.Board{}, err
	}
	colIdx := map[string]int{}
	for rows.Next() {
		col := service.Column{Cards: []service.Card{}}
		if err := rows.Scan(&col.ID, &col.Title); err != nil {
			rows.Close()
			return service.Board{}, err
		}
		colIdx[col.ID] = len(bd.Columns)
		bd.Columns = append(bd.Columns, col)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return service.Board{}, err
	}

	cards, err := queryCards(ctx, b.db, `JOIN columns col ON col.id = c.column_id WHERE col.board_id = ? ORDER BY col.position, c.position`, id)
	if err != nil {
		return service.Board{}, err
	}
	for _, c := range cards {
		i := colIdx[c.ColumnID]
		bd.Columns[i].Cards = append(bd.Columns[i].Cards, c)
	}
	return bd, nil
}

// queryCards loads cards with their assignees and labels. where follows
// "FROM cards c" and may join other tables.
func queryCards(ctx context.Context, q querier, where string, args ...any) ([]service.Card, error) {
	rows, err := q.QueryContext(ctx, `SELECT c.id, c.column_id, c.title, c.description, c.due_date, c.comment_count FROM cards c `+where, args...)
	if err != nil {
		return nil, err
	}
	var cards []service.Card
	for rows.Next() {
		var (
			c   service.Card
			due sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.ColumnID, &c.Title, &c.Description, &due, &c.CommentCount); err != nil {
			rows.Close()
			return nil, err
		}
		if due.Valid && due.String != "" {
			t, err := time.Parse(time.DateOnly, due.String)
			if err != nil {
				rows.Close()
				return nil, fmt.Errorf("card %s: bad due date %q: %w", c.ID, due.String, err)
			}
			c.DueDate = &t
		}
		c.Assignees = []service.User{}
		c.Labels = []service.Label{}
		cards = append(cards, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range cards {
		if cards[i].Assignees, err = cardAssignees(ctx, q, cards[i].ID); err != nil {
			return nil, err
		}
		if cards[i].Labels, err = cardLabels(ctx, q, cards[i].ID); err != nil {
			return nil, err
		}
	}
	return cards, nil
}

func cardAssignees(ctx context.Context, q querier, cardID string) ([]service.User, error) {
	rows, err := q.QueryContext(ctx, `SELECT u.id, u.name, u.avatar_url FROM card_assignees ca
		JOIN users u ON u.id = ca.user_id WHERE ca.card_id = ? ORDER BY ca.position`, cardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []service.User{}
	for rows.Next() {
		var u service.User
		if err := rows.Scan(&u.ID, &u.Name, &u.AvatarURL); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func cardLabels(ctx context.Context, q querier, cardID string) ([]service.Label, error) {
	rows, err := q.QueryContext(ctx, `SELECT l.id, l.name, l.color FROM card_labels cl
		JOIN labels l ON l.id = cl.label_id WHERE cl.card_id = ? ORDER BY cl.position`, cardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []service.Label{}
	for rows.Next() {
		var l service.Label
		if err := rows.Scan(&l.ID, &l.Name, &l.Color); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func loadCard(ctx context.Context, q querier, cardID string) (service.Card, error) {
	cards, err := queryCards(ctx, q, `WHERE c.id = ?`, cardID)
	if err != nil {
		return service.Card{}, err
	}
	if len(cards) == 0 {
		return service.Card{}, fmt.Errorf("card %s: %w", cardID, service.ErrNotFound)
	}
	return cards[0], nil
}

func columnBoard(ctx context.Context, q querier, columnID string) (string, error) {
	var boardID string
	err := q.QueryRowContext(ctx, `SELECT board_id FROM columns WHERE id = ?`, columnID).Scan(&boardID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("column %s: %w", columnID, service.ErrNotFound)
	}
	return boardID, err
}

// headPosition is a position before every card of the column.
func headPosition(ctx context.Context, q querier, columnID string) (int, error) {
	var pos int
	err := q.QueryRowContext(ctx, `SELECT COALESCE(MIN(position) - 1, 0) FROM cards WHERE column_id = ?`, columnID).Scan(&pos)
	return pos, err
}

// tailPosition is a position after every card of the column.
func tailPosition(ctx context.Context, q querier, columnID string) (int, error) {
	var pos int
	err := q.QueryRowContext(ctx, `SELECT COALESCE(MAX(position) + 1, 0) FROM cards WHERE column_id = ?`, columnID).Scan(&pos)
	return pos, err
}

// compactColumn renumbers the cards of a column 0..n-1, keeping their order.
func compactColumn(ctx context.Context, q querier, columnID string) error {
	rows, err := q.QueryContext(ctx, `SELECT id FROM cards WHERE column_id = ? ORDER BY position, id`, columnID)
	if err != nil {
		return err
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	for i, id := range ids {
		if _, err := q.ExecContext(ctx, `UPDATE cards SET position = ? WHERE id = ?`, i, id); err != nil {
			return fmt.Errorf("compact column %s: %w", columnID, err)
		}
	}
	return nil
}

func dueDate(c service.Card) any {
	if c.DueDate == nil {
		return nil
	}
	return c.DueDate.Format(time.DateOnly)
}

func insertCard(ctx context.Context, q querier, c service.Card, pos int) error {
	_, err := q.ExecContext(ctx, `INSERT INTO cards(id, column_id, title, description, due_date, comment_count, position)
		VALUES(?, ?, ?, ?, ?, ?, ?)`, c.ID, c.ColumnID, c.Title, c.Description, dueDate(c), c.CommentCount, pos)
	if err != nil {
		return fmt.Errorf("insert card %s: %w", c.ID, err)
	}
	return writeCardRefs(ctx, q, c)
}

func writeCardRefs(ctx context.Context, q querier, c service.Card) error {
	for i, u := range c.Assignees {
		if _, err := q.ExecContext(ctx, `INSERT OR IGNORE INTO card_assignees(card_id, user_id, position) VALUES(?, ?, ?)`, c.ID, u.ID, i); err != nil {
			return fmt.Errorf("assign %s to card %s: %w", u.ID, c.ID, err)
		}
	}
	for i, l := range c.Labels {
		if _, err := q.ExecContext(ctx, `INSERT OR IGNORE INTO card_labels(card_id, label_id, position) VALUES(?, ?, ?)`, c.ID, l.ID, i); err != nil {
			return fmt.Errorf("label card %s with %s: %w", c.ID, l.ID, err)
		}
	}
	return nil
}

func validateCard(c service.Card) error {
	if strings.TrimSpace(c.Title) == "" {
		return service.ValidationError{Field: "title", Message: "is required"}
	}
	return nil
}

// MoveCard implements service.Service. The card is appended to the target
// column and the source column is renumbered to close the gap.
func (b *Backend) MoveCard(ctx context.Context, cardID, toColumnID, fromColumnID string) error {
	err := b.inTx(ctx, func(tx *sql.Tx) error {
		fromBoard, err := columnBoard(ctx, tx, fromColumnID)
		if err != nil {
			return err
		}
		toBoard, err := columnBoard(ctx, tx, toColumnID)
		if err != nil {
			return err
		}
		if fromBoard != toBoard {
			return fmt.Errorf("column %s on board %s: %w", toColumnID, fromBoard, service.ErrNotFound)
		}

		var current string
		err = tx.QueryRowContext(ctx, `SELECT column_id FROM cards WHERE id = ?`, cardID).Scan(&current)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		if current != fromColumnID {
			return fmt.Errorf("card %s in column %s: %w", cardID, fromColumnID, service.ErrNotFound)
		}

		pos, err := tailPosition(ctx, tx, toColumnID)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE cards SET column_id = ?, position = ? WHERE id = ?`, toColumnID, pos, cardID); err != nil {
			return err
		}
		return compactColumn(ctx, tx, fromColumnID)
	})
	if err != nil {
		return err
	}
	b.log.WithFields(log.Fields{"card": cardID, "from": fromColumnID, "to": toColumnID}).Debug("card moved")
	return nil
}

// CreateCard implements service.Service. The card is inserted at the head of its column.
func (b *Backend) CreateCard(ctx context.Context, draft service.Card) (service.Card, error) {
	if err := validateCard(draft); err != nil {
		return service.Card{}, err
	}
	card := draft
	card.ID = "card-" + uuid.NewString()
	card.CommentCount = 0

	var saved service.Card
	err := b.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := columnBoard(ctx, tx, card.ColumnID); err != nil {
			return err
		}
		pos, err := headPosition(ctx, tx, card.ColumnID)
		if err != nil {
			return err
		}
		if err := insertCard(ctx, tx, card, pos); err != nil {
			return err
		}
		saved, err = loadCard(ctx, tx, card.ID)
		return err
	})
	if err != nil {
		return service.Card{}, err
	}
	b.log.WithFields(log.Fields{"card": saved.ID, "column": saved.ColumnID}).Debug("card created")
	return saved, nil
}

// UpdateCard implements service.Service. A card whose column changed is
// moved to the head of the new column. The comment count is kept.
func (b *Backend) UpdateCard(ctx context.Context, card service.Card) (service.Card, error) {
	if err := validateCard(card); err != nil {
		return service.Card{}, err
	}
	var saved service.Card
	err := b.inTx(ctx, func(tx *sql.Tx) error {
		var (
			current string
			pos     int
		)
		err := tx.QueryRowContext(ctx, `SELECT column_id, position FROM cards WHERE id = ?`, card.ID).Scan(&current, &pos)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("card %s: %w", card.ID, service.ErrNotFound)
		}
		if err != nil {
			return err
		}

		if current != card.ColumnID {
			fromBoard, err := columnBoard(ctx, tx, current)
			if err != nil {
				return err
			}
			toBoard, err := columnBoard(ctx, tx, card.ColumnID)
			if err != nil {
				return err
			}
			if fromBoard != toBoard {
				return fmt.Errorf("column %s on board %s: %w", card.ColumnID, fromBoard, service.ErrNotFound)
			}
			if pos, err = headPosition(ctx, tx, card.ColumnID); err != nil {
				return err
			}
		}

		_, err = tx.ExecContext(ctx, `UPDATE cards SET column_id = ?, title = ?, description = ?, due_date = ?, position = ? WHERE id = ?`,
			card.ColumnID, card.Title, card.Description, dueDate(card), pos, card.ID)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM card_assignees WHERE card_id = ?`, card.ID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM card_labels WHERE card_id = ?`, card.ID); err != nil {
			return err
		}
		if err := writeCardRefs(ctx, tx, card); err != nil {
			return err
		}
		saved, err = loadCard(ctx, tx, card.ID)
		return err
	})
	if err != nil {
		return service.Card{}, err
	}
	return saved, nil
}

// ListUsers implements service.Service.
func (b *Backend) ListUsers(ctx context.Context) ([]service.User, error) {
	rows, err := b.db.QueryContext(ctx, `SELECT id, name, avatar_url FROM users ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []service.User
	for rows.Next() {
		var u service.User
		if err := rows.Scan(&u.ID, &u.Name, &u.AvatarURL); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// ListLabels implements service.Service.
func (b *Backend) ListLabels(ctx context.Context) ([]service.Label, error) {
	rows, err := b.db.QueryContext(ctx, `SELECT id, name, color FROM labels ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []service.Label
	for rows.Next() {
		var l service.Label
		if err := rows.Scan(&l.ID, &l.Name, &l.Color); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
