// Package sqlite implements service.Service on a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"taskboard/internal/backend/seed"
	"taskboard/internal/commentfeed"
	"taskboard/internal/service"
)

// DefaultFileName is the database file created in the config dir.
const DefaultFileName = "taskboard.sqlite"

// Options configures a Backend.
type Options struct {
	// Feed carries live comments. Defaults to a private commentfeed.Local.
	Feed commentfeed.Feed

	// CurrentUser authors posted comments. Defaults to the first seeded user.
	CurrentUser service.User

	Now    func() time.Time
	Logger *log.Entry
}

// Backend is a service.Service on SQLite.
type Backend struct {
	db    *sql.DB
	feed  commentfeed.Feed
	owned bool
	user  service.User
	now   func() time.Time
	log   *log.Entry
}

// Open opens (creating and seeding if needed) the database at path.
func Open(ctx context.Context, path string, opts Options) (*Backend, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create database dir: %w", err)
	}
	// modernc.org/sqlite driver name is "sqlite". Pragmas go in the DSN so
	// that every pooled connection gets them.
	dsn := "file:" + path +
		"?_pragma=journal_mode(WAL)" +
		"&_pragma=synchronous(NORMAL)" +
		"&_pragma=foreign_keys(1)" +
		"&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	b := &Backend{
		db:   db,
		feed: opts.Feed,
		user: opts.CurrentUser,
		now:  opts.Now,
		log:  opts.Logger,
	}
	if b.feed == nil {
		b.feed = commentfeed.NewLocal()
		b.owned = true
	}
	if b.user.ID == "" {
		b.user = seed.CurrentUser
	}
	if b.now == nil {
		b.now = time.Now
	}
	if b.log == nil {
		b.log = log.WithField("backend", "sqlite")
	}

	if err := b.migrate(ctx); err != nil {
		_ = b.Close()
		return nil, err
	}
	if err := b.seed(ctx); err != nil {
		_ = b.Close()
		return nil, err
	}
	return b, nil
}

// Close closes the database and the comment feed if the backend created it.
func (b *Backend) Close() error {
	var err error
	if b.owned {
		err = b.feed.Close()
	}
	return errors.Join(err, b.db.Close())
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS meta (
		k TEXT PRIMARY KEY,
		v TEXT NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		avatar_url TEXT NOT NULL DEFAULT '',
		position INTEGER NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS labels (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		color TEXT NOT NULL DEFAULT '',
		position INTEGER NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS boards (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		position INTEGER NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS columns (
		id TEXT PRIMARY KEY,
		board_id TEXT NOT NULL REFERENCES boards(id) ON DELETE CASCADE,
		title TEXT NOT NULL,
		position INTEGER NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS cards (
		id TEXT PRIMARY KEY,
		column_id TEXT NOT NULL REFERENCES columns(id) ON DELETE CASCADE,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		due_date TEXT,
		comment_count INTEGER NOT NULL DEFAULT 0,
		position INTEGER NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_cards_column ON cards(column_id, position);`,
	`CREATE TABLE IF NOT EXISTS card_assignees (
		card_id TEXT NOT NULL REFERENCES cards(id) ON DELETE CASCADE,
		user_id TEXT NOT NULL REFERENCES users(id),
		position INTEGER NOT NULL,
		PRIMARY KEY(card_id, user_id)
	);`,
	`CREATE TABLE IF NOT EXISTS card_labels (
		card_id TEXT NOT NULL REFERENCES cards(id) ON DELETE CASCADE,
		label_id TEXT NOT NULL REFERENCES labels(id),
		position INTEGER NOT NULL,
		PRIMARY KEY(card_id, label_id)
	);`,
	`CREATE TABLE IF NOT EXISTS comments (
		id TEXT PRIMARY KEY,
		card_id TEXT NOT NULL REFERENCES cards(id) ON DELETE CASCADE,
		user_id TEXT NOT NULL REFERENCES users(id),
		text TEXT NOT NULL,
		created_at_unixms INTEGER NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_comments_card ON comments(card_id, created_at_unixms);`,
}

func (b *Backend) migrate(ctx context.Context) error {
	for _, st := range schema {
		if _, err := b.db.ExecContext(ctx, st); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// seed fills an empty database with the demo boards.
func (b *Backend) seed(ctx context.Context) error {
	var v string
	err := b.db.QueryRowContext(ctx, `SELECT v FROM meta WHERE k = 'seeded'`).Scan(&v)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("read meta: %w", err)
	}

	return b.inTx(ctx, func(tx *sql.Tx) error {
		for i, u := range seed.Users() {
			if _, err := tx.ExecContext(ctx, `INSERT INTO users(id, name, avatar_url, position) VALUES(?, ?, ?, ?)`, u.ID, u.Name, u.AvatarURL, i); err != nil {
				return err
			}
		}
		for i, l := range seed.Labels() {
			if _, err := tx.ExecContext(ctx, `INSERT INTO labels(id, name, color, position) VALUES(?, ?, ?, ?)`, l.ID, l.Name, l.Color, i); err != nil {
				return err
			}
		}
		now := b.now()
		for bi, bd := range seed.Boards() {
			if _, err := tx.ExecContext(ctx, `INSERT INTO boards(id, name, description, position) VALUES(?, ?, ?, ?)`, bd.ID, bd.Name, bd.Description, bi); err != nil {
				return err
			}
			for ci, col := range bd.Columns {
				if _, err := tx.ExecContext(ctx, `INSERT INTO columns(id, board_id, title, position) VALUES(?, ?, ?, ?)`, col.ID, bd.ID, col.Title, ci); err != nil {
					return err
				}
				for pos, c := range col.Cards {
					if err := insertCard(ctx, tx, c, pos); err != nil {
						return err
					}
					for _, cm := range seed.Comments(c.ID, now) {
						if err := insertComment(ctx, tx, cm); err != nil {
							return err
						}
					}
				}
			}
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO meta(k, v) VALUES('seeded', ?)`, now.UTC().Format(time.RFC3339))
		return err
	})
}

func (b *Backend) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
