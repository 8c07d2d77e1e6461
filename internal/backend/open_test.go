package backend

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"taskboard/internal/config"
	"taskboard/internal/service"
)

func testConfig(t *testing.T, backend string) *config.Config {
	t.Helper()
	cfg, err := config.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	cfg.Settings.Backend = backend
	cfg.Settings.Mock.Latency = 0
	cfg.Settings.Mock.FailureLatency = 0
	cfg.Settings.Mock.FailureRate = 0
	cfg.Settings.Mock.LiveCommentInterval = 0
	cfg.Settings.Mock.Seed = 7
	return cfg
}

func mustClose(t *testing.T, svc service.Service) {
	t.Helper()
	c, ok := svc.(io.Closer)
	if !ok {
		t.Fatal("expected service to implement io.Closer")
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func firstCard(t *testing.T, svc service.Service) service.Card {
	t.Helper()
	ctx := context.Background()
	boards, err := svc.ListBoards(ctx)
	if err != nil || len(boards) == 0 {
		t.Fatalf("ListBoards: %v (%d boards)", err, len(boards))
	}
	b, err := svc.GetBoard(ctx, boards[0].ID)
	if err != nil {
		t.Fatalf("GetBoard: %v", err)
	}
	for _, col := range b.Columns {
		if len(col.Cards) > 0 {
			return col.Cards[0]
		}
	}
	t.Fatal("seeded board has no cards")
	return service.Card{}
}

func TestOpenMemory(t *testing.T) {
	svc, err := Open(context.Background(), testConfig(t, config.BackendMemory))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer mustClose(t, svc)

	c := firstCard(t, svc)
	if c.ID == "" || c.Title == "" {
		t.Errorf("unexpected card %+v", c)
	}
}

func TestOpenSQLite(t *testing.T) {
	cfg := testConfig(t, config.BackendSQLite)
	cfg.Settings.SQLite.Path = "data/board.sqlite"

	svc, err := Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	firstCard(t, svc)
	mustClose(t, svc)

	if got, want := cfg.SQLitePath(), filepath.Join(cfg.Dir, "data", "board.sqlite"); got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestOpenGoogleTasksNeedsLogin(t *testing.T) {
	_, err := Open(context.Background(), testConfig(t, config.BackendGoogleTasks))
	if !errors.Is(err, service.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	if _, err := Open(context.Background(), testConfig(t, "trello")); err == nil {
		t.Error("expected error")
	}
}

func TestOpenWithRedisFeed(t *testing.T) {
	m, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer m.Close()

	cfg := testConfig(t, config.BackendMemory)
	cfg.Settings.Comments.RedisURL = "redis://" + m.Addr()

	svc, err := Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer mustClose(t, svc)

	card := firstCard(t, svc)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stream, err := svc.SubscribeComments(ctx, card.ID)
	if err != nil {
		t.Fatalf("SubscribeComments: %v", err)
	}

	posted, err := svc.PostComment(ctx, card.ID, "over redis")
	if err != nil {
		t.Fatalf("PostComment: %v", err)
	}

	select {
	case got := <-stream:
		if got.ID != posted.ID || got.Text != "over redis" {
			t.Errorf("unexpected comment %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("comment not delivered over redis")
	}
}

func TestOpenRedisUnreachable(t *testing.T) {
	m, err := miniredis.Run()
	if err != nil {
		t.Fatal(err)
	}
	addr := m.Addr()
	m.Close()

	cfg := testConfig(t, config.BackendMemory)
	cfg.Settings.Comments.RedisURL = "redis://" + addr

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := Open(ctx, cfg); err == nil {
		t.Error("expected connection error")
	}
}
