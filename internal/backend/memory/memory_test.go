package memory

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"taskboard/internal/backend/seed"
	"taskboard/internal/service"
)

var fixedNow = time.Date(2024, 8, 1, 12, 0, 0, 0, time.UTC)

func newBackend(opts Options) *Backend {
	opts.Now = func() time.Time { return fixedNow }
	return New(seed.Boards(), opts)
}

func cardIDs(t *testing.T, b service.Board, columnID string) []string {
	t.Helper()
	col, ok := b.Column(columnID)
	if !ok {
		t.Fatalf("column %s missing", columnID)
	}
	var ids []string
	for _, c := range col.Cards {
		ids = append(ids, c.ID)
	}
	return ids
}

func TestListBoardsOmitsColumns(t *testing.T) {
	b := newBackend(Options{})
	boards, err := b.ListBoards(context.Background())
	if err != nil {
		t.Fatalf("ListBoards: %v", err)
	}
	if len(boards) != 2 {
		t.Fatalf("expected 2 boards, got %d", len(boards))
	}
	if boards[0].Name != "Project Phoenix" || boards[1].Name != "Marketing Campaign" {
		t.Errorf("unexpected boards %+v", boards)
	}
	if boards[0].Columns != nil {
		t.Error("expected columns to be omitted")
	}
}

func TestGetBoard(t *testing.T) {
	b := newBackend(Options{})
	got, err := b.GetBoard(context.Background(), "board-1")
	if err != nil {
		t.Fatalf("GetBoard: %v", err)
	}
	if len(got.Columns) != 4 {
		t.Errorf("expected 4 columns, got %d", len(got.Columns))
	}

	// The returned board is a copy.
	got.Columns[0].Cards[0].Title = "changed"
	again, _ := b.GetBoard(context.Background(), "board-1")
	if again.Columns[0].Cards[0].Title == "changed" {
		t.Error("GetBoard leaked internal state")
	}

	if _, err := b.GetBoard(context.Background(), "nope"); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMoveCardAppends(t *testing.T) {
	b := newBackend(Options{})
	ctx := context.Background()
	if err := b.MoveCard(ctx, "card-1", "col-2", "col-1"); err != nil {
		t.Fatalf("MoveCard: %v", err)
	}
	got, _ := b.GetBoard(ctx, "board-1")
	if ids := cardIDs(t, got, "col-2"); strings.Join(ids, ",") != "card-4,card-5,card-1" {
		t.Errorf("col-2 = %v", ids)
	}
	if ids := cardIDs(t, got, "col-1"); strings.Join(ids, ",") != "card-2,card-3" {
		t.Errorf("col-1 = %v", ids)
	}
	if c, _, _ := got.FindCard("card-1"); c.ColumnID != "col-2" {
		t.Errorf("expected columnId col-2, got %s", c.ColumnID)
	}
}

func TestMoveCardNotFound(t *testing.T) {
	b := newBackend(Options{})
	ctx := context.Background()
	cases := []struct{ card, to, from string }{
		{"card-9", "col-2", "col-1"},
		{"card-1", "col-9", "col-1"},
		{"card-1", "col-2", "col-9"},
		{"card-4", "col-3", "col-1"},
		{"card-1", "mkt-col-2", "col-1"},
	}
	for _, tc := range cases {
		if err := b.MoveCard(ctx, tc.card, tc.to, tc.from); !errors.Is(err, service.ErrNotFound) {
			t.Errorf("MoveCard(%s, %s, %s): expected ErrNotFound, got %v", tc.card, tc.to, tc.from, err)
		}
	}
	got, _ := b.GetBoard(ctx, "board-1")
	if err := got.Validate(); err != nil {
		t.Errorf("board corrupted: %v", err)
	}
}

func TestInjectedFailures(t *testing.T) {
	b := newBackend(Options{Faults: FailAlways()})
	ctx := context.Background()

	if err := b.MoveCard(ctx, "card-1", "col-2", "col-1"); !errors.Is(err, ErrMoveFailed) {
		t.Errorf("expected ErrMoveFailed, got %v", err)
	}
	if _, err := b.CreateCard(ctx, service.Card{Title: "x", ColumnID: "col-1"}); !errors.Is(err, ErrCreateFailed) {
		t.Errorf("expected ErrCreateFailed, got %v", err)
	}
	if _, err := b.UpdateCard(ctx, service.Card{ID: "card-1", Title: "x", ColumnID: "col-1"}); !errors.Is(err, ErrUpdateFailed) {
		t.Errorf("expected ErrUpdateFailed, got %v", err)
	}

	got, _ := b.GetBoard(ctx, "board-1")
	if ids := cardIDs(t, got, "col-1"); strings.Join(ids, ",") != "card-1,card-2,card-3" {
		t.Errorf("failed mutations changed the board: %v", ids)
	}
}

func TestFailAlwaysSelectsOps(t *testing.T) {
	f := FailAlways(OpCreate)
	if f.Fail(OpMove) || !f.Fail(OpCreate) {
		t.Error("expected only create to fail")
	}
}

func TestRandomFaults(t *testing.T) {
	if NewRandomFaults(0, 1).Fail(OpMove) {
		t.Error("rate 0 must never fail")
	}
	always := NewRandomFaults(1, 1)
	for i := 0; i < 10; i++ {
		if !always.Fail(OpMove) {
			t.Fatal("rate 1 must always fail")
		}
	}

	a, b := NewRandomFaults(0.5, 42), NewRandomFaults(0.5, 42)
	for i := 0; i < 32; i++ {
		if a.Fail(OpMove) != b.Fail(OpMove) {
			t.Fatal("same seed produced different sequences")
		}
	}
}

func TestLatencyHonorsContext(t *testing.T) {
	b := newBackend(Options{Latency: time.Hour})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := b.ListBoards(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestCreateCardInsertsAtHead(t *testing.T) {
	b := newBackend(Options{})
	ctx := context.Background()
	saved, err := b.CreateCard(ctx, service.Card{Title: "New thing", ColumnID: "col-3", CommentCount: 7})
	if err != nil {
		t.Fatalf("CreateCard: %v", err)
	}
	if !strings.HasPrefix(saved.ID, "card-") || saved.CommentCount != 0 {
		t.Errorf("unexpected saved card %+v", saved)
	}
	got, _ := b.GetBoard(ctx, "board-1")
	if ids := cardIDs(t, got, "col-3"); len(ids) != 2 || ids[0] != saved.ID {
		t.Errorf("col-3 = %v", ids)
	}

	if _, err := b.CreateCard(ctx, service.Card{Title: "x", ColumnID: "col-9"}); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateCard(t *testing.T) {
	b := newBackend(Options{})
	ctx := context.Background()

	board, _ := b.GetBoard(ctx, "board-1")
	card, _, _ := board.FindCard("card-2")
	card.Title = "Design the dashboard"
	card.CommentCount = 0
	saved, err := b.UpdateCard(ctx, card)
	if err != nil {
		t.Fatalf("UpdateCard: %v", err)
	}
	if saved.CommentCount != 4 {
		t.Errorf("expected comment count to be kept, got %d", saved.CommentCount)
	}
	board, _ = b.GetBoard(ctx, "board-1")
	if ids := cardIDs(t, board, "col-1"); strings.Join(ids, ",") != "card-1,card-2,card-3" {
		t.Errorf("expected in-place replace, col-1 = %v", ids)
	}
	if c, _, _ := board.FindCard("card-2"); c.Title != "Design the dashboard" {
		t.Errorf("title not updated: %q", c.Title)
	}

	card.ColumnID = "col-4"
	if _, err := b.UpdateCard(ctx, card); err != nil {
		t.Fatalf("UpdateCard across columns: %v", err)
	}
	board, _ = b.GetBoard(ctx, "board-1")
	if ids := cardIDs(t, board, "col-4"); strings.Join(ids, ",") != "card-2,card-7" {
		t.Errorf("col-4 = %v", ids)
	}
	if err := board.Validate(); err != nil {
		t.Error(err)
	}

	if _, err := b.UpdateCard(ctx, service.Card{ID: "card-99", Title: "x", ColumnID: "col-1"}); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCommentsAndLiveStream(t *testing.T) {
	b := newBackend(Options{})
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	comments, err := b.ListComments(ctx, "card-1")
	if err != nil {
		t.Fatalf("ListComments: %v", err)
	}
	if len(comments) != 2 {
		t.Fatalf("expected seeded thread, got %d comments", len(comments))
	}

	stream, err := b.SubscribeComments(ctx, "card-1")
	if err != nil {
		t.Fatalf("SubscribeComments: %v", err)
	}

	posted, err := b.PostComment(ctx, "card-1", "On it")
	if err != nil {
		t.Fatalf("PostComment: %v", err)
	}
	if posted.User != seed.CurrentUser || !posted.Timestamp.Equal(fixedNow) || posted.CardID != "card-1" {
		t.Errorf("unexpected comment %+v", posted)
	}

	select {
	case c := <-stream:
		if c.ID != posted.ID {
			t.Errorf("expected %s on the stream, got %s", posted.ID, c.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("posted comment not streamed")
	}

	board, _ := b.GetBoard(ctx, "board-1")
	if c, _, _ := board.FindCard("card-1"); c.CommentCount != 7 {
		t.Errorf("expected comment count 7, got %d", c.CommentCount)
	}
	comments, _ = b.ListComments(ctx, "card-1")
	if len(comments) != 3 || comments[2].Text != "On it" {
		t.Errorf("unexpected thread %+v", comments)
	}
}

func TestPostCommentValidation(t *testing.T) {
	b := newBackend(Options{})
	if _, err := b.PostComment(context.Background(), "card-1", "   "); !service.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
	if _, err := b.PostComment(context.Background(), "card-99", "hi"); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := b.SubscribeComments(context.Background(), "card-99"); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSyntheticLiveComments(t *testing.T) {
	b := newBackend(Options{LiveCommentInterval: 5 * time.Millisecond, Seed: 3})
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	stream, err := b.SubscribeComments(ctx, "card-6")
	if err != nil {
		t.Fatalf("SubscribeComments: %v", err)
	}
	select {
	case c := <-stream:
		if c.Text != seed.LiveCommentText || c.CardID != "card-6" {
			t.Errorf("unexpected comment %+v", c)
		}
	case <-time.After(time.Second):
		t.Fatal("no live comment")
	}

	cancel()
	for range stream {
	}
}

func TestCloseStopsLiveComments(t *testing.T) {
	b := newBackend(Options{LiveCommentInterval: 5 * time.Millisecond, Seed: 3})

	stream, err := b.SubscribeComments(context.Background(), "card-6")
	if err != nil {
		t.Fatalf("SubscribeComments: %v", err)
	}
	select {
	case <-stream:
	case <-time.After(time.Second):
		t.Fatal("no live comment")
	}

	closed := make(chan struct{})
	go func() {
		b.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("Close did not return")
	}
	for range stream {
	}

	before, err := b.ListComments(context.Background(), "card-6")
	if err != nil {
		t.Fatal(err)
	}
	time.Sleep(20 * time.Millisecond)
	after, _ := b.ListComments(context.Background(), "card-6")
	if len(after) != len(before) {
		t.Errorf("comments kept arriving after Close: %d -> %d", len(before), len(after))
	}
}
