package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"taskboard/internal/service"
)

var fixedNow = time.Date(2024, 8, 1, 12, 0, 0, 0, time.UTC)

func openTest(t *testing.T) (*Backend, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", DefaultFileName)
	b, err := Open(context.Background(), path, Options{Now: func() time.Time { return fixedNow }})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { b.Close() })
	return b, path
}

func cardIDs(t *testing.T, b service.Board, columnID string) []string {
	t.Helper()
	col, ok := b.Column(columnID)
	if !ok {
		t.Fatalf("column %s missing", columnID)
	}
	ids := []string{}
	for _, c := range col.Cards {
		ids = append(ids, c.ID)
	}
	return ids
}

func TestOpenSeedsOnce(t *testing.T) {
	b, path := openTest(t)
	ctx := context.Background()

	boards, err := b.ListBoards(ctx)
	if err != nil {
		t.Fatalf("ListBoards: %v", err)
	}
	if len(boards) != 2 || boards[0].Name != "Project Phoenix" {
		t.Fatalf("unexpected boards %+v", boards)
	}
	if err := b.MoveCard(ctx, "card-1", "col-2", "col-1"); err != nil {
		t.Fatalf("MoveCard: %v", err)
	}
	b.Close()

	reopened, err := Open(ctx, path, Options{})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	boards, _ = reopened.ListBoards(ctx)
	if len(boards) != 2 {
		t.Errorf("expected seeding to run once, got %d boards", len(boards))
	}
	bd, _ := reopened.GetBoard(ctx, "board-1")
	if c, _, _ := bd.FindCard("card-1"); c.ColumnID != "col-2" {
		t.Errorf("move not persisted, card-1 in %s", c.ColumnID)
	}
}

func TestGetBoard(t *testing.T) {
	b, _ := openTest(t)
	ctx := context.Background()

	bd, err := b.GetBoard(ctx, "board-1")
	if err != nil {
		t.Fatalf("GetBoard: %v", err)
	}
	if err := bd.Validate(); err != nil {
		t.Fatal(err)
	}
	if got := cardIDs(t, bd, "col-1"); !reflect.DeepEqual(got, []string{"card-1", "card-2", "card-3"}) {
		t.Errorf("col-1 = %v", got)
	}
	c, _, _ := bd.FindCard("card-5")
	if len(c.Assignees) != 2 || c.Assignees[0].Name != "Alex" || c.Assignees[1].Name != "Charlie" {
		t.Errorf("unexpected assignees %+v", c.Assignees)
	}
	c, _, _ = bd.FindCard("card-2")
	if c.DueDate == nil || c.DueDate.Format(time.DateOnly) != "2024-08-15" || c.CommentCount != 4 {
		t.Errorf("unexpected card-2 %+v", c)
	}
	if len(c.Labels) != 1 || c.Labels[0].Name != "Design" {
		t.Errorf("unexpected labels %+v", c.Labels)
	}

	if _, err := b.GetBoard(ctx, "board-9"); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMoveCard(t *testing.T) {
	b, _ := openTest(t)
	ctx := context.Background()

	if err := b.MoveCard(ctx, "card-1", "col-2", "col-1"); err != nil {
		t.Fatalf("MoveCard: %v", err)
	}
	bd, _ := b.GetBoard(ctx, "board-1")
	if got := cardIDs(t, bd, "col-2"); !reflect.DeepEqual(got, []string{"card-4", "card-5", "card-1"}) {
		t.Errorf("col-2 = %v", got)
	}

	cases := []struct{ card, to, from string }{
		{"card-1", "col-3", "col-1"},
		{"card-9", "col-3", "col-2"},
		{"card-1", "col-9", "col-2"},
		{"card-1", "mkt-col-1", "col-2"},
	}
	for _, tc := range cases {
		if err := b.MoveCard(ctx, tc.card, tc.to, tc.from); !errors.Is(err, service.ErrNotFound) {
			t.Errorf("MoveCard(%s, %s, %s): expected ErrNotFound, got %v", tc.card, tc.to, tc.from, err)
		}
	}
}

func TestMoveCardCompactsSourceColumn(t *testing.T) {
	b, _ := openTest(t)
	ctx := context.Background()

	if err := b.MoveCard(ctx, "card-2", "col-2", "col-1"); err != nil {
		t.Fatalf("MoveCard: %v", err)
	}

	rows, err := b.db.QueryContext(ctx, `SELECT id, position FROM cards WHERE column_id = ? ORDER BY position`, "col-1")
	if err != nil {
		t.Fatal(err)
	}
	defer rows.Close()
	var got []string
	var positions []int
	for rows.Next() {
		var id string
		var pos int
		if err := rows.Scan(&id, &pos); err != nil {
			t.Fatal(err)
		}
		got = append(got, id)
		positions = append(positions, pos)
	}
	if !reflect.DeepEqual(got, []string{"card-1", "card-3"}) {
		t.Errorf("col-1 = %v", got)
	}
	if !reflect.DeepEqual(positions, []int{0, 1}) {
		t.Errorf("expected positions [0 1], got %v", positions)
	}
}

func TestCreateCard(t *testing.T) {
	b, _ := openTest(t)
	ctx := context.Background()

	due := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)
	saved, err := b.CreateCard(ctx, service.Card{
		Title:     "Plan launch",
		ColumnID:  "col-3",
		Assignees: []service.User{{ID: "user-2"}},
		Labels:    []service.Label{{ID: "label-2"}},
		DueDate:   &due,
	})
	if err != nil {
		t.Fatalf("CreateCard: %v", err)
	}
	if saved.ID == "" || saved.CommentCount != 0 {
		t.Errorf("unexpected saved card %+v", saved)
	}
	if len(saved.Assignees) != 1 || saved.Assignees[0].Name != "Brenda" {
		t.Errorf("expected assignee to be resolved, got %+v", saved.Assignees)
	}
	if saved.DueDate == nil || !saved.DueDate.Equal(due) {
		t.Errorf("unexpected due date %v", saved.DueDate)
	}

	bd, _ := b.GetBoard(ctx, "board-1")
	if got := cardIDs(t, bd, "col-3"); !reflect.DeepEqual(got, []string{saved.ID, "card-6"}) {
		t.Errorf("col-3 = %v", got)
	}

	if _, err := b.CreateCard(ctx, service.Card{Title: "x", ColumnID: "col-9"}); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := b.CreateCard(ctx, service.Card{ColumnID: "col-1"}); !service.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestUpdateCard(t *testing.T) {
	b, _ := openTest(t)
	ctx := context.Background()

	bd, _ := b.GetBoard(ctx, "board-1")
	card, _, _ := bd.FindCard("card-2")
	card.Title = "Dashboard mockups"
	card.DueDate = nil
	card.Labels = []service.Label{{ID: "label-1"}, {ID: "label-5"}}
	card.CommentCount = 99

	saved, err := b.UpdateCard(ctx, card)
	if err != nil {
		t.Fatalf("UpdateCard: %v", err)
	}
	if saved.Title != "Dashboard mockups" || saved.DueDate != nil || saved.CommentCount != 4 {
		t.Errorf("unexpected saved card %+v", saved)
	}
	if len(saved.Labels) != 2 || saved.Labels[0].Name != "Bug" {
		t.Errorf("unexpected labels %+v", saved.Labels)
	}
	bd, _ = b.GetBoard(ctx, "board-1")
	if got := cardIDs(t, bd, "col-1"); !reflect.DeepEqual(got, []string{"card-1", "card-2", "card-3"}) {
		t.Errorf("expected in-place update, col-1 = %v", got)
	}

	card.ColumnID = "col-4"
	if _, err := b.UpdateCard(ctx, card); err != nil {
		t.Fatalf("UpdateCard across columns: %v", err)
	}
	bd, _ = b.GetBoard(ctx, "board-1")
	if got := cardIDs(t, bd, "col-4"); !reflect.DeepEqual(got, []string{"card-2", "card-7"}) {
		t.Errorf("col-4 = %v", got)
	}

	if _, err := b.UpdateCard(ctx, service.Card{ID: "card-99", Title: "x", ColumnID: "col-1"}); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestComments(t *testing.T) {
	b, _ := openTest(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	comments, err := b.ListComments(ctx, "card-4")
	if err != nil {
		t.Fatalf("ListComments: %v", err)
	}
	if len(comments) != 2 || comments[0].User.Name != "Brenda" {
		t.Fatalf("unexpected seeded thread %+v", comments)
	}

	stream, err := b.SubscribeComments(ctx, "card-4")
	if err != nil {
		t.Fatalf("SubscribeComments: %v", err)
	}
	posted, err := b.PostComment(ctx, "card-4", "Fixed on staging")
	if err != nil {
		t.Fatalf("PostComment: %v", err)
	}
	if posted.User.ID != "user-1" || !posted.Timestamp.Equal(fixedNow) {
		t.Errorf("unexpected comment %+v", posted)
	}

	select {
	case c := <-stream:
		if c.ID != posted.ID {
			t.Errorf("expected %s, got %s", posted.ID, c.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("posted comment not streamed")
	}

	comments, _ = b.ListComments(ctx, "card-4")
	if len(comments) != 3 || comments[2].ID != posted.ID || !comments[2].Timestamp.Equal(fixedNow) {
		t.Errorf("unexpected thread %+v", comments)
	}
	bd, _ := b.GetBoard(ctx, "board-1")
	if c, _, _ := bd.FindCard("card-4"); c.CommentCount != 1 {
		t.Errorf("expected comment count 1, got %d", c.CommentCount)
	}

	if _, err := b.PostComment(ctx, "card-4", ""); !service.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
	if _, err := b.PostComment(ctx, "card-99", "hi"); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := b.ListComments(ctx, "card-99"); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUsersAndLabels(t *testing.T) {
	b, _ := openTest(t)
	users, err := b.ListUsers(context.Background())
	if err != nil || len(users) != 4 || users[3].Name != "Diana" {
		t.Errorf("unexpected users %+v (%v)", users, err)
	}
	labels, err := b.ListLabels(context.Background())
	if err != nil || len(labels) != 5 || labels[3].Name != "Tech Debt" {
		t.Errorf("unexpected labels %+v (%v)", labels, err)
	}
}
