package board_test

import (
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"taskboard/internal/board"
	"taskboard/internal/service"
)

func card(id, column string) service.Card {
	return service.Card{ID: id, Title: id, ColumnID: column}
}

func sampleBoard() service.Board {
	return service.Board{
		ID:   "b1",
		Name: "Sample",
		Columns: []service.Column{
			{ID: "backlog", Title: "Backlog", Cards: []service.Card{card("A", "backlog"), card("B", "backlog")}},
			{ID: "doing", Title: "Doing", Cards: []service.Card{}},
		},
	}
}

func ids(b service.Board, column string) []string {
	col, ok := b.Column(column)
	if !ok {
		return nil
	}
	out := []string{}
	for _, c := range col.Cards {
		out = append(out, c.ID)
	}
	return out
}

func TestStoreMove(t *testing.T) {
	s := board.NewStore(sampleBoard())

	v, err := s.Move("A", "backlog", "doing")
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if v != 1 {
		t.Errorf("expected version 1, got %d", v)
	}

	b := s.Current()
	if got := ids(b, "backlog"); !reflect.DeepEqual(got, []string{"B"}) {
		t.Errorf("backlog = %v", got)
	}
	if got := ids(b, "doing"); !reflect.DeepEqual(got, []string{"A"}) {
		t.Errorf("doing = %v", got)
	}
	moved, _, _ := b.FindCard("A")
	if moved.ColumnID != "doing" {
		t.Errorf("expected columnId doing, got %s", moved.ColumnID)
	}
	if err := b.Validate(); err != nil {
		t.Errorf("board invalid after move: %v", err)
	}
}

func TestStoreMoveErrorsLeaveBoardUntouched(t *testing.T) {
	s := board.NewStore(sampleBoard())
	before := s.Current()

	cases := []struct{ card, from, to string }{
		{"Z", "backlog", "doing"},
		{"A", "nope", "doing"},
		{"A", "backlog", "nope"},
		{"A", "doing", "backlog"},
	}
	for _, tc := range cases {
		if _, err := s.Move(tc.card, tc.from, tc.to); !errors.Is(err, service.ErrNotFound) {
			t.Errorf("move %v: expected not found, got %v", tc, err)
		}
	}
	if s.Version() != 0 {
		t.Errorf("expected version 0, got %d", s.Version())
	}
	if !reflect.DeepEqual(s.Current(), before) {
		t.Error("failed moves changed the board")
	}
}

func TestStoreMoveAt(t *testing.T) {
	s := board.NewStore(sampleBoard())
	if _, err := s.Move("A", "backlog", "doing"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.MoveAt("A", "doing", "backlog", 0); err != nil {
		t.Fatal(err)
	}
	if got := ids(s.Current(), "backlog"); !reflect.DeepEqual(got, []string{"A", "B"}) {
		t.Errorf("backlog = %v", got)
	}
}

func TestStoreUpsertInsertsAtHead(t *testing.T) {
	b := sampleBoard()
	b.Columns[1].Cards = []service.Card{card("X", "doing")}
	s := board.NewStore(b)

	if _, err := s.Upsert(card("new-1", "doing")); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if got := ids(s.Current(), "doing"); !reflect.DeepEqual(got, []string{"new-1", "X"}) {
		t.Errorf("doing = %v", got)
	}
}

func TestStoreUpsertReplacesInPlace(t *testing.T) {
	b := sampleBoard()
	b.Columns[0].Cards = append(b.Columns[0].Cards, card("C", "backlog"))
	s := board.NewStore(b)

	updated := card("B", "backlog")
	updated.Title = "B renamed"
	if _, err := s.Upsert(updated); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	cur := s.Current()
	if got := ids(cur, "backlog"); !reflect.DeepEqual(got, []string{"A", "B", "C"}) {
		t.Errorf("backlog order = %v", got)
	}
	got, _, _ := cur.FindCard("B")
	if got.Title != "B renamed" {
		t.Errorf("expected renamed card, got %q", got.Title)
	}
}

func TestStoreUpsertAcrossColumnsKeepsOneCopy(t *testing.T) {
	s := board.NewStore(sampleBoard())
	if _, err := s.Upsert(card("A", "doing")); err != nil {
		t.Fatal(err)
	}
	cur := s.Current()
	if err := cur.Validate(); err != nil {
		t.Fatalf("invalid board: %v", err)
	}
	if got := ids(cur, "backlog"); !reflect.DeepEqual(got, []string{"B"}) {
		t.Errorf("backlog = %v", got)
	}
}

func TestStoreUpsertRejectsDraftAndUnknownColumn(t *testing.T) {
	s := board.NewStore(sampleBoard())
	if _, err := s.Upsert(card("", "doing")); err == nil {
		t.Error("expected error for draft card")
	}
	if _, err := s.Upsert(card("Q", "nope")); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestSnapshotIsolatedFromLiveStore(t *testing.T) {
	b := sampleBoard()
	due := time.Date(2024, 8, 15, 0, 0, 0, 0, time.UTC)
	b.Columns[0].Cards[0].DueDate = &due
	b.Columns[0].Cards[0].Labels = []service.Label{{ID: "l1", Name: "Bug"}}
	s := board.NewStore(b)

	snap := s.Capture()
	before := snap.Board()

	if _, err := s.Move("A", "backlog", "doing"); err != nil {
		t.Fatal(err)
	}
	live := s.Current()
	live.Columns[1].Cards[0].Labels[0].Name = "mutated"
	*live.Columns[1].Cards[0].DueDate = due.Add(time.Hour)

	if !reflect.DeepEqual(snap.Board(), before) {
		t.Error("snapshot changed after live mutation")
	}
	if snap.Version() != 0 {
		t.Errorf("expected snapshot version 0, got %d", snap.Version())
	}
}

func TestStoreRestoreRoundTrip(t *testing.T) {
	s := board.NewStore(sampleBoard())
	before := s.Current()
	snap := s.Capture()

	v, err := s.Move("A", "backlog", "doing")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.RestoreIf(snap, v); !ok {
		t.Fatal("expected restore to apply")
	}
	if !reflect.DeepEqual(s.Current(), before) {
		t.Error("restored board differs from board before move")
	}
}

func TestStoreRestoreIfStale(t *testing.T) {
	s := board.NewStore(sampleBoard())
	snap := s.Capture()
	v, _ := s.Move("A", "backlog", "doing")
	if _, err := s.Move("B", "backlog", "doing"); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.RestoreIf(snap, v); ok {
		t.Error("expected stale restore to be refused")
	}
	if got := ids(s.Current(), "doing"); !reflect.DeepEqual(got, []string{"A", "B"}) {
		t.Errorf("doing = %v", got)
	}

	s.Restore(snap)
	if got := ids(s.Current(), "backlog"); !reflect.DeepEqual(got, []string{"A", "B"}) {
		t.Errorf("backlog after unconditional restore = %v", got)
	}
}

func TestStoreSubscribe(t *testing.T) {
	s := board.NewStore(sampleBoard())

	var versions []uint64
	var last service.Board
	cancel := s.Subscribe(func(b service.Board, v uint64) {
		versions = append(versions, v)
		last = b
	})

	s.Move("A", "backlog", "doing")
	s.Move("Z", "backlog", "doing") // fails, no notification
	s.Replace(sampleBoard())
	cancel()
	s.Move("B", "backlog", "doing")

	if !reflect.DeepEqual(versions, []uint64{1, 2}) {
		t.Errorf("versions = %v", versions)
	}
	if got := ids(last, "backlog"); !reflect.DeepEqual(got, []string{"A", "B"}) {
		t.Errorf("last notified backlog = %v", got)
	}
}

func TestStoreNotifiesInVersionOrder(t *testing.T) {
	s := board.NewStore(sampleBoard())

	var mu sync.Mutex
	var versions []uint64
	s.Subscribe(func(b service.Board, v uint64) {
		mu.Lock()
		versions = append(versions, v)
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Replace(sampleBoard())
		}()
	}
	wg.Wait()

	if len(versions) != 50 {
		t.Fatalf("expected 50 notifications, got %d", len(versions))
	}
	for i, v := range versions {
		if v != uint64(i+1) {
			t.Fatalf("notification %d carried version %d: %v", i, v, versions)
		}
	}
}

func TestCurrentReturnsCopy(t *testing.T) {
	s := board.NewStore(sampleBoard())
	cur := s.Current()
	cur.Columns[0].Cards[0].Title = "changed"
	cur.Columns = nil

	again := s.Current()
	if again.Columns[0].Cards[0].Title != "A" {
		t.Error("mutating a read copy leaked into the store")
	}
}
