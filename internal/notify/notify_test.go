package notify

import (
	"bytes"
	"strings"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func TestQueueDropsOldestWhenFull(t *testing.T) {
	q := NewQueue(2)
	q.Notify("one", Info, time.Second)
	q.Notify("two", Error, time.Second)
	q.Notify("three", Success, time.Second)

	got := q.Drain()
	if len(got) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(got))
	}
	if got[0].Message != "two" || got[1].Message != "three" {
		t.Errorf("unexpected notifications %+v", got)
	}
	if len(q.Drain()) != 0 {
		t.Error("expected queue to be empty after drain")
	}
}

func TestWriterSink(t *testing.T) {
	var buf bytes.Buffer
	s := NewWriterSink(&buf)
	s.Notify("Failed to move card. Reverting.", Error, DefaultDuration)
	s.Notify("Card saved", Success, DefaultDuration)

	want := "error: Failed to move card. Reverting.\nsuccess: Card saved\n"
	if buf.String() != want {
		t.Errorf("expected %q, got %q", want, buf.String())
	}

	buf.Reset()
	s.MinSeverity = Error
	s.Notify("Card saved", Success, DefaultDuration)
	s.Notify("loading", Info, DefaultDuration)
	if buf.Len() != 0 {
		t.Errorf("expected filtered output, got %q", buf.String())
	}
}

func TestLogSink(t *testing.T) {
	logger, hook := test.NewNullLogger()
	s := LogSink{Entry: log.NewEntry(logger)}

	s.Notify("Failed to move card. Reverting.", Error, time.Second)
	s.Notify("Card saved", Success, time.Second)

	entries := hook.AllEntries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 log entries, got %d", len(entries))
	}
	if entries[0].Level != log.WarnLevel {
		t.Errorf("expected warn level for error severity, got %s", entries[0].Level)
	}
	if entries[1].Level != log.InfoLevel {
		t.Errorf("expected info level, got %s", entries[1].Level)
	}
	if entries[0].Data["severity"] != Error {
		t.Errorf("expected severity field, got %v", entries[0].Data)
	}
}

func TestMulti(t *testing.T) {
	q1, q2 := NewQueue(4), NewQueue(4)
	var buf bytes.Buffer
	m := Multi(q1, nil, q2, NewWriterSink(&buf))
	m.Notify("hello", Info, time.Second)

	if len(q1.Drain()) != 1 || len(q2.Drain()) != 1 {
		t.Error("expected both queues to receive the notification")
	}
	if !strings.Contains(buf.String(), "hello") {
		t.Errorf("expected writer output, got %q", buf.String())
	}
}
