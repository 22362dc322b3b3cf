package modlog

import (
	"bytes"
	"errors"
	"log"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/whisper/chatfilter/internal/config"
	"github.com/whisper/chatfilter/internal/moderation"
)

func newTestWriter(t *testing.T) *Writer {
	t.Helper()
	w, err := NewWriter(config.ViolationLogConfig{
		Directory: t.TempDir(),
		Rotation:  config.LogRotationConfig{MaxSize: 1},
	})
	if err != nil {
		t.Fatalf("NewWriter() error: %v", err)
	}
	w.loc = time.UTC
	t.Cleanup(func() { w.Close() })
	return w
}

func record(ts time.Time, text string) moderation.ViolationRecord {
	return moderation.ViolationRecord{
		Timestamp:   ts,
		UserID:      "42",
		DisplayName: "Alice",
		AccountName: "alice",
		Text:        text,
	}
}

func TestFormat(t *testing.T) {
	ts := time.Date(2024, 5, 1, 9, 8, 7, 0, time.UTC)
	got := Format(record(ts, "bad\nword"), time.UTC)
	want := "[09:08:07] User: Alice (Account: alice, ID: 42) said: bad\\nword\n"
	if got != want {
		t.Errorf("Format() = %q, want %q", got, want)
	}
}

func TestWriter_PerDayFiles(t *testing.T) {
	w := newTestWriter(t)
	day1 := time.Date(2024, 5, 1, 23, 59, 0, 0, time.UTC)
	day2 := day1.Add(2 * time.Minute)

	for _, rec := range []moderation.ViolationRecord{
		record(day1, "first"),
		record(day1.Add(30*time.Second), "second"),
		record(day2, "third"),
	} {
		if err := w.Write(rec); err != nil {
			t.Fatalf("Write() error: %v", err)
		}
	}
	w.Close()

	data1, err := os.ReadFile(w.Path(day1))
	if err != nil {
		t.Fatalf("read day1: %v", err)
	}
	if lines := strings.Count(string(data1), "\n"); lines != 2 {
		t.Errorf("day1 has %d lines, want 2: %q", lines, data1)
	}
	if !strings.HasSuffix(w.Path(day1), "2024-05-01.log") {
		t.Errorf("Path(day1) = %q", w.Path(day1))
	}

	data2, err := os.ReadFile(w.Path(day2))
	if err != nil {
		t.Fatalf("read day2: %v", err)
	}
	if !strings.Contains(string(data2), "said: third") {
		t.Errorf("day2 content = %q", data2)
	}
}

func TestWriter_Concurrent(t *testing.T) {
	w := newTestWriter(t)
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if err := w.Write(record(ts, "msg")); err != nil {
					t.Errorf("Write() error: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()
	w.Close()

	data, err := os.ReadFile(w.Path(ts))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if lines := strings.Count(string(data), "\n"); lines != 400 {
		t.Errorf("got %d lines, want 400", lines)
	}
}

type failingCloser struct{ closed bool }

func (f *failingCloser) Write(p []byte) (int, error) { return len(p), nil }

func (f *failingCloser) Close() error {
	f.closed = true
	return errors.New("disk gone")
}

func TestWriter_RolloverCloseErrorLogged(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	w := newTestWriter(t)
	prev := &failingCloser{}
	w.out, w.day = prev, "2024-04-30"

	if err := w.Write(record(time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC), "next day")); err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	if !prev.closed {
		t.Error("previous day's log was not closed")
	}
	if !strings.Contains(buf.String(), "disk gone") {
		t.Errorf("close error not logged: %q", buf.String())
	}
	if _, err := os.Stat(w.Path(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))); err != nil {
		t.Errorf("new day's log not written: %v", err)
	}
}
