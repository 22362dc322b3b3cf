// Package modlog writes the append-only violation log: one file per local
// day under a directory, one line per blocked message:
//
//	[15:04:05] User: <display> (Account: <account>, ID: <user id>) said: <text>
package modlog

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/whisper/chatfilter/internal/config"
	"github.com/whisper/chatfilter/internal/logger"
	"github.com/whisper/chatfilter/internal/moderation"
)

// Writer appends violation records to the file of the record's day. It is
// safe for concurrent use.
type Writer struct {
	dir string
	rot config.LogRotationConfig
	loc *time.Location

	mu  sync.Mutex
	day string
	out io.WriteCloser
}

// NewWriter creates the log directory and returns a Writer for it. Days are
// computed in time.Local.
func NewWriter(cfg config.ViolationLogConfig) (*Writer, error) {
	if err := os.MkdirAll(cfg.Directory, 0755); err != nil {
		return nil, fmt.Errorf("modlog: create directory: %w", err)
	}
	return &Writer{dir: cfg.Directory, rot: cfg.Rotation, loc: time.Local}, nil
}

// Path returns the file a record stamped at ts is written to.
func (w *Writer) Path(ts time.Time) string {
	return filepath.Join(w.dir, ts.In(w.loc).Format("2006-01-02")+".log")
}

// Write appends rec, switching to a new file when the day changes.
func (w *Writer) Write(rec moderation.ViolationRecord) error {
	ts := rec.Timestamp.In(w.loc)
	line := Format(rec, w.loc)

	w.mu.Lock()
	defer w.mu.Unlock()

	day := ts.Format("2006-01-02")
	if w.out == nil || day != w.day {
		if w.out != nil {
			if err := w.out.Close(); err != nil {
				log.Printf("[modlog] close log for %s: %v", w.day, err)
			}
		}
		w.out = logger.NewRotatingLogger(w.Path(ts), w.rot)
		w.day = day
	}

	if _, err := w.out.Write([]byte(line)); err != nil {
		return fmt.Errorf("modlog: write: %w", err)
	}
	return nil
}

// Close closes the current file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.out == nil {
		return nil
	}
	err := w.out.Close()
	w.out = nil
	return err
}

// Format renders rec as a single log line. Line breaks inside the message
// are escaped so one record is always one line.
func Format(rec moderation.ViolationRecord, loc *time.Location) string {
	text := strings.NewReplacer("\r", `\r`, "\n", `\n`).Replace(rec.Text)
	return fmt.Sprintf("[%s] User: %s (Account: %s, ID: %s) said: %s\n",
		rec.Timestamp.In(loc).Format("15:04:05"),
		rec.DisplayName, rec.AccountName, rec.UserID, text)
}
