// Package logger routes the standard logger to stdout and a rotating file.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/whisper/chatfilter/internal/config"
)

// createLogFilePath generates a log file path with the given date
func createLogFilePath(logDir, prefix string, now time.Time) string {
	return filepath.Join(logDir, fmt.Sprintf("%s-%s.log", prefix, now.Format("2006-01-02")))
}

// NewRotatingLogger creates a lumberjack rotating logger for filename
func NewRotatingLogger(filename string, rot config.LogRotationConfig) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    rot.MaxSize,
		MaxBackups: rot.MaxBackups,
		MaxAge:     rot.MaxAge,
		Compress:   rot.Compress,
	}
}

// Setup configures logging to output to both stdout and a rotating log file.
// The returned closer flushes and closes the file.
func Setup(cfg config.LoggerConfig, prefix string) (io.Closer, error) {
	// Create log directory if it doesn't exist
	if err := os.MkdirAll(cfg.Directory, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	logFilePath := createLogFilePath(cfg.Directory, prefix, time.Now())
	rotatingLogger := NewRotatingLogger(logFilePath, cfg.Rotation)

	log.SetOutput(io.MultiWriter(os.Stdout, rotatingLogger))
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	log.Printf("Logging initialized: writing to %s", logFilePath)
	return rotatingLogger, nil
}
