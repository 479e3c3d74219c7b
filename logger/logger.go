package logger

import (
	"fmt"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
)

type Logger interface {
	Info(msg string, keyvals ...interface{})

	Warn(msg string, keyvals ...interface{})

	Error(msg string, keyvals ...interface{})

	Debug(msg string, keyvals ...interface{})
}

func New() Logger {
	opts := &slog.HandlerOptions{
		Level:     slog.LevelInfo, // minimum log level
		AddSource: true,           // include file + line number
	}
	handler := slog.NewJSONHandler(os.Stderr, opts)
	return slog.New(handler)
}

// NewWithFile logs JSON to stderr and, when logFile is not empty, to logFile as well.
// The returned cleanup closes the file.
func NewWithFile(level slog.Level, logFile string) (*slog.Logger, func() error, error) {
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: true,
	}
	stderrHandler := slog.NewJSONHandler(os.Stderr, opts)
	if len(logFile) == 0 {
		return slog.New(stderrHandler), func() error { return nil }, nil
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file %s: %w", logFile, err)
	}
	fileHandler := slog.NewJSONHandler(file, opts)

	return slog.New(slogmulti.Fanout(stderrHandler, fileHandler)), file.Close, nil
}
