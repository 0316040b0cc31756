// Package logging sets up debug logging. The terminal belongs to the UI, so
// records go to a file or nowhere.
package logging

import (
	"io"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
)

const EnvLevel = "OLLAMATUI_LOG_LEVEL"

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open returns a logger writing to path. An empty path yields a discarding
// logger. The returned closer must be closed on shutdown.
func Open(path string) (*slog.Logger, io.Closer, error) {
	if path == "" {
		return Discard(), nopCloser{}, nil
	}

	f, err := tea.LogToFile(path, "ollamatui")
	if err != nil {
		return nil, nil, err
	}
	return New(f, level()), f, nil
}

func New(w io.Writer, lvl slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func level() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(os.Getenv(EnvLevel))); err != nil {
		return slog.LevelDebug
	}
	return lvl
}
