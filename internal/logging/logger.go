package logging

import (
	"log/slog"
	"os"
)

// stderr is used where the default logger may route back into the database.
var stderr = slog.New(slog.NewJSONHandler(os.Stderr, nil))

// Setup initializes the global slog logger with JSON output to stdout.
func Setup() {
	slog.SetDefault(slog.New(NewStdoutHandler()))
}

func NewStdoutHandler() slog.Handler {
	return slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
}
