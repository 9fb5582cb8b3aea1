package ws

import (
	"io"
	"log/slog"

	"github.com/mzhurin/convo/internal/logging"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}
