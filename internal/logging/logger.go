package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Init configures the global slog logger.
// In production (ENVIRONMENT=production) it uses JSON output for log aggregation.
// Otherwise it uses the human-readable text handler.
func Init() {
	env := strings.ToLower(os.Getenv("ENVIRONMENT"))

	var handler slog.Handler
	if env == "production" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
	}

	slog.SetDefault(slog.New(handler))
}

// WithTurn returns a logger with chat-turn context fields attached.
// Use this for all logging within a single orchestrated turn.
func WithTurn(userID string, messageLen int) *slog.Logger {
	return slog.With(
		"user_id", userID,
		"message_len", messageLen,
	)
}

// WithTool returns a logger scoped to one tool-gateway call within a turn.
func WithTool(logger *slog.Logger, toolName string) *slog.Logger {
	return logger.With("tool", toolName)
}
