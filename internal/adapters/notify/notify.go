package notify

// Package notify provides server-side implementations of the Router and
// Notifier ports. In a headless deployment navigation and toast intents have
// no client to land on; they are logged with correlation IDs so a session's
// redirect and notification trail can be reconstructed.

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/corrigohq/corrigo/internal/ports"
)

// LogRouter records navigation intents in the structured log. The HTTP layer
// performs the actual redirects from guard decisions; this preserves the
// intent trail.
type LogRouter struct {
	logger *slog.Logger
}

// NewLogRouter constructs a LogRouter.
func NewLogRouter(logger *slog.Logger) *LogRouter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogRouter{logger: logger}
}

func (r *LogRouter) Navigate(path string) {
	r.logger.Info("navigate",
		slog.String("path", path),
		slog.String("event_id", uuid.NewString()),
	)
}

// LogNotifier records user notification intents in the structured log.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier constructs a LogNotifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(message, severity string, duration time.Duration) {
	n.logger.Info("notify",
		slog.String("message", message),
		slog.String("severity", severity),
		slog.Duration("duration", duration),
		slog.String("event_id", uuid.NewString()),
	)
}

var (
	_ ports.Router   = (*LogRouter)(nil)
	_ ports.Notifier = (*LogNotifier)(nil)
)
