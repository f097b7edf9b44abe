// Package notify delivers generation outcome messages to users. Delivery is
// fire-and-forget: implementations report success as a bool and never let a
// failure escape past their boundary.
package notify

import (
	"context"
	"log/slog"
)

// Outcome describes a finished generation for user-facing delivery.
type Outcome struct {
	// VideoID identifies the video record the outcome belongs to.
	VideoID int64
	// Title is the user-supplied title, possibly empty.
	Title string
	// WatchURL points at the playback page for the finished video.
	WatchURL string
	// ShareURL is the public share link, when one exists.
	ShareURL string
	// Succeeded reports whether the generation produced a video.
	Succeeded bool
	// Reason carries the failure description when Succeeded is false.
	Reason string
}

// Notifier delivers an outcome to a user identified by a chat handle.
// Implementations return true only when delivery was accepted downstream.
type Notifier interface {
	Notify(ctx context.Context, chatHandle string, outcome Outcome) bool
}

// NoopNotifier discards every outcome. Used when no delivery channel is
// configured.
type NoopNotifier struct {
	logger *slog.Logger
}

// NewNoopNotifier creates a notifier that logs and drops outcomes.
func NewNoopNotifier(logger *slog.Logger) *NoopNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &NoopNotifier{logger: logger}
}

// Notify logs the outcome at debug level and reports success.
func (n *NoopNotifier) Notify(_ context.Context, chatHandle string, outcome Outcome) bool {
	n.logger.Debug("notification dropped, no channel configured",
		slog.String("chat", chatHandle),
		slog.Int64("video_id", outcome.VideoID),
		slog.Bool("succeeded", outcome.Succeeded))
	return true
}

// Compile-time check that NoopNotifier implements Notifier.
var _ Notifier = (*NoopNotifier)(nil)
