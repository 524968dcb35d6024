package log

import (
	"log/slog"
)

// SlogAdapter renders publisher events through a slog.Logger for
// human-readable console output. Frame payloads are reported by size
// only; use a FileLogger to capture full frame data.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates an adapter writing to the given slog logger.
// If logger is nil, slog.Default() is used.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogAdapter{logger: logger}
}

// Log renders the event at a level matching its category: errors at
// Error, state changes at Info, frames at Debug.
func (a *SlogAdapter) Log(event Event) {
	attrs := []any{
		slog.String("conn", event.ConnectionID),
		slog.String("dir", event.Direction.String()),
		slog.String("layer", event.Layer.String()),
	}
	if event.Transport != "" {
		attrs = append(attrs, slog.String("transport", event.Transport))
	}
	if event.RemoteAddr != "" {
		attrs = append(attrs, slog.String("remote", event.RemoteAddr))
	}
	if event.EventUID != "" {
		attrs = append(attrs, slog.String("uid", event.EventUID))
	}

	switch {
	case event.Error != nil:
		attrs = append(attrs, slog.String("error", event.Error.Message))
		if event.Error.Context != "" {
			attrs = append(attrs, slog.String("context", event.Error.Context))
		}
		a.logger.Error("publisher error", attrs...)

	case event.StateChange != nil:
		attrs = append(attrs,
			slog.String("from", event.StateChange.OldState),
			slog.String("to", event.StateChange.NewState),
		)
		if event.StateChange.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.StateChange.Reason))
		}
		a.logger.Info("connection state", attrs...)

	case event.Frame != nil:
		attrs = append(attrs,
			slog.Int("size", event.Frame.Size),
			slog.Bool("truncated", event.Frame.Truncated),
		)
		a.logger.Debug("frame", attrs...)

	default:
		a.logger.Debug("event", attrs...)
	}
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
