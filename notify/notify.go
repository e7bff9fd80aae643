// Package notify delivers human-readable notices about trades and session
// events. Delivery is external to the core: the ledger and router never know
// whether anyone is listening.
package notify

import (
	"context"
	"log/slog"
)

// Notifier sends one titled notice. Implementations decide the channel;
// failures are the caller's to log and ignore.
type Notifier interface {
	Notify(ctx context.Context, title, body string) error
}

// LogNotifier writes notices to a structured logger. It is the default sink
// when no external channel is configured.
type LogNotifier struct {
	log *slog.Logger
}

// NewLogNotifier builds a notifier backed by log. A nil log uses the
// process default.
func NewLogNotifier(log *slog.Logger) *LogNotifier {
	if log == nil {
		log = slog.Default()
	}
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(ctx context.Context, title, body string) error {
	n.log.InfoContext(ctx, "notice", "title", title, "body", body)
	return nil
}
