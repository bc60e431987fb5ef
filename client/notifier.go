package client

import (
	"context"

	"github.com/charmbracelet/log"

	"pomosync/timer"
)

// LogNotifier writes phase-boundary cues to the logger. Headless stand-in
// for a desktop notification surface.
type LogNotifier struct {
	l *log.Logger
}

var _ timer.Notifier = (*LogNotifier)(nil)

func NewLogNotifier(logger *log.Logger) *LogNotifier {
	if logger == nil {
		logger = log.Default()
	}
	return &LogNotifier{l: logger}
}

func (n *LogNotifier) Notify(_ context.Context, notification timer.Notification) {
	n.l.Info(notification.Title, "kind", notification.Kind, "body", notification.Body, "persistent", notification.Persistent)
}
