// Package notify carries user-facing messages out of the core. The core
// fires and forgets; throttling and presentation of duplicates belong to the
// presenter behind the interface.
package notify

import "go.uber.org/zap"

// Type classifies a notification for presentation.
type Type string

const (
	TypeInfo    Type = "info"
	TypeSuccess Type = "success"
	TypeWarning Type = "warning"
	TypeError   Type = "error"
)

// Notification is one user-visible message.
type Notification struct {
	Type    Type
	Message string
}

// Notifier presents notifications. Implementations must not block the caller
// for long and must never panic.
type Notifier interface {
	Notify(n Notification)
}

// LogNotifier writes notifications to the application log. It is the default
// presenter for headless runs.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a notifier backed by the given logger.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.Named("notify")}
}

// Notify implements Notifier.
func (n *LogNotifier) Notify(msg Notification) {
	switch msg.Type {
	case TypeError:
		n.logger.Error(msg.Message)
	case TypeWarning:
		n.logger.Warn(msg.Message)
	default:
		n.logger.Info(msg.Message, zap.String("kind", string(msg.Type)))
	}
}

// Noop discards every notification. Useful in tests.
type Noop struct{}

// Notify implements Notifier.
func (Noop) Notify(Notification) {}
