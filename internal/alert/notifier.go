package alert

import (
	"io"

	"ips-guard/internal/model"
)

// Notifier receives every alert raised by the engine.
type Notifier interface {
	SendAlert(alert model.Alert) error
}

// ClosingNotifier holds resources that the engine releases on shutdown.
type ClosingNotifier interface {
	Notifier
	io.Closer
}

var (
	_ Notifier        = (*LogAlertNotifier)(nil)
	_ ClosingNotifier = (*LoggerNotifier)(nil)
)
