package alert

import (
	"ips-guard/internal/model"

	"github.com/sirupsen/logrus"
)

// LogAlertNotifier sends alerts to the process log
type LogAlertNotifier struct {
	logger *logrus.Logger
}

// NewLogAlertNotifier creates a new log alert notifier
func NewLogAlertNotifier(logger *logrus.Logger) *LogAlertNotifier {
	return &LogAlertNotifier{
		logger: logger,
	}
}

// SendAlert logs the alert at warning level with the rule and endpoints as fields
func (ln *LogAlertNotifier) SendAlert(alert model.Alert) error {
	fields := logrus.Fields{
		"rule":     alert.RuleID,
		"severity": alert.Severity,
		"priority": alert.Priority,
	}
	if alert.Packet != nil {
		src, dst := alert.Packet.Endpoints()
		fields["proto"] = alert.Packet.Protocol()
		fields["src"] = src
		fields["dst"] = dst
	}
	ln.logger.WithFields(fields).Warnf("ALERT [%s] %s", alert.Severity, alert.Message)
	return nil
}
