package rules

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"ips-guard/internal/model"
	"ips-guard/internal/plugin"

	"github.com/sirupsen/logrus"
)

type NotifierInterface interface {
	SendAlert(alert model.Alert) error
}

// Engine owns the active rule set and fans alerts out to notifiers.
//
// Workers evaluate under a shared lock; Reload swaps the rule set under
// the exclusive lock so that the retired set is only destroyed once no
// worker can still be reading it. The shared lock is taken once per packet.
// Reload compiles and destroys outside the exclusive section, which covers
// only the pointer swap and the profile reset.
type Engine struct {
	registry       *plugin.Registry
	active         atomic.Pointer[RuleSet]
	alertNotifiers []NotifierInterface
	logger         *logrus.Logger
	mu             sync.RWMutex
	swapMu         sync.RWMutex
	alertChannel   chan model.Alert
	// set once GetAlertChannel hands the channel to a consumer
	alertConsumed  atomic.Bool
}

func NewEngine(reg *plugin.Registry, logger *logrus.Logger) *Engine {
	return &Engine{
		registry:       reg,
		alertNotifiers: make([]NotifierInterface, 0),
		logger:         logger,
		alertChannel:   make(chan model.Alert, 100),
	}
}

func (e *Engine) Registry() *plugin.Registry { return e.registry }

// RuleSet returns the active rule set, or nil before the first load.
func (e *Engine) RuleSet() *RuleSet { return e.active.Load() }

// Reload compiles rules and makes them active. On error the previous set
// stays active untouched. Profile totals restart with the new set.
func (e *Engine) Reload(rules []model.Rule) error {
	set, err := Compile(e.registry, rules, e.logger)
	if err != nil {
		return fmt.Errorf("failed to compile rules: %w", err)
	}

	e.swapMu.Lock()
	old := e.active.Swap(set)
	e.registry.Profile().Reset()
	e.swapMu.Unlock()

	old.Close()
	if old != nil {
		e.logger.Infof("Reloaded rules: %d active (was %d)", len(set.Rules), len(old.Rules))
	}
	return nil
}

func (e *Engine) RegisterNotifier(notifier NotifierInterface) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.alertNotifiers = append(e.alertNotifiers, notifier)
}

// Evaluate matches p against the active rule set and emits an alert for
// every rule that fires.
func (e *Engine) Evaluate(ev *Evaluator, p *model.Packet) []model.Alert {
	e.swapMu.RLock()
	fired := ev.Match(e.active.Load(), p)
	var alerts []model.Alert
	for _, r := range fired {
		alerts = append(alerts, newAlert(&r.Rule, p))
	}
	e.swapMu.RUnlock()

	for _, a := range alerts {
		e.EmitAlert(a)
	}
	return alerts
}

func newAlert(r *model.Rule, p *model.Packet) model.Alert {
	ts := p.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	severity := r.Severity
	if severity == "" {
		severity = "medium"
	}
	return model.Alert{
		Type:      "ips_rule",
		RuleID:    r.ID(),
		SID:       r.SID,
		Severity:  severity,
		Priority:  r.Priority,
		Message:   r.Msg,
		Timestamp: ts,
		Packet:    p,
	}
}

// EmitAlert hands alert to every notifier and, when a consumer holds the
// alert channel, to that channel.
func (e *Engine) EmitAlert(alert model.Alert) {
	if e.alertConsumed.Load() {
		select {
		case e.alertChannel <- alert:
		default:
			e.logger.Error("Alert channel is full, dropping alert")
		}
	}

	e.mu.RLock()
	notifiers := make([]NotifierInterface, len(e.alertNotifiers))
	copy(notifiers, e.alertNotifiers)
	e.mu.RUnlock()

	for _, notifier := range notifiers {
		if err := notifier.SendAlert(alert); err != nil {
			e.logger.Errorf("Failed to send alert: %v", err)
		}
	}
}

// GetAlertChannel returns the buffered alert channel. Alerts are only
// queued once it has been called; the caller must keep draining it.
func (e *Engine) GetAlertChannel() <-chan model.Alert {
	e.alertConsumed.Store(true)
	return e.alertChannel
}

// Close destroys the active rule set and closes notifiers that hold
// resources.
func (e *Engine) Close() {
	e.swapMu.Lock()
	old := e.active.Swap(nil)
	e.swapMu.Unlock()
	old.Close()

	e.mu.Lock()
	defer e.mu.Unlock()
	for _, n := range e.alertNotifiers {
		if c, ok := n.(io.Closer); ok {
			if err := c.Close(); err != nil {
				e.logger.Errorf("Failed to close notifier: %v", err)
			}
		}
	}
	e.alertNotifiers = nil
}
