package pipeline

import (
	"context"
	"time"

	"ips-guard/internal/metrics"
	"ips-guard/internal/model"
	"ips-guard/internal/rules"
)

// Processor evaluates packets for one worker goroutine. It owns the
// worker's profile handle and per-packet memo; do not share it.
type Processor struct {
	engine  *rules.Engine
	eval    *rules.Evaluator
	metrics *metrics.Metrics
	source  string
}

// NewProcessor creates a processor with its own profile handle. metrics
// may be nil.
func NewProcessor(engine *rules.Engine, m *metrics.Metrics, source string) *Processor {
	worker := engine.Registry().Profile().NewWorker()
	return &Processor{
		engine:  engine,
		eval:    rules.NewEvaluator(worker),
		metrics: m,
		source:  source,
	}
}

// Process evaluates the active rules against pkt and emits alerts.
func (p *Processor) Process(ctx context.Context, pkt *model.Packet) []model.Alert {
	if pkt == nil {
		return nil
	}

	start := time.Now()
	alerts := p.engine.Evaluate(p.eval, pkt)
	if p.metrics != nil {
		p.metrics.RecordPacket(p.source, pkt, time.Since(start))
	}
	return alerts
}

// Flush publishes the profile counters gathered since the last flush.
func (p *Processor) Flush() {
	p.eval.Worker().Flush()
}
