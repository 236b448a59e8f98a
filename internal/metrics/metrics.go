// Package metrics exposes packet, alert and rule option profile counters
// to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"ips-guard/internal/model"
	"ips-guard/internal/profile"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ips"

type Metrics struct {
	registry *prometheus.Registry

	PacketsTotal         *prometheus.CounterVec
	DecodeErrors         *prometheus.CounterVec
	AlertsTotal          *prometheus.CounterVec
	PacketProcessingTime prometheus.Histogram
	RulesLoaded          prometheus.Gauge
	UniqueOptions        prometheus.Gauge
}

// New builds a private registry holding the process collectors, the
// counters below and a profile collector reading acc.
func New(acc *profile.Accumulator) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		PacketsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_total",
			Help:      "Packets evaluated, by source and protocol",
		}, []string{"source", "protocol"}),
		DecodeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_errors_total",
			Help:      "Packets or flows that could not be decoded",
		}, []string{"source"}),
		AlertsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_total",
			Help:      "Alerts raised, by severity",
		}, []string{"severity"}),
		PacketProcessingTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "packet_processing_seconds",
			Help:      "Time spent evaluating the rule set against one packet",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
		}),
		RulesLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rules_loaded",
			Help:      "Enabled rules in the active rule set",
		}),
		UniqueOptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "unique_options",
			Help:      "Distinct rule options after deduplication",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.PacketsTotal,
		m.DecodeErrors,
		m.AlertsTotal,
		m.PacketProcessingTime,
		m.RulesLoaded,
		m.UniqueOptions,
	)
	if acc != nil {
		m.registry.MustRegister(NewProfileCollector(acc))
	}
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordPacket(source string, p *model.Packet, elapsed time.Duration) {
	m.PacketsTotal.WithLabelValues(source, p.Protocol()).Inc()
	m.PacketProcessingTime.Observe(elapsed.Seconds())
}

func (m *Metrics) RecordDecodeError(source string) {
	m.DecodeErrors.WithLabelValues(source).Inc()
}

// SendAlert counts the alert; Metrics can be registered as a notifier.
func (m *Metrics) SendAlert(a model.Alert) error {
	m.AlertsTotal.WithLabelValues(a.Severity).Inc()
	return nil
}

func (m *Metrics) SetRuleSet(rules, uniqueOptions int) {
	m.RulesLoaded.Set(float64(rules))
	m.UniqueOptions.Set(float64(uniqueOptions))
}
