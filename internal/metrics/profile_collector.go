package metrics

import (
	"ips-guard/internal/profile"

	"github.com/prometheus/client_golang/prometheus"
)

// ProfileCollector reports the flushed profile totals of every option
// kind at scrape time.
type ProfileCollector struct {
	acc     *profile.Accumulator
	checks  *prometheus.Desc
	elapsed *prometheus.Desc
}

func NewProfileCollector(acc *profile.Accumulator) *ProfileCollector {
	return &ProfileCollector{
		acc: acc,
		checks: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "option", "checks_total"),
			"Rule option evaluations that reached the comparison",
			[]string{"option"}, nil,
		),
		elapsed: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "option", "elapsed_seconds_total"),
			"Time spent in rule option comparisons",
			[]string{"option"}, nil,
		),
	}
}

// Describe implements prometheus.Collector
func (c *ProfileCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.checks
	ch <- c.elapsed
}

// Collect implements prometheus.Collector
func (c *ProfileCollector) Collect(ch chan<- prometheus.Metric) {
	for _, s := range c.acc.Snapshot() {
		ch <- prometheus.MustNewConstMetric(c.checks, prometheus.CounterValue, float64(s.Checks), s.Name)
		ch <- prometheus.MustNewConstMetric(c.elapsed, prometheus.CounterValue, s.Elapsed.Seconds(), s.Name)
	}
}
