package metric

import "github.com/prometheus/client_golang/prometheus"

// MandateState is one mandate's status at scrape time.
type MandateState struct {
	Name  string
	State string
	Build uint64
}

// Collector reports mandate state on every scrape.
type Collector struct {
	source func() []MandateState
	state  *prometheus.Desc
	build  *prometheus.Desc
}

// NewCollector creates a collector that calls source on each scrape.
func NewCollector(source func() []MandateState) *Collector {
	return &Collector{
		source: source,
		state: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "mandate", "state"),
			"Current mandate state; the series with value 1 is active.",
			[]string{"mandate", "state"}, nil,
		),
		build: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "mandate", "build_number"),
			"Build number of the generation currently served.",
			[]string{"mandate"}, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.state
	ch <- c.build
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, m := range c.source() {
		ch <- prometheus.MustNewConstMetric(c.state, prometheus.GaugeValue, 1, m.Name, m.State)
		ch <- prometheus.MustNewConstMetric(c.build, prometheus.GaugeValue, float64(m.Build), m.Name)
	}
}
