// Package metrics exposes Prometheus counters for the redirect hot path.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector bundles the Prometheus metrics of the service
type Collector struct {
	redirects   *prometheus.CounterVec
	hitsSaved   prometheus.Counter
	hitsDropped prometheus.Counter
}

// NewCollector creates the metrics and registers them on the given registerer
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		redirects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shurly_redirects_total",
			Help: "Redirect requests served, by response status code",
		}, []string{"status"}),
		hitsSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shurly_hits_saved_total",
			Help: "Page hits persisted to the database",
		}),
		hitsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shurly_hits_dropped_total",
			Help: "Page hits dropped because the collector buffer was full",
		}),
	}
	reg.MustRegister(c.redirects, c.hitsSaved, c.hitsDropped)
	return c
}

// RecordRedirect counts one redirect response with the given status code
func (c *Collector) RecordRedirect(status int) {
	c.redirects.WithLabelValues(strconv.Itoa(status)).Inc()
}

// RecordHitSaved counts one persisted page hit
func (c *Collector) RecordHitSaved() {
	c.hitsSaved.Inc()
}

// RecordHitDropped counts one dropped page hit
func (c *Collector) RecordHitDropped() {
	c.hitsDropped.Inc()
}
