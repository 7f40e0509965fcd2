// Package promexport exposes the cyphercell go-metrics counters as a prometheus.Collector.
//
//	prometheus.MustRegister(promexport.NewCollector("myapp"))
package promexport

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rcrowley/go-metrics"

	"github.com/godaddy/asherah/go/cyphercell"
)

var quantiles = []float64{0.5, 0.9, 0.99}

type counter struct {
	desc      *prometheus.Desc
	source    metrics.Counter
	valueType prometheus.ValueType
}

// Collector reads the package level counters of cyphercell on every scrape.
type Collector struct {
	counters  []counter
	allocDesc *prometheus.Desc
	alloc     metrics.Timer
}

// NewCollector returns a Collector whose metric names are prefixed with namespace. An empty namespace defaults to
// "cyphercell".
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = "cyphercell"
	}

	newCounter := func(name, help string, source metrics.Counter, valueType prometheus.ValueType) counter {
		return counter{
			desc:      prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, nil, nil),
			source:    source,
			valueType: valueType,
		}
	}

	return &Collector{
		counters: []counter{
			newCounter("cells_allocated_total", "Total number of cells created.",
				cyphercell.AllocCounter, prometheus.CounterValue),
			newCounter("cells_in_use", "Number of cells currently holding memory.",
				cyphercell.InUseCounter, prometheus.GaugeValue),
			newCounter("pin_failures_total", "Total number of cells running without swap protection.",
				cyphercell.PinFailureCounter, prometheus.CounterValue),
			newCounter("heap_fallbacks_total", "Total number of cells whose buffer was placed on the Go heap.",
				cyphercell.HeapFallbackCounter, prometheus.CounterValue),
			newCounter("wipes_total", "Total number of wipe invocations.",
				cyphercell.WipeCounter, prometheus.CounterValue),
			newCounter("ttl_expired_total", "Total number of reads rejected because the cell TTL had elapsed.",
				cyphercell.ExpiredCounter, prometheus.CounterValue),
		},
		allocDesc: prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "alloc_duration_seconds"),
			"Time taken to create a cell.", nil, nil),
		alloc: cyphercell.AllocTimer,
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, cnt := range c.counters {
		ch <- cnt.desc
	}

	ch <- c.allocDesc
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, cnt := range c.counters {
		ch <- prometheus.MustNewConstMetric(cnt.desc, cnt.valueType, float64(cnt.source.Count()))
	}

	snapshot := c.alloc.Snapshot()
	ps := snapshot.Percentiles(quantiles)

	values := make(map[float64]float64, len(quantiles))
	for i, q := range quantiles {
		values[q] = ps[i] / float64(time.Second)
	}

	ch <- prometheus.MustNewConstSummary(c.allocDesc, uint64(snapshot.Count()),
		float64(snapshot.Sum())/float64(time.Second), values)
}
