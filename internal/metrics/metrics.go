// Package metrics exports run results in the Prometheus text format, for
// node_exporter's textfile collector or a CI artifact.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/studiowebux/ballast/internal/config"
	"github.com/studiowebux/ballast/internal/types"
)

const namespace = "ballast"

type collectors struct {
	responseTime    *prometheus.GaugeVec
	success         *prometheus.GaugeVec
	withinThreshold *prometheus.GaugeVec
}

func newCollectors() *collectors {
	return &collectors{
		responseTime: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "endpoint",
			Name:      "response_time_ms",
			Help:      "Endpoint latency from the last run in milliseconds, by statistic.",
		}, []string{"endpoint", "stat"}),
		success: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "endpoint",
			Name:      "success",
			Help:      "Whether the endpoint passed every check in the last run (1/0).",
		}, []string{"endpoint"}),
		withinThreshold: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "endpoint",
			Name:      "within_threshold",
			Help:      "Whether the endpoint average stayed within its regression threshold (1/0).",
		}, []string{"endpoint"}),
	}
}

// Registry returns a fresh registry holding gauges for results
func Registry(results []types.TestResult) (*prometheus.Registry, error) {
	c := newCollectors()
	reg := prometheus.NewRegistry()
	for _, col := range []prometheus.Collector{c.responseTime, c.success, c.withinThreshold} {
		if err := reg.Register(col); err != nil {
			return nil, fmt.Errorf("failed to register collector: %w", err)
		}
	}

	for _, r := range results {
		name := r.Config.EndpointName
		c.responseTime.WithLabelValues(name, "average").Set(r.Stats.AverageResponseTime)
		c.responseTime.WithLabelValues(name, "min").Set(r.Stats.MinResponseTime)
		c.responseTime.WithLabelValues(name, "max").Set(r.Stats.MaxResponseTime)
		c.success.WithLabelValues(name).Set(boolGauge(r.Success))
		c.withinThreshold.WithLabelValues(name).Set(boolGauge(r.WithinThreshold))
	}
	return reg, nil
}

// WriteTextfile writes results to path in the Prometheus text format
func WriteTextfile(path string, results []types.TestResult) error {
	reg, err := Registry(results)
	if err != nil {
		return err
	}
	if err := config.EnsureParentDir(path); err != nil {
		return err
	}
	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		return fmt.Errorf("failed to write metrics file %s: %w", path, err)
	}
	return nil
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
