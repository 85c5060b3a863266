// internal/utils/metrics/collector.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "mnav"

// MetricType names a metric held by the collector
type MetricType string

const (
	SourceFetchCounterType  MetricType = "source_fetch_total"
	SourceFetchDurationType MetricType = "source_fetch_duration_seconds"
	RatioType               MetricType = "ratio"
	NavPerShareType         MetricType = "nav_per_share"
	PremiumType             MetricType = "premium_pct"
	TreasuryValueType       MetricType = "treasury_value"
	LastRunType             MetricType = "last_run_timestamp_seconds"
)

// Collector owns a private registry so that runs and tests never share state
// through the global prometheus registry.
type Collector struct {
	registry *prometheus.Registry

	sourceFetches  *prometheus.CounterVec
	sourceDuration *prometheus.HistogramVec
	ratio          prometheus.Gauge
	navPerShare    prometheus.Gauge
	premium        prometheus.Gauge
	treasuryValue  prometheus.Gauge
	lastRun        prometheus.Gauge
}

// NewCollector creates the collector and registers all metrics
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		sourceFetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      string(SourceFetchCounterType),
				Help:      "Source fetches by outcome provenance (live or fallback)",
			},
			[]string{"source", "provenance"},
		),
		sourceDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      string(SourceFetchDurationType),
				Help:      "Time spent fetching each source, retries included",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
			},
			[]string{"source"},
		),
		ratio: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      string(RatioType),
			Help:      "Stock price divided by NAV per share",
		}),
		navPerShare: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      string(NavPerShareType),
			Help:      "Treasury value per outstanding share",
		}),
		premium: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      string(PremiumType),
			Help:      "Premium (positive) or discount (negative) to NAV in percent",
		}),
		treasuryValue: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      string(TreasuryValueType),
			Help:      "Treasury holdings valued at the spot price",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      string(LastRunType),
			Help:      "Unix time of the last completed run",
		}),
	}

	c.registry.MustRegister(
		c.sourceFetches,
		c.sourceDuration,
		c.ratio,
		c.navPerShare,
		c.premium,
		c.treasuryValue,
		c.lastRun,
	)
	return c
}
