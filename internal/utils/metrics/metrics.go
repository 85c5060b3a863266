// internal/utils/metrics/metrics.go
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rovshanmuradov/mnav/internal/types"
)

// RecordSource counts one fetch of source and observes how long it took
func (c *Collector) RecordSource(source string, field types.Field, duration time.Duration) {
	c.sourceFetches.WithLabelValues(source, string(field.Source)).Inc()
	c.sourceDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// RecordValuation publishes the computed valuation gauges
func (c *Collector) RecordValuation(treasuryValue, navPerShare, ratio, premiumPct float64, at time.Time) {
	c.treasuryValue.Set(treasuryValue)
	c.navPerShare.Set(navPerShare)
	c.ratio.Set(ratio)
	c.premium.Set(premiumPct)
	c.lastRun.Set(float64(at.Unix()))
}

// WriteTextfile writes the registry in text exposition format for the
// node_exporter textfile collector. The write is atomic.
func (c *Collector) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
