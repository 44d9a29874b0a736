package metrics

import (
	"time"

	"github.com/GoSim-25-26J-441/tsi/pkg/utils"
)

// Metric names recorded by the daemon.
const (
	MetricOptimizeDuration = "optimize_duration_ms"
	MetricOptimizeRequests = "optimize_requests_total"
	MetricRunsSubmitted    = "runs_submitted_total"
	MetricRunsFinished     = "runs_finished_total"
	MetricRunDuration      = "run_duration_ms"
	MetricCallbacks        = "callbacks_total"
)

// OutcomeOK labels a successful operation.
const OutcomeOK = "ok"

// RecordOptimize records one optimize call. outcome is OutcomeOK or an
// error kind such as "infeasible".
func RecordOptimize(c *Collector, source string, d time.Duration, outcome string) {
	if c == nil {
		return
	}
	labels := OptimizeLabels(source, outcome)
	c.Inc(MetricOptimizeRequests, labels)
	c.Record(MetricOptimizeDuration, utils.TimeToMs(d), labels)
}

// RecordRunSubmitted counts an accepted background run.
func RecordRunSubmitted(c *Collector) {
	if c == nil {
		return
	}
	c.Inc(MetricRunsSubmitted, nil)
}

// RecordRunFinished records a run reaching a terminal status.
func RecordRunFinished(c *Collector, status string, d time.Duration) {
	if c == nil {
		return
	}
	labels := map[string]string{"status": status}
	c.Inc(MetricRunsFinished, labels)
	c.Record(MetricRunDuration, utils.TimeToMs(d), labels)
}

// RecordCallback counts a completion callback delivery attempt sequence.
func RecordCallback(c *Collector, delivered bool) {
	if c == nil {
		return
	}
	result := "delivered"
	if !delivered {
		result = "failed"
	}
	c.Inc(MetricCallbacks, map[string]string{"result": result})
}

// OptimizeLabels builds the label set used for optimize metrics.
func OptimizeLabels(source, outcome string) map[string]string {
	return map[string]string{
		"source":  source,
		"outcome": outcome,
	}
}
