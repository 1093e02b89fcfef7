// Package metrics tracks the pipeline's monotonic task counters.
// The counters exist purely for external observability; no pipeline
// component reads them back.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Recorder holds the pipeline's Prometheus counters. A single Recorder is
// constructed at startup and passed explicitly to the components that
// increment it; there is no package-level registry singleton.
type Recorder struct {
	tasksSubmitted prometheus.Counter
	tasksCompleted prometheus.Counter
	tasksFailed    prometheus.Counter
}

// NewRecorder creates the task counters and registers them with the given
// registerer.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	m := &Recorder{
		tasksSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tasks_submitted_total",
			Help: "Total number of tasks submitted",
		}),
		tasksCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tasks_completed_total",
			Help: "Total number of tasks completed",
		}),
		tasksFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tasks_failed_total",
			Help: "Total number of tasks failed",
		}),
	}

	reg.MustRegister(m.tasksSubmitted, m.tasksCompleted, m.tasksFailed)

	return m
}

// IncSubmitted increments the submitted-task counter by one.
func (m *Recorder) IncSubmitted() {
	m.tasksSubmitted.Inc()
}

// IncCompleted increments the completed-task counter by one.
func (m *Recorder) IncCompleted() {
	m.tasksCompleted.Inc()
}

// IncFailed increments the failed-task counter by one.
func (m *Recorder) IncFailed() {
	m.tasksFailed.Inc()
}
