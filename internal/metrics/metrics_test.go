package metrics_test

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwhitlock/taskpipe/internal/metrics"
)

func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()

	families, err := reg.Gather()
	require.NoError(t, err)

	for _, mf := range families {
		if mf.GetName() == name {
			require.Len(t, mf.GetMetric(), 1)
			return mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	t.Fatalf("counter %s not registered", name)
	return 0
}

func TestRecorderRegistersCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := metrics.NewRecorder(reg)

	rec.IncSubmitted()
	rec.IncCompleted()
	rec.IncFailed()

	assert.Equal(t, 1.0, counterValue(t, reg, "tasks_submitted_total"))
	assert.Equal(t, 1.0, counterValue(t, reg, "tasks_completed_total"))
	assert.Equal(t, 1.0, counterValue(t, reg, "tasks_failed_total"))
}

func TestRecorderConcurrentIncrements(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := metrics.NewRecorder(reg)

	const goroutines = 10
	const perGoroutine = 100

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				rec.IncSubmitted()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, float64(goroutines*perGoroutine), counterValue(t, reg, "tasks_submitted_total"))
}

func TestRecorderLintCompliance(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics.NewRecorder(reg)

	problems, err := testutil.GatherAndLint(reg)
	require.NoError(t, err)
	assert.Empty(t, problems)
}
