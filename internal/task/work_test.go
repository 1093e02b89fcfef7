package task

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwhitlock/taskpipe/internal/domain"
)

func TestSimulatedWorkCompletes(t *testing.T) {
	work := SimulatedWork(5 * time.Millisecond)

	start := time.Now()
	err := work(context.Background(), &domain.Task{ID: 1})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 5*time.Millisecond)
}

func TestSimulatedWorkZeroDelay(t *testing.T) {
	work := SimulatedWork(0)
	assert.NoError(t, work(context.Background(), &domain.Task{ID: 1}))
}

func TestSimulatedWorkRespectsCancellation(t *testing.T) {
	work := SimulatedWork(time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := work(ctx, &domain.Task{ID: 1})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second, "cancellation interrupts the delay")
}
