package scheduler

import (
	"bytes"
	"context"
	"log"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/amirphl/qrtrack/app/dto"
	businessflow "github.com/amirphl/qrtrack/business_flow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingFlow struct {
	runs   atomic.Int32
	result *dto.ReconcileResponse
	err    error
}

func (f *countingFlow) Reconcile(ctx context.Context, opts businessflow.ReconcileOptions) (*dto.ReconcileResponse, error) {
	f.runs.Add(1)
	if _, ok := ctx.Deadline(); !ok {
		return nil, context.DeadlineExceeded
	}
	return f.result, f.err
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestReconcileSchedulerRunsOnEveryTick(t *testing.T) {
	flow := &countingFlow{result: &dto.ReconcileResponse{RunID: "run-1", Outcome: businessflow.OutcomeReconciled, Applied: 2}}
	out := &syncBuffer{}
	sched := NewReconcileScheduler(flow, log.New(out, "", 0), 10*time.Millisecond, time.Second)

	stop := sched.Start(context.Background())
	require.Eventually(t, func() bool { return flow.runs.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
	stop()

	runs := flow.runs.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, runs, flow.runs.Load(), "no runs after stop")
	assert.Contains(t, out.String(), "reconcile reconciled run_id=run-1 applied=2")
}

func TestReconcileSchedulerLogsFailures(t *testing.T) {
	flow := &countingFlow{err: businessflow.ErrMaintenanceInProgress}
	out := &syncBuffer{}
	sched := NewReconcileScheduler(flow, log.New(out, "", 0), 10*time.Millisecond, time.Second)

	stop := sched.Start(context.Background())
	require.Eventually(t, func() bool { return flow.runs.Load() >= 1 }, 2*time.Second, 5*time.Millisecond)
	stop()

	assert.Contains(t, out.String(), "another run holds the lock")
}

func TestNewReconcileSchedulerDefaults(t *testing.T) {
	sched := NewReconcileScheduler(&countingFlow{}, nil, 0, 0)
	assert.Equal(t, time.Hour, sched.interval)
	assert.Equal(t, 5*time.Minute, sched.timeout)
	assert.NotNil(t, sched.logger)
}
