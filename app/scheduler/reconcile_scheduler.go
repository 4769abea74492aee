// Package scheduler runs periodic background maintenance
package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	businessflow "github.com/amirphl/qrtrack/business_flow"
)

// ReconcileScheduler periodically repairs drifted scan counters
type ReconcileScheduler struct {
	flow     businessflow.ReconcileFlow
	logger   *log.Logger
	interval time.Duration
	timeout  time.Duration
}

func NewReconcileScheduler(flow businessflow.ReconcileFlow, logger *log.Logger, interval, timeout time.Duration) *ReconcileScheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	if logger == nil {
		logger = log.Default()
	}
	return &ReconcileScheduler{
		flow:     flow,
		logger:   logger,
		interval: interval,
		timeout:  timeout,
	}
}

// Start runs a reconcile on every tick until the returned stop function is called.
// Stop waits for an in-flight run to finish.
func (s *ReconcileScheduler) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)
	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runOnce(ctx)
			}
		}
	}()

	return func() {
		cancel()
		wg.Wait()
	}
}

func (s *ReconcileScheduler) runOnce(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.flow.Reconcile(runCtx, businessflow.ReconcileOptions{})
	if err != nil {
		if businessflow.IsMaintenanceInProgress(err) {
			s.logger.Printf("scheduler: reconcile skipped, another run holds the lock")
			return
		}
		s.logger.Printf("scheduler: reconcile failed: %v", err)
		return
	}
	if res.Outcome == businessflow.OutcomeNoChanges {
		return
	}
	s.logger.Printf("scheduler: reconcile %s run_id=%s applied=%d", res.Outcome, res.RunID, res.Applied)
}
