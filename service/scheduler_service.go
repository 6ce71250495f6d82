package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cloudent/reputation-node/log"
)

// BatchRunner runs one proof cycle for every agent.
type BatchRunner interface {
	RunBatch(ctx context.Context) error
}

// SchedulerService runs the proof batch periodically. Each run processes
// agents sequentially, per-agent failures are handled inside the batch.
type SchedulerService struct {
	runner   BatchRunner
	interval time.Duration
	mu       sync.Mutex
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewScheduler creates a SchedulerService running the batch every interval.
func NewScheduler(runner BatchRunner, interval time.Duration) *SchedulerService {
	return &SchedulerService{
		runner:   runner,
		interval: interval,
	}
}

// Start begins the periodic batch loop. It returns an error if the service
// is already running.
func (ss *SchedulerService) Start(ctx context.Context) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if ss.cancel != nil {
		return fmt.Errorf("service already running")
	}
	ctx, ss.cancel = context.WithCancel(ctx)
	ss.done = make(chan struct{})

	ticker := time.NewTicker(ss.interval)
	go func() {
		defer ticker.Stop()
		defer close(ss.done)
		log.Infow("proof scheduler started", "interval", ss.interval.String())
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := ss.runner.RunBatch(ctx); err != nil {
					log.Warnw("proof batch aborted", "error", err.Error())
				}
			}
		}
	}()
	return nil
}

// Stop halts the scheduler and waits for the loop to exit. An in-flight
// batch is interrupted through its context.
func (ss *SchedulerService) Stop() {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if ss.cancel == nil {
		return
	}
	ss.cancel()
	<-ss.done
	ss.cancel = nil
	ss.done = nil
}
