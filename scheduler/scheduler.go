package scheduler

import (
	"context"
	"log"
	"time"
)

// Scheduler runs watch cycles at a fixed interval. The first cycle
// fires immediately on Start; cycles never overlap because the loop is
// sequential.
type Scheduler struct {
	interval time.Duration
	cycle    func()
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewScheduler creates a scheduler that invokes cycle every interval.
func NewScheduler(interval time.Duration, cycle func()) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		interval: interval,
		cycle:    cycle,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Start starts the scheduler in a goroutine
func (s *Scheduler) Start() {
	go s.run()
}

// Stop stops the scheduler and waits for a running cycle to finish.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.done
	log.Println("Scheduler stopped")
}

// run is the main scheduler loop
func (s *Scheduler) run() {
	defer close(s.done)

	s.cycle()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.cycle()
		}
	}
}
