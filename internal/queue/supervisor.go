package queue

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kiranshivaraju/mediaqueue/internal/config"
	"github.com/kiranshivaraju/mediaqueue/internal/metrics"
)

// Supervisor keeps one worker goroutine per user with queued work. Workers
// drain their user's queue sequentially and are restarted if they crash.
type Supervisor struct {
	registry  *Registry
	processor ItemProcessor
	cfg       config.QueueConfig
	logger    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	workers map[int64]*workerHandle
	stopped bool
}

type workerHandle struct {
	alive atomic.Bool
}

func NewSupervisor(registry *Registry, processor ItemProcessor, cfg config.QueueConfig, logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Supervisor{
		registry:  registry,
		processor: processor,
		cfg:       cfg,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
		workers:   make(map[int64]*workerHandle),
	}
}

// Ensure starts a worker for userID unless a live one exists. It reports
// whether a new worker was started. After Stop it never starts workers.
func (s *Supervisor) Ensure(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return false
	}
	if h, ok := s.workers[userID]; ok && h.alive.Load() {
		return false
	}

	h := &workerHandle{}
	h.alive.Store(true)
	s.workers[userID] = h

	s.wg.Add(1)
	go s.run(userID, h)
	return true
}

// Alive reports whether userID currently has a running worker.
func (s *Supervisor) Alive(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.workers[userID]
	return ok && h.alive.Load()
}

// Stop cancels every worker and waits for them to return. The item in flight
// has its executor call cancelled and no failure is recorded for it; items
// still queued are not taken. Persisted rows keep the last transition written.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
}

func (s *Supervisor) run(userID int64, h *workerHandle) {
	metrics.ActiveWorkers.Inc()
	defer func() {
		h.alive.Store(false)
		metrics.ActiveWorkers.Dec()
		s.wg.Done()
	}()

	s.logger.Info("worker started", "user_id", userID)
	for {
		err := s.loop(userID)
		if err == nil {
			s.logger.Info("worker stopped", "user_id", userID)
			return
		}

		metrics.WorkerRestartsTotal.Inc()
		s.logger.Error("worker crashed, restarting",
			"user_id", userID,
			"error", err,
			"restart_delay", s.cfg.RestartDelay,
		)
		if !s.sleep(s.cfg.RestartDelay) {
			return
		}
	}
}

// loop drains the user's queue until the supervisor is stopped. A non-nil
// return means the loop crashed.
func (s *Supervisor) loop(userID int64) (err error) {
	defer func() {
		if r := recover(); r != nil {
			metrics.PanicsRecoveredTotal.WithLabelValues("worker").Inc()
			err = fmt.Errorf("worker panic: %v\n%s", r, debug.Stack())
		}
	}()

	queue, table := s.registry.GetOrCreate(userID)
	for s.ctx.Err() == nil {
		item, ok, popErr := queue.Pop(s.ctx, s.cfg.PollTimeout)
		if popErr != nil {
			return nil
		}
		if !ok {
			if !s.sleep(s.cfg.IdleSleep) {
				return nil
			}
			continue
		}
		s.processor.Process(s.ctx, userID, item, table)
	}
	return nil
}

// sleep waits for d and reports false if the supervisor stopped meanwhile.
func (s *Supervisor) sleep(d time.Duration) bool {
	if d <= 0 {
		return s.ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-s.ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
