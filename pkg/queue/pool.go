package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Engagic/engagic/pkg/config"
	"github.com/Engagic/engagic/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// WorkerPool manages a set of queue workers plus the stale-job sweeper.
type WorkerPool struct {
	podID   string
	queue   *Queue
	db      *pgxpool.Pool
	cfg     *config.QueueConfig
	workers []*Worker

	sweepStop chan struct{}
	sweepWG   sync.WaitGroup
	stopOnce  sync.Once

	mu             sync.RWMutex
	started        bool
	lastStaleSweep time.Time
	staleRecovered int
}

// NewWorkerPool creates a pool of cfg.WorkerCount workers sharing one queue.
func NewWorkerPool(db *pgxpool.Pool, queue *Queue, cfg *config.QueueConfig, executor Executor) *WorkerPool {
	podID := uuid.New().String()[:8]

	p := &WorkerPool{
		podID:     podID,
		queue:     queue,
		db:        db,
		cfg:       cfg,
		sweepStop: make(chan struct{}),
	}
	for i := 0; i < cfg.WorkerCount; i++ {
		workerID := fmt.Sprintf("%s-worker-%d", podID, i)
		p.workers = append(p.workers, NewWorker(workerID, podID, queue, cfg, executor))
	}
	return p
}

// Start launches all workers and the stale-job sweeper. Recovery of jobs
// orphaned by a previous crash runs once synchronously before workers begin
// polling, so orphans re-enter the queue ahead of fresh work.
func (p *WorkerPool) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return fmt.Errorf("worker pool already started")
	}
	p.started = true
	p.mu.Unlock()

	if err := p.sweepOnce(ctx); err != nil {
		slog.Warn("Startup stale-job sweep failed", "error", err)
	}

	for _, w := range p.workers {
		w.Start(ctx)
	}

	p.sweepWG.Add(1)
	go p.sweepLoop(ctx)

	slog.Info("Worker pool started",
		"pod_id", p.podID,
		"workers", len(p.workers),
		"banana", p.cfg.Banana,
		"stale_sweep_interval", p.cfg.StaleSweepInterval)
	return nil
}

// Stop shuts the pool down: workers finish their current job (bounded by the
// graceful shutdown timeout), the sweeper exits immediately. Safe to call
// multiple times.
func (p *WorkerPool) Stop() {
	p.stopOnce.Do(func() {
		slog.Info("Stopping worker pool", "pod_id", p.podID)
		close(p.sweepStop)

		done := make(chan struct{})
		go func() {
			var wg sync.WaitGroup
			for _, w := range p.workers {
				wg.Add(1)
				go func(w *Worker) {
					defer wg.Done()
					w.Stop()
				}(w)
			}
			wg.Wait()
			p.sweepWG.Wait()
			close(done)
		}()

		select {
		case <-done:
			slog.Info("Worker pool stopped cleanly", "pod_id", p.podID)
		case <-time.After(p.cfg.GracefulShutdownTimeout):
			slog.Warn("Worker pool shutdown timed out; in-flight jobs will be recovered by the stale sweep",
				"pod_id", p.podID, "timeout", p.cfg.GracefulShutdownTimeout)
		}
	})
}

// sweepLoop periodically resets jobs stuck in processing back to pending.
func (p *WorkerPool) sweepLoop(ctx context.Context) {
	defer p.sweepWG.Done()

	ticker := time.NewTicker(p.cfg.StaleSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.sweepStop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.sweepOnce(ctx); err != nil {
				slog.Error("Stale-job sweep failed", "error", err)
			}
		}
	}
}

func (p *WorkerPool) sweepOnce(ctx context.Context) error {
	recovered, err := p.queue.RecoverStale(ctx)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.lastStaleSweep = time.Now()
	p.staleRecovered += recovered
	p.mu.Unlock()

	if recovered > 0 {
		slog.Info("Recovered stale jobs", "count", recovered, "threshold", p.cfg.StalenessThreshold)
	}
	return nil
}

// Health reports pool health including per-worker stats and queue depth.
func (p *WorkerPool) Health(ctx context.Context) PoolHealth {
	p.mu.RLock()
	health := PoolHealth{
		PodID:          p.podID,
		TotalWorkers:   len(p.workers),
		LastStaleSweep: p.lastStaleSweep,
		StaleRecovered: p.staleRecovered,
	}
	p.mu.RUnlock()

	if _, err := database.Health(ctx, p.db); err != nil {
		health.DBReachable = false
		health.DBError = err.Error()
	} else {
		health.DBReachable = true
	}

	for _, w := range p.workers {
		wh := w.Health()
		health.WorkerStats = append(health.WorkerStats, wh)
		if wh.Status == WorkerStatusWorking {
			health.ActiveWorkers++
		}
	}

	if depth, err := p.queue.Depth(ctx, p.cfg.Banana); err == nil {
		health.QueueDepth = depth
	}

	health.IsHealthy = health.DBReachable
	return health
}
