// Package cleanup provides data retention sweeps for the queue and cache.
package cleanup

import (
	"context"
	"log/slog"
	"time"

	"github.com/Engagic/engagic/pkg/config"
	"github.com/Engagic/engagic/pkg/queue"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Service periodically enforces retention policies:
//   - Deletes terminal queue rows past their retention windows
//   - Removes expired cache rows
//
// All operations are idempotent and safe to run from multiple pods.
type Service struct {
	cfg   *config.RetentionConfig
	queue *queue.Queue
	pool  *pgxpool.Pool

	cancel context.CancelFunc
	done   chan struct{}
}

// NewService creates a retention service over the shared pool.
func NewService(cfg *config.RetentionConfig, q *queue.Queue, pool *pgxpool.Pool) *Service {
	return &Service{cfg: cfg, queue: q, pool: pool}
}

// Start launches the background cleanup loop.
func (s *Service) Start(ctx context.Context) {
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx)

	slog.Info("Cleanup service started",
		"completed_job_retention", s.cfg.CompletedJobRetention,
		"failed_job_retention", s.cfg.FailedJobRetention,
		"interval", s.cfg.CleanupInterval)
}

// Stop signals the cleanup loop to exit and waits for it to finish.
func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	slog.Info("Cleanup service stopped")
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)

	s.runAll(ctx)

	ticker := time.NewTicker(s.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runAll(ctx)
		}
	}
}

func (s *Service) runAll(ctx context.Context) {
	s.pruneTerminalJobs(ctx)
	s.pruneExpiredCache(ctx)
}

func (s *Service) pruneTerminalJobs(ctx context.Context) {
	count, err := s.queue.PruneTerminal(ctx, s.cfg.CompletedJobRetention, s.cfg.FailedJobRetention)
	if err != nil {
		slog.Error("Retention: queue prune failed", "error", err)
		return
	}
	if count > 0 {
		slog.Info("Retention: pruned terminal queue jobs", "count", count)
	}
}

func (s *Service) pruneExpiredCache(ctx context.Context) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM cache WHERE expires_at IS NOT NULL AND expires_at < now()`)
	if err != nil {
		slog.Error("Retention: cache prune failed", "error", err)
		return
	}
	if tag.RowsAffected() > 0 {
		slog.Info("Retention: pruned expired cache rows", "count", tag.RowsAffected())
	}
}
