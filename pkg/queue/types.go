// Package queue provides the durable priority job queue and its worker pool.
// Jobs are deduplicated on source_url, claimed atomically with
// FOR UPDATE SKIP LOCKED, retried with priority decay, and dead-lettered
// after the retry cap.
package queue

import (
	"context"
	"errors"
	"time"

	"github.com/Engagic/engagic/pkg/models"
)

// Sentinel errors for queue operations.
var (
	// ErrNoJobsAvailable indicates no pending jobs match the dequeue filter.
	ErrNoJobsAvailable = errors.New("no jobs available")

	// ErrAlreadyQueued indicates the source URL already has a pending or
	// actively processing job; the enqueue was a no-op.
	ErrAlreadyQueued = errors.New("job already queued")
)

// Executor processes one claimed job. The executor owns the entire job
// lifecycle internally and writes results progressively; the worker only
// handles claiming, terminal status, and retry classification.
type Executor interface {
	Execute(ctx context.Context, job *models.QueueJob) error
}

// permanentError marks a job failure that must not be retried.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so the worker marks the job failed without retry.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was wrapped with Permanent.
func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}

// WorkerStatus represents the current state of a worker.
type WorkerStatus string

const (
	WorkerStatusIdle    WorkerStatus = "idle"
	WorkerStatusWorking WorkerStatus = "working"
)

// WorkerHealth contains health information for a single worker.
type WorkerHealth struct {
	ID            string       `json:"id"`
	Status        WorkerStatus `json:"status"`
	CurrentJobID  string       `json:"current_job_id,omitempty"`
	JobsProcessed int          `json:"jobs_processed"`
	LastActivity  time.Time    `json:"last_activity"`
}

// PoolHealth contains health information for the entire worker pool.
type PoolHealth struct {
	IsHealthy      bool           `json:"is_healthy"`
	DBReachable    bool           `json:"db_reachable"`
	DBError        string         `json:"db_error,omitempty"`
	PodID          string         `json:"pod_id"`
	ActiveWorkers  int            `json:"active_workers"`
	TotalWorkers   int            `json:"total_workers"`
	QueueDepth     int            `json:"queue_depth"`
	WorkerStats    []WorkerHealth `json:"worker_stats"`
	LastStaleSweep time.Time      `json:"last_stale_sweep"`
	StaleRecovered int            `json:"stale_recovered"`
}
