package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/Engagic/engagic/pkg/config"
	"github.com/Engagic/engagic/pkg/models"
)

// Worker is a single queue worker that polls for and processes jobs.
type Worker struct {
	id       string
	podID    string
	queue    *Queue
	cfg      *config.QueueConfig
	executor Executor
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	// Health tracking
	mu            sync.RWMutex
	status        WorkerStatus
	currentJobID  string
	jobsProcessed int
	lastActivity  time.Time
}

// NewWorker creates a queue worker. If cfg.Banana is set the worker only
// claims jobs for that city, so one slow tenant cannot block the others.
func NewWorker(id, podID string, queue *Queue, cfg *config.QueueConfig, executor Executor) *Worker {
	return &Worker{
		id:           id,
		podID:        podID,
		queue:        queue,
		cfg:          cfg,
		executor:     executor,
		stopCh:       make(chan struct{}),
		status:       WorkerStatusIdle,
		lastActivity: time.Now(),
	}
}

// Start begins the worker polling loop in a goroutine.
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.run(ctx)
}

// Stop signals the worker to stop and waits for it to finish its current job.
// Safe to call multiple times.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
}

// Health returns the current worker health status.
func (w *Worker) Health() WorkerHealth {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return WorkerHealth{
		ID:            w.id,
		Status:        w.status,
		CurrentJobID:  w.currentJobID,
		JobsProcessed: w.jobsProcessed,
		LastActivity:  w.lastActivity,
	}
}

// run is the main worker loop: dequeue, dispatch, mark done/failed.
// The worker never exits on a job failure.
func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	log := slog.With("worker_id", w.id, "pod_id", w.podID)
	log.Info("Worker started", "banana", w.cfg.Banana)

	for {
		select {
		case <-w.stopCh:
			log.Info("Worker shutting down")
			return
		case <-ctx.Done():
			log.Info("Context cancelled, worker shutting down")
			return
		default:
			if err := w.pollAndProcess(ctx); err != nil {
				if errors.Is(err, ErrNoJobsAvailable) {
					w.sleep(w.pollInterval())
					continue
				}
				log.Error("Error processing job", "error", err)
				w.sleep(time.Second) // Brief backoff on error
			}
		}
	}
}

// sleep waits for the given duration or until stop is signalled.
func (w *Worker) sleep(d time.Duration) {
	select {
	case <-w.stopCh:
	case <-time.After(d):
	}
}

// pollAndProcess claims one job and runs it to a terminal queue status.
func (w *Worker) pollAndProcess(ctx context.Context) error {
	job, err := w.queue.Dequeue(ctx, w.cfg.Banana)
	if err != nil {
		return err
	}

	log := slog.With("job_id", job.ID, "job_type", job.JobType, "worker_id", w.id)
	log.Info("Job claimed", "banana", job.Banana, "priority", job.Priority, "retry_count", job.RetryCount)

	w.setStatus(WorkerStatusWorking, job.ID)
	defer w.setStatus(WorkerStatusIdle, "")

	// Deserialization failures are the job's fault, never retried.
	if _, err := models.DecodePayload(job.JobType, job.Payload); err != nil {
		log.Error("Job payload is malformed", "error", err)
		return w.queue.MarkFailed(context.WithoutCancel(ctx), job.ID, err.Error(), false)
	}

	jobCtx, cancel := context.WithTimeout(ctx, w.cfg.JobTimeout)
	defer cancel()

	execErr := w.executor.Execute(jobCtx, job)

	// Terminal status updates use an uncancelled context: the job context may
	// already be expired, but the outcome still has to be recorded.
	markCtx := context.WithoutCancel(ctx)

	if execErr == nil {
		if err := w.queue.MarkComplete(markCtx, job.ID); err != nil {
			log.Error("Failed to mark job complete", "error", err)
			return err
		}
		w.mu.Lock()
		w.jobsProcessed++
		w.mu.Unlock()
		log.Info("Job complete")
		return nil
	}

	retryable := !IsPermanent(execErr)
	if errors.Is(execErr, context.DeadlineExceeded) {
		execErr = fmt.Errorf("job timed out after %v: %w", w.cfg.JobTimeout, execErr)
		retryable = true
	}

	log.Warn("Job failed", "error", execErr, "retryable", retryable)
	if err := w.queue.MarkFailed(markCtx, job.ID, execErr.Error(), retryable); err != nil {
		log.Error("Failed to mark job failed", "error", err)
		return err
	}
	return nil
}

// pollInterval returns the poll duration with jitter so many workers do not
// hit the queue in lockstep.
func (w *Worker) pollInterval() time.Duration {
	base := w.cfg.PollInterval
	jitter := w.cfg.PollIntervalJitter
	if jitter <= 0 {
		return base
	}
	offset := time.Duration(rand.Int63n(int64(2 * jitter)))
	return base - jitter + offset
}

func (w *Worker) setStatus(status WorkerStatus, jobID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status = status
	w.currentJobID = jobID
	w.lastActivity = time.Now()
}
