package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Engagic/engagic/pkg/config"
	"github.com/Engagic/engagic/pkg/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB is the slice of pgx the queue needs, satisfied by both *pgxpool.Pool and
// pgx.Tx so queue writes can join a caller's transaction.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Queue is the durable job queue over the shared connection pool.
type Queue struct {
	db  DB
	cfg *config.QueueConfig
}

// New creates a Queue.
func New(pool *pgxpool.Pool, cfg *config.QueueConfig) *Queue {
	return &Queue{db: pool, cfg: cfg}
}

// WithTx returns a Queue running against db, typically a transaction. Enqueues
// made through it commit or roll back with the caller's other writes.
func (q *Queue) WithTx(db DB) *Queue {
	return &Queue{db: db, cfg: q.cfg}
}

const jobColumns = `
	id, job_type, payload, banana, priority, status, retry_count,
	source_url, COALESCE(error_message, ''), created_at, started_at,
	completed_at, failed_at`

// EnqueueMeetingJob enqueues processing for one meeting, deduplicated on the
// meeting's source URL.
func (q *Queue) EnqueueMeetingJob(ctx context.Context, meeting *models.Meeting, priority int) (string, error) {
	sourceURL := meeting.SourceURL()
	if sourceURL == "" {
		return "", fmt.Errorf("meeting %s has no source URL", meeting.ID)
	}
	payload, err := models.EncodeMeetingJob(models.MeetingJob{MeetingID: meeting.ID})
	if err != nil {
		return "", err
	}
	return q.enqueue(ctx, models.JobTypeMeeting, payload, meeting.Banana, priority, sourceURL)
}

// EnqueueMatterJob enqueues canonical summarization for one matter. The dedup
// key is a synthetic matter:// URL so matter jobs never collide with meeting
// jobs for the same agenda.
func (q *Queue) EnqueueMatterJob(ctx context.Context, matter *models.Matter, meetingID string, itemIDs []string, priority int) (string, error) {
	payload, err := models.EncodeMatterJob(models.MatterJob{
		MatterID:  matter.ID,
		MeetingID: meetingID,
		ItemIDs:   itemIDs,
	})
	if err != nil {
		return "", err
	}
	sourceURL := "matter://" + matter.ID
	return q.enqueue(ctx, models.JobTypeMatter, payload, matter.Banana, priority, sourceURL)
}

// enqueue is the single upsert path behind both typed enqueue operations.
//
// Semantics, keyed on the existing row's status:
//
//	absent                        INSERT as pending
//	pending                       no-op (ErrAlreadyQueued)
//	processing, fresh             no-op (ErrAlreadyQueued)
//	processing, stale             reset to pending, retry_count++
//	completed/failed/dead_letter  reset to pending, clear error, new payload
func (q *Queue) enqueue(ctx context.Context, jobType models.JobType, payload []byte, banana string, priority int, sourceURL string) (string, error) {
	id := uuid.New().String()
	staleMinutes := q.cfg.StalenessThreshold.Minutes()

	var returnedID string
	err := q.db.QueryRow(ctx, `
		INSERT INTO queue (id, job_type, payload, banana, priority, status, source_url)
		VALUES ($1, $2, $3, $4, $5, 'pending', $6)
		ON CONFLICT (source_url) DO UPDATE SET
			job_type      = EXCLUDED.job_type,
			payload       = EXCLUDED.payload,
			priority      = EXCLUDED.priority,
			status        = 'pending',
			retry_count   = CASE WHEN queue.status = 'processing' THEN queue.retry_count + 1 ELSE 0 END,
			error_message = NULL,
			started_at    = NULL,
			completed_at  = NULL,
			failed_at     = NULL
		WHERE queue.status IN ('completed', 'failed', 'dead_letter')
		   OR (queue.status = 'processing' AND queue.started_at < now() - ($7 * interval '1 minute'))
		RETURNING id`,
		id, jobType, payload, banana, priority, sourceURL, staleMinutes).Scan(&returnedID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Conflict row exists and is pending or freshly processing.
			return "", ErrAlreadyQueued
		}
		return "", fmt.Errorf("failed to enqueue job for %s: %w", sourceURL, err)
	}
	return returnedID, nil
}

// Dequeue atomically claims the highest-priority pending job. The subselect
// locks the row with SKIP LOCKED so concurrent workers always claim disjoint
// jobs. banana may be empty to poll across all cities.
func (q *Queue) Dequeue(ctx context.Context, banana string) (*models.QueueJob, error) {
	query := `
		UPDATE queue SET status = 'processing', started_at = now()
		WHERE id = (
			SELECT id FROM queue
			WHERE status = 'pending'` + bananaFilter(banana) + `
			ORDER BY priority DESC, created_at ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING` + jobColumns

	var row pgx.Row
	if banana != "" {
		row = q.db.QueryRow(ctx, query, banana)
	} else {
		row = q.db.QueryRow(ctx, query)
	}

	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoJobsAvailable
		}
		return nil, fmt.Errorf("failed to dequeue job: %w", err)
	}
	return job, nil
}

func bananaFilter(banana string) string {
	if banana != "" {
		return ` AND banana = $1`
	}
	return ``
}

// MarkComplete transitions a job to completed.
func (q *Queue) MarkComplete(ctx context.Context, id string) error {
	tag, err := q.db.Exec(ctx,
		`UPDATE queue SET status = 'completed', completed_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark job %s complete: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("job %s not found", id)
	}
	return nil
}

// MarkFailed records a job failure. Retryable failures under the retry cap go
// back to pending with decayed priority so they re-run behind fresher work;
// at the cap they move to dead_letter. Non-retryable failures (malformed
// payloads, missing meetings) go straight to failed.
func (q *Queue) MarkFailed(ctx context.Context, id, errMsg string, retryable bool) error {
	if !retryable {
		tag, err := q.db.Exec(ctx, `
			UPDATE queue SET status = 'failed', error_message = $2, failed_at = now()
			WHERE id = $1`, id, errMsg)
		if err != nil {
			return fmt.Errorf("failed to mark job %s failed: %w", id, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("job %s not found", id)
		}
		return nil
	}

	tag, err := q.db.Exec(ctx, `
		UPDATE queue SET
			retry_count   = retry_count + 1,
			status        = CASE WHEN retry_count + 1 >= $3 THEN 'dead_letter' ELSE 'pending' END,
			priority      = CASE WHEN retry_count + 1 >= $3 THEN priority
			                     ELSE GREATEST($4, priority - 20 * (retry_count + 1)) END,
			error_message = $2,
			failed_at     = now(),
			started_at    = NULL
		WHERE id = $1`,
		id, errMsg, q.cfg.RetryCap, config.PriorityFloor)
	if err != nil {
		return fmt.Errorf("failed to mark job %s for retry: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("job %s not found", id)
	}
	return nil
}

// RecoverStale resets jobs stuck in processing beyond the staleness
// threshold back to pending so crashed workers do not orphan work.
// Returns the number of jobs recovered.
func (q *Queue) RecoverStale(ctx context.Context) (int, error) {
	tag, err := q.db.Exec(ctx, `
		UPDATE queue SET
			status      = 'pending',
			retry_count = retry_count + 1,
			started_at  = NULL
		WHERE status = 'processing'
		  AND started_at < now() - ($1 * interval '1 minute')`,
		q.cfg.StalenessThreshold.Minutes())
	if err != nil {
		return 0, fmt.Errorf("failed to recover stale jobs: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// PruneTerminal deletes terminal queue rows past their retention windows:
// completed jobs after completedAge, failed and dead_letter jobs after
// failedAge. Deleting the row also releases its source_url for re-enqueue.
// Returns the number of rows deleted.
func (q *Queue) PruneTerminal(ctx context.Context, completedAge, failedAge time.Duration) (int64, error) {
	tag, err := q.db.Exec(ctx, `
		DELETE FROM queue
		WHERE (status = 'completed' AND completed_at < now() - ($1 * interval '1 minute'))
		   OR (status IN ('failed', 'dead_letter') AND failed_at < now() - ($2 * interval '1 minute'))`,
		completedAge.Minutes(), failedAge.Minutes())
	if err != nil {
		return 0, fmt.Errorf("failed to prune terminal jobs: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Depth returns the number of pending jobs, optionally bound to one city.
func (q *Queue) Depth(ctx context.Context, banana string) (int, error) {
	var count int
	var err error
	if banana != "" {
		err = q.db.QueryRow(ctx,
			`SELECT COUNT(*) FROM queue WHERE status = 'pending' AND banana = $1`, banana).Scan(&count)
	} else {
		err = q.db.QueryRow(ctx,
			`SELECT COUNT(*) FROM queue WHERE status = 'pending'`).Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query queue depth: %w", err)
	}
	return count, nil
}

// Get loads one job by ID (diagnostics).
func (q *Queue) Get(ctx context.Context, id string) (*models.QueueJob, error) {
	job, err := scanJob(q.db.QueryRow(ctx, `SELECT`+jobColumns+` FROM queue WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("job %s not found", id)
		}
		return nil, fmt.Errorf("failed to get job %s: %w", id, err)
	}
	return job, nil
}

func scanJob(row pgx.Row) (*models.QueueJob, error) {
	var job models.QueueJob
	err := row.Scan(
		&job.ID, &job.JobType, &job.Payload, &job.Banana, &job.Priority,
		&job.Status, &job.RetryCount, &job.SourceURL, &job.ErrorMessage,
		&job.CreatedAt, &job.StartedAt, &job.CompletedAt, &job.FailedAt,
	)
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// MeetingPriority assigns enqueue priority for a meeting: meetings closest to
// today run first; date-less meetings go to the back of the line.
func MeetingPriority(date *time.Time, now time.Time) int {
	if date == nil {
		return 0
	}
	days := int(date.Sub(now).Hours() / 24)
	if days < 0 {
		days = -days
	}
	if days >= 150 {
		return 0
	}
	return 150 - days
}

// MatterPriority is the base priority for matter jobs. Retry decay may push
// an individual job down to the priority floor.
func MatterPriority() int {
	return 50
}
