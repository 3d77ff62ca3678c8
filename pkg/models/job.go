package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// QueueJob is a durable work item. SourceURL is the dedup key: re-enqueueing
// the same URL updates the existing row instead of inserting a duplicate.
type QueueJob struct {
	ID           string          `json:"id"`
	JobType      JobType         `json:"job_type"`
	Payload      json.RawMessage `json:"payload"`
	Banana       string          `json:"banana"`
	Priority     int             `json:"priority"`
	Status       JobStatus       `json:"status"`
	RetryCount   int             `json:"retry_count"`
	SourceURL    string          `json:"source_url"`
	ErrorMessage string          `json:"error_message,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	StartedAt    *time.Time      `json:"started_at,omitempty"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
	FailedAt     *time.Time      `json:"failed_at,omitempty"`
}

// MeetingJob asks the processor to summarize one meeting.
type MeetingJob struct {
	MeetingID string `json:"meeting_id"`
}

// MatterJob asks the processor to produce a canonical summary for one matter
// and back-fill every item that references it. ItemIDs is advisory: the
// processor re-aggregates all referencing items at dispatch time.
type MatterJob struct {
	MatterID  string   `json:"matter_id"`
	MeetingID string   `json:"meeting_id"`
	ItemIDs   []string `json:"item_ids,omitempty"`
}

// EncodeMeetingJob serializes a meeting payload.
func EncodeMeetingJob(p MeetingJob) (json.RawMessage, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode meeting job: %w", err)
	}
	return b, nil
}

// EncodeMatterJob serializes a matter payload.
func EncodeMatterJob(p MatterJob) (json.RawMessage, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode matter job: %w", err)
	}
	return b, nil
}

// DecodePayload switches on job_type and returns either a *MeetingJob or a
// *MatterJob. Unknown types and malformed payloads return an error; the
// worker marks such jobs failed without retry.
func DecodePayload(jobType JobType, raw json.RawMessage) (any, error) {
	switch jobType {
	case JobTypeMeeting:
		var p MeetingJob
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode meeting payload: %w", err)
		}
		if p.MeetingID == "" {
			return nil, fmt.Errorf("meeting payload missing meeting_id")
		}
		return &p, nil
	case JobTypeMatter:
		var p MatterJob
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode matter payload: %w", err)
		}
		if p.MatterID == "" {
			return nil, fmt.Errorf("matter payload missing matter_id")
		}
		return &p, nil
	default:
		return nil, fmt.Errorf("unknown job type %q", jobType)
	}
}
