package models

// ProcessingStatus tracks a meeting's journey through the pipeline.
type ProcessingStatus string

const (
	ProcessingPending    ProcessingStatus = "pending"
	ProcessingInProgress ProcessingStatus = "processing"
	ProcessingCompleted  ProcessingStatus = "completed"
	ProcessingFailed     ProcessingStatus = "failed"
)

// IsValid reports whether the status is a known processing status.
func (s ProcessingStatus) IsValid() bool {
	switch s {
	case ProcessingPending, ProcessingInProgress, ProcessingCompleted, ProcessingFailed:
		return true
	}
	return false
}

// IsTerminal reports whether no further processing transitions are expected.
func (s ProcessingStatus) IsTerminal() bool {
	return s == ProcessingCompleted || s == ProcessingFailed
}

// MeetingStatus is the vendor-reported scheduling status of a meeting.
type MeetingStatus string

const (
	MeetingNormal      MeetingStatus = "normal"
	MeetingCancelled   MeetingStatus = "cancelled"
	MeetingPostponed   MeetingStatus = "postponed"
	MeetingRevised     MeetingStatus = "revised"
	MeetingRescheduled MeetingStatus = "rescheduled"
)

// IsValid reports whether the status is one the adapter contract allows.
func (s MeetingStatus) IsValid() bool {
	switch s {
	case MeetingNormal, MeetingCancelled, MeetingPostponed, MeetingRevised, MeetingRescheduled:
		return true
	}
	return false
}

// JobStatus is the lifecycle state of a queue job.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
	JobDeadLetter JobStatus = "dead_letter"
)

// IsValid reports whether the status is a known job status.
func (s JobStatus) IsValid() bool {
	switch s {
	case JobPending, JobProcessing, JobCompleted, JobFailed, JobDeadLetter:
		return true
	}
	return false
}

// IsTerminal reports whether the job will not run again without a re-enqueue.
func (s JobStatus) IsTerminal() bool {
	return s == JobCompleted || s == JobFailed || s == JobDeadLetter
}

// JobType discriminates the queue payload union.
type JobType string

const (
	JobTypeMeeting JobType = "meeting"
	JobTypeMatter  JobType = "matter"
)

// IsValid reports whether the job type is known.
func (t JobType) IsValid() bool {
	return t == JobTypeMeeting || t == JobTypeMatter
}
