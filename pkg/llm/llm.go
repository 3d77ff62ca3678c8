// Package llm provides the summarization contract and its Anthropic-backed
// implementation.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Summarizer produces civic summaries. Implementations retry transient
// failures internally within their configured budget; callers add the
// per-call timeout.
type Summarizer interface {
	// SummarizeMeeting produces a single meeting-level summary from packet text.
	SummarizeMeeting(ctx context.Context, text string) (string, error)

	// SummarizeItem produces a summary and topic tags for one agenda item.
	// sharedContext may be empty; it carries documents referenced by several
	// items so each item prompt stays small.
	SummarizeItem(ctx context.Context, title, text, sharedContext string, pageCount int) (string, []string, error)
}

// RateLimitError signals the provider asked us to back off. The retry layer
// honours RetryAfter when the provider supplies one.
type RateLimitError struct {
	RetryAfter time.Duration
	Err        error
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited, retry after %v: %v", e.RetryAfter, e.Err)
	}
	return fmt.Sprintf("rate limited: %v", e.Err)
}

func (e *RateLimitError) Unwrap() error { return e.Err }

// IsRetryable reports whether err is worth retrying: rate limits, provider
// 5xx, and transport failures. Malformed-request errors are not.
func IsRetryable(err error) bool {
	var rle *RateLimitError
	if errors.As(err, &rle) {
		return true
	}
	var te *TransientError
	return errors.As(err, &te)
}

// TransientError marks provider-side or transport failures that a later
// attempt may not hit.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }
