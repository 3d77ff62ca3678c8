package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
)

func TestParseResponse(t *testing.T) {
	t.Run("summary with topics line", func(t *testing.T) {
		response := `## Summary

The council will consider a rezoning of the Elm Street corridor to allow
four-story mixed-use buildings.

TOPICS: housing, zoning, development`

		summary, topics := parseResponse(response)
		assert.Contains(t, summary, "Elm Street corridor")
		assert.NotContains(t, summary, "TOPICS")
		assert.NotContains(t, summary, "Summary")
		assert.Equal(t, []string{"housing", "zoning", "development"}, topics)
	})

	t.Run("no topics line", func(t *testing.T) {
		summary, topics := parseResponse("Summary: Just a plain summary.")
		assert.Equal(t, "Just a plain summary.", summary)
		assert.Nil(t, topics)
	})

	t.Run("empty topics line", func(t *testing.T) {
		summary, topics := parseResponse("Text here.\nTOPICS: ")
		assert.Equal(t, "Text here.", summary)
		assert.Nil(t, topics)
	})
}

func TestNormalizeTopics(t *testing.T) {
	tests := []struct {
		name   string
		topics []string
		want   []string
	}{
		{
			name:   "synonyms collapse",
			topics: []string{"Affordable Housing", "zoning", "traffic"},
			want:   []string{"housing", "transit"},
		},
		{
			name:   "dedupe preserves first occurrence order",
			topics: []string{"budget", "taxes", "parks", "Budget"},
			want:   []string{"budget", "parks"},
		},
		{
			name:   "unknown topics pass through lowercased",
			topics: []string{"Broadband Expansion"},
			want:   []string{"broadband expansion"},
		},
		{
			name:   "blank entries dropped",
			topics: []string{" ", ""},
			want:   nil,
		},
		{
			name:   "empty input",
			topics: nil,
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeTopics(tt.topics))
		})
	}
}

func TestIsRetryable(t *testing.T) {
	base := errors.New("boom")

	assert.True(t, IsRetryable(&RateLimitError{Err: base}))
	assert.True(t, IsRetryable(&TransientError{Err: base}))
	assert.True(t, IsRetryable(fmt.Errorf("wrapped: %w", &RateLimitError{Err: base})))
	assert.False(t, IsRetryable(base))
	assert.False(t, IsRetryable(context.Canceled))
}

func TestRateLimitErrorMessage(t *testing.T) {
	err := &RateLimitError{RetryAfter: 30 * time.Second, Err: errors.New("429")}
	assert.Contains(t, err.Error(), "retry after 30s")
	assert.ErrorContains(t, err, "429")
}

func TestRateLimitBackOffHonorsRetryAfter(t *testing.T) {
	base := errors.New("429")

	t.Run("hint stretches the next delay", func(t *testing.T) {
		b := &rateLimitBackOff{BackOff: backoff.NewConstantBackOff(10 * time.Millisecond)}
		b.observe(&RateLimitError{RetryAfter: 250 * time.Millisecond, Err: base})
		assert.Equal(t, 250*time.Millisecond, b.NextBackOff())
	})

	t.Run("hint applies once", func(t *testing.T) {
		b := &rateLimitBackOff{BackOff: backoff.NewConstantBackOff(10 * time.Millisecond)}
		b.observe(&RateLimitError{RetryAfter: 250 * time.Millisecond, Err: base})
		b.NextBackOff()
		assert.Equal(t, 10*time.Millisecond, b.NextBackOff())
	})

	t.Run("longer schedule wins over a short hint", func(t *testing.T) {
		b := &rateLimitBackOff{BackOff: backoff.NewConstantBackOff(time.Second)}
		b.observe(&RateLimitError{RetryAfter: 100 * time.Millisecond, Err: base})
		assert.Equal(t, time.Second, b.NextBackOff())
	})

	t.Run("hintless failures do not stretch", func(t *testing.T) {
		b := &rateLimitBackOff{BackOff: backoff.NewConstantBackOff(10 * time.Millisecond)}
		b.observe(&TransientError{Err: errors.New("503")})
		assert.Equal(t, 10*time.Millisecond, b.NextBackOff())
	})

	t.Run("stop passes through unstretched", func(t *testing.T) {
		b := &rateLimitBackOff{BackOff: &backoff.StopBackOff{}}
		b.observe(&RateLimitError{RetryAfter: 250 * time.Millisecond, Err: base})
		assert.Equal(t, backoff.Stop, b.NextBackOff())
	})

	t.Run("reset clears a pending hint", func(t *testing.T) {
		b := &rateLimitBackOff{BackOff: backoff.NewConstantBackOff(10 * time.Millisecond)}
		b.observe(&RateLimitError{RetryAfter: 250 * time.Millisecond, Err: base})
		b.Reset()
		assert.Equal(t, 10*time.Millisecond, b.NextBackOff())
	})
}
