package queue

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMeetingPriority(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		date     *time.Time
		expected int
	}{
		{
			name:     "meeting today gets maximum priority",
			date:     timePtr(now),
			expected: 150,
		},
		{
			name:     "meeting in 10 days",
			date:     timePtr(now.AddDate(0, 0, 10)),
			expected: 140,
		},
		{
			name:     "meeting 10 days ago scores the same as 10 days out",
			date:     timePtr(now.AddDate(0, 0, -10)),
			expected: 140,
		},
		{
			name:     "meeting 150 days out floors at zero",
			date:     timePtr(now.AddDate(0, 0, 150)),
			expected: 0,
		},
		{
			name:     "meeting a year ago floors at zero",
			date:     timePtr(now.AddDate(-1, 0, 0)),
			expected: 0,
		},
		{
			name:     "nil date goes to the back of the line",
			date:     nil,
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MeetingPriority(tt.date, now))
		})
	}
}

func TestMeetingPrioritySymmetric(t *testing.T) {
	now := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	for days := 0; days < 150; days++ {
		past := now.AddDate(0, 0, -days)
		future := now.AddDate(0, 0, days)
		assert.Equal(t, MeetingPriority(&past, now), MeetingPriority(&future, now),
			"priority should be symmetric around today at %d days", days)
	}
}

func TestMatterPriority(t *testing.T) {
	assert.Equal(t, 50, MatterPriority())
}

func TestPermanentError(t *testing.T) {
	base := errors.New("meeting not found")

	t.Run("wrapped error is permanent", func(t *testing.T) {
		err := Permanent(base)
		assert.True(t, IsPermanent(err))
		assert.Equal(t, "meeting not found", err.Error())
	})

	t.Run("unwrapped error is retryable", func(t *testing.T) {
		assert.False(t, IsPermanent(base))
	})

	t.Run("permanence survives further wrapping", func(t *testing.T) {
		err := fmt.Errorf("processing meeting abc: %w", Permanent(base))
		assert.True(t, IsPermanent(err))
		assert.True(t, errors.Is(err, base))
	})

	t.Run("nil stays nil", func(t *testing.T) {
		assert.NoError(t, Permanent(nil))
	})
}

func TestBananaFilter(t *testing.T) {
	assert.Equal(t, ` AND banana = $1`, bananaFilter("oaklandca"))
	assert.Equal(t, ``, bananaFilter(""))
}

func timePtr(t time.Time) *time.Time {
	return &t
}
