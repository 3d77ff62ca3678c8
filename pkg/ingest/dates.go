package ingest

import (
	"strings"
	"time"
)

// dateLayouts are tried in order after RFC 3339. Vendors emit all of these.
var dateLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"January 2, 2006 3:04 PM",
	"January 2, 2006",
	"Jan 2, 2006 3:04 PM",
	"Jan 2, 2006",
	"1/2/2006 3:04 PM",
	"1/2/2006",
}

// ParseMeetingDate parses a vendor start string. Empty input yields a nil
// date, which is permitted; an unparseable non-empty input is an error so the
// caller can log it and still proceed without a date.
func ParseMeetingDate(start string) (*time.Time, error) {
	start = strings.TrimSpace(start)
	if start == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, start); err == nil {
		return &t, nil
	}
	var lastErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, start)
		if err == nil {
			return &t, nil
		}
		lastErr = err
	}
	return nil, lastErr
}
