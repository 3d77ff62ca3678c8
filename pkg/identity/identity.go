// Package identity generates deterministic, collision-resistant identifiers
// for meetings, matters, and members. Every function here is a pure function
// of its inputs so resyncs are idempotent.
package identity

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ErrNoIdentifier is returned when a matter carries neither a file number nor
// a vendor ID and its title does not qualify for the normalized-title path.
// Callers treat this as "do not track as a matter", not as a failure.
var ErrNoIdentifier = errors.New("matter has no usable identifier")

var matterIDPattern = regexp.MustCompile(`^[A-Za-z0-9]+_[0-9a-f]{16}$`)

// MatterID derives the canonical matter ID for a city.
// Key = "{banana}:{matterFile}:{matterID}"; ID = banana + "_" + first 16 hex
// chars of SHA-256(key). matterFile is the preferred public identifier and
// matterID the vendor fallback; both blank returns ErrNoIdentifier.
func MatterID(banana, matterFile, matterID string) (string, error) {
	if banana == "" {
		return "", errors.New("banana is required")
	}
	if matterFile == "" && matterID == "" {
		return "", ErrNoIdentifier
	}
	key := fmt.Sprintf("%s:%s:%s", banana, matterFile, matterID)
	sum := sha256.Sum256([]byte(key))
	return fmt.Sprintf("%s_%s", banana, hex.EncodeToString(sum[:])[:16]), nil
}

// readingPrefixes are procedural prefixes stripped before a title is hashed.
var readingPrefixes = []string{
	"first reading:",
	"second reading:",
	"third reading:",
	"final reading:",
	"reintroduced first reading:",
	"reintroduced second reading:",
	"reintroduced:",
	"introduction:",
	"consent:",
}

// titleStopList contains generic titles that never identify a matter.
var titleStopList = map[string]struct{}{
	"public comment":         {},
	"public comments":        {},
	"closed session":         {},
	"consent calendar":       {},
	"approval of minutes":    {},
	"adjournment":            {},
	"roll call":              {},
	"call to order":          {},
	"pledge of allegiance":   {},
	"announcements":          {},
	"general public comment": {},
}

const minTitleLength = 30

var whitespaceRun = regexp.MustCompile(`\s+`)

// NormalizeTitle lowercases a title, strips reading prefixes, and collapses
// whitespace. The result is the hashing key for the last-resort ID path.
func NormalizeTitle(title string) string {
	t := strings.ToLower(strings.TrimSpace(title))
	for changed := true; changed; {
		changed = false
		for _, prefix := range readingPrefixes {
			if strings.HasPrefix(t, prefix) {
				t = strings.TrimSpace(strings.TrimPrefix(t, prefix))
				changed = true
			}
		}
	}
	return whitespaceRun.ReplaceAllString(t, " ")
}

// MatterIDFromTitle derives a matter ID from a normalized title when neither
// matter_file nor matter_id exists. Short or stop-listed titles return
// ErrNoIdentifier: those items are not tracked as matters.
func MatterIDFromTitle(banana, title string) (string, error) {
	if banana == "" {
		return "", errors.New("banana is required")
	}
	normalized := NormalizeTitle(title)
	if len(normalized) < minTitleLength {
		return "", ErrNoIdentifier
	}
	if _, stopped := titleStopList[normalized]; stopped {
		return "", ErrNoIdentifier
	}
	key := fmt.Sprintf("%s:title:%s", banana, normalized)
	sum := sha256.Sum256([]byte(key))
	return fmt.Sprintf("%s_%s", banana, hex.EncodeToString(sum[:])[:16]), nil
}

// MeetingID derives the canonical meeting ID: banana + "_" + 8-char MD5 over
// "{banana}:{vendorID}:{date-iso}:{title}". A nil date hashes the empty
// string so date-less meetings stay idempotent across resyncs.
func MeetingID(banana, vendorID string, date *time.Time, title string) string {
	dateISO := ""
	if date != nil {
		dateISO = date.UTC().Format("2006-01-02")
	}
	key := fmt.Sprintf("%s:%s:%s:%s", banana, vendorID, dateISO, title)
	sum := md5.Sum([]byte(key))
	return fmt.Sprintf("%s_%s", banana, hex.EncodeToString(sum[:])[:8])
}

// ItemID derives the agenda item ID: "{meetingID}_{vendorItemID}".
func ItemID(meetingID, vendorItemID string) string {
	return fmt.Sprintf("%s_%s", meetingID, vendorItemID)
}

// MemberID derives a deterministic council member ID from the normalized name.
func MemberID(banana, normalizedName string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:member:%s", banana, normalizedName)))
	return fmt.Sprintf("%s_%s", banana, hex.EncodeToString(sum[:])[:16])
}

// NormalizeMemberName collapses whitespace and case so sponsor names from
// different meetings dedupe to one member row.
func NormalizeMemberName(name string) string {
	return whitespaceRun.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), " ")
}

// ValidMatterID reports whether id matches the canonical matter ID shape.
func ValidMatterID(id string) bool {
	return matterIDPattern.MatchString(id)
}

// BananaFromMatterID extracts the city slug by splitting on the last "_".
func BananaFromMatterID(id string) (string, error) {
	idx := strings.LastIndex(id, "_")
	if idx <= 0 {
		return "", fmt.Errorf("malformed matter ID %q", id)
	}
	return id[:idx], nil
}
