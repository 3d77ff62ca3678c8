package ingest

import "strings"

// proceduralTypes are vendor matter_type values that never carry substantive
// content worth tracking or summarizing.
var proceduralTypes = map[string]string{
	"ceremonial":        "ceremonial",
	"proclamation":      "ceremonial",
	"commendation":      "ceremonial",
	"presentation":      "ceremonial",
	"closed session":    "closed_session",
	"executive session": "closed_session",
	"communication":     "communication",
	"minutes":           "minutes",
}

// proceduralTitleMarkers are phrases that mark an agenda item as meeting
// mechanics rather than legislation. Matched as lowercase substrings.
var proceduralTitleMarkers = []struct {
	marker string
	reason string
}{
	{"public comment", "public_comment"},
	{"public hearing comment", "public_comment"},
	{"closed session", "closed_session"},
	{"call to order", "meeting_mechanics"},
	{"roll call", "meeting_mechanics"},
	{"pledge of allegiance", "meeting_mechanics"},
	{"invocation", "meeting_mechanics"},
	{"adjournment", "meeting_mechanics"},
	{"approval of the minutes", "minutes"},
	{"approval of minutes", "minutes"},
	{"agenda changes", "meeting_mechanics"},
}

// MatterFilter classifies agenda items as procedural. Filtered items keep
// their row but never get a matter ID or a summary.
type MatterFilter struct {
	types  map[string]string
	titles []struct {
		marker string
		reason string
	}
}

// NewMatterFilter returns the static policy. extraTypes adds city-specific
// matter_type exclusions on top of the built-in list.
func NewMatterFilter(extraTypes map[string]string) *MatterFilter {
	types := make(map[string]string, len(proceduralTypes)+len(extraTypes))
	for k, v := range proceduralTypes {
		types[k] = v
	}
	for k, v := range extraTypes {
		types[strings.ToLower(k)] = v
	}
	return &MatterFilter{types: types, titles: proceduralTitleMarkers}
}

// FilterReason returns a non-empty reason code when the item is procedural,
// empty when the item should be tracked and summarized.
func (f *MatterFilter) FilterReason(title, matterType string) string {
	if matterType != "" {
		if reason, ok := f.types[strings.ToLower(strings.TrimSpace(matterType))]; ok {
			return reason
		}
	}
	lower := strings.ToLower(title)
	for _, t := range f.titles {
		if strings.Contains(lower, t.marker) {
			return t.reason
		}
	}
	return ""
}
