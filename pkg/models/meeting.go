// Package models defines the canonical civic entities, the vendor adapter
// contract, and the queue payload union shared across the pipeline.
package models

import "time"

// Attachment is one document attached to an agenda item or matter.
type Attachment struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Type string `json:"type,omitempty"` // "pdf", "doc", "spreadsheet", "unknown"
}

// Participation holds how the public can attend or contact a meeting.
// Field-level merging uses first-non-empty-wins semantics.
type Participation struct {
	Email         string   `json:"email,omitempty"`
	Phone         string   `json:"phone,omitempty"`
	VirtualURL    string   `json:"virtual_url,omitempty"`
	StreamingURLs []string `json:"streaming_urls,omitempty"`
	MeetingID     string   `json:"meeting_id,omitempty"`
	Location      string   `json:"location,omitempty"`
}

// IsEmpty reports whether no participation detail is set.
func (p *Participation) IsEmpty() bool {
	if p == nil {
		return true
	}
	return p.Email == "" && p.Phone == "" && p.VirtualURL == "" &&
		len(p.StreamingURLs) == 0 && p.MeetingID == "" && p.Location == ""
}

// Merge fills empty fields of p from other. Existing values win.
func (p *Participation) Merge(other *Participation) {
	if other == nil {
		return
	}
	if p.Email == "" {
		p.Email = other.Email
	}
	if p.Phone == "" {
		p.Phone = other.Phone
	}
	if p.VirtualURL == "" {
		p.VirtualURL = other.VirtualURL
	}
	if len(p.StreamingURLs) == 0 {
		p.StreamingURLs = other.StreamingURLs
	}
	if p.MeetingID == "" {
		p.MeetingID = other.MeetingID
	}
	if p.Location == "" {
		p.Location = other.Location
	}
}

// Meeting is one scheduled meeting of a civic body.
// Invariant: at least one of AgendaURL or PacketURLs is present.
type Meeting struct {
	ID               string           `json:"id"`
	Banana           string           `json:"banana"`
	Title            string           `json:"title"`
	Date             *time.Time       `json:"date,omitempty"`
	AgendaURL        string           `json:"agenda_url,omitempty"`
	PacketURLs       []string         `json:"packet_urls,omitempty"`
	Summary          string           `json:"summary,omitempty"`
	Topics           []string         `json:"topics,omitempty"`
	Participation    *Participation   `json:"participation,omitempty"`
	Status           MeetingStatus    `json:"status"`
	ProcessingStatus ProcessingStatus `json:"processing_status"`
	ProcessingMethod string           `json:"processing_method,omitempty"`
	ProcessingTime   float64          `json:"processing_time,omitempty"` // seconds
	CommitteeID      string           `json:"committee_id,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// SourceURL returns the queue dedup key for this meeting: the agenda URL if
// present, otherwise the first packet URL.
func (m *Meeting) SourceURL() string {
	if m.AgendaURL != "" {
		return m.AgendaURL
	}
	if len(m.PacketURLs) > 0 {
		return m.PacketURLs[0]
	}
	return ""
}

// HasSource reports whether the meeting satisfies the source-URL invariant.
func (m *Meeting) HasSource() bool {
	return m.SourceURL() != ""
}
