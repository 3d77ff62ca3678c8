package models

import "time"

// MatterMetadata is the jsonb metadata column on a matter.
type MatterMetadata struct {
	AttachmentHash string `json:"attachment_hash,omitempty"`
}

// Matter is a legislative item (ordinance, resolution, bill) tracked across
// its appearances in different meetings. ID format: "{banana}_{16-hex-sha256}".
type Matter struct {
	ID               string         `json:"id"`
	Banana           string         `json:"banana"`
	MatterFile       string         `json:"matter_file,omitempty"` // public identifier, e.g. "BL2025-1098"
	MatterID         string         `json:"matter_id,omitempty"`   // vendor backend identifier
	MatterType       string         `json:"matter_type,omitempty"`
	Title            string         `json:"title,omitempty"`
	Sponsors         []string       `json:"sponsors,omitempty"`
	CanonicalSummary string         `json:"canonical_summary,omitempty"`
	CanonicalTopics  []string       `json:"canonical_topics,omitempty"`
	Attachments      []Attachment   `json:"attachments,omitempty"`
	Metadata         MatterMetadata `json:"metadata"`
	FirstSeen        *time.Time     `json:"first_seen,omitempty"`
	LastSeen         *time.Time     `json:"last_seen,omitempty"`
	AppearanceCount  int            `json:"appearance_count"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// MatterAppearance records one instance of a matter on one meeting's agenda.
// (MatterID, MeetingID, ItemID) is unique.
type MatterAppearance struct {
	MatterID    string `json:"matter_id"`
	MeetingID   string `json:"meeting_id"`
	ItemID      string `json:"item_id"`
	Committee   string `json:"committee,omitempty"`
	Action      string `json:"action,omitempty"`
	VoteOutcome string `json:"vote_outcome,omitempty"`
	VoteTally   string `json:"vote_tally,omitempty"`
	Sequence    int    `json:"sequence"`
}

// AgendaItem is one row on a meeting agenda. ID format: "{meeting_id}_{vendor_item_id}".
type AgendaItem struct {
	ID             string       `json:"id"`
	MeetingID      string       `json:"meeting_id"`
	Title          string       `json:"title"`
	Sequence       int          `json:"sequence"`
	Attachments    []Attachment `json:"attachments,omitempty"`
	AttachmentHash string       `json:"attachment_hash,omitempty"`
	MatterID       string       `json:"matter_id,omitempty"` // empty = not tracked as a matter
	MatterFile     string       `json:"matter_file,omitempty"`
	MatterType     string       `json:"matter_type,omitempty"`
	AgendaNumber   string       `json:"agenda_number,omitempty"`
	Sponsors       []string     `json:"sponsors,omitempty"`
	Summary        string       `json:"summary,omitempty"`
	Topics         []string     `json:"topics,omitempty"`
	FilterReason   string       `json:"filter_reason,omitempty"` // non-empty = intentionally skipped
}

// Processable reports whether the item is eligible for summarization:
// it has no summary yet and was not filtered as procedural.
func (i *AgendaItem) Processable() bool {
	return i.Summary == "" && i.FilterReason == ""
}
