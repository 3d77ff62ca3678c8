package models

import (
	"encoding/json"
	"fmt"
)

// StringList accepts either a single JSON string or an array of strings.
// Vendor adapters emit packet_url both ways.
type StringList []string

// UnmarshalJSON implements json.Unmarshaler.
func (s *StringList) UnmarshalJSON(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if data[0] == '"' {
		var single string
		if err := json.Unmarshal(data, &single); err != nil {
			return err
		}
		if single != "" {
			*s = StringList{single}
		}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("packet_url must be a string or string array: %w", err)
	}
	*s = StringList(many)
	return nil
}

// MeetingRecord is the vendor adapter contract. Adapters are responsible for
// stable meeting_id values; everything else is best-effort. Records that fail
// validation are rejected and the meeting is skipped with a logged reason.
type MeetingRecord struct {
	MeetingID     string         `json:"meeting_id" validate:"required"`
	Title         string         `json:"title" validate:"required"`
	Start         string         `json:"start,omitempty"` // ISO-8601 string, not a datetime
	Location      string         `json:"location,omitempty"`
	AgendaURL     string         `json:"agenda_url,omitempty"`
	PacketURL     StringList     `json:"packet_url,omitempty"`
	Items         []ItemRecord   `json:"items,omitempty" validate:"omitempty,dive"`
	Participation *Participation `json:"participation,omitempty"`
	MeetingStatus MeetingStatus  `json:"meeting_status,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"` // vendor-specific, ignored by core
}

// HasSource reports whether the record carries at least one source URL.
// Validated separately from struct tags because either URL satisfies it.
func (r *MeetingRecord) HasSource() bool {
	return r.AgendaURL != "" || len(r.PacketURL) > 0
}

// ItemRecord is one agenda row as reported by a vendor adapter.
type ItemRecord struct {
	ItemID       string             `json:"item_id" validate:"required"`
	Title        string             `json:"title" validate:"required"`
	Sequence     int                `json:"sequence" validate:"gte=0"`
	Attachments  []AttachmentRecord `json:"attachments,omitempty" validate:"omitempty,dive"`
	MatterID     string             `json:"matter_id,omitempty"`   // vendor backend ID
	MatterFile   string             `json:"matter_file,omitempty"` // public file ID, e.g. "BL2025-1098"
	MatterType   string             `json:"matter_type,omitempty"`
	AgendaNumber string             `json:"agenda_number,omitempty"`
	Sponsors     []string           `json:"sponsors,omitempty"`
	Votes        []ItemVoteRecord   `json:"votes,omitempty" validate:"omitempty,dive"`
}

// AttachmentRecord is one attachment as reported by a vendor adapter.
type AttachmentRecord struct {
	Name string `json:"name"`
	URL  string `json:"url" validate:"required"`
	Type string `json:"type,omitempty" validate:"omitempty,oneof=pdf doc spreadsheet unknown"`
}

// ItemVoteRecord is one recorded vote as reported by a vendor adapter.
type ItemVoteRecord struct {
	Name     string         `json:"name" validate:"required"`
	Vote     string         `json:"vote" validate:"required"`
	Sequence int            `json:"sequence,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}
