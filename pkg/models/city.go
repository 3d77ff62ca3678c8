package models

import "time"

// City is the tenant. Banana is a short alphanumeric slug of city name plus
// state (e.g. "paloaltoCA") and is the primary key everywhere. Cities are
// created by operators, never by the pipeline.
type City struct {
	Banana    string    `json:"banana"`
	Name      string    `json:"name"`
	State     string    `json:"state"`
	Vendor    string    `json:"vendor"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Committee is a civic body within a city, matched to meetings by title.
type Committee struct {
	ID     string `json:"id"`
	Banana string `json:"banana"`
	Name   string `json:"name"`
}

// CouncilMember is a voting member of a civic body, deduplicated per city by
// normalized name.
type CouncilMember struct {
	ID             string `json:"id"`
	Banana         string `json:"banana"`
	Name           string `json:"name"`
	NormalizedName string `json:"normalized_name"`
}

// Vote is one member's recorded vote on a matter at a meeting.
// (MemberID, MatterID, MeetingID) is unique.
type Vote struct {
	MemberID  string         `json:"member_id"`
	MatterID  string         `json:"matter_id"`
	MeetingID string         `json:"meeting_id"`
	Vote      string         `json:"vote"`
	Sequence  int            `json:"sequence,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}
