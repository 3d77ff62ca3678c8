package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringListSingle(t *testing.T) {
	var rec MeetingRecord
	err := json.Unmarshal([]byte(`{"meeting_id":"m1","title":"Council","packet_url":"https://x/packet.pdf"}`), &rec)
	require.NoError(t, err)
	assert.Equal(t, StringList{"https://x/packet.pdf"}, rec.PacketURL)
}

func TestStringListArray(t *testing.T) {
	var rec MeetingRecord
	err := json.Unmarshal([]byte(`{"meeting_id":"m1","title":"Council","packet_url":["https://x/a.pdf","https://x/b.pdf"]}`), &rec)
	require.NoError(t, err)
	assert.Equal(t, StringList{"https://x/a.pdf", "https://x/b.pdf"}, rec.PacketURL)
}

func TestStringListRejectsObject(t *testing.T) {
	var s StringList
	assert.Error(t, s.UnmarshalJSON([]byte(`{"url":"x"}`)))
}

func TestMeetingRecordHasSource(t *testing.T) {
	rec := MeetingRecord{MeetingID: "m1", Title: "Council"}
	assert.False(t, rec.HasSource())

	rec.AgendaURL = "https://x/agenda"
	assert.True(t, rec.HasSource())

	rec = MeetingRecord{MeetingID: "m1", Title: "Council", PacketURL: StringList{"https://x/p.pdf"}}
	assert.True(t, rec.HasSource())
}

func TestParticipationMerge(t *testing.T) {
	p := &Participation{Email: "clerk@city.gov"}
	p.Merge(&Participation{Email: "other@city.gov", Phone: "555-1234", VirtualURL: "https://zoom.us/j/1"})

	assert.Equal(t, "clerk@city.gov", p.Email) // existing wins
	assert.Equal(t, "555-1234", p.Phone)
	assert.Equal(t, "https://zoom.us/j/1", p.VirtualURL)

	p.Merge(nil) // no-op
	assert.Equal(t, "555-1234", p.Phone)
}

func TestParticipationIsEmpty(t *testing.T) {
	var p *Participation
	assert.True(t, p.IsEmpty())
	assert.True(t, (&Participation{}).IsEmpty())
	assert.False(t, (&Participation{Phone: "555"}).IsEmpty())
}

func TestEnumValidity(t *testing.T) {
	assert.True(t, ProcessingPending.IsValid())
	assert.False(t, ProcessingStatus("queued").IsValid())
	assert.True(t, ProcessingCompleted.IsTerminal())
	assert.False(t, ProcessingInProgress.IsTerminal())

	assert.True(t, JobDeadLetter.IsValid())
	assert.True(t, JobDeadLetter.IsTerminal())
	assert.False(t, JobPending.IsTerminal())

	assert.True(t, JobTypeMatter.IsValid())
	assert.False(t, JobType("email").IsValid())

	assert.True(t, MeetingCancelled.IsValid())
	assert.False(t, MeetingStatus("deleted").IsValid())
}
