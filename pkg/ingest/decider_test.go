package ingest

import (
	"testing"

	"github.com/Engagic/engagic/pkg/identity"
	"github.com/Engagic/engagic/pkg/models"
	"github.com/stretchr/testify/assert"
)

func TestMeetingNeedsProcessing(t *testing.T) {
	packetMeeting := &models.Meeting{PacketURLs: []string{"https://example.com/packet.pdf"}}

	tests := []struct {
		name    string
		meeting *models.Meeting
		items   []models.AgendaItem
		want    bool
	}{
		{
			name:    "unsummarized item",
			meeting: packetMeeting,
			items:   []models.AgendaItem{{Title: "Ordinance"}},
			want:    true,
		},
		{
			name:    "all items summarized",
			meeting: packetMeeting,
			items:   []models.AgendaItem{{Title: "Ordinance", Summary: "done"}},
			want:    false,
		},
		{
			name:    "all items filtered",
			meeting: packetMeeting,
			items:   []models.AgendaItem{{Title: "Roll Call", FilterReason: "meeting_mechanics"}},
			want:    false,
		},
		{
			name:    "mixed: one processable among filtered and summarized",
			meeting: packetMeeting,
			items: []models.AgendaItem{
				{Title: "Roll Call", FilterReason: "meeting_mechanics"},
				{Title: "Old item", Summary: "done"},
				{Title: "New ordinance"},
			},
			want: true,
		},
		{
			name:    "no items but packet present",
			meeting: packetMeeting,
			want:    true,
		},
		{
			name:    "no items, packet already summarized",
			meeting: &models.Meeting{PacketURLs: []string{"https://example.com/p.pdf"}, Summary: "done"},
			want:    false,
		},
		{
			name:    "no items, agenda only (display-only meeting)",
			meeting: &models.Meeting{AgendaURL: "https://example.com/agenda"},
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MeetingNeedsProcessing(tt.meeting, tt.items))
		})
	}
}

func TestMatterNeedsProcessing(t *testing.T) {
	attachments := []models.Attachment{{Name: "Staff report", URL: "https://example.com/report.pdf"}}
	hash := identity.HashAttachments(attachments)

	t.Run("no attachments", func(t *testing.T) {
		assert.False(t, MatterNeedsProcessing(&models.Matter{}))
	})

	t.Run("attachments, no canonical summary", func(t *testing.T) {
		assert.True(t, MatterNeedsProcessing(&models.Matter{Attachments: attachments}))
	})

	t.Run("summary current with attachments", func(t *testing.T) {
		m := &models.Matter{
			Attachments:      attachments,
			CanonicalSummary: "summary",
			Metadata:         models.MatterMetadata{AttachmentHash: hash},
		}
		assert.False(t, MatterNeedsProcessing(m))
	})

	t.Run("attachment set changed since summary", func(t *testing.T) {
		m := &models.Matter{
			Attachments: append(attachments, models.Attachment{
				Name: "Substitute bill", URL: "https://example.com/sub.pdf",
			}),
			CanonicalSummary: "summary",
			Metadata:         models.MatterMetadata{AttachmentHash: hash},
		}
		assert.True(t, MatterNeedsProcessing(m))
	})
}
