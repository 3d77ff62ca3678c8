package ingest

import (
	"github.com/Engagic/engagic/pkg/identity"
	"github.com/Engagic/engagic/pkg/models"
)

// MeetingNeedsProcessing decides whether a meeting job should be enqueued.
// True when at least one item is still summarizable, or when the meeting has
// no item structure but a packet that has never been summarized monolithically.
func MeetingNeedsProcessing(meeting *models.Meeting, items []models.AgendaItem) bool {
	if len(items) > 0 {
		for i := range items {
			if items[i].Processable() {
				return true
			}
		}
		return false
	}
	return len(meeting.PacketURLs) > 0 && meeting.Summary == ""
}

// MatterNeedsProcessing decides whether a matter needs (re-)summarization:
// it has attachments and either no canonical summary yet or the attachment
// set changed since the summary was written.
func MatterNeedsProcessing(matter *models.Matter) bool {
	if len(matter.Attachments) == 0 {
		return false
	}
	if matter.CanonicalSummary == "" {
		return true
	}
	return matter.Metadata.AttachmentHash != identity.HashAttachments(matter.Attachments)
}
