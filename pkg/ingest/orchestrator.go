// Package ingest turns vendor adapter records into persisted meetings,
// items, matters, and appearances, then enqueues follow-up processing.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Engagic/engagic/pkg/identity"
	"github.com/Engagic/engagic/pkg/models"
	"github.com/Engagic/engagic/pkg/queue"
	"github.com/Engagic/engagic/pkg/store"
	"github.com/go-playground/validator/v10"
)

// Orchestrator ingests vendor meeting records. Each record is one
// transaction: meeting, matters, items, appearances, sponsors, and votes
// commit together or not at all.
type Orchestrator struct {
	store    *store.Store
	queue    *queue.Queue
	filter   *MatterFilter
	validate *validator.Validate
}

// New creates an Orchestrator with the built-in procedural filter.
func New(st *store.Store, q *queue.Queue) *Orchestrator {
	return &Orchestrator{
		store:    st,
		queue:    q,
		filter:   NewMatterFilter(nil),
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Result reports what one record's ingestion did.
type Result struct {
	MeetingID      string
	Skipped        bool
	SkipReason     string
	Items          int
	MattersCreated int
	MattersUpdated int
	Enqueued       bool
	JobID          string
}

// Stats accumulates results across a batch of records.
type Stats struct {
	Meetings       int
	Skipped        int
	Items          int
	MattersCreated int
	MattersUpdated int
	Enqueued       int
}

func (s *Stats) add(r *Result) {
	if r.Skipped {
		s.Skipped++
		return
	}
	s.Meetings++
	s.Items += r.Items
	s.MattersCreated += r.MattersCreated
	s.MattersUpdated += r.MattersUpdated
	if r.Enqueued {
		s.Enqueued++
	}
}

// IngestAll ingests a batch of records for one city. Individual record
// failures are logged and skipped; only infrastructure errors abort the batch.
func (o *Orchestrator) IngestAll(ctx context.Context, banana string, recs []models.MeetingRecord) (*Stats, error) {
	stats := &Stats{}
	for i := range recs {
		result, err := o.IngestMeeting(ctx, banana, &recs[i])
		if err != nil {
			return stats, fmt.Errorf("ingesting record %s: %w", recs[i].MeetingID, err)
		}
		stats.add(result)
	}
	slog.Info("Batch ingested",
		"banana", banana,
		"meetings", stats.Meetings,
		"skipped", stats.Skipped,
		"items", stats.Items,
		"matters_created", stats.MattersCreated,
		"enqueued", stats.Enqueued)
	return stats, nil
}

// IngestMeeting ingests one vendor record. Schema-validation failures are
// reported in the Result, not as errors; database failures roll back the
// whole record and propagate.
func (o *Orchestrator) IngestMeeting(ctx context.Context, banana string, rec *models.MeetingRecord) (*Result, error) {
	log := slog.With("banana", banana, "vendor_meeting_id", rec.MeetingID)

	if reason := o.validateRecord(rec); reason != "" {
		log.Warn("Skipping record: schema validation failed", "reason", reason)
		return &Result{Skipped: true, SkipReason: reason}, nil
	}

	date, err := ParseMeetingDate(rec.Start)
	if err != nil {
		log.Warn("Unparseable meeting date, proceeding without one", "start", rec.Start, "error", err)
	}

	meetingID := identity.MeetingID(banana, rec.MeetingID, date, rec.Title)
	result := &Result{MeetingID: meetingID}

	meeting := &models.Meeting{
		ID:            meetingID,
		Banana:        banana,
		Title:         rec.Title,
		Date:          date,
		AgendaURL:     rec.AgendaURL,
		PacketURLs:    rec.PacketURL,
		Participation: rec.Participation,
		Status:        rec.MeetingStatus,
	}
	if meeting.Status == "" {
		meeting.Status = models.MeetingNormal
	}

	err = o.store.WithTx(ctx, func(tx *store.Store) error {
		committeeID, err := tx.Committees.FindByMeetingTitle(ctx, banana, rec.Title)
		if err != nil {
			return err
		}
		meeting.CommitteeID = committeeID

		if err := tx.Meetings.Upsert(ctx, meeting); err != nil {
			return err
		}

		items := o.buildItems(banana, meetingID, rec.Items)
		result.Items = len(items)

		if err := o.applyMatters(ctx, tx, banana, meeting, rec.Items, items, result); err != nil {
			return err
		}

		if err := tx.Items.UpsertBatch(ctx, items); err != nil {
			return err
		}

		for i := range items {
			if items[i].MatterID == "" {
				continue
			}
			appearance := &models.MatterAppearance{
				MatterID:  items[i].MatterID,
				MeetingID: meetingID,
				ItemID:    items[i].ID,
				Sequence:  items[i].Sequence,
			}
			if err := tx.Appearances.Upsert(ctx, appearance); err != nil {
				return err
			}
		}

		// The enqueue decision reads the stored rows, not the in-memory
		// record: the upsert preserves summaries from earlier processing, and
		// deciding on blank fields would re-enqueue already-summarized work.
		itemsAfter, err := tx.Items.ForMeeting(ctx, meetingID)
		if err != nil {
			return err
		}
		stored, err := tx.Meetings.Get(ctx, meetingID)
		if err != nil {
			return err
		}
		if !MeetingNeedsProcessing(stored, itemsAfter) {
			return nil
		}

		// Enqueueing inside the transaction keeps the meeting and its job
		// atomic; the queue lives in the same database.
		jobID, err := o.queue.WithTx(tx.DB()).EnqueueMeetingJob(ctx, stored, queue.MeetingPriority(stored.Date, time.Now()))
		switch {
		case errors.Is(err, queue.ErrAlreadyQueued):
			log.Debug("Meeting already queued", "meeting_id", meetingID)
		case err != nil:
			return err
		default:
			result.Enqueued = true
			result.JobID = jobID
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to ingest meeting %s: %w", meetingID, err)
	}

	log.Info("Meeting ingested",
		"meeting_id", meetingID,
		"items", result.Items,
		"matters_created", result.MattersCreated,
		"enqueued", result.Enqueued)
	return result, nil
}

// validateRecord returns a reason code when the record cannot be ingested.
func (o *Orchestrator) validateRecord(rec *models.MeetingRecord) string {
	if err := o.validate.Struct(rec); err != nil {
		return fmt.Sprintf("schema: %v", err)
	}
	if !rec.HasSource() {
		return "schema: record has neither agenda_url nor packet_url"
	}
	return ""
}

// buildItems derives agenda items from vendor item records: stable IDs,
// attachment hashes, matter IDs, and procedural filtering.
func (o *Orchestrator) buildItems(banana, meetingID string, recs []models.ItemRecord) []models.AgendaItem {
	items := make([]models.AgendaItem, 0, len(recs))
	for i := range recs {
		ir := &recs[i]
		item := models.AgendaItem{
			ID:           identity.ItemID(meetingID, ir.ItemID),
			MeetingID:    meetingID,
			Title:        ir.Title,
			Sequence:     ir.Sequence,
			Attachments:  toAttachments(ir.Attachments),
			MatterFile:   ir.MatterFile,
			MatterType:   ir.MatterType,
			AgendaNumber: ir.AgendaNumber,
			Sponsors:     ir.Sponsors,
			FilterReason: o.filter.FilterReason(ir.Title, ir.MatterType),
		}
		item.AttachmentHash = identity.HashAttachments(item.Attachments)

		// Procedural items keep their row but are never tracked as matters.
		if item.FilterReason == "" {
			item.MatterID = o.matterIDFor(banana, ir)
		}
		items = append(items, item)
	}
	return items
}

// matterIDFor derives the canonical matter ID from vendor identifiers,
// falling back to the normalized title when the vendor exposes none.
func (o *Orchestrator) matterIDFor(banana string, ir *models.ItemRecord) string {
	id, err := identity.MatterID(banana, ir.MatterFile, ir.MatterID)
	if err == nil {
		return id
	}
	if !errors.Is(err, identity.ErrNoIdentifier) {
		return ""
	}
	id, err = identity.MatterIDFromTitle(banana, ir.Title)
	if err != nil {
		return ""
	}
	return id
}

// applyMatters inserts or updates the matter behind each tracked item and
// applies sponsorships and votes. Runs inside the ingest transaction.
func (o *Orchestrator) applyMatters(ctx context.Context, tx *store.Store, banana string, meeting *models.Meeting, recs []models.ItemRecord, items []models.AgendaItem, result *Result) error {
	seen := make(map[string]bool)

	for i := range items {
		matterID := items[i].MatterID
		if matterID == "" {
			continue
		}
		ir := &recs[i]

		if !seen[matterID] {
			seen[matterID] = true
			created, err := o.upsertMatter(ctx, tx, banana, meeting, matterID, ir, items[i].Attachments)
			if err != nil {
				return err
			}
			if created {
				result.MattersCreated++
			} else {
				result.MattersUpdated++
			}
		}

		if err := o.applySponsorsAndVotes(ctx, tx, banana, meeting.ID, matterID, ir); err != nil {
			return err
		}
	}
	return nil
}

// upsertMatter creates the matter on first sighting or records a new
// appearance on an existing one. Reports whether the matter was created.
// metadata.attachment_hash is never written here; it belongs to the
// processor, which records the set each canonical summary was computed from.
func (o *Orchestrator) upsertMatter(ctx context.Context, tx *store.Store, banana string, meeting *models.Meeting, matterID string, ir *models.ItemRecord, attachments []models.Attachment) (bool, error) {
	_, err := tx.Matters.Get(ctx, matterID)
	if store.IsNotFound(err) {
		matter := &models.Matter{
			ID:          matterID,
			Banana:      banana,
			MatterFile:  ir.MatterFile,
			MatterID:    ir.MatterID,
			MatterType:  ir.MatterType,
			Title:       ir.Title,
			Sponsors:    ir.Sponsors,
			Attachments: attachments,
			FirstSeen:   meeting.Date,
		}
		if err := tx.Matters.Insert(ctx, matter); err != nil {
			return false, err
		}
		return true, nil
	}
	if err != nil {
		return false, err
	}

	// Re-ingesting a meeting the matter already appeared on is a no-op.
	present, err := tx.Appearances.Exists(ctx, matterID, meeting.ID)
	if err != nil {
		return false, err
	}
	if present {
		return false, nil
	}
	return false, tx.Matters.RecordAppearance(ctx, matterID, meeting.Date, attachments)
}

func (o *Orchestrator) applySponsorsAndVotes(ctx context.Context, tx *store.Store, banana, meetingID, matterID string, ir *models.ItemRecord) error {
	for _, name := range ir.Sponsors {
		memberID, err := tx.Members.UpsertByName(ctx, banana, name)
		if err != nil {
			return err
		}
		if err := tx.Members.AddSponsorship(ctx, memberID, matterID); err != nil {
			return err
		}
	}
	for _, vr := range ir.Votes {
		memberID, err := tx.Members.UpsertByName(ctx, banana, vr.Name)
		if err != nil {
			return err
		}
		vote := &models.Vote{
			MemberID:  memberID,
			MatterID:  matterID,
			MeetingID: meetingID,
			Vote:      vr.Vote,
			Sequence:  vr.Sequence,
			Metadata:  vr.Metadata,
		}
		if err := tx.Members.RecordVote(ctx, vote); err != nil {
			return err
		}
	}
	return nil
}

func toAttachments(recs []models.AttachmentRecord) []models.Attachment {
	if len(recs) == 0 {
		return nil
	}
	attachments := make([]models.Attachment, len(recs))
	for i, ar := range recs {
		attachments[i] = models.Attachment{Name: ar.Name, URL: ar.URL, Type: ar.Type}
	}
	return attachments
}
