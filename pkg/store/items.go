package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Engagic/engagic/pkg/models"
)

// ItemRepo persists agenda items.
type ItemRepo struct {
	db Querier
}

const itemColumns = `
	id, meeting_id, title, sequence,
	COALESCE(attachments, '[]'::jsonb), attachment_hash,
	COALESCE(matter_id, ''), matter_file, matter_type, agenda_number,
	COALESCE(sponsors, '[]'::jsonb),
	COALESCE(summary, ''), COALESCE(topics, '[]'::jsonb),
	COALESCE(filter_reason, '')`

// UpsertBatch inserts or updates agenda items. Vendor-sourced fields refresh;
// existing summaries and topics are preserved (the processor owns those).
func (r *ItemRepo) UpsertBatch(ctx context.Context, items []models.AgendaItem) error {
	for i := range items {
		if err := r.upsert(ctx, &items[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *ItemRepo) upsert(ctx context.Context, item *models.AgendaItem) error {
	attachments, err := json.Marshal(item.Attachments)
	if err != nil {
		return fmt.Errorf("failed to encode attachments: %w", err)
	}
	sponsors, err := json.Marshal(item.Sponsors)
	if err != nil {
		return fmt.Errorf("failed to encode sponsors: %w", err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO items (
			id, meeting_id, title, sequence, attachments, attachment_hash,
			matter_id, matter_file, matter_type, agenda_number, sponsors,
			filter_reason
		) VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9, $10, $11, NULLIF($12, ''))
		ON CONFLICT (id) DO UPDATE SET
			title           = EXCLUDED.title,
			sequence        = EXCLUDED.sequence,
			attachments     = EXCLUDED.attachments,
			attachment_hash = EXCLUDED.attachment_hash,
			matter_id       = EXCLUDED.matter_id,
			matter_file     = EXCLUDED.matter_file,
			matter_type     = EXCLUDED.matter_type,
			agenda_number   = EXCLUDED.agenda_number,
			sponsors        = EXCLUDED.sponsors,
			filter_reason   = EXCLUDED.filter_reason`,
		item.ID, item.MeetingID, item.Title, item.Sequence, attachments,
		item.AttachmentHash, item.MatterID, item.MatterFile, item.MatterType,
		item.AgendaNumber, sponsors, item.FilterReason)
	if err != nil {
		return fmt.Errorf("failed to upsert item %s: %w", item.ID, err)
	}
	return nil
}

// ForMeeting returns a meeting's items ordered by sequence.
func (r *ItemRepo) ForMeeting(ctx context.Context, meetingID string) ([]models.AgendaItem, error) {
	rows, err := r.db.Query(ctx,
		`SELECT`+itemColumns+` FROM items WHERE meeting_id = $1 ORDER BY sequence ASC`,
		meetingID)
	if err != nil {
		return nil, fmt.Errorf("failed to query items for meeting %s: %w", meetingID, err)
	}
	defer rows.Close()
	return collectItems(rows)
}

// ForMeetings batch-loads items for many meetings in one query, avoiding
// N+1 access patterns. Meetings without items are absent from the map.
func (r *ItemRepo) ForMeetings(ctx context.Context, meetingIDs []string) (map[string][]models.AgendaItem, error) {
	if len(meetingIDs) == 0 {
		return map[string][]models.AgendaItem{}, nil
	}
	rows, err := r.db.Query(ctx,
		`SELECT`+itemColumns+` FROM items WHERE meeting_id = ANY($1) ORDER BY meeting_id, sequence ASC`,
		meetingIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to batch-query items: %w", err)
	}
	defer rows.Close()

	items, err := collectItems(rows)
	if err != nil {
		return nil, err
	}
	byMeeting := make(map[string][]models.AgendaItem)
	for _, item := range items {
		byMeeting[item.MeetingID] = append(byMeeting[item.MeetingID], item)
	}
	return byMeeting, nil
}

// ForMatter returns every item referencing a matter, across all meetings.
func (r *ItemRepo) ForMatter(ctx context.Context, matterID string) ([]models.AgendaItem, error) {
	rows, err := r.db.Query(ctx,
		`SELECT`+itemColumns+` FROM items WHERE matter_id = $1 ORDER BY meeting_id, sequence ASC`,
		matterID)
	if err != nil {
		return nil, fmt.Errorf("failed to query items for matter %s: %w", matterID, err)
	}
	defer rows.Close()
	return collectItems(rows)
}

// SaveSummary writes a summary and topics onto one item.
func (r *ItemRepo) SaveSummary(ctx context.Context, id, summary string, topics []string) error {
	topicsJSON, err := json.Marshal(topics)
	if err != nil {
		return fmt.Errorf("failed to encode topics: %w", err)
	}
	tag, err := r.db.Exec(ctx,
		`UPDATE items SET summary = NULLIF($2, ''), topics = $3 WHERE id = $1`,
		id, summary, topicsJSON)
	if err != nil {
		return fmt.Errorf("failed to save summary for item %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// BackfillMatterSummary writes the matter's canonical summary onto every item
// that references it. Returns the number of items updated.
func (r *ItemRepo) BackfillMatterSummary(ctx context.Context, matterID, summary string, topics []string) (int64, error) {
	topicsJSON, err := json.Marshal(topics)
	if err != nil {
		return 0, fmt.Errorf("failed to encode topics: %w", err)
	}
	tag, err := r.db.Exec(ctx,
		`UPDATE items SET summary = $2, topics = $3 WHERE matter_id = $1`,
		matterID, summary, topicsJSON)
	if err != nil {
		return 0, fmt.Errorf("failed to backfill summary for matter %s: %w", matterID, err)
	}
	return tag.RowsAffected(), nil
}

func collectItems(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]models.AgendaItem, error) {
	var items []models.AgendaItem
	for rows.Next() {
		var (
			item            models.AgendaItem
			attachmentsJSON []byte
			sponsorsJSON    []byte
			topicsJSON      []byte
		)
		err := rows.Scan(
			&item.ID, &item.MeetingID, &item.Title, &item.Sequence,
			&attachmentsJSON, &item.AttachmentHash,
			&item.MatterID, &item.MatterFile, &item.MatterType, &item.AgendaNumber,
			&sponsorsJSON, &item.Summary, &topicsJSON, &item.FilterReason,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		if err := json.Unmarshal(attachmentsJSON, &item.Attachments); err != nil {
			return nil, fmt.Errorf("failed to decode attachments: %w", err)
		}
		if err := json.Unmarshal(sponsorsJSON, &item.Sponsors); err != nil {
			return nil, fmt.Errorf("failed to decode sponsors: %w", err)
		}
		if err := json.Unmarshal(topicsJSON, &item.Topics); err != nil {
			return nil, fmt.Errorf("failed to decode topics: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
