package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Engagic/engagic/pkg/models"
)

// MeetingRepo persists meetings.
type MeetingRepo struct {
	db Querier
}

const meetingColumns = `
	id, banana, title, date, agenda_url, packet_urls,
	COALESCE(summary, ''), COALESCE(topics, '[]'::jsonb),
	COALESCE(participation, 'null'::jsonb),
	status, processing_status, COALESCE(processing_method, ''),
	COALESCE(processing_time, 0), COALESCE(committee_id, ''),
	created_at, updated_at`

// Get loads one meeting by ID.
func (r *MeetingRepo) Get(ctx context.Context, id string) (*models.Meeting, error) {
	row := r.db.QueryRow(ctx, `SELECT`+meetingColumns+` FROM meetings WHERE id = $1`, id)
	m, err := scanMeeting(row)
	if err != nil {
		if IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get meeting %s: %w", id, err)
	}
	return m, nil
}

// Upsert inserts or updates a meeting. On re-ingest of an existing meeting ID
// the vendor-sourced fields refresh but summary, topics, participation, and
// processing state are preserved; summaries are written only by the processor.
func (r *MeetingRepo) Upsert(ctx context.Context, m *models.Meeting) error {
	participation, err := marshalNullable(m.Participation)
	if err != nil {
		return fmt.Errorf("failed to encode participation: %w", err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO meetings (
			id, banana, title, date, agenda_url, packet_urls,
			participation, status, processing_status, committee_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'pending', NULLIF($9, ''))
		ON CONFLICT (id) DO UPDATE SET
			title         = EXCLUDED.title,
			date          = EXCLUDED.date,
			agenda_url    = EXCLUDED.agenda_url,
			packet_urls   = EXCLUDED.packet_urls,
			participation = COALESCE(meetings.participation, EXCLUDED.participation),
			status        = EXCLUDED.status,
			committee_id  = COALESCE(EXCLUDED.committee_id, meetings.committee_id),
			updated_at    = now()`,
		m.ID, m.Banana, m.Title, m.Date, m.AgendaURL, m.PacketURLs,
		participation, m.Status, m.CommitteeID)
	if err != nil {
		return fmt.Errorf("failed to upsert meeting %s: %w", m.ID, err)
	}
	return nil
}

// SetProcessingStatus transitions a meeting's processing state.
func (r *MeetingRepo) SetProcessingStatus(ctx context.Context, id string, status models.ProcessingStatus) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE meetings SET processing_status = $2, updated_at = now() WHERE id = $1`,
		id, status)
	if err != nil {
		return fmt.Errorf("failed to set processing status for %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveSummary writes the processor's result onto a meeting and marks it
// completed. Participation may be nil to leave the stored value alone.
func (r *MeetingRepo) SaveSummary(ctx context.Context, id, summary string, topics []string, participation *models.Participation, method string, elapsedSeconds float64) error {
	topicsJSON, err := json.Marshal(topics)
	if err != nil {
		return fmt.Errorf("failed to encode topics: %w", err)
	}
	participationJSON, err := marshalNullable(participation)
	if err != nil {
		return fmt.Errorf("failed to encode participation: %w", err)
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE meetings SET
			summary           = NULLIF($2, ''),
			topics            = $3,
			participation     = COALESCE($4, participation),
			processing_status = 'completed',
			processing_method = $5,
			processing_time   = $6,
			updated_at        = now()
		WHERE id = $1`,
		id, summary, topicsJSON, participationJSON, method, elapsedSeconds)
	if err != nil {
		return fmt.Errorf("failed to save summary for meeting %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Search runs plain full-text matching over titles and summaries within a
// city. No ranking beyond tsvector relevance.
func (r *MeetingRepo) Search(ctx context.Context, banana, query string, limit int) ([]models.Meeting, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, `
		SELECT`+meetingColumns+`
		FROM meetings
		WHERE banana = $1
		  AND to_tsvector('english', title || ' ' || COALESCE(summary, '')) @@ plainto_tsquery('english', $2)
		ORDER BY date DESC NULLS LAST
		LIMIT $3`,
		banana, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search meetings: %w", err)
	}
	defer rows.Close()

	var meetings []models.Meeting
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan meeting: %w", err)
		}
		meetings = append(meetings, *m)
	}
	return meetings, rows.Err()
}

// rowScanner lets scanMeeting work for both QueryRow and Query results.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanMeeting(row rowScanner) (*models.Meeting, error) {
	var (
		m                 models.Meeting
		topicsJSON        []byte
		participationJSON []byte
	)
	err := row.Scan(
		&m.ID, &m.Banana, &m.Title, &m.Date, &m.AgendaURL, &m.PacketURLs,
		&m.Summary, &topicsJSON, &participationJSON,
		&m.Status, &m.ProcessingStatus, &m.ProcessingMethod,
		&m.ProcessingTime, &m.CommitteeID,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(topicsJSON, &m.Topics); err != nil {
		return nil, fmt.Errorf("failed to decode topics: %w", err)
	}
	if err := json.Unmarshal(participationJSON, &m.Participation); err != nil {
		return nil, fmt.Errorf("failed to decode participation: %w", err)
	}
	return &m, nil
}

// marshalNullable encodes v as JSON, mapping nil pointers to SQL NULL.
func marshalNullable(v any) (any, error) {
	switch t := v.(type) {
	case *models.Participation:
		if t == nil {
			return nil, nil
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return b, nil
}
