package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Engagic/engagic/pkg/models"
)

// MatterRepo persists legislative matters.
type MatterRepo struct {
	db Querier
}

const matterColumns = `
	id, banana, matter_file, matter_id, matter_type, title,
	COALESCE(sponsors, '[]'::jsonb),
	COALESCE(canonical_summary, ''), COALESCE(canonical_topics, '[]'::jsonb),
	COALESCE(attachments, '[]'::jsonb), metadata,
	first_seen, last_seen, appearance_count, created_at, updated_at`

// Get loads one matter by canonical ID.
func (r *MatterRepo) Get(ctx context.Context, id string) (*models.Matter, error) {
	row := r.db.QueryRow(ctx, `SELECT`+matterColumns+` FROM city_matters WHERE id = $1`, id)
	m, err := scanMatter(row)
	if err != nil {
		if IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get matter %s: %w", id, err)
	}
	return m, nil
}

// GetBatch loads many matters in one query; missing IDs are absent from the map.
func (r *MatterRepo) GetBatch(ctx context.Context, ids []string) (map[string]models.Matter, error) {
	result := make(map[string]models.Matter, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	rows, err := r.db.Query(ctx, `SELECT`+matterColumns+` FROM city_matters WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to batch-query matters: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		m, err := scanMatter(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan matter: %w", err)
		}
		result[m.ID] = *m
	}
	return result, rows.Err()
}

// Insert creates a new matter with its first appearance already counted.
func (r *MatterRepo) Insert(ctx context.Context, m *models.Matter) error {
	sponsors, err := json.Marshal(m.Sponsors)
	if err != nil {
		return fmt.Errorf("failed to encode sponsors: %w", err)
	}
	attachments, err := json.Marshal(m.Attachments)
	if err != nil {
		return fmt.Errorf("failed to encode attachments: %w", err)
	}
	metadata, err := json.Marshal(m.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO city_matters (
			id, banana, matter_file, matter_id, matter_type, title,
			sponsors, attachments, metadata,
			first_seen, last_seen, appearance_count
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10, 1)`,
		m.ID, m.Banana, m.MatterFile, m.MatterID, m.MatterType, m.Title,
		sponsors, attachments, metadata, m.FirstSeen)
	if err != nil {
		return fmt.Errorf("failed to insert matter %s: %w", m.ID, err)
	}
	return nil
}

// RecordAppearance updates a matter on a new meeting appearance: extends
// last_seen, bumps appearance_count, and refreshes the attachment set when
// the new reading carries one. metadata.attachment_hash is left alone; only
// SaveCanonicalSummary writes it, recording the set the summary was computed
// from, so an attachment change stays detectable until re-summarization.
func (r *MatterRepo) RecordAppearance(ctx context.Context, id string, meetingDate *time.Time, attachments []models.Attachment) error {
	if attachments == nil {
		attachments = []models.Attachment{}
	}
	attachmentsJSON, err := json.Marshal(attachments)
	if err != nil {
		return fmt.Errorf("failed to encode attachments: %w", err)
	}
	tag, err := r.db.Exec(ctx, `
		UPDATE city_matters SET
			last_seen = GREATEST(COALESCE(last_seen, $2::timestamptz), COALESCE($2::timestamptz, last_seen)),
			appearance_count = appearance_count + 1,
			attachments = CASE WHEN $3::jsonb <> '[]'::jsonb THEN $3::jsonb ELSE attachments END,
			updated_at = now()
		WHERE id = $1`,
		id, meetingDate, attachmentsJSON)
	if err != nil {
		return fmt.Errorf("failed to record appearance for matter %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveCanonicalSummary writes the canonical summary, topics, and the
// attachment hash it was computed from. The summary changes only when the
// attachment hash changes, so storing them together keeps them consistent.
func (r *MatterRepo) SaveCanonicalSummary(ctx context.Context, id, summary string, topics []string, attachmentHash string) error {
	topicsJSON, err := json.Marshal(topics)
	if err != nil {
		return fmt.Errorf("failed to encode topics: %w", err)
	}
	tag, err := r.db.Exec(ctx, `
		UPDATE city_matters SET
			canonical_summary = NULLIF($2, ''),
			canonical_topics  = $3,
			metadata          = jsonb_set(metadata, '{attachment_hash}', to_jsonb($4::text)),
			updated_at        = now()
		WHERE id = $1`,
		id, summary, topicsJSON, attachmentHash)
	if err != nil {
		return fmt.Errorf("failed to save canonical summary for matter %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanMatter(row rowScanner) (*models.Matter, error) {
	var (
		m               models.Matter
		sponsorsJSON    []byte
		topicsJSON      []byte
		attachmentsJSON []byte
		metadataJSON    []byte
	)
	err := row.Scan(
		&m.ID, &m.Banana, &m.MatterFile, &m.MatterID, &m.MatterType, &m.Title,
		&sponsorsJSON, &m.CanonicalSummary, &topicsJSON,
		&attachmentsJSON, &metadataJSON,
		&m.FirstSeen, &m.LastSeen, &m.AppearanceCount, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(sponsorsJSON, &m.Sponsors); err != nil {
		return nil, fmt.Errorf("failed to decode sponsors: %w", err)
	}
	if err := json.Unmarshal(topicsJSON, &m.CanonicalTopics); err != nil {
		return nil, fmt.Errorf("failed to decode canonical topics: %w", err)
	}
	if err := json.Unmarshal(attachmentsJSON, &m.Attachments); err != nil {
		return nil, fmt.Errorf("failed to decode attachments: %w", err)
	}
	if err := json.Unmarshal(metadataJSON, &m.Metadata); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}
	return &m, nil
}
