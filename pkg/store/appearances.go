package store

import (
	"context"
	"fmt"

	"github.com/Engagic/engagic/pkg/models"
)

// AppearanceRepo persists matter appearances: the (matter, meeting, item)
// junction rows that record where a matter surfaced.
type AppearanceRepo struct {
	db Querier
}

// Upsert records an appearance. Re-ingesting the same meeting refreshes the
// action fields without creating a duplicate row.
func (r *AppearanceRepo) Upsert(ctx context.Context, a *models.MatterAppearance) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO matter_appearances (
			matter_id, meeting_id, item_id, committee, action,
			vote_outcome, vote_tally, sequence
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (matter_id, meeting_id, item_id) DO UPDATE SET
			committee    = EXCLUDED.committee,
			action       = EXCLUDED.action,
			vote_outcome = EXCLUDED.vote_outcome,
			vote_tally   = EXCLUDED.vote_tally,
			sequence     = EXCLUDED.sequence`,
		a.MatterID, a.MeetingID, a.ItemID, a.Committee, a.Action,
		a.VoteOutcome, a.VoteTally, a.Sequence)
	if err != nil {
		return fmt.Errorf("failed to upsert appearance (%s, %s, %s): %w",
			a.MatterID, a.MeetingID, a.ItemID, err)
	}
	return nil
}

// Exists reports whether a matter already appears on a meeting's agenda.
// Keyed by (matter, meeting): a matter appearing twice on one agenda still
// counts as a single appearance for last_seen/appearance_count purposes.
func (r *AppearanceRepo) Exists(ctx context.Context, matterID, meetingID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM matter_appearances WHERE matter_id = $1 AND meeting_id = $2)`,
		matterID, meetingID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check appearance existence: %w", err)
	}
	return exists, nil
}

// ForMatter lists all appearances of a matter ordered by meeting.
func (r *AppearanceRepo) ForMatter(ctx context.Context, matterID string) ([]models.MatterAppearance, error) {
	rows, err := r.db.Query(ctx, `
		SELECT matter_id, meeting_id, item_id, committee, action,
		       vote_outcome, vote_tally, sequence
		FROM matter_appearances WHERE matter_id = $1
		ORDER BY meeting_id, sequence`, matterID)
	if err != nil {
		return nil, fmt.Errorf("failed to query appearances for matter %s: %w", matterID, err)
	}
	defer rows.Close()

	var appearances []models.MatterAppearance
	for rows.Next() {
		var a models.MatterAppearance
		if err := rows.Scan(&a.MatterID, &a.MeetingID, &a.ItemID, &a.Committee,
			&a.Action, &a.VoteOutcome, &a.VoteTally, &a.Sequence); err != nil {
			return nil, fmt.Errorf("failed to scan appearance: %w", err)
		}
		appearances = append(appearances, a)
	}
	return appearances, rows.Err()
}
