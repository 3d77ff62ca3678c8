package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Engagic/engagic/pkg/identity"
	"github.com/Engagic/engagic/pkg/models"
)

// MemberRepo persists council members, sponsorships, and votes.
type MemberRepo struct {
	db Querier
}

// UpsertByName inserts a council member keyed by normalized name and returns
// the member ID. Idempotent: "Jane  Smith" and "jane smith" resolve to the
// same row, keeping the display form from the first sighting.
func (r *MemberRepo) UpsertByName(ctx context.Context, banana, name string) (string, error) {
	normalized := identity.NormalizeMemberName(name)
	if normalized == "" {
		return "", fmt.Errorf("member name is empty")
	}
	id := identity.MemberID(banana, normalized)

	_, err := r.db.Exec(ctx, `
		INSERT INTO council_members (id, banana, name, normalized_name)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (banana, normalized_name) DO NOTHING`,
		id, banana, name, normalized)
	if err != nil {
		return "", fmt.Errorf("failed to upsert member %q: %w", name, err)
	}
	return id, nil
}

// AddSponsorship links a member to a matter. Idempotent.
func (r *MemberRepo) AddSponsorship(ctx context.Context, memberID, matterID string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO sponsorships (member_id, matter_id)
		VALUES ($1, $2)
		ON CONFLICT (member_id, matter_id) DO NOTHING`,
		memberID, matterID)
	if err != nil {
		return fmt.Errorf("failed to add sponsorship: %w", err)
	}
	return nil
}

// RecordVote stores one member's vote on a matter at a meeting. A re-ingest
// with a corrected vote overwrites the prior record.
func (r *MemberRepo) RecordVote(ctx context.Context, v *models.Vote) error {
	var metadata []byte
	if v.Metadata != nil {
		var err error
		metadata, err = json.Marshal(v.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode vote metadata: %w", err)
		}
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO votes (member_id, matter_id, meeting_id, vote, sequence, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (member_id, matter_id, meeting_id) DO UPDATE SET
			vote     = EXCLUDED.vote,
			sequence = EXCLUDED.sequence,
			metadata = EXCLUDED.metadata`,
		v.MemberID, v.MatterID, v.MeetingID, v.Vote, v.Sequence, metadata)
	if err != nil {
		return fmt.Errorf("failed to record vote: %w", err)
	}
	return nil
}

// VotesForMatter lists recorded votes on a matter across meetings.
func (r *MemberRepo) VotesForMatter(ctx context.Context, matterID string) ([]models.Vote, error) {
	rows, err := r.db.Query(ctx, `
		SELECT member_id, matter_id, meeting_id, vote, sequence, COALESCE(metadata, 'null'::jsonb)
		FROM votes WHERE matter_id = $1
		ORDER BY meeting_id, sequence`, matterID)
	if err != nil {
		return nil, fmt.Errorf("failed to query votes for matter %s: %w", matterID, err)
	}
	defer rows.Close()

	var votes []models.Vote
	for rows.Next() {
		var (
			v            models.Vote
			metadataJSON []byte
		)
		if err := rows.Scan(&v.MemberID, &v.MatterID, &v.MeetingID, &v.Vote, &v.Sequence, &metadataJSON); err != nil {
			return nil, fmt.Errorf("failed to scan vote: %w", err)
		}
		if err := json.Unmarshal(metadataJSON, &v.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode vote metadata: %w", err)
		}
		votes = append(votes, v)
	}
	return votes, rows.Err()
}
