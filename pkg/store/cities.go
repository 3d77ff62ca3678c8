package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/Engagic/engagic/pkg/models"
)

// CityRepo persists cities. The pipeline never creates cities; operators do.
type CityRepo struct {
	db Querier
}

// Get loads one city by banana.
func (r *CityRepo) Get(ctx context.Context, banana string) (*models.City, error) {
	var c models.City
	err := r.db.QueryRow(ctx,
		`SELECT banana, name, state, vendor, status, created_at FROM cities WHERE banana = $1`,
		banana).Scan(&c.Banana, &c.Name, &c.State, &c.Vendor, &c.Status, &c.CreatedAt)
	if err != nil {
		if IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get city %s: %w", banana, err)
	}
	return &c, nil
}

// Upsert creates or updates a city record (operator tooling).
func (r *CityRepo) Upsert(ctx context.Context, c *models.City) error {
	if c.Status == "" {
		c.Status = "active"
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO cities (banana, name, state, vendor, status)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (banana) DO UPDATE SET
			name   = EXCLUDED.name,
			state  = EXCLUDED.state,
			vendor = EXCLUDED.vendor,
			status = EXCLUDED.status`,
		c.Banana, c.Name, c.State, c.Vendor, c.Status)
	if err != nil {
		return fmt.Errorf("failed to upsert city %s: %w", c.Banana, err)
	}
	return nil
}

// CommitteeRepo persists committees.
type CommitteeRepo struct {
	db Querier
}

// Upsert creates a committee by (banana, name) and returns its ID.
func (r *CommitteeRepo) Upsert(ctx context.Context, banana, name string) (string, error) {
	id := committeeID(banana, name)
	_, err := r.db.Exec(ctx, `
		INSERT INTO committees (id, banana, name)
		VALUES ($1, $2, $3)
		ON CONFLICT (banana, name) DO NOTHING`,
		id, banana, name)
	if err != nil {
		return "", fmt.Errorf("failed to upsert committee %q: %w", name, err)
	}
	return id, nil
}

// FindByMeetingTitle returns the committee whose name appears in the meeting
// title, if any. An empty result is not an error; most meetings have no
// committee record.
func (r *CommitteeRepo) FindByMeetingTitle(ctx context.Context, banana, meetingTitle string) (string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, name FROM committees WHERE banana = $1`, banana)
	if err != nil {
		return "", fmt.Errorf("failed to query committees: %w", err)
	}
	defer rows.Close()

	lowerTitle := strings.ToLower(meetingTitle)
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return "", fmt.Errorf("failed to scan committee: %w", err)
		}
		if name != "" && strings.Contains(lowerTitle, strings.ToLower(name)) {
			return id, nil
		}
	}
	return "", rows.Err()
}

func committeeID(banana, name string) string {
	sum := sha256.Sum256([]byte(banana + ":committee:" + strings.ToLower(strings.TrimSpace(name))))
	return fmt.Sprintf("%s_%s", banana, hex.EncodeToString(sum[:])[:16])
}
