package database

import (
	"context"
	"database/sql"
	"fmt"
)

// CreateGINIndexes creates full-text search GIN indexes for PostgreSQL.
// These enable meeting search over titles and summaries without a separate
// search service. Kept out of the migration files because the tsvector
// expression is tuned more often than the relational schema.
func CreateGINIndexes(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_meetings_search_gin
		ON meetings USING gin(to_tsvector('english', title || ' ' || COALESCE(summary, '')))`)
	if err != nil {
		return fmt.Errorf("failed to create meetings search GIN index: %w", err)
	}

	_, err = db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_city_matters_search_gin
		ON city_matters USING gin(to_tsvector('english', COALESCE(title, '') || ' ' || COALESCE(canonical_summary, '')))`)
	if err != nil {
		return fmt.Errorf("failed to create matters search GIN index: %w", err)
	}

	return nil
}
