package database

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect/sql"
)

// CreateGINIndexes creates full-text search GIN indexes for PostgreSQL.
// These indexes enable efficient full-text search over message transcripts
// and saved query descriptions, used by the session/list search endpoints.
func CreateGINIndexes(ctx context.Context, driver *sql.Driver) error {
	db := driver.DB()

	_, err := db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_messages_text_gin
		ON messages USING gin(to_tsvector('english', text))`)
	if err != nil {
		return fmt.Errorf("failed to create messages text GIN index: %w", err)
	}

	_, err = db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_saved_queries_description_gin
		ON saved_queries USING gin(to_tsvector('english', COALESCE(name, '') || ' ' || COALESCE(description, '')))`)
	if err != nil {
		return fmt.Errorf("failed to create saved_queries description GIN index: %w", err)
	}

	return nil
}
