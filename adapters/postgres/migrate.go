package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"researchdesk/internal/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS research_sessions (
	id              UUID PRIMARY KEY,
	owner_uid       UUID NOT NULL,
	title           TEXT NOT NULL DEFAULT '',
	status          TEXT NOT NULL DEFAULT 'awaiting_refinements',
	provider_states JSONB NOT NULL DEFAULT '{}'::jsonb,
	report          JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_research_sessions_owner
	ON research_sessions (owner_uid, created_at DESC);

CREATE INDEX IF NOT EXISTS idx_research_sessions_status
	ON research_sessions (status);
`

// Migrate applies the research session schema.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "applying research session schema")
	}
	return nil
}
