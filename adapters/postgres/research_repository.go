package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"researchdesk/internal/errors"
	"researchdesk/models"
	"researchdesk/ports"
)

// ResearchRepositoryImpl implements ports.ResearchRepository for
// PostgreSQL. Provider states and the report live in JSONB columns;
// partial updates are expressed as JSONB merges so a report write can
// never clobber a concurrently written provider state.
type ResearchRepositoryImpl struct {
	db *sqlx.DB
	sb sq.StatementBuilderType
}

// NewResearchRepository creates a new PostgreSQL research repository
func NewResearchRepository(db *sqlx.DB) ports.ResearchRepository {
	return &ResearchRepositoryImpl{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Create persists a new session row.
func (r *ResearchRepositoryImpl) Create(ctx context.Context, session *models.ResearchSession) error {
	query, args, err := r.sb.Insert("research_sessions").
		Columns("id", "owner_uid", "title", "status", "provider_states", "report", "created_at", "updated_at").
		Values(session.ID, session.OwnerUID, session.Title, session.Status,
			session.ProviderStates, session.Report, session.CreatedAt, session.UpdatedAt).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "building session insert")
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrap(err, "inserting research session")
	}
	return nil
}

// GetByID loads a session scoped by owner.
func (r *ResearchRepositoryImpl) GetByID(ctx context.Context, ownerUID, sessionID uuid.UUID) (*models.ResearchSession, error) {
	var session models.ResearchSession
	err := r.db.GetContext(ctx, &session, `
		SELECT id, owner_uid, title, status, provider_states, report, created_at, updated_at
		FROM research_sessions
		WHERE owner_uid = $1 AND id = $2
	`, ownerUID, sessionID)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("research session")
	}
	if err != nil {
		return nil, errors.Wrap(err, "loading research session")
	}
	return &session, nil
}

// Update applies a partial patch, merging JSONB per top-level field.
func (r *ResearchRepositoryImpl) Update(ctx context.Context, ownerUID, sessionID uuid.UUID, patch models.SessionPatch) error {
	builder, err := r.patchBuilder(patch)
	if err != nil {
		return err
	}
	query, args, err := builder.
		Where(sq.Eq{"owner_uid": ownerUID, "id": sessionID}).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "building session update")
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return errors.Wrap(err, "updating research session")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "reading update result")
	}
	if affected == 0 {
		return errors.NotFound("research session")
	}
	return nil
}

// ClaimProviderRun applies the patch only while the provider's current
// run status is one of fromStatuses, making the duplicate-request guard
// atomic with the running write.
func (r *ResearchRepositoryImpl) ClaimProviderRun(ctx context.Context, ownerUID, sessionID uuid.UUID, provider models.Provider, fromStatuses []models.RunStatus, patch models.SessionPatch) (bool, error) {
	builder, err := r.patchBuilder(patch)
	if err != nil {
		return false, err
	}

	statuses := make([]string, len(fromStatuses))
	for i, s := range fromStatuses {
		statuses[i] = string(s)
	}

	// A provider with no state yet counts as idle.
	query, args, err := builder.
		Where(sq.Eq{"owner_uid": ownerUID, "id": sessionID}).
		Where(sq.Expr(
			fmt.Sprintf("COALESCE(provider_states->'%s'->>'run_status', 'idle') = ANY(?)", provider),
			pq.StringArray(statuses))).
		ToSql()
	if err != nil {
		return false, errors.Wrap(err, "building run claim")
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, errors.Wrap(err, "claiming provider run")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "reading claim result")
	}
	if affected > 0 {
		return true, nil
	}

	// Zero rows is either a lost claim or a missing/foreign session;
	// the caller needs to tell these apart.
	if _, err := r.GetByID(ctx, ownerUID, sessionID); err != nil {
		return false, err
	}
	return false, nil
}

// patchBuilder translates a SessionPatch into a dynamic UPDATE that
// only touches the provided top-level fields.
func (r *ResearchRepositoryImpl) patchBuilder(patch models.SessionPatch) (sq.UpdateBuilder, error) {
	builder := r.sb.Update("research_sessions").
		Set("updated_at", time.Now().UTC())

	if patch.Status != nil {
		builder = builder.Set("status", *patch.Status)
	}

	if len(patch.Providers) > 0 {
		expr := "provider_states"
		args := make([]interface{}, 0, len(patch.Providers))
		for _, provider := range models.Providers {
			providerPatch, ok := patch.Providers[provider]
			if !ok {
				continue
			}
			merged, err := json.Marshal(providerPatchJSON(providerPatch))
			if err != nil {
				return builder, errors.Wrap(err, "encoding provider patch")
			}
			expr = fmt.Sprintf(
				"jsonb_set(%s, '{%s}', COALESCE(provider_states->'%s', '{}'::jsonb) || ?::jsonb)",
				expr, provider, provider)
			args = append(args, string(merged))
		}
		builder = builder.Set("provider_states", sq.Expr(expr, args...))
	}

	if patch.Report != nil {
		merged, err := json.Marshal(reportPatchJSON(*patch.Report))
		if err != nil {
			return builder, errors.Wrap(err, "encoding report patch")
		}
		builder = builder.Set("report", sq.Expr("report || ?::jsonb", string(merged)))
	}

	return builder, nil
}

// providerPatchJSON renders only the set fields of a patch; cleared
// fields become explicit JSON nulls so the merge removes stale values.
func providerPatchJSON(patch models.ProviderStatePatch) map[string]interface{} {
	fields := map[string]interface{}{}
	if patch.RunStatus != nil {
		fields["run_status"] = *patch.RunStatus
	}
	if patch.SessionID != nil {
		fields["session_id"] = *patch.SessionID
	}
	if patch.JobID != nil {
		fields["job_id"] = *patch.JobID
	}
	if patch.FinalPrompt != nil {
		fields["final_prompt"] = *patch.FinalPrompt
	}
	if patch.Result != nil {
		fields["result"] = patch.Result
	}
	if patch.Error != nil {
		fields["error"] = *patch.Error
	}
	if patch.StartedAt != nil {
		fields["started_at"] = patch.StartedAt
	}
	if patch.CompletedAt != nil {
		fields["completed_at"] = patch.CompletedAt
	}
	if patch.ClearResult {
		fields["result"] = nil
	}
	if patch.ClearError {
		fields["error"] = nil
	}
	return fields
}

func reportPatchJSON(patch models.ReportPatch) map[string]interface{} {
	fields := map[string]interface{}{}
	if patch.PDFPath != nil {
		fields["pdf_path"] = *patch.PDFPath
	}
	if patch.EmailedTo != nil {
		fields["emailed_to"] = *patch.EmailedTo
	}
	if patch.EmailStatus != nil {
		fields["email_status"] = *patch.EmailStatus
	}
	if patch.EmailError != nil {
		fields["email_error"] = *patch.EmailError
	}
	return fields
}
