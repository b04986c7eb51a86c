package ports

import (
	"context"

	"researchdesk/models"

	"github.com/google/uuid"
)

// ResearchRepository is the persistence boundary for research sessions.
// Every operation is scoped by the owner's uid; a session that exists
// but belongs to someone else behaves exactly like a missing one.
type ResearchRepository interface {
	// Create persists a new session.
	Create(ctx context.Context, session *models.ResearchSession) error

	// GetByID loads a session scoped by owner. Returns a NotFound
	// error when absent or not owned by the caller.
	GetByID(ctx context.Context, ownerUID, sessionID uuid.UUID) (*models.ResearchSession, error)

	// Update shallow-merges the patch per top-level field: updating
	// the report must never clobber concurrently written provider
	// states and vice versa. Returns NotFound when no owned document
	// matches.
	Update(ctx context.Context, ownerUID, sessionID uuid.UUID, patch models.SessionPatch) error

	// ClaimProviderRun atomically applies the patch to the named
	// provider's run state only if its current run status is one of
	// fromStatuses, making the "already running" check atomic with
	// the running write. Returns false when another claim won.
	ClaimProviderRun(ctx context.Context, ownerUID, sessionID uuid.UUID, provider models.Provider, fromStatuses []models.RunStatus, patch models.SessionPatch) (bool, error)
}
