package research

import (
	"context"
	"encoding/json"
	"sync"

	"researchdesk/internal/errors"
	"researchdesk/models"
	"researchdesk/ports"

	"github.com/google/uuid"
)

// fakeRepo is an in-memory ResearchRepository implementing the same
// shallow-merge patch semantics as the postgres adapter.
type fakeRepo struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*models.ResearchSession
}

func newFakeRepo(sessions ...*models.ResearchSession) *fakeRepo {
	repo := &fakeRepo{sessions: make(map[uuid.UUID]*models.ResearchSession)}
	for _, s := range sessions {
		repo.sessions[s.ID] = cloneSession(s)
	}
	return repo
}

func cloneSession(s *models.ResearchSession) *models.ResearchSession {
	copied := *s
	copied.ProviderStates = make(models.ProviderStates, len(s.ProviderStates))
	for provider, state := range s.ProviderStates {
		copied.ProviderStates[provider] = state
	}
	return &copied
}

func (r *fakeRepo) Create(_ context.Context, session *models.ResearchSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.ID] = cloneSession(session)
	return nil
}

func (r *fakeRepo) GetByID(_ context.Context, ownerUID, sessionID uuid.UUID) (*models.ResearchSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[sessionID]
	if !ok || session.OwnerUID != ownerUID {
		return nil, errors.NotFound("research session")
	}
	return cloneSession(session), nil
}

func (r *fakeRepo) Update(_ context.Context, ownerUID, sessionID uuid.UUID, patch models.SessionPatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[sessionID]
	if !ok || session.OwnerUID != ownerUID {
		return errors.NotFound("research session")
	}
	patch.Apply(session)
	return nil
}

func (r *fakeRepo) ClaimProviderRun(_ context.Context, ownerUID, sessionID uuid.UUID, provider models.Provider, from []models.RunStatus, patch models.SessionPatch) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[sessionID]
	if !ok || session.OwnerUID != ownerUID {
		return false, errors.NotFound("research session")
	}
	current := session.ProviderStates.Get(provider).RunStatus
	eligible := false
	for _, status := range from {
		if current == status {
			eligible = true
			break
		}
	}
	if !eligible {
		return false, nil
	}
	patch.Apply(session)
	return true, nil
}

// mustGet reads a session directly, bypassing owner scoping, for
// assertions.
func (r *fakeRepo) mustGet(sessionID uuid.UUID) *models.ResearchSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneSession(r.sessions[sessionID])
}

// fakeClient scripts provider responses; each Run call consumes the
// next scripted outcome, and the last one repeats.
type fakeClient struct {
	mu       sync.Mutex
	provider models.Provider
	script   []func() (json.RawMessage, error)
	calls    int
}

func (c *fakeClient) Provider() models.Provider { return c.provider }

func (c *fakeClient) Run(_ context.Context, _ string) (json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx := c.calls
	if idx >= len(c.script) {
		idx = len(c.script) - 1
	}
	c.calls++
	return c.script[idx]()
}

func (c *fakeClient) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func respondWith(raw string) func() (json.RawMessage, error) {
	return func() (json.RawMessage, error) { return json.RawMessage(raw), nil }
}

func failWith(err error) func() (json.RawMessage, error) {
	return func() (json.RawMessage, error) { return nil, err }
}

// passthroughNormalizer treats the raw payload as the summary.
func passthroughNormalizer(raw json.RawMessage) models.ProviderResult {
	return models.ProviderResult{Raw: raw, Summary: string(raw), Insights: []string{}}
}

func testNormalizers() map[models.Provider]ports.Normalizer {
	return map[models.Provider]ports.Normalizer{
		models.ProviderOpenAI: passthroughNormalizer,
		models.ProviderGemini: passthroughNormalizer,
	}
}
