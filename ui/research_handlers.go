package ui

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"researchdesk/internal/errors"
	"researchdesk/internal/research"
	"researchdesk/models"
	"researchdesk/ports"
)

// RunScheduler is the scheduling surface the handlers call.
type RunScheduler interface {
	ScheduleRun(ctx context.Context, ownerUID, sessionID uuid.UUID, provider models.Provider) (*research.ScheduleOutcome, error)
	RetryRun(ctx context.Context, ownerUID, sessionID uuid.UUID, provider models.Provider) (*research.ScheduleOutcome, error)
	RunAll(ctx context.Context, ownerUID, sessionID uuid.UUID) map[models.Provider]research.RunAllOutcome
}

// ReportFinalizer is the finalization surface the handlers call.
type ReportFinalizer interface {
	Finalize(ctx context.Context, ownerUID, sessionID uuid.UUID, userEmail string) (*research.FinalizeResult, error)
}

type ResearchHandler struct {
	scheduler RunScheduler
	finalizer ReportFinalizer
	repo      ports.ResearchRepository
}

func NewResearchHandler(scheduler RunScheduler, finalizer ReportFinalizer, repo ports.ResearchRepository) *ResearchHandler {
	return &ResearchHandler{
		scheduler: scheduler,
		finalizer: finalizer,
		repo:      repo,
	}
}

// ownerUID extracts the caller identity. Authentication happens
// upstream; this service only scopes data access by the forwarded ID.
func ownerUID(c *gin.Context) (uuid.UUID, bool) {
	raw := c.GetHeader("X-Owner-ID")
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "X-Owner-ID header is required"})
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "X-Owner-ID must be a UUID"})
		return uuid.Nil, false
	}
	return id, true
}

func sessionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session id must be a UUID"})
		return uuid.Nil, false
	}
	return id, true
}

func providerParam(c *gin.Context) (models.Provider, bool) {
	provider, err := models.ParseProvider(c.Param("provider"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return "", false
	}
	return provider, true
}

// HandleCreateSession creates a session in its initial lifecycle state.
func (h *ResearchHandler) HandleCreateSession(c *gin.Context) {
	owner, ok := ownerUID(c)
	if !ok {
		return
	}

	var body struct {
		Title   string                     `json:"title"`
		Prompts map[models.Provider]string `json:"prompts"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if body.Title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
		return
	}

	session := models.NewResearchSession(owner, body.Title)
	for provider, prompt := range body.Prompts {
		if _, err := models.ParseProvider(string(provider)); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		session.ProviderStates[provider] = models.ProviderRunState{
			RunStatus:   models.RunIdle,
			FinalPrompt: prompt,
		}
	}

	if err := h.repo.Create(c.Request.Context(), session); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

// HandleGetSession returns the session with all provider run states
// and report bookkeeping.
func (h *ResearchHandler) HandleGetSession(c *gin.Context) {
	owner, ok := ownerUID(c)
	if !ok {
		return
	}
	id, ok := sessionID(c)
	if !ok {
		return
	}

	session, err := h.repo.GetByID(c.Request.Context(), owner, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// HandleUpdateSession advances the session lifecycle and records final
// prompts during refinement. Status changes are checked against the
// transition table before anything is written.
func (h *ResearchHandler) HandleUpdateSession(c *gin.Context) {
	owner, ok := ownerUID(c)
	if !ok {
		return
	}
	id, ok := sessionID(c)
	if !ok {
		return
	}

	var body struct {
		Status  *models.SessionStatus      `json:"status"`
		Prompts map[models.Provider]string `json:"prompts"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	session, err := h.repo.GetByID(c.Request.Context(), owner, id)
	if err != nil {
		respondError(c, err)
		return
	}

	patch := models.SessionPatch{}
	if body.Status != nil {
		if err := research.AssertTransition(session.Status, *body.Status); err != nil {
			respondError(c, err)
			return
		}
		patch.Status = body.Status
	}
	if len(body.Prompts) > 0 {
		patch.Providers = make(map[models.Provider]models.ProviderStatePatch, len(body.Prompts))
		for provider, prompt := range body.Prompts {
			if _, err := models.ParseProvider(string(provider)); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			patch.Providers[provider] = models.ProviderStatePatch{FinalPrompt: models.StrPtr(prompt)}
		}
	}

	if err := h.repo.Update(c.Request.Context(), owner, id, patch); err != nil {
		respondError(c, err)
		return
	}
	patch.Apply(session)
	c.JSON(http.StatusOK, session)
}

// HandleScheduleRun starts one provider's run. A duplicate request
// observes the in-flight run instead of starting a second one.
func (h *ResearchHandler) HandleScheduleRun(c *gin.Context) {
	h.schedule(c, h.scheduler.ScheduleRun)
}

// HandleRetryRun re-arms a failed provider run.
func (h *ResearchHandler) HandleRetryRun(c *gin.Context) {
	h.schedule(c, h.scheduler.RetryRun)
}

func (h *ResearchHandler) schedule(c *gin.Context, admit func(context.Context, uuid.UUID, uuid.UUID, models.Provider) (*research.ScheduleOutcome, error)) {
	owner, ok := ownerUID(c)
	if !ok {
		return
	}
	id, ok := sessionID(c)
	if !ok {
		return
	}
	provider, ok := providerParam(c)
	if !ok {
		return
	}

	outcome, err := admit(c.Request.Context(), owner, id, provider)
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusAccepted
	if outcome.AlreadyRunning {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{
		"alreadyRunning": outcome.AlreadyRunning,
		"session":        outcome.Session,
	})
}

// HandleRunAll starts every configured provider's run concurrently.
// Providers are reported individually: one provider's rejection does
// not hide that another's run was started.
func (h *ResearchHandler) HandleRunAll(c *gin.Context) {
	owner, ok := ownerUID(c)
	if !ok {
		return
	}
	id, ok := sessionID(c)
	if !ok {
		return
	}

	outcomes := h.scheduler.RunAll(c.Request.Context(), owner, id)
	if len(outcomes) == 0 {
		respondError(c, errors.InvalidState("no provider clients configured"))
		return
	}

	providers := make(map[models.Provider]gin.H, len(outcomes))
	scheduled := false
	failed := 0
	var firstErr error
	for provider, outcome := range outcomes {
		if outcome.Err != nil {
			failed++
			if firstErr == nil {
				firstErr = outcome.Err
			}
			providers[provider] = gin.H{
				"error": outcome.Err.Error(),
				"code":  errors.GetCode(outcome.Err),
			}
			continue
		}
		if !outcome.Outcome.AlreadyRunning {
			scheduled = true
		}
		providers[provider] = gin.H{"alreadyRunning": outcome.Outcome.AlreadyRunning}
	}

	if failed == len(outcomes) {
		respondError(c, firstErr)
		return
	}

	session, err := h.repo.GetByID(c.Request.Context(), owner, id)
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusOK
	if scheduled {
		status = http.StatusAccepted
	}
	c.JSON(status, gin.H{
		"providers": providers,
		"session":   session,
	})
}

// HandleFinalize builds, persists and delivers the report artifact.
func (h *ResearchHandler) HandleFinalize(c *gin.Context) {
	owner, ok := ownerUID(c)
	if !ok {
		return
	}
	id, ok := sessionID(c)
	if !ok {
		return
	}

	var body struct {
		Email string `json:"email"`
	}
	// An empty body finalizes without a delivery destination.
	_ = c.ShouldBindJSON(&body)

	result, err := h.finalizer.Finalize(c.Request.Context(), owner, id, body.Email)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"artifactPath":  result.ArtifactPath,
		"persistStatus": result.PersistStatus,
		"delivery":      result.Delivery,
	})
}
