package research

import (
	"context"
	"sync"
	"time"

	"researchdesk/internal"
	"researchdesk/internal/errors"
	"researchdesk/internal/retry"
	"researchdesk/models"
	"researchdesk/ports"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// RetryPolicy bounds the retry executor for one provider's runs.
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
}

// DefaultRetryPolicy is used when a provider has no configured policy.
var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 3, InitialDelay: 2 * time.Second}

// ScheduleOutcome is the result of a run or retry admission.
type ScheduleOutcome struct {
	Session *models.ResearchSession
	// AlreadyRunning is true when a duplicate request observed an
	// in-flight run instead of starting a second one.
	AlreadyRunning bool
}

// Scheduler idempotently ensures exactly one active run per
// (session, provider) pair and drives it to a terminal run state. It
// holds no state of its own across calls; the persisted provider run
// state is the only memory between admissions.
type Scheduler struct {
	repo        ports.ResearchRepository
	clients     map[models.Provider]ports.ProviderClient
	normalizers map[models.Provider]ports.Normalizer
	policies    map[models.Provider]RetryPolicy
	logger      *internal.Logger

	// now and launch are swapped out by tests.
	now    func() time.Time
	launch func(run func())
}

// NewScheduler wires a scheduler with explicit collaborators.
func NewScheduler(
	repo ports.ResearchRepository,
	clients []ports.ProviderClient,
	normalizers map[models.Provider]ports.Normalizer,
	policies map[models.Provider]RetryPolicy,
	logger *internal.Logger,
) *Scheduler {
	clientMap := make(map[models.Provider]ports.ProviderClient, len(clients))
	for _, client := range clients {
		clientMap[client.Provider()] = client
	}
	if logger == nil {
		logger = internal.NewDefaultLogger()
	}
	return &Scheduler{
		repo:        repo,
		clients:     clientMap,
		normalizers: normalizers,
		policies:    policies,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
		launch:      func(run func()) { go run() },
	}
}

// ScheduleRun admits a provider run for a session. A duplicate request
// for a pair whose run is already queued or running returns the
// unmodified session with AlreadyRunning set instead of starting a
// second invocation. The provider call itself runs detached from the
// caller's context: an abandoned request never cancels an in-flight
// run, so a later poll observes the true outcome.
func (s *Scheduler) ScheduleRun(ctx context.Context, ownerUID, sessionID uuid.UUID, provider models.Provider) (*ScheduleOutcome, error) {
	return s.admit(ctx, ownerUID, sessionID, provider,
		[]models.RunStatus{models.RunIdle, models.RunFailure}, false)
}

// RetryRun re-arms a provider already in failure. It is rejected with
// an InvalidState error when the session has completed: a finished
// session's narrative must not be mutated retroactively. A session
// failed by the other provider may still be retried; the closed
// transition table keeps its overall status as-is.
func (s *Scheduler) RetryRun(ctx context.Context, ownerUID, sessionID uuid.UUID, provider models.Provider) (*ScheduleOutcome, error) {
	return s.admit(ctx, ownerUID, sessionID, provider,
		[]models.RunStatus{models.RunFailure}, true)
}

// RunAllOutcome is one provider's admission result within RunAll.
// Exactly one of Outcome and Err is set.
type RunAllOutcome struct {
	Outcome *ScheduleOutcome
	Err     error
}

// RunAll schedules every configured provider concurrently. The runs
// are independent, with no ordering guaranteed between them, and each
// provider is admitted on its own: one rejection never fails or undoes
// another provider's already-claimed run. Providers with no configured
// client are absent from the result.
func (s *Scheduler) RunAll(ctx context.Context, ownerUID, sessionID uuid.UUID) map[models.Provider]RunAllOutcome {
	results := make(map[models.Provider]RunAllOutcome, len(s.clients))
	var mu sync.Mutex
	var g errgroup.Group
	for _, provider := range models.Providers {
		if _, ok := s.clients[provider]; !ok {
			continue
		}
		provider := provider
		g.Go(func() error {
			outcome, err := s.ScheduleRun(ctx, ownerUID, sessionID, provider)
			mu.Lock()
			results[provider] = RunAllOutcome{Outcome: outcome, Err: err}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (s *Scheduler) admit(ctx context.Context, ownerUID, sessionID uuid.UUID, provider models.Provider, from []models.RunStatus, isRetry bool) (*ScheduleOutcome, error) {
	session, err := s.repo.GetByID(ctx, ownerUID, sessionID)
	if err != nil {
		return nil, err
	}

	if _, ok := s.clients[provider]; !ok {
		return nil, errors.InvalidState("no client configured for provider " + string(provider))
	}

	state := session.ProviderStates.Get(provider)
	if state.RunStatus.InFlight() {
		return &ScheduleOutcome{Session: session, AlreadyRunning: true}, nil
	}

	if isRetry {
		if session.Status == models.StatusCompleted {
			return nil, errors.InvalidState("session is completed; provider runs cannot be retried")
		}
		if state.RunStatus != models.RunFailure {
			return nil, errors.InvalidState("only failed provider runs can be retried")
		}
	} else {
		if state.RunStatus == models.RunSuccess {
			return nil, errors.InvalidState("provider run already succeeded")
		}
		// The session-level transition must be legal before any
		// write happens. An already-running session (the other
		// provider got here first) needs no transition.
		if session.Status != models.StatusRunning {
			if err := AssertTransition(session.Status, models.StatusRunning); err != nil {
				return nil, err
			}
		}
	}

	now := s.now()
	patch := models.SessionPatch{
		Providers: map[models.Provider]models.ProviderStatePatch{
			provider: {
				RunStatus:   models.RunStatusPtr(models.RunRunning),
				StartedAt:   models.TimePtr(now),
				ClearResult: true,
				ClearError:  true,
			},
		},
	}
	if session.Status != models.StatusRunning && CanTransition(session.Status, models.StatusRunning) {
		patch.Status = models.StatusPtr(models.StatusRunning)
	}

	// The claim is conditional on the persisted run status so that two
	// concurrent duplicate requests admit exactly one run.
	claimed, err := s.repo.ClaimProviderRun(ctx, ownerUID, sessionID, provider, from, patch)
	if err != nil {
		return nil, err
	}
	if !claimed {
		session, err = s.repo.GetByID(ctx, ownerUID, sessionID)
		if err != nil {
			return nil, err
		}
		return &ScheduleOutcome{Session: session, AlreadyRunning: true}, nil
	}

	s.logger.Info("scheduled %s run for session %s", provider, sessionID)
	prompt := state.FinalPrompt
	s.launch(func() {
		s.executeRun(context.Background(), ownerUID, sessionID, provider, prompt, now)
	})

	patch.Apply(session)
	return &ScheduleOutcome{Session: session, AlreadyRunning: false}, nil
}

// executeRun invokes the provider under the retry executor and commits
// the terminal run state. Runs on a background context: completion is
// at-least-once regardless of the originating request's fate.
func (s *Scheduler) executeRun(ctx context.Context, ownerUID, sessionID uuid.UUID, provider models.Provider, prompt string, startedAt time.Time) {
	client := s.clients[provider]
	policy, ok := s.policies[provider]
	if !ok {
		policy = DefaultRetryPolicy
	}

	opts := retry.Options{
		MaxAttempts:  policy.MaxAttempts,
		InitialDelay: policy.InitialDelay,
		OnRetry: func(err error, info retry.Info) {
			s.logger.Warn("session %s provider %s attempt %d/%d failed, retrying in %s: %v",
				sessionID, provider, info.Attempt, info.MaxAttempts, info.Delay, err)
		},
	}

	raw, err := retry.Do(ctx, opts, func(ctx context.Context, attempt, maxAttempts int) ([]byte, error) {
		return client.Run(ctx, prompt)
	})

	completedAt := s.now()
	var patch models.ProviderStatePatch
	if err != nil {
		s.logger.Error("session %s provider %s run failed: %v", sessionID, provider, err)
		patch = models.ProviderStatePatch{
			RunStatus:   models.RunStatusPtr(models.RunFailure),
			Error:       models.StrPtr(err.Error()),
			CompletedAt: models.TimePtr(completedAt),
			ClearResult: true,
		}
	} else {
		normalize := s.normalizers[provider]
		result := normalize(raw)
		// Providers don't report wall-clock bounds; the run's own are
		// the accounting source for the report's usage appendix.
		if result.Meta == nil {
			result.Meta = &models.RunMeta{}
		}
		result.Meta.StartedAt = models.TimePtr(startedAt)
		result.Meta.CompletedAt = models.TimePtr(completedAt)
		patch = models.ProviderStatePatch{
			RunStatus:   models.RunStatusPtr(models.RunSuccess),
			Result:      &result,
			CompletedAt: models.TimePtr(completedAt),
			ClearError:  true,
		}
	}

	update := models.SessionPatch{Providers: map[models.Provider]models.ProviderStatePatch{provider: patch}}
	if err := s.repo.Update(ctx, ownerUID, sessionID, update); err != nil {
		s.logger.Error("session %s provider %s: persisting terminal run state failed: %v", sessionID, provider, err)
		return
	}

	s.commitSessionStatus(ctx, ownerUID, sessionID)
}

// commitSessionStatus advances a running session to a terminal status
// once every provider run has finished: completed when at least one
// succeeded, failed when all did not. A session the table no longer
// allows forward (e.g. failed by an earlier run) is left untouched.
func (s *Scheduler) commitSessionStatus(ctx context.Context, ownerUID, sessionID uuid.UUID) {
	session, err := s.repo.GetByID(ctx, ownerUID, sessionID)
	if err != nil {
		s.logger.Error("session %s: reload for status commit failed: %v", sessionID, err)
		return
	}
	if session.Status != models.StatusRunning || !session.ProvidersTerminal() {
		return
	}

	next := models.StatusFailed
	if session.AnySuccess() {
		next = models.StatusCompleted
	}
	if err := AssertTransition(session.Status, next); err != nil {
		s.logger.Error("session %s: status commit rejected: %v", sessionID, err)
		return
	}
	if err := s.repo.Update(ctx, ownerUID, sessionID, models.SessionPatch{Status: models.StatusPtr(next)}); err != nil {
		s.logger.Error("session %s: status commit failed: %v", sessionID, err)
		return
	}
	s.logger.Info("session %s reached %s", sessionID, next)
}
