package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SessionStatus is the single source of truth for orchestration progress.
type SessionStatus string

const (
	StatusAwaitingRefinements SessionStatus = "awaiting_refinements"
	StatusRefining            SessionStatus = "refining"
	StatusReadyToRun          SessionStatus = "ready_to_run"
	StatusRunning             SessionStatus = "running"
	StatusCompleted           SessionStatus = "completed"
	StatusFailed              SessionStatus = "failed"
)

// IsTerminal reports whether the status has no outgoing transitions.
func (s SessionStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Provider identifies one of the external research providers.
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderGemini Provider = "gemini"
)

// Providers lists every provider a session runs, in report order.
var Providers = []Provider{ProviderOpenAI, ProviderGemini}

// ParseProvider validates a provider identifier from an untrusted source.
func ParseProvider(s string) (Provider, error) {
	switch Provider(s) {
	case ProviderOpenAI, ProviderGemini:
		return Provider(s), nil
	}
	return "", fmt.Errorf("unknown provider %q", s)
}

// RunStatus is the lifecycle of a single provider run.
type RunStatus string

const (
	RunIdle    RunStatus = "idle"
	RunQueued  RunStatus = "queued"
	RunRunning RunStatus = "running"
	RunSuccess RunStatus = "success"
	RunFailure RunStatus = "failure"
)

// InFlight reports whether a run is already claimed by a scheduler.
func (s RunStatus) InFlight() bool {
	return s == RunQueued || s == RunRunning
}

// Source is a citation attached to a provider result.
type Source struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// RunMeta carries provider-reported accounting for a run.
type RunMeta struct {
	Tokens      int        `json:"tokens,omitempty"`
	Model       string     `json:"model,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ProviderResult is the normalized output of a successful provider run.
type ProviderResult struct {
	Raw      json.RawMessage `json:"raw,omitempty"`
	Summary  string          `json:"summary"`
	Insights []string        `json:"insights"`
	Sources  []Source        `json:"sources,omitempty"`
	Meta     *RunMeta        `json:"meta,omitempty"`
}

// ProviderRunState tracks one provider's run within a session.
//
// Invariant: Result is set iff RunStatus == success; Error is set iff
// RunStatus == failure.
type ProviderRunState struct {
	RunStatus   RunStatus       `json:"run_status"`
	SessionID   string          `json:"session_id,omitempty"`
	JobID       string          `json:"job_id,omitempty"`
	FinalPrompt string          `json:"final_prompt,omitempty"`
	Result      *ProviderResult `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// Terminal reports whether the run reached success or failure.
func (p ProviderRunState) Terminal() bool {
	return p.RunStatus == RunSuccess || p.RunStatus == RunFailure
}

// EmailStatus is the delivery bookkeeping state for a report.
type EmailStatus string

const (
	EmailQueued EmailStatus = "queued"
	EmailSent   EmailStatus = "sent"
	EmailFailed EmailStatus = "failed"
)

// ReportState records the artifact and delivery outcome for a session.
type ReportState struct {
	PDFPath     string      `json:"pdf_path,omitempty"`
	EmailedTo   string      `json:"emailed_to,omitempty"`
	EmailStatus EmailStatus `json:"email_status,omitempty"`
	EmailError  string      `json:"email_error,omitempty"`
}

// ProviderStates maps provider identifier to run state. It is stored as
// a single JSONB column and shallow-merged per provider on update.
type ProviderStates map[Provider]ProviderRunState

// Value implements driver.Valuer for JSONB columns.
func (p ProviderStates) Value() (driver.Value, error) {
	if p == nil {
		return json.Marshal(ProviderStates{})
	}
	return json.Marshal(p)
}

// Scan implements sql.Scanner for JSONB columns.
func (p *ProviderStates) Scan(value interface{}) error {
	return scanJSONB(value, p, func() { *p = make(ProviderStates) })
}

// Get returns the run state for a provider, defaulting to idle.
func (p ProviderStates) Get(provider Provider) ProviderRunState {
	if state, ok := p[provider]; ok {
		return state
	}
	return ProviderRunState{RunStatus: RunIdle}
}

// Value implements driver.Valuer for JSONB columns.
func (r ReportState) Value() (driver.Value, error) {
	return json.Marshal(r)
}

// Scan implements sql.Scanner for JSONB columns.
func (r *ReportState) Scan(value interface{}) error {
	return scanJSONB(value, r, func() { *r = ReportState{} })
}

func scanJSONB(value interface{}, dst interface{}, reset func()) error {
	if value == nil {
		reset()
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		reset()
		return nil
	}
	if len(bytes) == 0 {
		reset()
		return nil
	}
	return json.Unmarshal(bytes, dst)
}

// ResearchSession is the aggregate root: one user-initiated research
// request spanning both providers through to report delivery. All
// repository operations on it are scoped by OwnerUID.
type ResearchSession struct {
	ID             uuid.UUID      `json:"id" db:"id"`
	OwnerUID       uuid.UUID      `json:"owner_uid" db:"owner_uid"`
	Title          string         `json:"title" db:"title"`
	Status         SessionStatus  `json:"status" db:"status"`
	ProviderStates ProviderStates `json:"provider_states" db:"provider_states"`
	Report         ReportState    `json:"report" db:"report"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at" db:"updated_at"`
}

// NewResearchSession creates a session in its initial lifecycle state
// with empty provider run states.
func NewResearchSession(ownerUID uuid.UUID, title string) *ResearchSession {
	now := time.Now().UTC()
	return &ResearchSession{
		ID:             uuid.New(),
		OwnerUID:       ownerUID,
		Title:          title,
		Status:         StatusAwaitingRefinements,
		ProviderStates: ProviderStates{},
		Report:         ReportState{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// ProvidersTerminal reports whether every known provider run has reached
// a terminal run status.
func (s *ResearchSession) ProvidersTerminal() bool {
	for _, provider := range Providers {
		if !s.ProviderStates.Get(provider).Terminal() {
			return false
		}
	}
	return true
}

// AnySuccess reports whether at least one provider run succeeded.
func (s *ResearchSession) AnySuccess() bool {
	for _, provider := range Providers {
		if s.ProviderStates.Get(provider).RunStatus == RunSuccess {
			return true
		}
	}
	return false
}

// ResultFor returns the normalized result for a provider, or nil when
// the run has not succeeded.
func (s *ResearchSession) ResultFor(provider Provider) *ProviderResult {
	state := s.ProviderStates.Get(provider)
	if state.RunStatus != RunSuccess {
		return nil
	}
	return state.Result
}
