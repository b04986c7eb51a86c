package models

import "time"

// ProviderStatePatch is a partial update for one provider's run state.
// Only set pointers are written; ClearResult/ClearError null out fields
// that must not survive a run-status change (a re-armed run keeps no
// stale result or error).
type ProviderStatePatch struct {
	RunStatus   *RunStatus
	SessionID   *string
	JobID       *string
	FinalPrompt *string
	Result      *ProviderResult
	Error       *string
	StartedAt   *time.Time
	CompletedAt *time.Time
	ClearResult bool
	ClearError  bool
}

// ReportPatch is a partial update for the session's report state.
type ReportPatch struct {
	PDFPath     *string
	EmailedTo   *string
	EmailStatus *EmailStatus
	EmailError  *string
}

// SessionPatch updates a session per top-level field. Fields left nil
// are untouched; provider patches merge into the named provider's state
// without clobbering sibling providers.
type SessionPatch struct {
	Status    *SessionStatus
	Providers map[Provider]ProviderStatePatch
	Report    *ReportPatch
}

// Apply merges the patch into a run state, returning the merged copy.
func (p ProviderStatePatch) Apply(state ProviderRunState) ProviderRunState {
	if p.RunStatus != nil {
		state.RunStatus = *p.RunStatus
	}
	if p.SessionID != nil {
		state.SessionID = *p.SessionID
	}
	if p.JobID != nil {
		state.JobID = *p.JobID
	}
	if p.FinalPrompt != nil {
		state.FinalPrompt = *p.FinalPrompt
	}
	if p.Result != nil {
		state.Result = p.Result
	}
	if p.Error != nil {
		state.Error = *p.Error
	}
	if p.StartedAt != nil {
		state.StartedAt = p.StartedAt
	}
	if p.CompletedAt != nil {
		state.CompletedAt = p.CompletedAt
	}
	if p.ClearResult {
		state.Result = nil
	}
	if p.ClearError {
		state.Error = ""
	}
	return state
}

// Apply merges the patch into a report state, returning the merged copy.
func (p ReportPatch) Apply(report ReportState) ReportState {
	if p.PDFPath != nil {
		report.PDFPath = *p.PDFPath
	}
	if p.EmailedTo != nil {
		report.EmailedTo = *p.EmailedTo
	}
	if p.EmailStatus != nil {
		report.EmailStatus = *p.EmailStatus
	}
	if p.EmailError != nil {
		report.EmailError = *p.EmailError
	}
	return report
}

// Apply merges the patch into a session in place and refreshes
// UpdatedAt. Repository implementations that cannot express JSONB
// merges natively use this as the reference merge semantics.
func (p SessionPatch) Apply(session *ResearchSession) {
	if p.Status != nil {
		session.Status = *p.Status
	}
	if len(p.Providers) > 0 {
		if session.ProviderStates == nil {
			session.ProviderStates = ProviderStates{}
		}
		for provider, patch := range p.Providers {
			session.ProviderStates[provider] = patch.Apply(session.ProviderStates.Get(provider))
		}
	}
	if p.Report != nil {
		session.Report = p.Report.Apply(session.Report)
	}
	session.UpdatedAt = time.Now().UTC()
}

// Ptr helpers for building patches inline.

func StatusPtr(s SessionStatus) *SessionStatus { return &s }
func RunStatusPtr(s RunStatus) *RunStatus      { return &s }
func EmailStatusPtr(s EmailStatus) *EmailStatus {
	return &s
}
func StrPtr(s string) *string          { return &s }
func TimePtr(t time.Time) *time.Time   { return &t }
