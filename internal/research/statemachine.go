package research

import (
	"researchdesk/internal/errors"
	"researchdesk/models"
)

// transitions is the closed allow-list of legal status changes.
// Terminal states have no outgoing edges. Every status write in the
// system must pass through AssertTransition, so an illegal-state bug is
// a single auditable table away.
var transitions = map[models.SessionStatus][]models.SessionStatus{
	models.StatusAwaitingRefinements: {models.StatusRefining, models.StatusReadyToRun, models.StatusFailed},
	models.StatusRefining:            {models.StatusReadyToRun, models.StatusFailed},
	models.StatusReadyToRun:          {models.StatusRunning, models.StatusFailed},
	models.StatusRunning:             {models.StatusCompleted, models.StatusFailed},
	models.StatusCompleted:           {},
	models.StatusFailed:              {},
}

// CanTransition reports whether current -> next is in the allow-list.
func CanTransition(current, next models.SessionStatus) bool {
	for _, allowed := range transitions[current] {
		if allowed == next {
			return true
		}
	}
	return false
}

// AssertTransition fails with an InvalidTransition error when the pair
// is not allowed.
func AssertTransition(current, next models.SessionStatus) error {
	if !CanTransition(current, next) {
		return errors.InvalidTransition(string(current), string(next))
	}
	return nil
}
