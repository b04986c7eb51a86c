package research

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"researchdesk/internal/errors"
	"researchdesk/models"
)

var allStatuses = []models.SessionStatus{
	models.StatusAwaitingRefinements,
	models.StatusRefining,
	models.StatusReadyToRun,
	models.StatusRunning,
	models.StatusCompleted,
	models.StatusFailed,
}

func TestCanTransitionAllowList(t *testing.T) {
	allowed := map[[2]models.SessionStatus]bool{
		{models.StatusAwaitingRefinements, models.StatusRefining}:   true,
		{models.StatusAwaitingRefinements, models.StatusReadyToRun}: true,
		{models.StatusAwaitingRefinements, models.StatusFailed}:     true,
		{models.StatusRefining, models.StatusReadyToRun}:            true,
		{models.StatusRefining, models.StatusFailed}:                true,
		{models.StatusReadyToRun, models.StatusRunning}:             true,
		{models.StatusReadyToRun, models.StatusFailed}:              true,
		{models.StatusRunning, models.StatusCompleted}:              true,
		{models.StatusRunning, models.StatusFailed}:                 true,
	}

	// Every pair outside the table must be rejected, including
	// self-transitions and anything out of a terminal state.
	for _, from := range allStatuses {
		for _, to := range allStatuses {
			want := allowed[[2]models.SessionStatus{from, to}]
			assert.Equal(t, want, CanTransition(from, to), "%s -> %s", from, to)

			err := AssertTransition(from, to)
			if want {
				assert.NoError(t, err, "%s -> %s", from, to)
			} else {
				assert.True(t, errors.HasCode(err, errors.CodeInvalidTransition), "%s -> %s", from, to)
			}
		}
	}
}

func TestTerminalStatesHaveNoEdges(t *testing.T) {
	for _, from := range []models.SessionStatus{models.StatusCompleted, models.StatusFailed} {
		for _, to := range allStatuses {
			assert.False(t, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestUnknownStatusRejected(t *testing.T) {
	assert.False(t, CanTransition("bogus", models.StatusRunning))
	assert.False(t, CanTransition(models.StatusRunning, "bogus"))
}
