package postgres

import (
	"testing"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"researchdesk/models"
)

func statementBuilder() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
}

func TestProviderPatchJSONOnlySetFields(t *testing.T) {
	status := models.RunRunning
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	fields := providerPatchJSON(models.ProviderStatePatch{
		RunStatus: &status,
		StartedAt: &now,
	})

	assert.Equal(t, models.RunRunning, fields["run_status"])
	assert.Equal(t, &now, fields["started_at"])
	_, hasError := fields["error"]
	assert.False(t, hasError, "unset fields must not appear in the merge object")
	_, hasResult := fields["result"]
	assert.False(t, hasResult)
}

func TestProviderPatchJSONClearsStaleFields(t *testing.T) {
	status := models.RunRunning
	fields := providerPatchJSON(models.ProviderStatePatch{
		RunStatus:   &status,
		ClearResult: true,
		ClearError:  true,
	})

	// Explicit nulls so the JSONB merge removes stale terminal data
	// when a failed run is re-armed.
	result, ok := fields["result"]
	require.True(t, ok)
	assert.Nil(t, result)
	errField, ok := fields["error"]
	require.True(t, ok)
	assert.Nil(t, errField)
}

func TestReportPatchJSON(t *testing.T) {
	path := "reports/abc.html"
	failed := models.EmailFailed
	reason := "no destination email address on record"
	fields := reportPatchJSON(models.ReportPatch{
		PDFPath:     &path,
		EmailStatus: &failed,
		EmailError:  &reason,
	})

	assert.Equal(t, path, fields["pdf_path"])
	assert.Equal(t, failed, fields["email_status"])
	assert.Equal(t, reason, fields["email_error"])
	_, hasTo := fields["emailed_to"]
	assert.False(t, hasTo)
}

func TestPatchBuilderTouchesOnlyProvidedFields(t *testing.T) {
	repo := &ResearchRepositoryImpl{sb: statementBuilder()}

	status := models.StatusRunning
	builder, err := repo.patchBuilder(models.SessionPatch{Status: &status})
	require.NoError(t, err)
	query, _, err := builder.ToSql()
	require.NoError(t, err)

	assert.Contains(t, query, "status")
	assert.NotContains(t, query, "provider_states")
	assert.NotContains(t, query, "report =")
}

func TestPatchBuilderMergesProviderStatesPerKey(t *testing.T) {
	repo := &ResearchRepositoryImpl{sb: statementBuilder()}

	running := models.RunRunning
	builder, err := repo.patchBuilder(models.SessionPatch{
		Providers: map[models.Provider]models.ProviderStatePatch{
			models.ProviderOpenAI: {RunStatus: &running},
		},
	})
	require.NoError(t, err)
	query, args, err := builder.ToSql()
	require.NoError(t, err)

	assert.Contains(t, query, "jsonb_set(provider_states, '{openai}'")
	assert.Contains(t, query, "COALESCE(provider_states->'openai', '{}'::jsonb)")
	require.NotEmpty(t, args)
}
