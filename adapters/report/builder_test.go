package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"researchdesk/models"
	"researchdesk/ports"
)

func sampleInput() ports.ReportInput {
	started := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	completed := started.Add(45 * time.Second)
	return ports.ReportInput{
		Title:     "EV charging market",
		UserEmail: "analyst@example.com",
		CreatedAt: time.Date(2026, 4, 1, 7, 0, 0, 0, time.UTC),
		OpenAIResult: &models.ProviderResult{
			Summary:  "Charging networks are consolidating.",
			Insights: []string{"Three operators control most fast chargers"},
			Sources:  []models.Source{{Title: "IEA Outlook", URL: "https://example.com/iea"}},
			Meta:     &models.RunMeta{Tokens: 900, Model: "gpt-4o", StartedAt: &started, CompletedAt: &completed},
		},
		GeminiResult: nil,
	}
}

func TestHTMLBuilderRendersBothSections(t *testing.T) {
	html, err := NewHTMLBuilder().Build(sampleInput())
	require.NoError(t, err)

	out := string(html)
	assert.Contains(t, out, "EV charging market")
	assert.Contains(t, out, "Charging networks are consolidating.")
	assert.Contains(t, out, "Three operators control most fast chargers")
	assert.Contains(t, out, "https://example.com/iea")
	// The absent provider renders as an empty section, not an error.
	assert.Contains(t, out, "Gemini Research")
	assert.Contains(t, out, "No results available")
	// Usage appendix from run meta.
	assert.Contains(t, out, "Total tokens: 900")
}

func TestHTMLBuilderEmptyInput(t *testing.T) {
	html, err := NewHTMLBuilder().Build(ports.ReportInput{CreatedAt: time.Now()})
	require.NoError(t, err)

	out := string(html)
	assert.Contains(t, out, "Research Report")
	assert.Contains(t, out, "OpenAI Research")
	assert.Contains(t, out, "Gemini Research")
	assert.NotContains(t, out, "Usage")
}

func TestExcelExporterProducesWorkbook(t *testing.T) {
	data, err := NewExcelExporter().Build(sampleInput())
	require.NoError(t, err)
	assert.NotEmpty(t, data)
	// XLSX is a zip container.
	assert.Equal(t, []byte{'P', 'K'}, data[:2])
}

func TestExcelExporterNilResults(t *testing.T) {
	data, err := NewExcelExporter().Build(ports.ReportInput{CreatedAt: time.Now()})
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}
