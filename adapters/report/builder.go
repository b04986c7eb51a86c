// Package report renders finalized research sessions into artifacts:
// a print-ready HTML report and an optional insights workbook.
package report

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"researchdesk/internal/usage"
	"researchdesk/models"
	"researchdesk/ports"
)

// HTMLBuilder renders a report as self-contained HTML. It is a pure
// function of its input; absent provider results render as empty
// sections, never as errors.
type HTMLBuilder struct{}

// NewHTMLBuilder creates the default report builder.
func NewHTMLBuilder() *HTMLBuilder { return &HTMLBuilder{} }

// Build renders the report artifact bytes.
func (b *HTMLBuilder) Build(input ports.ReportInput) ([]byte, error) {
	md := buildMarkdown(input)

	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{Flags: mdhtml.CommonFlags | mdhtml.CompletePage})
	html := markdown.ToHTML([]byte(md), p, renderer)
	return html, nil
}

func buildMarkdown(input ports.ReportInput) string {
	var buf bytes.Buffer

	title := input.Title
	if title == "" {
		title = "Research Report"
	}
	fmt.Fprintf(&buf, "# %s\n\n", title)
	fmt.Fprintf(&buf, "Prepared %s", input.CreatedAt.Format("January 2, 2006"))
	if input.UserEmail != "" {
		fmt.Fprintf(&buf, " for %s", input.UserEmail)
	}
	buf.WriteString("\n\n")

	writeProviderSection(&buf, "OpenAI Research", input.OpenAIResult)
	writeProviderSection(&buf, "Gemini Research", input.GeminiResult)
	writeUsageSection(&buf, input)

	return buf.String()
}

func writeProviderSection(buf *bytes.Buffer, heading string, result *models.ProviderResult) {
	fmt.Fprintf(buf, "## %s\n\n", heading)
	if result == nil {
		buf.WriteString("_No results available for this provider._\n\n")
		return
	}

	if summary := strings.TrimSpace(result.Summary); summary != "" {
		buf.WriteString(summary)
		buf.WriteString("\n\n")
	}
	if len(result.Insights) > 0 {
		buf.WriteString("### Key Insights\n\n")
		for _, insight := range result.Insights {
			fmt.Fprintf(buf, "- %s\n", insight)
		}
		buf.WriteString("\n")
	}
	if len(result.Sources) > 0 {
		buf.WriteString("### Sources\n\n")
		for _, source := range result.Sources {
			title := source.Title
			if title == "" {
				title = source.URL
			}
			fmt.Fprintf(buf, "- [%s](%s)\n", title, source.URL)
		}
		buf.WriteString("\n")
	}
}

func writeUsageSection(buf *bytes.Buffer, input ports.ReportInput) {
	var samples []usage.Sample
	if sample, ok := usage.FromResult(models.ProviderOpenAI, input.OpenAIResult); ok {
		samples = append(samples, sample)
	}
	if sample, ok := usage.FromResult(models.ProviderGemini, input.GeminiResult); ok {
		samples = append(samples, sample)
	}
	if len(samples) == 0 {
		return
	}

	summary := usage.Summarize(samples)
	buf.WriteString("## Usage\n\n")
	fmt.Fprintf(buf, "- Provider runs: %d\n", summary.Runs)
	fmt.Fprintf(buf, "- Total tokens: %d\n", summary.TotalTokens)
	fmt.Fprintf(buf, "- Mean tokens per run: %.0f\n", summary.MeanTokens)
	if summary.Duration > 0 {
		fmt.Fprintf(buf, "- Combined run time: %s\n", summary.Duration.Round(time.Second))
	}
	buf.WriteString("\n")
}
