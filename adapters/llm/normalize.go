package llm

import (
	"encoding/json"
	"strings"

	"researchdesk/models"
)

// structuredOutput is the JSON shape both providers are prompted to
// emit inside their text content.
type structuredOutput struct {
	Summary  string          `json:"summary"`
	Insights []string        `json:"insights"`
	Sources  []models.Source `json:"sources"`
}

// NormalizeOpenAI converts a raw OpenAI chat completions payload into
// the normalized result shape. It never fails: absent or malformed
// fields degrade to empty defaults.
func NormalizeOpenAI(raw json.RawMessage) models.ProviderResult {
	result := emptyResult(raw)

	var payload struct {
		Model   string `json:"model"`
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage struct {
			TotalTokens int `json:"total_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return result
	}

	if payload.Model != "" || payload.Usage.TotalTokens > 0 {
		result.Meta = &models.RunMeta{Model: payload.Model, Tokens: payload.Usage.TotalTokens}
	}
	if len(payload.Choices) == 0 {
		return result
	}
	fillFromContent(&result, payload.Choices[0].Message.Content)
	return result
}

// NormalizeGemini converts a raw generateContent payload into the
// normalized result shape. It never fails.
func NormalizeGemini(raw json.RawMessage) models.ProviderResult {
	result := emptyResult(raw)

	var payload struct {
		ModelVersion string `json:"modelVersion"`
		Candidates   []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
		UsageMetadata struct {
			TotalTokenCount int `json:"totalTokenCount"`
		} `json:"usageMetadata"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return result
	}

	if payload.ModelVersion != "" || payload.UsageMetadata.TotalTokenCount > 0 {
		result.Meta = &models.RunMeta{Model: payload.ModelVersion, Tokens: payload.UsageMetadata.TotalTokenCount}
	}
	if len(payload.Candidates) == 0 {
		return result
	}
	var text strings.Builder
	for _, part := range payload.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}
	fillFromContent(&result, text.String())
	return result
}

func emptyResult(raw json.RawMessage) models.ProviderResult {
	return models.ProviderResult{Raw: raw, Summary: "", Insights: []string{}}
}

// fillFromContent extracts the structured research output from a
// provider's text content. Providers are prompted for a JSON object,
// sometimes fenced in markdown; anything unparseable is kept whole as
// the summary.
func fillFromContent(result *models.ProviderResult, content string) {
	content = strings.TrimSpace(content)
	if content == "" {
		return
	}

	candidate := stripFence(content)
	var structured structuredOutput
	if err := json.Unmarshal([]byte(candidate), &structured); err == nil {
		result.Summary = structured.Summary
		if structured.Insights != nil {
			result.Insights = structured.Insights
		}
		if len(structured.Sources) > 0 {
			result.Sources = structured.Sources
		}
		return
	}
	result.Summary = content
}

func stripFence(content string) string {
	if !strings.HasPrefix(content, "```") {
		return content
	}
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	return strings.TrimSpace(content)
}
