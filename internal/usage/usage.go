// Package usage aggregates provider-reported run accounting for the
// report appendix.
package usage

import (
	"time"

	"github.com/montanaflynn/stats"

	"researchdesk/models"
)

// Sample is one provider run's accounting.
type Sample struct {
	Provider models.Provider
	Tokens   int
	Duration time.Duration
}

// Summary aggregates token spend across a session's runs.
type Summary struct {
	Runs        int
	TotalTokens int
	MeanTokens  float64
	MaxTokens   int
	Duration    time.Duration
}

// FromResult extracts a sample from a normalized provider result, or
// false when the result carries no accounting.
func FromResult(provider models.Provider, result *models.ProviderResult) (Sample, bool) {
	if result == nil || result.Meta == nil {
		return Sample{}, false
	}
	sample := Sample{Provider: provider, Tokens: result.Meta.Tokens}
	if result.Meta.StartedAt != nil && result.Meta.CompletedAt != nil {
		sample.Duration = result.Meta.CompletedAt.Sub(*result.Meta.StartedAt)
	}
	return sample, true
}

// Summarize computes aggregate token statistics over the samples.
// An empty sample set yields a zero summary.
func Summarize(samples []Sample) Summary {
	if len(samples) == 0 {
		return Summary{}
	}

	tokens := make([]float64, len(samples))
	summary := Summary{Runs: len(samples)}
	for i, sample := range samples {
		tokens[i] = float64(sample.Tokens)
		summary.TotalTokens += sample.Tokens
		if sample.Tokens > summary.MaxTokens {
			summary.MaxTokens = sample.Tokens
		}
		summary.Duration += sample.Duration
	}
	if mean, err := stats.Mean(tokens); err == nil {
		summary.MeanTokens = mean
	}
	return summary
}
