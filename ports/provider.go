package ports

import (
	"context"
	"encoding/json"

	"researchdesk/models"
)

// ProviderClient runs one research request against an external
// provider. Run fails with a transient error (timeout, 5xx, rate
// limit, optionally carrying a retry-after hint honored by the retry
// executor) or a permanent error (validation, auth) that must not be
// retried.
type ProviderClient interface {
	Provider() models.Provider
	Run(ctx context.Context, finalPrompt string) (json.RawMessage, error)
}

// Normalizer converts a raw provider payload into the normalized
// result shape. It must never fail: absent or malformed fields degrade
// to empty defaults (Summary "", Insights empty).
type Normalizer func(raw json.RawMessage) models.ProviderResult
