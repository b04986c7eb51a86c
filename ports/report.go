package ports

import (
	"context"
	"time"

	"researchdesk/models"
)

// ReportInput is everything the artifact builder needs to render a
// session report. Either provider result may be nil; an absent result
// renders as an empty section, never as an error.
type ReportInput struct {
	Title        string
	UserEmail    string
	CreatedAt    time.Time
	OpenAIResult *models.ProviderResult
	GeminiResult *models.ProviderResult
}

// ArtifactBuilder renders a report input into artifact bytes. Pure:
// no I/O, no failure modes beyond its error return.
type ArtifactBuilder interface {
	Build(input ReportInput) ([]byte, error)
}

// PersistStatus is the outcome of an artifact persistence attempt.
type PersistStatus string

const (
	PersistUploaded PersistStatus = "uploaded"
	PersistSkipped  PersistStatus = "skipped"
)

// PersistResult reports where (if anywhere) an artifact landed.
// Skipped is a valid outcome, not a failure: storage may be disabled
// in a given deployment.
type PersistResult struct {
	Status PersistStatus
	Path   string
}

// ArtifactStore persists report artifacts.
type ArtifactStore interface {
	Persist(ctx context.Context, sessionID string, data []byte, filename string) (PersistResult, error)
}

// DeliveryStatus is the outcome of a delivery attempt.
type DeliveryStatus string

const (
	DeliverySent   DeliveryStatus = "sent"
	DeliveryFailed DeliveryStatus = "failed"
)

// DeliveryResult reports a single delivery attempt.
type DeliveryResult struct {
	Status       DeliveryStatus `json:"status"`
	MessageID    string         `json:"message_id,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
}

// DeliveryRequest is one outbound report email.
type DeliveryRequest struct {
	To             string
	Subject        string
	Body           string
	AttachmentName string
	Attachment     []byte
}

// DeliveryTransport sends the report to its recipient. Transport
// errors are recorded by the caller, never propagated.
type DeliveryTransport interface {
	Send(ctx context.Context, req DeliveryRequest) (DeliveryResult, error)
}
