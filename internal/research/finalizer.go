package research

import (
	"context"
	"fmt"
	"time"

	"researchdesk/internal"
	"researchdesk/internal/errors"
	"researchdesk/models"
	"researchdesk/ports"

	"github.com/google/uuid"
)

// FinalizeResult is everything a caller needs to act on a finalized
// session: the artifact bytes (always produced), where they were
// persisted, and the delivery outcome, returned separately so a
// failed delivery can be retried out-of-band without rebuilding.
type FinalizeResult struct {
	ArtifactBytes []byte
	ArtifactPath  string
	PersistStatus ports.PersistStatus
	Delivery      ports.DeliveryResult
}

// Finalizer aggregates terminal provider results into a persisted
// report artifact and one delivery attempt per invocation, recording
// partial failure without losing already-obtained results.
type Finalizer struct {
	repo      ports.ResearchRepository
	builder   ports.ArtifactBuilder
	store     ports.ArtifactStore
	transport ports.DeliveryTransport
	// exporter optionally produces a supplementary artifact (the
	// insights workbook) next to the report; nil disables it.
	exporter ports.ArtifactBuilder
	logger   *internal.Logger
}

// NewFinalizer wires a finalizer with explicit collaborators.
func NewFinalizer(
	repo ports.ResearchRepository,
	builder ports.ArtifactBuilder,
	store ports.ArtifactStore,
	transport ports.DeliveryTransport,
	exporter ports.ArtifactBuilder,
	logger *internal.Logger,
) *Finalizer {
	if logger == nil {
		logger = internal.NewDefaultLogger()
	}
	return &Finalizer{
		repo:      repo,
		builder:   builder,
		store:     store,
		transport: transport,
		exporter:  exporter,
		logger:    logger,
	}
}

// Finalize builds the report for a session whose status is terminal,
// persists it, records the artifact path, and attempts delivery. The
// call never fails solely because delivery failed: the artifact's
// successful production is the higher-priority outcome and the caller
// receives bytes and delivery result separately. Re-finalizing a
// session whose report is already recorded is a caller error.
func (f *Finalizer) Finalize(ctx context.Context, ownerUID, sessionID uuid.UUID, userEmail string) (*FinalizeResult, error) {
	session, err := f.repo.GetByID(ctx, ownerUID, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.Status.IsTerminal() {
		return nil, errors.InvalidState(fmt.Sprintf("session status is %s; finalization requires completed or failed", session.Status))
	}
	if session.Report.PDFPath != "" {
		return nil, errors.InvalidState("session report already finalized")
	}

	input := ports.ReportInput{
		Title:        session.Title,
		UserEmail:    userEmail,
		CreatedAt:    session.CreatedAt,
		OpenAIResult: session.ResultFor(models.ProviderOpenAI),
		GeminiResult: session.ResultFor(models.ProviderGemini),
	}
	artifact, err := f.builder.Build(input)
	if err != nil {
		return nil, errors.Wrap(err, "building report artifact")
	}

	filename := fmt.Sprintf("research-report-%s.html", session.ID)
	persisted, err := f.store.Persist(ctx, session.ID.String(), artifact, filename)
	if err != nil {
		return nil, errors.Wrap(err, "persisting report artifact")
	}
	f.logger.Info("session %s report artifact %s (path %q)", sessionID, persisted.Status, persisted.Path)

	if f.exporter != nil {
		f.exportWorkbook(ctx, session, input)
	}

	// The path is recorded after the persistence attempt whatever its
	// outcome; a skipped store records an empty path.
	reportPatch := models.ReportPatch{PDFPath: models.StrPtr(persisted.Path)}
	delivery := f.deliver(ctx, session, userEmail, artifact, filename)
	if userEmail != "" {
		reportPatch.EmailedTo = models.StrPtr(userEmail)
	}
	switch delivery.Status {
	case ports.DeliverySent:
		reportPatch.EmailStatus = models.EmailStatusPtr(models.EmailSent)
	default:
		reportPatch.EmailStatus = models.EmailStatusPtr(models.EmailFailed)
		reportPatch.EmailError = models.StrPtr(delivery.ErrorMessage)
	}

	if err := f.repo.Update(ctx, ownerUID, sessionID, models.SessionPatch{Report: &reportPatch}); err != nil {
		return nil, errors.Wrap(err, "recording report state")
	}

	return &FinalizeResult{
		ArtifactBytes: artifact,
		ArtifactPath:  persisted.Path,
		PersistStatus: persisted.Status,
		Delivery:      delivery,
	}, nil
}

// deliver attempts exactly one delivery. A missing destination address
// is a data-completeness failure recorded without touching the
// transport; a transport error is caught and recorded verbatim.
func (f *Finalizer) deliver(ctx context.Context, session *models.ResearchSession, userEmail string, artifact []byte, filename string) ports.DeliveryResult {
	if userEmail == "" {
		f.logger.Warn("session %s: no destination email known, delivery not attempted", session.ID)
		return ports.DeliveryResult{
			Status:       ports.DeliveryFailed,
			ErrorMessage: "no destination email address on record",
		}
	}
	if f.transport == nil {
		f.logger.Warn("session %s: delivery transport not configured, delivery not attempted", session.ID)
		return ports.DeliveryResult{
			Status:       ports.DeliveryFailed,
			ErrorMessage: "delivery transport not configured",
		}
	}

	result, err := f.transport.Send(ctx, ports.DeliveryRequest{
		To:             userEmail,
		Subject:        fmt.Sprintf("Research report: %s", session.Title),
		Body:           fmt.Sprintf("Your research report %q from %s is attached.", session.Title, session.CreatedAt.Format(time.RFC1123)),
		AttachmentName: filename,
		Attachment:     artifact,
	})
	if err != nil {
		f.logger.Error("session %s: report delivery failed: %v", session.ID, err)
		return ports.DeliveryResult{Status: ports.DeliveryFailed, ErrorMessage: err.Error()}
	}
	if result.Status == ports.DeliveryFailed {
		f.logger.Error("session %s: report delivery failed: %s", session.ID, result.ErrorMessage)
	}
	return result
}

// exportWorkbook persists the supplementary insights workbook. Export
// problems are logged and swallowed: the workbook is an extra, the
// report is the deliverable.
func (f *Finalizer) exportWorkbook(ctx context.Context, session *models.ResearchSession, input ports.ReportInput) {
	workbook, err := f.exporter.Build(input)
	if err != nil {
		f.logger.Warn("session %s: insights workbook export failed: %v", session.ID, err)
		return
	}
	name := fmt.Sprintf("research-insights-%s.xlsx", session.ID)
	if _, err := f.store.Persist(ctx, session.ID.String(), workbook, name); err != nil {
		f.logger.Warn("session %s: insights workbook persist failed: %v", session.ID, err)
	}
}
