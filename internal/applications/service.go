package applications

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"recruit-backend/internal/audit"
	"recruit-backend/internal/notifications"
	"recruit-backend/internal/shared/metrics"
)

// Service owns the hiring pipeline. All status mutations go through Advance;
// collaborators that only need to know the stage read it through the Facade.
type Service struct {
	Repo   Repo
	Notify *notifications.Notifier
	Now    func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Apply creates an application at the applied stage. At most one
// non-withdrawn application may exist per (job, candidate).
func (s *Service) Apply(ctx context.Context, jobID, candidateID, organizationID string) (Application, error) {
	if strings.TrimSpace(jobID) == "" || strings.TrimSpace(candidateID) == "" || strings.TrimSpace(organizationID) == "" {
		return Application{}, ErrInvalidInput
	}

	now := s.now()
	app := Application{
		ID:             uuid.NewString(),
		JobID:          jobID,
		CandidateID:    candidateID,
		OrganizationID: organizationID,
		Status:         StatusApplied,
		AppliedAt:      now,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	history := StatusHistory{
		ID:            uuid.NewString(),
		ApplicationID: app.ID,
		FromStatus:    nil,
		ToStatus:      StatusApplied,
		ActorID:       candidateID,
		CreatedAt:     now,
	}
	event := audit.Event{
		OrganizationID: organizationID,
		ActorID:        candidateID,
		Action:         audit.ActionApplicationCreated,
		EntityType:     audit.EntityApplication,
		EntityID:       app.ID,
		Details:        fmt.Sprintf("job=%s", jobID),
		CreatedAt:      now,
	}
	if err := s.Repo.Create(ctx, app, history, event); err != nil {
		return Application{}, err
	}
	return app, nil
}

// Advance moves an application to the target status. The transition table
// is the single authority on what is reachable; entering hired additionally
// requires a positive pre-hire confirmation on record.
func (s *Service) Advance(ctx context.Context, applicationID string, target Status, actorID, note string) (Application, error) {
	if !ValidStatus(target) {
		return Application{}, ErrInvalidTransition
	}

	app, err := s.Repo.GetByID(ctx, applicationID)
	if err != nil {
		return Application{}, err
	}
	if IsTerminal(app.Status) {
		return Application{}, ErrTerminalState
	}
	if !CanTransition(app.Status, target) {
		return Application{}, ErrInvalidTransition
	}

	history := StatusHistory{
		ID:            uuid.NewString(),
		ApplicationID: app.ID,
		ToStatus:      target,
		ActorID:       actorID,
		Note:          note,
	}
	if target == StatusHired {
		conf, err := s.Repo.GetPreHireConfirmation(ctx, applicationID)
		if err != nil || !conf.RightToWorkConfirmed {
			return Application{}, ErrPreconditionFailed
		}
		history.PreHireFlagged = true
		history.PreHireText = conf.ConfirmationText
	}

	now := s.now()
	from := app.Status
	history.FromStatus = &from
	history.CreatedAt = now

	expectedVersion := app.Version
	app.Status = target
	if target == StatusRejected {
		app.RejectionReason = note
	}
	setMilestone(&app, target, now)
	app.Version++
	app.UpdatedAt = now

	event := audit.Event{
		OrganizationID: app.OrganizationID,
		ActorID:        actorID,
		Action:         audit.ActionApplicationAdvanced,
		EntityType:     audit.EntityApplication,
		EntityID:       app.ID,
		Details:        fmt.Sprintf("from=%s to=%s", from, target),
		CreatedAt:      now,
	}
	if err := s.Repo.UpdateStatus(ctx, app, expectedVersion, history, event); err != nil {
		return Application{}, err
	}

	metrics.IncPipelineTransition()
	s.Notify.ApplicationAdvanced(ctx, app.ID, app.OrganizationID, app.CandidateID, string(target))
	return app, nil
}

// RecordPreHireConfirmation records the one-time right-to-work attestation.
// The first recorded confirmation is immutable; repeat calls return it
// unchanged.
func (s *Service) RecordPreHireConfirmation(ctx context.Context, applicationID, actorID string, confirmed bool, text string, textVersion int) (PreHireConfirmation, error) {
	app, err := s.Repo.GetByID(ctx, applicationID)
	if err != nil {
		return PreHireConfirmation{}, err
	}

	now := s.now()
	conf := PreHireConfirmation{
		ID:                   uuid.NewString(),
		ApplicationID:        app.ID,
		ConfirmedByUserID:    actorID,
		RightToWorkConfirmed: confirmed,
		ConfirmationText:     text,
		TextVersion:          textVersion,
		CreatedAt:            now,
	}
	event := audit.Event{
		OrganizationID: app.OrganizationID,
		ActorID:        actorID,
		Action:         audit.ActionPreHireConfirmed,
		EntityType:     audit.EntityApplication,
		EntityID:       app.ID,
		Details:        fmt.Sprintf("confirmed=%t text_version=%d", confirmed, textVersion),
		CreatedAt:      now,
	}
	return s.Repo.CreatePreHireConfirmation(ctx, conf, event)
}

// Get returns a non-deleted application.
func (s *Service) Get(ctx context.Context, applicationID string) (Application, error) {
	return s.Repo.GetByID(ctx, applicationID)
}

// History returns the transition records for an application, newest first.
func (s *Service) History(ctx context.Context, applicationID string) ([]StatusHistory, error) {
	if _, err := s.Repo.GetByID(ctx, applicationID); err != nil {
		return nil, err
	}
	return s.Repo.History(ctx, applicationID)
}
