package applications

import (
	"context"

	"recruit-backend/internal/audit"
)

// Repo defines persistence for applications, their transition history, and
// pre-hire confirmations. Writes that change state take the audit event so
// implementations can commit both in one transaction.
type Repo interface {
	// Create inserts the application, its creation history row, and the
	// audit event atomically. Returns ErrAlreadyApplied when a non-withdrawn
	// application for the same (job, candidate) already exists.
	Create(ctx context.Context, app Application, history StatusHistory, event audit.Event) error

	// GetByID returns a non-deleted application or ErrNotFound.
	GetByID(ctx context.Context, applicationID string) (Application, error)

	// UpdateStatus applies a version-stamped status update together with its
	// history row and audit event. expectedVersion is the version the caller
	// read; a mismatch returns ErrConflict.
	UpdateStatus(ctx context.Context, app Application, expectedVersion int, history StatusHistory, event audit.Event) error

	// CreatePreHireConfirmation inserts the confirmation and audit event
	// atomically. A confirmation already on record wins; the insert is
	// skipped and the stored confirmation returned.
	CreatePreHireConfirmation(ctx context.Context, conf PreHireConfirmation, event audit.Event) (PreHireConfirmation, error)

	// GetPreHireConfirmation returns the confirmation or ErrNotFound.
	GetPreHireConfirmation(ctx context.Context, applicationID string) (PreHireConfirmation, error)

	// History returns all transition records, newest first.
	History(ctx context.Context, applicationID string) ([]StatusHistory, error)
}
