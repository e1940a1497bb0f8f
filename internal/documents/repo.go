package documents

import (
	"context"
	"time"

	"recruit-backend/internal/audit"
)

// Repo defines persistence for documents and share grants.
type Repo interface {
	// Create inserts a new document.
	Create(ctx context.Context, doc Document) error

	// GetByID returns a non-deleted document or ErrNotFound.
	GetByID(ctx context.Context, documentID string) (Document, error)

	// ListByUploader lists a user's documents, newest first.
	ListByUploader(ctx context.Context, uploaderUserID string, limit, offset int) ([]Document, error)

	// UpdateExtraction stores extracted-text metadata for a document.
	UpdateExtraction(ctx context.Context, documentID, extractedKey string, extractedAt time.Time) error

	// SoftDelete marks a document deleted with its audit event in one
	// transaction. Already-deleted documents return ErrNotFound.
	SoftDelete(ctx context.Context, documentID string, at time.Time, deletedBy string, event audit.Event) error

	// CreateGrant inserts a grant with its audit event in one transaction.
	CreateGrant(ctx context.Context, grant ShareGrant, event audit.Event) error

	// GetActiveGrant returns the unrevoked, unexpired grant for the pair,
	// or ErrNotFound.
	GetActiveGrant(ctx context.Context, documentID, businessUserID string, now time.Time) (ShareGrant, error)

	// RevokeGrant records the revocation with its audit event in one
	// transaction. The row is retained.
	RevokeGrant(ctx context.Context, grantID string, at time.Time, revokedBy, reason string, event audit.Event) error
}
