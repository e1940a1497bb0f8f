package documents

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"recruit-backend/internal/audit"
	"recruit-backend/internal/extract"
	"recruit-backend/internal/notifications"
	"recruit-backend/internal/shared/metrics"
	"recruit-backend/internal/shared/storage/object"
	"recruit-backend/internal/shared/telemetry"
)

// Service contains business logic for documents and share grants. Access
// to a document is consent-driven: the uploader is the only actor who may
// grant or revoke, regardless of role.
type Service struct {
	Store  object.ObjectStore
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

// Upload saves the file to object storage and records the document. Text
// extraction is best-effort and never fails the upload.
func (s *Service) Upload(ctx context.Context, uploaderUserID, fileName string, r io.Reader) (Document, error) {
	if fileName == "" {
		return Document{}, ErrInvalidInput
	}

	storageKey, size, mimeType, err := s.Store.Save(ctx, uploaderUserID, fileName, r)
	if err != nil {
		return Document{}, err
	}

	doc := Document{
		ID:             uuid.NewString(),
		UploaderUserID: uploaderUserID,
		FileName:       fileName,
		MimeType:       mimeType,
		SizeBytes:      size,
		StorageKey:     storageKey,
		CreatedAt:      s.now(),
	}
	if err := s.Repo.Create(ctx, doc); err != nil {
		return Document{}, err
	}

	s.extractText(ctx, doc)
	return doc, nil
}

func (s *Service) extractText(ctx context.Context, doc Document) {
	if _, err := extract.ExtractText(ctx, s.Store, doc.StorageKey, doc.MimeType, doc.FileName); err != nil {
		telemetry.Error("documents.extract_failed", map[string]any{
			"document_id": doc.ID,
			"err":         err.Error(),
		})
		return
	}
	if err := s.Repo.UpdateExtraction(ctx, doc.ID, extract.ExtractedKey(doc.StorageKey), s.now()); err != nil {
		telemetry.Error("documents.extract_record_failed", map[string]any{
			"document_id": doc.ID,
			"err":         err.Error(),
		})
	}
}

// Get returns a document the caller may see: the uploader, or a business
// user holding an active grant.
func (s *Service) Get(ctx context.Context, documentID, callerID string) (Document, error) {
	doc, err := s.Repo.GetByID(ctx, documentID)
	if err != nil {
		return Document{}, err
	}
	if doc.UploaderUserID == callerID {
		return doc, nil
	}
	allowed, err := s.UserHasAccess(ctx, documentID, callerID, nil)
	if err != nil {
		return Document{}, err
	}
	if !allowed {
		return Document{}, ErrUnauthorized
	}
	return doc, nil
}

// List returns the caller's own documents, newest first.
func (s *Service) List(ctx context.Context, callerID string, limit, offset int) ([]Document, error) {
	if callerID == "" {
		return nil, ErrInvalidInput
	}
	return s.Repo.ListByUploader(ctx, callerID, limit, offset)
}

// GrantAccess authorizes a business user to fetch the document. Only the
// uploader may grant. An existing active grant for the pair makes the call
// an idempotent no-op returning the stored grant.
func (s *Service) GrantAccess(ctx context.Context, documentID, callerID, businessUserID string, applicationID, documentRequestID *string) (ShareGrant, error) {
	if strings.TrimSpace(businessUserID) == "" {
		return ShareGrant{}, ErrInvalidInput
	}
	doc, err := s.Repo.GetByID(ctx, documentID)
	if err != nil {
		return ShareGrant{}, err
	}
	if doc.UploaderUserID != callerID {
		return ShareGrant{}, ErrUnauthorized
	}

	now := s.now()
	if existing, err := s.Repo.GetActiveGrant(ctx, documentID, businessUserID, now); err == nil {
		return existing, nil
	} else if !errors.Is(err, ErrNotFound) {
		return ShareGrant{}, err
	}

	grant := ShareGrant{
		ID:                uuid.NewString(),
		DocumentID:        documentID,
		CandidateUserID:   doc.UploaderUserID,
		BusinessUserID:    businessUserID,
		ApplicationID:     applicationID,
		DocumentRequestID: documentRequestID,
		GrantedAt:         now,
	}
	event := audit.Event{
		ActorID:    callerID,
		Action:     audit.ActionDocumentShared,
		EntityType: audit.EntityShareGrant,
		EntityID:   grant.ID,
		Details:    fmt.Sprintf("document=%s business_user=%s", documentID, businessUserID),
		CreatedAt:  now,
	}
	if err := s.Repo.CreateGrant(ctx, grant, event); err != nil {
		return ShareGrant{}, err
	}

	metrics.IncShareGranted()
	s.Notify.DocumentShared(ctx, documentID, businessUserID)
	return grant, nil
}

// RevokeAccess revokes the active grant for the pair. Only the uploader
// may revoke; the grant row is retained for audit history.
func (s *Service) RevokeAccess(ctx context.Context, documentID, callerID, businessUserID, reason string) error {
	doc, err := s.Repo.GetByID(ctx, documentID)
	if err != nil {
		return err
	}
	if doc.UploaderUserID != callerID {
		return ErrUnauthorized
	}

	now := s.now()
	grant, err := s.Repo.GetActiveGrant(ctx, documentID, businessUserID, now)
	if err != nil {
		return err
	}

	event := audit.Event{
		ActorID:    callerID,
		Action:     audit.ActionDocumentShareRevoked,
		EntityType: audit.EntityShareGrant,
		EntityID:   grant.ID,
		Details:    fmt.Sprintf("document=%s business_user=%s", documentID, businessUserID),
		CreatedAt:  now,
	}
	if err := s.Repo.RevokeGrant(ctx, grant.ID, now, callerID, reason, event); err != nil {
		return err
	}
	metrics.IncShareRevoked()
	return nil
}

// UserHasAccess reports whether an active, unexpired grant authorizes the
// user on this document. When the grant is application-scoped and an
// application context is supplied, they must match.
func (s *Service) UserHasAccess(ctx context.Context, documentID, userID string, applicationID *string) (bool, error) {
	grant, err := s.Repo.GetActiveGrant(ctx, documentID, userID, s.now())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if grant.ApplicationID != nil && applicationID != nil && *grant.ApplicationID != *applicationID {
		return false, nil
	}
	return true, nil
}

// Delete soft-deletes a document. Only the uploader may delete; the stored
// object and grant rows are retained, but the document stops resolving, so
// grant holders lose access with it.
func (s *Service) Delete(ctx context.Context, documentID, callerID string) error {
	doc, err := s.Repo.GetByID(ctx, documentID)
	if err != nil {
		return err
	}
	if doc.UploaderUserID != callerID {
		return ErrUnauthorized
	}

	now := s.now()
	event := audit.Event{
		ActorID:    callerID,
		Action:     audit.ActionDocumentDeleted,
		EntityType: audit.EntityDocument,
		EntityID:   documentID,
		Details:    fmt.Sprintf("file=%s", doc.FileName),
		CreatedAt:  now,
	}
	return s.Repo.SoftDelete(ctx, documentID, now, callerID, event)
}

// Open streams the stored file for a caller with access.
func (s *Service) Open(ctx context.Context, documentID, callerID string) (io.ReadCloser, Document, error) {
	doc, err := s.Get(ctx, documentID, callerID)
	if err != nil {
		return nil, Document{}, err
	}
	body, err := s.Store.Open(ctx, doc.StorageKey)
	if err != nil {
		return nil, Document{}, err
	}
	return body, doc, nil
}
