package documents

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"recruit-backend/internal/audit"
	"recruit-backend/internal/shared/storage/object/local"
)

func setupDocuments(t *testing.T) (*Service, *audit.MemoryLog) {
	t.Helper()
	log := audit.NewMemoryLog()
	svc := &Service{
		Store: local.New(t.TempDir()),
		Repo:  NewMemoryRepo(log),
	}
	return svc, log
}

func mustUpload(t *testing.T, svc *Service, uploaderID string) Document {
	t.Helper()
	doc, err := svc.Upload(context.Background(), uploaderID, "cv.txt", bytes.NewReader([]byte("work history")))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	return doc
}

func TestUploadStoresDocument(t *testing.T) {
	svc, _ := setupDocuments(t)

	doc := mustUpload(t, svc, "cand-1")
	if doc.UploaderUserID != "cand-1" {
		t.Fatalf("unexpected uploader: %s", doc.UploaderUserID)
	}
	if doc.SizeBytes == 0 || doc.StorageKey == "" {
		t.Fatalf("expected stored file metadata, got %+v", doc)
	}

	body, got, err := svc.Open(context.Background(), doc.ID, "cand-1")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer body.Close()
	content, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(content) != "work history" {
		t.Fatalf("unexpected content: %q", content)
	}
	if got.ID != doc.ID {
		t.Fatalf("unexpected document: %+v", got)
	}
}

func TestGetRequiresOwnershipOrGrant(t *testing.T) {
	svc, _ := setupDocuments(t)
	doc := mustUpload(t, svc, "cand-1")

	if _, err := svc.Get(context.Background(), doc.ID, "biz-1"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	if _, err := svc.GrantAccess(context.Background(), doc.ID, "cand-1", "biz-1", nil, nil); err != nil {
		t.Fatalf("grant: %v", err)
	}

	got, err := svc.Get(context.Background(), doc.ID, "biz-1")
	if err != nil {
		t.Fatalf("get with grant: %v", err)
	}
	if got.ID != doc.ID {
		t.Fatalf("unexpected document: %+v", got)
	}
}

func TestGrantAccessUploaderOnly(t *testing.T) {
	svc, _ := setupDocuments(t)
	doc := mustUpload(t, svc, "cand-1")

	if _, err := svc.GrantAccess(context.Background(), doc.ID, "biz-1", "biz-2", nil, nil); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestGrantAccessIdempotent(t *testing.T) {
	svc, log := setupDocuments(t)
	doc := mustUpload(t, svc, "cand-1")

	first, err := svc.GrantAccess(context.Background(), doc.ID, "cand-1", "biz-1", nil, nil)
	if err != nil {
		t.Fatalf("grant: %v", err)
	}
	second, err := svc.GrantAccess(context.Background(), doc.ID, "cand-1", "biz-1", nil, nil)
	if err != nil {
		t.Fatalf("repeat grant: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected stored grant returned, got a new one")
	}
	if got := log.CountByAction(audit.ActionDocumentShared); got != 1 {
		t.Fatalf("expected 1 share audit event, got %d", got)
	}
}

func TestRevokeThenRegrant(t *testing.T) {
	svc, log := setupDocuments(t)
	doc := mustUpload(t, svc, "cand-1")

	first, err := svc.GrantAccess(context.Background(), doc.ID, "cand-1", "biz-1", nil, nil)
	if err != nil {
		t.Fatalf("grant: %v", err)
	}

	if err := svc.RevokeAccess(context.Background(), doc.ID, "biz-1", "biz-1", ""); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for non-uploader revoke, got %v", err)
	}
	if err := svc.RevokeAccess(context.Background(), doc.ID, "cand-1", "biz-1", "no longer needed"); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	allowed, err := svc.UserHasAccess(context.Background(), doc.ID, "biz-1", nil)
	if err != nil {
		t.Fatalf("access check: %v", err)
	}
	if allowed {
		t.Fatalf("revoked grant should not authorize")
	}

	// Revoking again finds no active grant.
	if err := svc.RevokeAccess(context.Background(), doc.ID, "cand-1", "biz-1", ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	// A fresh grant is a distinct record, not a resurrection.
	regrant, err := svc.GrantAccess(context.Background(), doc.ID, "cand-1", "biz-1", nil, nil)
	if err != nil {
		t.Fatalf("regrant: %v", err)
	}
	if regrant.ID == first.ID {
		t.Fatalf("expected a new grant record after revocation")
	}
	if got := log.CountByAction(audit.ActionDocumentShareRevoked); got != 1 {
		t.Fatalf("expected 1 revoke audit event, got %d", got)
	}
}

func TestUserHasAccessApplicationScope(t *testing.T) {
	svc, _ := setupDocuments(t)
	doc := mustUpload(t, svc, "cand-1")

	appID := "app-1"
	if _, err := svc.GrantAccess(context.Background(), doc.ID, "cand-1", "biz-1", &appID, nil); err != nil {
		t.Fatalf("grant: %v", err)
	}

	// Matching application, no context at all, and mismatch.
	sameApp := "app-1"
	otherApp := "app-2"
	cases := []struct {
		name  string
		appID *string
		want  bool
	}{
		{"matching application", &sameApp, true},
		{"no application context", nil, true},
		{"different application", &otherApp, false},
	}
	for _, tc := range cases {
		allowed, err := svc.UserHasAccess(context.Background(), doc.ID, "biz-1", tc.appID)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if allowed != tc.want {
			t.Errorf("%s: got %v, want %v", tc.name, allowed, tc.want)
		}
	}
}

func TestExpiredGrantDoesNotAuthorize(t *testing.T) {
	svc, _ := setupDocuments(t)
	current := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	svc.Now = func() time.Time { return current }
	doc := mustUpload(t, svc, "cand-1")

	grant, err := svc.GrantAccess(context.Background(), doc.ID, "cand-1", "biz-1", nil, nil)
	if err != nil {
		t.Fatalf("grant: %v", err)
	}
	if !grant.Active(current) {
		t.Fatalf("fresh grant should be active")
	}

	expiry := current.Add(time.Hour)
	grant.ExpiresAt = &expiry
	if !grant.Active(current.Add(30 * time.Minute)) {
		t.Fatalf("grant should be active before expiry")
	}
	if grant.Active(expiry) {
		t.Fatalf("grant should lapse at expiry")
	}
}

func TestDeleteDocument(t *testing.T) {
	svc, log := setupDocuments(t)
	doc := mustUpload(t, svc, "cand-1")

	if _, err := svc.GrantAccess(context.Background(), doc.ID, "cand-1", "biz-1", nil, nil); err != nil {
		t.Fatalf("grant: %v", err)
	}

	if err := svc.Delete(context.Background(), doc.ID, "biz-1"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for non-uploader, got %v", err)
	}

	if err := svc.Delete(context.Background(), doc.ID, "cand-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got := log.CountByAction(audit.ActionDocumentDeleted); got != 1 {
		t.Fatalf("expected 1 delete audit event, got %d", got)
	}

	// The document stops resolving for everyone, grant holders included.
	if _, err := svc.Get(context.Background(), doc.ID, "cand-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if _, err := svc.Get(context.Background(), doc.ID, "biz-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for grant holder, got %v", err)
	}

	if err := svc.Delete(context.Background(), doc.ID, "cand-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}
