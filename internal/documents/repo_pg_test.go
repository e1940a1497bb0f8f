package documents

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"recruit-backend/internal/audit"
)

func newMockRepo(t *testing.T) (*PGRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return &PGRepo{DB: db}, mock
}

func TestPGRepoCreateGrantCommitsWithAudit(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()
	grant := ShareGrant{
		ID:              "grant-1",
		DocumentID:      "doc-1",
		CandidateUserID: "cand-1",
		BusinessUserID:  "biz-1",
		GrantedAt:       now,
	}
	event := audit.Event{
		ID:         "evt-1",
		ActorID:    "cand-1",
		Action:     audit.ActionDocumentShared,
		EntityType: audit.EntityShareGrant,
		EntityID:   grant.ID,
		CreatedAt:  now,
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO document_share_grants").
		WithArgs(grant.ID, grant.DocumentID, grant.CandidateUserID, grant.BusinessUserID, nil, nil, grant.GrantedAt, nil).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO audit_events").
		WithArgs(event.ID, event.OrganizationID, event.ActorID, event.Action, event.EntityType, event.EntityID, nil, event.CreatedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	if err := repo.CreateGrant(context.Background(), grant, event); err != nil {
		t.Fatalf("CreateGrant: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoRevokeGrantAlreadyRevoked(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE document_share_grants").
		WithArgs(now, "cand-1", "no longer needed", "grant-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	if err := repo.RevokeGrant(context.Background(), "grant-1", now, "cand-1", "no longer needed", audit.Event{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGetActiveGrantFiltersRevoked(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()

	mock.ExpectQuery("FROM document_share_grants").
		WithArgs("doc-1", "biz-1", now).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	if _, err := repo.GetActiveGrant(context.Background(), "doc-1", "biz-1", now); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
