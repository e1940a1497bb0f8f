package applications

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

func sampleApplication(now time.Time) (Application, StatusHistory, audit.Event) {
	app := Application{
		ID:             "app-1",
		JobID:          "job-1",
		CandidateID:    "cand-1",
		OrganizationID: "org-1",
		Status:         StatusApplied,
		AppliedAt:      now,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	history := StatusHistory{
		ID:            "hist-1",
		ApplicationID: app.ID,
		ToStatus:      StatusApplied,
		ActorID:       "cand-1",
		CreatedAt:     now,
	}
	event := audit.Event{
		ID:             "evt-1",
		OrganizationID: "org-1",
		ActorID:        "cand-1",
		Action:         audit.ActionApplicationCreated,
		EntityType:     audit.EntityApplication,
		EntityID:       app.ID,
		CreatedAt:      now,
	}
	return app, history, event
}

func TestPGRepoCreateCommitsAllRows(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()
	app, history, event := sampleApplication(now)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(app.JobID, app.CandidateID, StatusWithdrawn).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec("INSERT INTO applications").
		WithArgs(app.ID, app.JobID, app.CandidateID, app.OrganizationID, app.Status, app.AppliedAt, app.Version, app.CreatedAt, app.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO application_status_history").
		WithArgs(history.ID, history.ApplicationID, nil, history.ToStatus, history.ActorID, nil, history.PreHireFlagged, nil, history.CreatedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO audit_events").
		WithArgs(event.ID, event.OrganizationID, event.ActorID, event.Action, event.EntityType, event.EntityID, nil, event.CreatedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	if err := repo.Create(context.Background(), app, history, event); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoCreateRejectsDuplicate(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()
	app, history, event := sampleApplication(now)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(app.JobID, app.CandidateID, StatusWithdrawn).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	if err := repo.Create(context.Background(), app, history, event); !errors.Is(err, ErrAlreadyApplied) {
		t.Fatalf("expected ErrAlreadyApplied, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoUpdateStatusVersionConflict(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()
	app, history, event := sampleApplication(now)
	from := app.Status
	app.Status = StatusScreening
	app.ScreenedAt = &now
	app.Version = 2
	history.FromStatus = &from
	history.ToStatus = StatusScreening

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE applications").
		WithArgs(
			app.Status,
			nil, // rejection_reason
			app.ScreenedAt.UTC(),
			nil, nil, nil, nil, nil, nil,
			app.Version,
			app.UpdatedAt,
			app.ID,
			1,
		).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	if err := repo.UpdateStatus(context.Background(), app, 1, history, event); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGetPreHireConfirmationNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("FROM prehire_confirmations").
		WithArgs("app-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	if _, err := repo.GetPreHireConfirmation(context.Background(), "app-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
