package orgs

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGRepoIsStaff(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	repo := &PGRepo{DB: db}

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("org-1", "user-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := repo.IsStaff(context.Background(), "org-1", "user-1")
	if err != nil {
		t.Fatalf("IsStaff: %v", err)
	}
	if !ok {
		t.Fatalf("expected staff membership")
	}

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("org-1", "user-2").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	ok, err = repo.IsStaff(context.Background(), "org-1", "user-2")
	if err != nil {
		t.Fatalf("IsStaff: %v", err)
	}
	if ok {
		t.Fatalf("expected no membership")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}
