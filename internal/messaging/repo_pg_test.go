package messaging

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

func TestPGRepoCreateRatingRejectsDuplicate(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()
	rating := Rating{
		ID:             "rating-1",
		ConversationID: "conv-1",
		UserID:         "user-1",
		Score:          4,
		CreatedAt:      now,
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO conversation_ratings").
		WithArgs(rating.ID, rating.ConversationID, rating.UserID, rating.Score, nil, rating.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	if err := repo.CreateRating(context.Background(), rating, audit.Event{}); !errors.Is(err, ErrAlreadyRated) {
		t.Fatalf("expected ErrAlreadyRated, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoArchiveConversationAlreadyArchived(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE conversations").
		WithArgs(now, "user-1", "conv-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	if err := repo.ArchiveConversation(context.Background(), "conv-1", "user-1", now, audit.Event{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoCreateMessageCommitsWithAudit(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()
	msg := Message{
		ID:             "msg-1",
		ConversationID: "conv-1",
		SenderID:       "user-1",
		Content:        "hello",
		SentAt:         now,
	}
	event := audit.Event{
		ID:             "evt-1",
		OrganizationID: "org-1",
		ActorID:        "user-1",
		Action:         audit.ActionMessageSent,
		EntityType:     audit.EntityMessage,
		EntityID:       msg.ID,
		CreatedAt:      now,
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO messages").
		WithArgs(msg.ID, msg.ConversationID, msg.SenderID, msg.Content, msg.SentAt).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO audit_events").
		WithArgs(event.ID, event.OrganizationID, event.ActorID, event.Action, event.EntityType, event.EntityID, nil, event.CreatedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	if err := repo.CreateMessage(context.Background(), msg, event); err != nil {
		t.Fatalf("CreateMessage: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGetConversationNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("FROM conversations").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	if _, err := repo.GetConversation(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGRepoUnreadCountQuery(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT COUNT").
		WithArgs("org-1", "user-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	count, err := repo.UnreadCount(context.Background(), "org-1", "user-1")
	if err != nil {
		t.Fatalf("UnreadCount: %v", err)
	}
	if count != 7 {
		t.Fatalf("expected 7, got %d", count)
	}
}
