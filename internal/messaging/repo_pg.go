package messaging

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"recruit-backend/internal/audit"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// CreateConversation inserts the conversation, its participants, and the
// audit event in one transaction.
func (r *PGRepo) CreateConversation(ctx context.Context, conv Conversation, participants []Participant, event audit.Event) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const convQuery = `
INSERT INTO conversations (id, organization_id, application_id, subject, is_active, created_by_user_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := tx.ExecContext(ctx, convQuery,
		conv.ID,
		conv.OrganizationID,
		nullStringPtr(conv.ApplicationID),
		conv.Subject,
		conv.IsActive,
		conv.CreatedByID,
		conv.CreatedAt,
	); err != nil {
		return err
	}

	for _, p := range participants {
		if err := insertParticipant(ctx, tx, p); err != nil {
			return err
		}
	}
	if err := audit.Insert(ctx, tx, event); err != nil {
		return err
	}
	return tx.Commit()
}

// GetConversation returns a conversation by ID.
func (r *PGRepo) GetConversation(ctx context.Context, conversationID string) (Conversation, error) {
	const query = `
SELECT id, organization_id, application_id, subject, is_active, created_by_user_id, created_at, archived_at, archived_by_user_id
FROM conversations
WHERE id = $1
LIMIT 1`
	return scanConversation(r.DB.QueryRowContext(ctx, query, conversationID))
}

// ListActiveByApplication returns active conversations in the organization
// scoped to the given application.
func (r *PGRepo) ListActiveByApplication(ctx context.Context, organizationID, applicationID string) ([]Conversation, error) {
	const query = `
SELECT id, organization_id, application_id, subject, is_active, created_by_user_id, created_at, archived_at, archived_by_user_id
FROM conversations
WHERE organization_id = $1 AND application_id = $2 AND is_active = TRUE
ORDER BY created_at`
	rows, err := r.DB.QueryContext(ctx, query, organizationID, applicationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Conversation
	for rows.Next() {
		conv, err := scanConversationRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, conv)
	}
	return out, rows.Err()
}

// ActiveParticipantIDs returns the user IDs of non-left participants.
func (r *PGRepo) ActiveParticipantIDs(ctx context.Context, conversationID string) ([]string, error) {
	const query = `
SELECT user_id
FROM conversation_participants
WHERE conversation_id = $1 AND has_left = FALSE
ORDER BY user_id`
	rows, err := r.DB.QueryContext(ctx, query, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// GetActiveParticipant returns the non-left membership row for a user.
func (r *PGRepo) GetActiveParticipant(ctx context.Context, conversationID, userID string) (Participant, error) {
	const query = `
SELECT id, conversation_id, user_id, joined_at, has_left, left_at, last_read_at
FROM conversation_participants
WHERE conversation_id = $1 AND user_id = $2 AND has_left = FALSE
LIMIT 1`
	var p Participant
	var leftAt, lastReadAt sql.NullTime
	err := r.DB.QueryRowContext(ctx, query, conversationID, userID).Scan(
		&p.ID,
		&p.ConversationID,
		&p.UserID,
		&p.JoinedAt,
		&p.HasLeft,
		&leftAt,
		&lastReadAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Participant{}, ErrNotFound
		}
		return Participant{}, err
	}
	p.LeftAt = nullTimePtr(leftAt)
	p.LastReadAt = nullTimePtr(lastReadAt)
	return p, nil
}

// AddParticipant inserts a membership row with its audit event in one
// transaction.
func (r *PGRepo) AddParticipant(ctx context.Context, p Participant, event audit.Event) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := insertParticipant(ctx, tx, p); err != nil {
		return err
	}
	if err := audit.Insert(ctx, tx, event); err != nil {
		return err
	}
	return tx.Commit()
}

// MarkParticipantLeft soft-flags a membership as left together with its
// audit event.
func (r *PGRepo) MarkParticipantLeft(ctx context.Context, conversationID, userID string, at time.Time, event audit.Event) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const query = `
UPDATE conversation_participants
SET has_left = TRUE, left_at = $1
WHERE conversation_id = $2 AND user_id = $3 AND has_left = FALSE`
	res, err := tx.ExecContext(ctx, query, at, conversationID, userID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	if err := audit.Insert(ctx, tx, event); err != nil {
		return err
	}
	return tx.Commit()
}

// UpdateLastRead stamps the participant's last-read time.
func (r *PGRepo) UpdateLastRead(ctx context.Context, conversationID, userID string, at time.Time) error {
	const query = `
UPDATE conversation_participants
SET last_read_at = $1
WHERE conversation_id = $2 AND user_id = $3 AND has_left = FALSE`
	_, err := r.DB.ExecContext(ctx, query, at, conversationID, userID)
	return err
}

// CreateMessage inserts a message with its audit event in one transaction.
func (r *PGRepo) CreateMessage(ctx context.Context, m Message, event audit.Event) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const query = `
INSERT INTO messages (id, conversation_id, sender_id, content, sent_at, is_deleted)
VALUES ($1, $2, $3, $4, $5, FALSE)`
	if _, err := tx.ExecContext(ctx, query, m.ID, m.ConversationID, m.SenderID, m.Content, m.SentAt); err != nil {
		return err
	}
	if err := audit.Insert(ctx, tx, event); err != nil {
		return err
	}
	return tx.Commit()
}

// GetMessage returns a message by ID.
func (r *PGRepo) GetMessage(ctx context.Context, messageID string) (Message, error) {
	const query = `
SELECT id, conversation_id, sender_id, content, sent_at, edited_at, is_deleted, deleted_at, deleted_by_user_id
FROM messages
WHERE id = $1
LIMIT 1`
	var m Message
	var editedAt, deletedAt sql.NullTime
	var deletedBy sql.NullString
	err := r.DB.QueryRowContext(ctx, query, messageID).Scan(
		&m.ID,
		&m.ConversationID,
		&m.SenderID,
		&m.Content,
		&m.SentAt,
		&editedAt,
		&m.IsDeleted,
		&deletedAt,
		&deletedBy,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Message{}, ErrNotFound
		}
		return Message{}, err
	}
	m.EditedAt = nullTimePtr(editedAt)
	m.DeletedAt = nullTimePtr(deletedAt)
	if deletedBy.Valid {
		m.DeletedByID = deletedBy.String
	}
	return m, nil
}

// UpdateMessage persists an edit or soft delete with its audit event.
func (r *PGRepo) UpdateMessage(ctx context.Context, m Message, event audit.Event) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const query = `
UPDATE messages
SET content = $1, edited_at = $2, is_deleted = $3, deleted_at = $4, deleted_by_user_id = $5
WHERE id = $6`
	res, err := tx.ExecContext(ctx, query,
		m.Content,
		nullTime(m.EditedAt),
		m.IsDeleted,
		nullTime(m.DeletedAt),
		nullString(m.DeletedByID),
		m.ID,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	if err := audit.Insert(ctx, tx, event); err != nil {
		return err
	}
	return tx.Commit()
}

// ListMessages returns non-deleted messages, oldest first.
func (r *PGRepo) ListMessages(ctx context.Context, conversationID string, limit, offset int) ([]Message, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
SELECT id, conversation_id, sender_id, content, sent_at, edited_at, is_deleted, deleted_at, deleted_by_user_id
FROM messages
WHERE conversation_id = $1 AND is_deleted = FALSE
ORDER BY sent_at
LIMIT $2 OFFSET $3`
	rows, err := r.DB.QueryContext(ctx, query, conversationID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		var editedAt, deletedAt sql.NullTime
		var deletedBy sql.NullString
		if err := rows.Scan(
			&m.ID,
			&m.ConversationID,
			&m.SenderID,
			&m.Content,
			&m.SentAt,
			&editedAt,
			&m.IsDeleted,
			&deletedAt,
			&deletedBy,
		); err != nil {
			return nil, err
		}
		m.EditedAt = nullTimePtr(editedAt)
		m.DeletedAt = nullTimePtr(deletedAt)
		if deletedBy.Valid {
			m.DeletedByID = deletedBy.String
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// CountRecentBySender counts the sender's non-deleted messages at or after
// since.
func (r *PGRepo) CountRecentBySender(ctx context.Context, conversationID, senderID string, since time.Time) (int, error) {
	const query = `
SELECT COUNT(*)
FROM messages
WHERE conversation_id = $1 AND sender_id = $2 AND is_deleted = FALSE AND sent_at >= $3`
	var count int
	if err := r.DB.QueryRowContext(ctx, query, conversationID, senderID, since).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// CountMessages counts non-deleted messages in the conversation.
func (r *PGRepo) CountMessages(ctx context.Context, conversationID string) (int, error) {
	const query = `
SELECT COUNT(*)
FROM messages
WHERE conversation_id = $1 AND is_deleted = FALSE`
	var count int
	if err := r.DB.QueryRowContext(ctx, query, conversationID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// CreateRating inserts a rating with its audit event. The unique
// (conversation, user) constraint turns duplicates into ErrAlreadyRated.
func (r *PGRepo) CreateRating(ctx context.Context, rating Rating, event audit.Event) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const query = `
INSERT INTO conversation_ratings (id, conversation_id, user_id, score, comment, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (conversation_id, user_id) DO NOTHING`
	res, err := tx.ExecContext(ctx, query,
		rating.ID,
		rating.ConversationID,
		rating.UserID,
		rating.Score,
		nullString(rating.Comment),
		rating.CreatedAt,
	)
	if err != nil {
		return err
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if inserted == 0 {
		return ErrAlreadyRated
	}
	if err := audit.Insert(ctx, tx, event); err != nil {
		return err
	}
	return tx.Commit()
}

// UnreadCount counts messages in the user's active organization
// conversations sent after the later of their last read and join times.
func (r *PGRepo) UnreadCount(ctx context.Context, organizationID, userID string) (int, error) {
	const query = `
SELECT COUNT(*)
FROM messages m
JOIN conversation_participants p ON p.conversation_id = m.conversation_id
JOIN conversations c ON c.id = m.conversation_id
WHERE c.organization_id = $1
  AND p.user_id = $2
  AND p.has_left = FALSE
  AND m.is_deleted = FALSE
  AND m.sent_at > GREATEST(COALESCE(p.last_read_at, 'epoch'::timestamptz), p.joined_at)`
	var count int
	if err := r.DB.QueryRowContext(ctx, query, organizationID, userID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// ArchiveConversation soft-archives a conversation with its audit event.
func (r *PGRepo) ArchiveConversation(ctx context.Context, conversationID, archivedBy string, at time.Time, event audit.Event) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const query = `
UPDATE conversations
SET is_active = FALSE, archived_at = $1, archived_by_user_id = $2
WHERE id = $3 AND is_active = TRUE`
	res, err := tx.ExecContext(ctx, query, at, archivedBy, conversationID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	if err := audit.Insert(ctx, tx, event); err != nil {
		return err
	}
	return tx.Commit()
}

func insertParticipant(ctx context.Context, ex audit.Execer, p Participant) error {
	const query = `
INSERT INTO conversation_participants (id, conversation_id, user_id, joined_at, has_left)
VALUES ($1, $2, $3, $4, FALSE)`
	_, err := ex.ExecContext(ctx, query, p.ID, p.ConversationID, p.UserID, p.JoinedAt)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversation(row *sql.Row) (Conversation, error) {
	conv, err := scanConversationRows(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Conversation{}, ErrNotFound
		}
		return Conversation{}, err
	}
	return conv, nil
}

func scanConversationRows(row rowScanner) (Conversation, error) {
	var conv Conversation
	var applicationID sql.NullString
	var archivedAt sql.NullTime
	var archivedBy sql.NullString
	err := row.Scan(
		&conv.ID,
		&conv.OrganizationID,
		&applicationID,
		&conv.Subject,
		&conv.IsActive,
		&conv.CreatedByID,
		&conv.CreatedAt,
		&archivedAt,
		&archivedBy,
	)
	if err != nil {
		return Conversation{}, err
	}
	if applicationID.Valid {
		id := applicationID.String
		conv.ApplicationID = &id
	}
	conv.ArchivedAt = nullTimePtr(archivedAt)
	if archivedBy.Valid {
		conv.ArchivedByID = archivedBy.String
	}
	return conv, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullTimePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

var _ Repo = (*PGRepo)(nil)
