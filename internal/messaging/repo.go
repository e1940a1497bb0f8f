package messaging

import (
	"context"
	"time"

	"recruit-backend/internal/audit"
)

// Repo defines persistence for conversations, participants, messages, and
// ratings. State-changing methods take the audit event so implementations
// commit both atomically.
type Repo interface {
	// CreateConversation inserts the conversation, its initial participants,
	// and the audit event in one transaction.
	CreateConversation(ctx context.Context, conv Conversation, participants []Participant, event audit.Event) error

	// GetConversation returns an active or archived conversation, or
	// ErrNotFound.
	GetConversation(ctx context.Context, conversationID string) (Conversation, error)

	// ListActiveByApplication returns active conversations in the
	// organization scoped to the application.
	ListActiveByApplication(ctx context.Context, organizationID, applicationID string) ([]Conversation, error)

	// ActiveParticipantIDs returns the user IDs of non-left participants.
	ActiveParticipantIDs(ctx context.Context, conversationID string) ([]string, error)

	// GetActiveParticipant returns the non-left membership row for a user,
	// or ErrNotFound.
	GetActiveParticipant(ctx context.Context, conversationID, userID string) (Participant, error)

	// AddParticipant inserts a membership row with its audit event.
	AddParticipant(ctx context.Context, p Participant, event audit.Event) error

	// MarkParticipantLeft soft-flags a membership as left.
	MarkParticipantLeft(ctx context.Context, conversationID, userID string, at time.Time, event audit.Event) error

	// UpdateLastRead stamps the participant's last-read time.
	UpdateLastRead(ctx context.Context, conversationID, userID string, at time.Time) error

	// CreateMessage inserts a message with its audit event.
	CreateMessage(ctx context.Context, m Message, event audit.Event) error

	// GetMessage returns a message or ErrNotFound.
	GetMessage(ctx context.Context, messageID string) (Message, error)

	// UpdateMessage persists an edit or soft delete of a message with its
	// audit event.
	UpdateMessage(ctx context.Context, m Message, event audit.Event) error

	// ListMessages returns non-deleted messages, oldest first.
	ListMessages(ctx context.Context, conversationID string, limit, offset int) ([]Message, error)

	// CountRecentBySender counts non-deleted messages the sender wrote in
	// this conversation at or after since.
	CountRecentBySender(ctx context.Context, conversationID, senderID string, since time.Time) (int, error)

	// CountMessages counts non-deleted messages in the conversation.
	CountMessages(ctx context.Context, conversationID string) (int, error)

	// CreateRating inserts a rating, or returns ErrAlreadyRated when the
	// user already rated the conversation.
	CreateRating(ctx context.Context, r Rating, event audit.Event) error

	// UnreadCount counts messages across the user's active memberships in
	// the organization sent after max(LastReadAt, JoinedAt).
	UnreadCount(ctx context.Context, organizationID, userID string) (int, error)

	// ArchiveConversation soft-archives a conversation.
	ArchiveConversation(ctx context.Context, conversationID, archivedBy string, at time.Time, event audit.Event) error
}
