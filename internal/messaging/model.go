package messaging

import "time"

// Conversation is a messaging thread within an organization, optionally
// scoped to exactly one application.
type Conversation struct {
	ID             string
	OrganizationID string
	ApplicationID  *string
	Subject        string
	IsActive       bool
	CreatedByID    string
	CreatedAt      time.Time
	ArchivedAt     *time.Time
	ArchivedByID   string
}

// Participant is one user's membership in a conversation. Leaving sets
// HasLeft; rows are never deleted so message attribution survives.
type Participant struct {
	ID             string
	ConversationID string
	UserID         string
	JoinedAt       time.Time
	HasLeft        bool
	LeftAt         *time.Time
	LastReadAt     *time.Time
}

// Message is content sent by a participant.
type Message struct {
	ID             string
	ConversationID string
	SenderID       string
	Content        string
	SentAt         time.Time
	EditedAt       *time.Time
	IsDeleted      bool
	DeletedAt      *time.Time
	DeletedByID    string
}

// Rating is one participant's rating of a conversation.
type Rating struct {
	ID             string
	ConversationID string
	UserID         string
	Score          int
	Comment        string
	CreatedAt      time.Time
}
