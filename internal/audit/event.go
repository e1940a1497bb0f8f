package audit

import "time"

// Event is an append-only record of a state-changing action. Events are
// committed in the same transaction as the write they describe, so an
// action is never visible without its audit trail or vice versa.
type Event struct {
	ID             string
	OrganizationID string
	ActorID        string
	Action         string
	EntityType     string
	EntityID       string
	Details        string
	CreatedAt      time.Time
}

// Actions recorded by the core services.
const (
	ActionApplicationCreated   = "application.created"
	ActionApplicationAdvanced  = "application.advanced"
	ActionPreHireConfirmed     = "application.prehire_confirmed"
	ActionConversationCreated  = "conversation.created"
	ActionConversationArchived = "conversation.archived"
	ActionMessageSent          = "message.sent"
	ActionMessageEdited        = "message.edited"
	ActionMessageDeleted       = "message.deleted"
	ActionParticipantAdded     = "participant.added"
	ActionParticipantRemoved   = "participant.removed"
	ActionConversationRated    = "conversation.rated"
	ActionDocumentShared       = "document.share_granted"
	ActionDocumentShareRevoked = "document.share_revoked"
	ActionDocumentDeleted      = "document.deleted"
)

// Entity types referenced by events.
const (
	EntityApplication  = "application"
	EntityConversation = "conversation"
	EntityMessage      = "message"
	EntityDocument     = "document"
	EntityShareGrant   = "share_grant"
)
