// Package notifications fans out queue payloads after guarded actions
// commit. Delivery is best-effort: a queue failure is logged and never
// fails the operation that triggered it.
package notifications

import (
	"context"
	"time"

	"recruit-backend/internal/queue"
	"recruit-backend/internal/shared/telemetry"
)

// Notifier enqueues notification payloads. A nil Notifier or nil Queue is a
// no-op, so services can call it unconditionally.
type Notifier struct {
	Queue queue.Client
}

// ApplicationAdvanced notifies the candidate that their application moved.
func (n *Notifier) ApplicationAdvanced(ctx context.Context, applicationID, organizationID, recipientID, status string) {
	n.send(ctx, queue.Message{
		Type:           queue.TypeApplicationAdvanced,
		EntityID:       applicationID,
		OrganizationID: organizationID,
		RecipientID:    recipientID,
		Detail:         status,
	})
}

// MessageSent notifies conversation members about a new message.
func (n *Notifier) MessageSent(ctx context.Context, messageID, organizationID, recipientID string) {
	n.send(ctx, queue.Message{
		Type:           queue.TypeMessageSent,
		EntityID:       messageID,
		OrganizationID: organizationID,
		RecipientID:    recipientID,
	})
}

// DocumentShared notifies a business user about a newly granted document.
func (n *Notifier) DocumentShared(ctx context.Context, documentID, recipientID string) {
	n.send(ctx, queue.Message{
		Type:        queue.TypeDocumentShared,
		EntityID:    documentID,
		RecipientID: recipientID,
	})
}

func (n *Notifier) send(ctx context.Context, msg queue.Message) {
	if n == nil || n.Queue == nil {
		return
	}
	msg.EnqueuedAt = time.Now().UTC().Format(time.RFC3339)
	msg.Version = 1
	if err := n.Queue.Send(ctx, msg); err != nil {
		telemetry.Error("notify.enqueue_failed", map[string]any{
			"type":      msg.Type,
			"entity_id": msg.EntityID,
			"err":       err.Error(),
		})
	}
}
