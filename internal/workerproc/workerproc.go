package workerproc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"recruit-backend/internal/queue"
	"recruit-backend/internal/shared/telemetry"
)

// MessageMeta captures details useful for logging and diagnostics.
type MessageMeta struct {
	BodyLen int
	BodySHA string
}

// ComputeMeta returns the body length and SHA-256 hash.
func ComputeMeta(body string) MessageMeta {
	if body == "" {
		return MessageMeta{BodyLen: 0, BodySHA: ""}
	}
	sum := sha256.Sum256([]byte(body))
	return MessageMeta{BodyLen: len(body), BodySHA: hex.EncodeToString(sum[:])}
}

// ErrEmptyBody indicates an empty queue payload.
type ErrEmptyBody struct {
	Meta MessageMeta
}

func (e ErrEmptyBody) Error() string { return "empty message body" }

// ErrDecode indicates a JSON decode failure.
type ErrDecode struct {
	Meta MessageMeta
	Err  error
}

func (e ErrDecode) Error() string {
	if e.Err == nil {
		return "decode message"
	}
	return "decode message: " + e.Err.Error()
}

// ErrMissingRecipient indicates a message missing the recipient id.
type ErrMissingRecipient struct {
	Meta MessageMeta
	Type string
}

func (e ErrMissingRecipient) Error() string { return "missing recipient id" }

// ErrUnknownType indicates a notification type this worker cannot handle.
type ErrUnknownType struct {
	Type string
}

func (e ErrUnknownType) Error() string { return "unknown notification type: " + e.Type }

// ErrDeliver indicates delivery failed after successful parsing.
type ErrDeliver struct {
	Type        string
	RecipientID string
	Err         error
}

func (e ErrDeliver) Error() string {
	if e.Err == nil {
		return "deliver notification"
	}
	return "deliver notification: " + e.Err.Error()
}

// ParseMessage validates and decodes the queue payload.
func ParseMessage(body string) (queue.Message, MessageMeta, error) {
	meta := ComputeMeta(body)
	if strings.TrimSpace(body) == "" {
		return queue.Message{}, meta, ErrEmptyBody{Meta: meta}
	}

	msg, err := queue.DecodeMessage([]byte(body))
	if err != nil {
		return queue.Message{}, meta, ErrDecode{Meta: meta, Err: err}
	}
	if strings.TrimSpace(msg.RecipientID) == "" {
		return queue.Message{}, meta, ErrMissingRecipient{Meta: meta, Type: msg.Type}
	}
	switch msg.Type {
	case queue.TypeApplicationAdvanced, queue.TypeMessageSent, queue.TypeDocumentShared:
	default:
		return queue.Message{}, meta, ErrUnknownType{Type: msg.Type}
	}
	return msg, meta, nil
}

// Deliverer pushes a parsed notification to its recipient.
type Deliverer interface {
	Deliver(ctx context.Context, msg queue.Message) error
}

// LogDeliverer writes notification deliveries to the structured log. It is
// the delivery sink until a push or email channel is configured.
type LogDeliverer struct{}

func (LogDeliverer) Deliver(ctx context.Context, msg queue.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	telemetry.Info("notify.delivered", map[string]any{
		"type":            msg.Type,
		"entity_id":       msg.EntityID,
		"organization_id": msg.OrganizationID,
		"recipient_id":    msg.RecipientID,
		"detail":          msg.Detail,
	})
	return nil
}

// HandleMessage parses the payload and hands it to the deliverer.
func HandleMessage(ctx context.Context, deliverer Deliverer, body string) error {
	msg, _, err := ParseMessage(body)
	if err != nil {
		return err
	}
	if deliverer == nil {
		deliverer = LogDeliverer{}
	}
	if err := deliverer.Deliver(ctx, msg); err != nil {
		return ErrDeliver{Type: msg.Type, RecipientID: msg.RecipientID, Err: err}
	}
	return nil
}
