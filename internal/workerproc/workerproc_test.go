package workerproc

import (
	"context"
	"errors"
	"testing"

	"recruit-backend/internal/queue"
)

func TestParseMessageValid(t *testing.T) {
	body, _ := queue.EncodeMessage(queue.Message{
		Type:        queue.TypeApplicationAdvanced,
		EntityID:    "app-1",
		RecipientID: "cand-1",
		Detail:      "screening",
	})

	msg, meta, err := ParseMessage(string(body))
	if err != nil {
		t.Fatalf("ParseMessage: %v", err)
	}
	if msg.EntityID != "app-1" || msg.RecipientID != "cand-1" {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if meta.BodyLen != len(body) || meta.BodySHA == "" {
		t.Fatalf("unexpected meta: %+v", meta)
	}
}

func TestParseMessageEmptyBody(t *testing.T) {
	if _, _, err := ParseMessage("   "); err == nil {
		t.Fatalf("expected error for empty body")
	} else if _, ok := err.(ErrEmptyBody); !ok {
		t.Fatalf("expected ErrEmptyBody, got %T", err)
	}
}

func TestParseMessageBadJSON(t *testing.T) {
	_, meta, err := ParseMessage("{nope")
	if err == nil {
		t.Fatalf("expected decode error")
	}
	if _, ok := err.(ErrDecode); !ok {
		t.Fatalf("expected ErrDecode, got %T", err)
	}
	if meta.BodySHA == "" {
		t.Fatalf("expected body hash for diagnostics")
	}
}

func TestParseMessageMissingRecipient(t *testing.T) {
	body, _ := queue.EncodeMessage(queue.Message{Type: queue.TypeMessageSent, EntityID: "msg-1"})
	if _, _, err := ParseMessage(string(body)); err == nil {
		t.Fatalf("expected error for missing recipient")
	} else if _, ok := err.(ErrMissingRecipient); !ok {
		t.Fatalf("expected ErrMissingRecipient, got %T", err)
	}
}

func TestParseMessageUnknownType(t *testing.T) {
	body, _ := queue.EncodeMessage(queue.Message{Type: "mystery", EntityID: "x", RecipientID: "u"})
	if _, _, err := ParseMessage(string(body)); err == nil {
		t.Fatalf("expected error for unknown type")
	} else if _, ok := err.(ErrUnknownType); !ok {
		t.Fatalf("expected ErrUnknownType, got %T", err)
	}
}

type failingDeliverer struct{}

func (failingDeliverer) Deliver(ctx context.Context, msg queue.Message) error {
	_ = ctx
	_ = msg
	return errors.New("push endpoint down")
}

func TestHandleMessageWrapsDeliveryError(t *testing.T) {
	body, _ := queue.EncodeMessage(queue.Message{
		Type:        queue.TypeDocumentShared,
		EntityID:    "doc-1",
		RecipientID: "biz-1",
	})

	err := HandleMessage(context.Background(), failingDeliverer{}, string(body))
	if err == nil {
		t.Fatalf("expected delivery error")
	}
	var deliverErr ErrDeliver
	if !errors.As(err, &deliverErr) {
		t.Fatalf("expected ErrDeliver, got %T", err)
	}
	if deliverErr.RecipientID != "biz-1" {
		t.Fatalf("unexpected recipient: %s", deliverErr.RecipientID)
	}
}
