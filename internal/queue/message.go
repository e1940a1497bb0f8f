package queue

import "encoding/json"

// Notification types carried on the queue.
const (
	TypeApplicationAdvanced = "application_advanced"
	TypeMessageSent         = "message_sent"
	TypeDocumentShared      = "document_shared"
)

// Message is the payload sent to downstream queue consumers.
type Message struct {
	Type           string `json:"type"`
	EntityID       string `json:"entityId"`
	OrganizationID string `json:"organizationId"`
	RecipientID    string `json:"recipientId"`
	Detail         string `json:"detail,omitempty"`
	EnqueuedAt     string `json:"enqueuedAt"`
	Version        int    `json:"version"`
}

// EncodeMessage returns the JSON representation of a message.
func EncodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeMessage parses a JSON payload into a Message.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}
