package dto

import (
	"time"

	"github.com/customeros/mailbridge/internal/enum"
)

// MessageRef is a fetched, not yet parsed, message.
type MessageRef struct {
	SeqNum uint32
	Raw    []byte
}

type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// NormalizedMessage is the parsed form handed to delivery sinks. Treat as read-only.
type NormalizedMessage struct {
	MessageID   string
	Sender      string
	Recipients  string
	Timestamp   time.Time
	Subject     string
	Body        string
	Attachments []Attachment

	Headers              *EmailHeaders
	Classification       enum.EmailClassification
	ClassificationReason string
}
