package dto

import "time"

const EventTypeEmailReceived = "EMAIL_RECEIVED"

type EmailReceived struct {
	Mailbox              string                    `json:"mailbox"`
	Folder               string                    `json:"folder"`
	MessageID            string                    `json:"messageId,omitempty"`
	Sender               string                    `json:"sender"`
	SenderDomain         string                    `json:"senderDomain,omitempty"`
	Recipients           string                    `json:"recipients"`
	Subject              string                    `json:"subject"`
	Timestamp            time.Time                 `json:"timestamp"`
	Body                 string                    `json:"body"`
	Classification       string                    `json:"classification,omitempty"`
	ClassificationReason string                    `json:"classificationReason,omitempty"`
	Attachments          []EmailReceivedAttachment `json:"attachments,omitempty"`
}

type EmailReceivedAttachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Size        int    `json:"size"`
}
