package dto

import "strings"

// HeaderSource is satisfied by *enmime.Envelope.
type HeaderSource interface {
	GetHeader(name string) string
	GetHeaderValues(name string) []string
}

// EmailHeaders holds the headers used to classify a message.
type EmailHeaders struct {
	AutoSubmitted      bool
	ContentDescription string
	ListUnsubscribe    bool
	Precedence         string
	ReturnPath         string
	ReturnPathExists   bool
	XAutoreply         string
	XAutoresponse      string
	XLoop              bool
	XFailedRecipients  []string
	ReplyTo            string
	ReplyToExists      bool
	Sender             string
	ForwardedFor       string
}

func ParseEmailHeaders(src HeaderSource) *EmailHeaders {
	exists := func(key string) bool {
		return len(src.GetHeaderValues(key)) > 0
	}

	headers := &EmailHeaders{}

	autoSubmitted := strings.ToLower(strings.TrimSpace(src.GetHeader("Auto-Submitted")))
	headers.AutoSubmitted = autoSubmitted != "" && autoSubmitted != "no"

	headers.ContentDescription = src.GetHeader("Content-Description")
	headers.ListUnsubscribe = exists("List-Unsubscribe")
	headers.Precedence = src.GetHeader("Precedence")

	headers.ReturnPath = src.GetHeader("Return-Path")
	headers.ReturnPathExists = exists("Return-Path")

	headers.XAutoreply = src.GetHeader("X-Autoreply")
	headers.XAutoresponse = src.GetHeader("X-Autoresponse")
	headers.XLoop = exists("X-Loop")

	if failed := src.GetHeader("X-Failed-Recipients"); failed != "" {
		for _, recipient := range strings.Split(failed, ",") {
			if recipient = strings.TrimSpace(recipient); recipient != "" {
				headers.XFailedRecipients = append(headers.XFailedRecipients, recipient)
			}
		}
	}

	headers.ReplyTo = src.GetHeader("Reply-To")
	headers.ReplyToExists = exists("Reply-To")
	headers.Sender = src.GetHeader("Sender")

	headers.ForwardedFor = src.GetHeader("X-Forwarded-For")
	if headers.ForwardedFor == "" {
		headers.ForwardedFor = src.GetHeader("Forwarded-For")
	}

	return headers
}
