package email_filter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/customeros/mailbridge/dto"
	"github.com/customeros/mailbridge/internal/enum"
)

func message(sender, recipients, subject string, headers *dto.EmailHeaders) *dto.NormalizedMessage {
	return &dto.NormalizedMessage{
		Sender:     sender,
		Recipients: recipients,
		Subject:    subject,
		Headers:    headers,
	}
}

func TestScanEmail(t *testing.T) {
	tests := []struct {
		name     string
		msg      *dto.NormalizedMessage
		expected enum.EmailClassification
	}{
		{
			name:     "failed recipients header",
			msg:      message("Alice <alice@acme-corp.com>", "bob@other-corp.com", "Hi", &dto.EmailHeaders{XFailedRecipients: []string{"x@y.com"}}),
			expected: enum.EmailBounceNotification,
		},
		{
			name:     "mailer daemon sender",
			msg:      message("MAILER-DAEMON@mx.acme-corp.com", "bob@other-corp.com", "Hi", nil),
			expected: enum.EmailBounceNotification,
		},
		{
			name:     "bounce subject",
			msg:      message("alice@acme-corp.com", "bob@other-corp.com", "Undeliverable: Quarterly report", nil),
			expected: enum.EmailBounceNotification,
		},
		{
			name:     "auto submitted",
			msg:      message("alice@acme-corp.com", "bob@other-corp.com", "Out of office", &dto.EmailHeaders{AutoSubmitted: true}),
			expected: enum.EmailAutoResponder,
		},
		{
			name:     "precedence auto reply",
			msg:      message("alice@acme-corp.com", "bob@other-corp.com", "Away", &dto.EmailHeaders{Precedence: "auto_reply"}),
			expected: enum.EmailAutoResponder,
		},
		{
			name:     "list unsubscribe",
			msg:      message("alice@acme-corp.com", "bob@other-corp.com", "Newsletter", &dto.EmailHeaders{ListUnsubscribe: true}),
			expected: enum.EmailBulk,
		},
		{
			name: "reply-to differs from sender",
			msg: message("Alice <alice@acme-corp.com>", "bob@other-corp.com", "Offer",
				&dto.EmailHeaders{ReplyToExists: true, ReplyTo: "sales@tracker.example"}),
			expected: enum.EmailBulk,
		},
		{
			name:     "empty sender",
			msg:      message("", "bob@other-corp.com", "Hi", nil),
			expected: enum.EmailBulk,
		},
	}

	svc := NewEmailFilterService()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classification, reason := svc.ScanEmail(context.Background(), tt.msg)
			assert.Equal(t, tt.expected, classification)
			assert.NotEmpty(t, reason)
		})
	}
}

func TestScanEmail_MatchingReplyToIsNotBulk(t *testing.T) {
	svc := NewEmailFilterService()
	msg := message("Alice <alice@acme-corp.com>", "Bob <bob@other-corp.com>", "Lunch",
		&dto.EmailHeaders{ReplyToExists: true, ReplyTo: "Alice <Alice@acme-corp.com>", ReturnPathExists: true, ReturnPath: "<alice@acme-corp.com>"})

	classification, _ := svc.ScanEmail(context.Background(), msg)
	assert.NotEqual(t, enum.EmailBulk, classification)
	assert.NotEqual(t, enum.EmailBounceNotification, classification)
}

func TestIsBounceSubject(t *testing.T) {
	assert.True(t, isBounceSubject("Delivery Status Notification (Failure)"))
	assert.True(t, isBounceSubject("Returned mail: see transcript"))
	assert.False(t, isBounceSubject("Delivery schedule for March"))
}
