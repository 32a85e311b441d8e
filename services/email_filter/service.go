package email_filter

import (
	"context"
	"net/mail"
	"strings"

	"github.com/customeros/mailsherpa/mailvalidate"
	"github.com/opentracing/opentracing-go"

	"github.com/customeros/mailbridge/dto"
	"github.com/customeros/mailbridge/interfaces"
	"github.com/customeros/mailbridge/internal/enum"
	"github.com/customeros/mailbridge/internal/tracing"
	"github.com/customeros/mailbridge/internal/utils"
)

type emailFilterService struct{}

func NewEmailFilterService() interfaces.EmailFilterService {
	return &emailFilterService{}
}

// ScanEmail labels a message. The first matching rule wins, in the order
// bounce, auto-reply, bulk, internal.
func (s *emailFilterService) ScanEmail(ctx context.Context, email *dto.NormalizedMessage) (enum.EmailClassification, string) {
	span, _ := opentracing.StartSpanFromContext(ctx, "emailFilterService.ScanEmail")
	tracing.SetDefaultServiceSpanTags(ctx, span)
	defer span.Finish()

	headers := email.Headers
	if headers == nil {
		headers = &dto.EmailHeaders{}
	}
	from := utils.ExtractEmailAddress(email.Sender)

	classification, reason := s.classify(headers, email, from)
	span.SetTag("classification", classification.String())
	return classification, reason
}

func (s *emailFilterService) classify(headers *dto.EmailHeaders, email *dto.NormalizedMessage, from string) (enum.EmailClassification, string) {
	if ok, reason := s.isBounceNotification(headers, email.Subject, from); ok {
		return enum.EmailBounceNotification, reason
	}
	if ok, reason := s.isAutoresponder(headers); ok {
		return enum.EmailAutoResponder, reason
	}
	if ok, reason := s.isBulkEmail(headers, utils.ExtractEmailAddress(headers.ReplyTo), from); ok {
		return enum.EmailBulk, reason
	}
	if s.isInternalEmail(from, email.Recipients) {
		return enum.EmailInternal, ""
	}
	return enum.EmailOK, ""
}

func (s *emailFilterService) isInternalEmail(from, recipients string) bool {
	senderValidation := mailvalidate.ValidateEmailSyntax(from)
	if !senderValidation.IsValid || senderValidation.IsFreeAccount || senderValidation.Domain == "" {
		return false
	}

	addresses, err := mail.ParseAddressList(recipients)
	if err != nil || len(addresses) == 0 {
		return false
	}

	for _, recipient := range addresses {
		recipientValidation := mailvalidate.ValidateEmailSyntax(recipient.Address)

		// Skip empty domains (malformed addresses)
		if recipientValidation.Domain == "" {
			continue
		}

		if recipientValidation.Domain != senderValidation.Domain {
			return false
		}
	}

	return true
}

func (s *emailFilterService) isBulkEmail(headers *dto.EmailHeaders, replyTo, from string) (bool, string) {
	if headers.ForwardedFor == "" {
		switch {
		case headers.ReplyToExists && replyTo != from:
			return true, "REPLY-TO != FROM"
		case headers.ReturnPathExists && headers.ReturnPath == "":
			return true, "RETURN-PATH header is empty"
		case headers.ReturnPathExists && !strings.Contains(strings.ToLower(headers.ReturnPath), from):
			return true, "RETURN-PATH != FROM"
		default:
		}
	}

	switch {
	case headers.ListUnsubscribe:
		return true, "UNSUBSCRIBE header present"
	case strings.EqualFold(headers.Precedence, "bulk"), strings.EqualFold(headers.Precedence, "list"):
		return true, "PRECEDENCE: BULK header present"
	case headers.Sender != "" && utils.ExtractEmailAddress(headers.Sender) != from:
		return true, "SENDER != FROM"
	default:
		return s.mailsherpaChecks(from)
	}
}

func (s *emailFilterService) mailsherpaChecks(from string) (bool, string) {
	if from == "" {
		return true, "FROM is empty"
	}
	syntaxValidation := mailvalidate.ValidateEmailSyntax(from)
	if syntaxValidation.IsRoleAccount {
		return true, "FROM is a role account"
	}
	if syntaxValidation.IsSystemGenerated {
		return true, "FROM is system generated"
	}
	return false, ""
}

func (s *emailFilterService) isAutoresponder(headers *dto.EmailHeaders) (bool, string) {
	switch {
	case headers.AutoSubmitted:
		return true, "AUTO-SUBMITTED header present"
	case headers.XAutoreply != "":
		return true, "X-AUTOREPLY header present"
	case headers.XAutoresponse != "":
		return true, "X-AUTORESPONSE header present"
	case headers.XLoop:
		return true, "X-LOOP header present"
	case strings.EqualFold(headers.Precedence, "auto_reply"):
		return true, "PRECEDENCE: AUTO_REPLY header present"
	default:
		return false, ""
	}
}

func (s *emailFilterService) isBounceNotification(headers *dto.EmailHeaders, subject, from string) (bool, string) {
	switch {
	case len(headers.XFailedRecipients) > 0:
		return true, "X-FAILED-RECIPIENTS header present"
	case strings.EqualFold(headers.ContentDescription, "delivery report"):
		return true, "CONTENT-DESCRIPTION: DELIVERY REPORT header present"
	case hasBounceKeywords(headers.ReturnPath):
		return true, "RETURN-PATH contains bounce keywords"
	case hasBounceKeywords(from):
		return true, "FROM contains bounce keywords"
	case isBounceSubject(subject):
		return true, "SUBJECT contains bounce keywords"
	default:
		return false, ""
	}
}

func hasBounceKeywords(str string) bool {
	return strings.Contains(strings.ToLower(str), "mailer-daemon")
}

var bounceSubjects = []string{
	"mail delivery failure",
	"undelivered mail returned to sender",
	"delivery status notification",
	"undeliverable",
	"undelivered",
	"delivery failure",
	"failure notice",
	"returned mail",
	"returned to sender",
}

func isBounceSubject(subject string) bool {
	subject = strings.ToLower(subject)
	for _, phrase := range bounceSubjects {
		if strings.Contains(subject, phrase) {
			return true
		}
	}
	return false
}
