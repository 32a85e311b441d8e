package email_processor

import (
	"bytes"
	"net/mail"
	"strings"
	"time"

	"github.com/jhillyerd/enmime"
	"github.com/pkg/errors"

	"github.com/customeros/mailbridge/dto"
	mailbridge_errors "github.com/customeros/mailbridge/errors"
	"github.com/customeros/mailbridge/interfaces"
	mberrors "github.com/customeros/mailbridge/internal/errors"
	"github.com/customeros/mailbridge/internal/utils"
)

// Extractor turns a raw RFC 5322 message into a NormalizedMessage.
type Extractor struct{}

func NewExtractor() interfaces.MessageExtractor {
	return &Extractor{}
}

// Extract walks every MIME part depth-first. text/plain parts are decoded and
// appended to the body; any other leaf part carrying a Content-Disposition
// header becomes an attachment. Both keep traversal order. A leaf without a
// Content-Type header is text/plain (RFC 2045 section 5.2).
func (e *Extractor) Extract(raw []byte) (*dto.NormalizedMessage, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, mberrors.MalformedMessage("extract", mailbridge_errors.ErrEmptyMessage)
	}

	envelope, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return nil, mberrors.MalformedMessage("extract", errors.Wrap(err, "failed to parse message"))
	}

	timestamp, err := parseDate(envelope.GetHeader("Date"))
	if err != nil {
		return nil, mberrors.MalformedMessage("extract", err)
	}

	msg := &dto.NormalizedMessage{
		MessageID:  utils.NormalizeMessageID(envelope.GetHeader("Message-Id")),
		Sender:     utils.JoinHeaderValues(envelope.GetHeaderValues("From")),
		Recipients: utils.JoinHeaderValues(envelope.GetHeaderValues("To")),
		Timestamp:  timestamp,
		Subject:    envelope.GetHeader("Subject"),
		Headers:    dto.ParseEmailHeaders(envelope),
	}

	if envelope.Root == nil {
		return msg, nil
	}

	var body strings.Builder
	envelope.Root.DepthMatchAll(func(part *enmime.Part) bool {
		contentType := strings.ToLower(part.ContentType)
		switch {
		case contentType == "text/plain" || (contentType == "" && part.FirstChild == nil):
			body.Write(part.Content)
		case strings.HasPrefix(contentType, "multipart/") || part.FirstChild != nil:
			// containers carry no content of their own
		case part.Header.Get("Content-Disposition") != "":
			msg.Attachments = append(msg.Attachments, dto.Attachment{
				Filename:    part.FileName,
				ContentType: part.ContentType,
				Content:     part.Content,
			})
		}
		return false
	})
	msg.Body = body.String()

	return msg, nil
}

func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errors.Wrap(mberrors.ErrInvalidDate, "no Date header")
	}
	t, err := mail.ParseDate(value)
	if err != nil {
		return time.Time{}, errors.Wrapf(mberrors.ErrInvalidDate, "%q: %v", value, err)
	}
	return t.UTC(), nil
}
