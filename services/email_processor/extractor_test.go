package email_processor

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mberrors "github.com/customeros/mailbridge/internal/errors"
)

func crlf(s string) []byte {
	return []byte(strings.ReplaceAll(s, "\n", "\r\n"))
}

const mixedMessage = `From: Alice <alice@example.com>
To: ops@example.com
To: Bob <bob@example.com>
Subject: Quarterly report
Date: Tue, 05 Mar 2024 10:15:30 +0200
Message-ID: <abc123@example.com>
MIME-Version: 1.0
Content-Type: multipart/mixed; boundary="outer"

--outer
Content-Type: text/plain; charset=utf-8
Content-Transfer-Encoding: base64

SGVsbG8gd29ybGQK
--outer
Content-Type: application/pdf; name="report.pdf"
Content-Disposition: attachment; filename="report.pdf"
Content-Transfer-Encoding: base64

JVBERi0xLjQK
--outer
Content-Type: text/plain; charset=utf-8
Content-Transfer-Encoding: quoted-printable

Second part =E2=9C=93
--outer
Content-Type: image/png
Content-Disposition: inline; filename="logo.png"
Content-Transfer-Encoding: base64

iVBORw0K
--outer--
`

func TestExtract_BodyAndAttachmentsInOrder(t *testing.T) {
	msg, err := NewExtractor().Extract(crlf(mixedMessage))
	require.NoError(t, err)

	assert.Equal(t, "Alice <alice@example.com>", msg.Sender)
	assert.Equal(t, "ops@example.com, Bob <bob@example.com>", msg.Recipients)
	assert.Equal(t, "Quarterly report", msg.Subject)
	assert.Equal(t, "abc123@example.com", msg.MessageID)
	assert.Equal(t, time.Date(2024, 3, 5, 8, 15, 30, 0, time.UTC), msg.Timestamp)
	assert.Equal(t, time.UTC, msg.Timestamp.Location())

	assert.Contains(t, msg.Body, "Hello world")
	assert.Contains(t, msg.Body, "Second part ✓")
	assert.Less(t, strings.Index(msg.Body, "Hello world"), strings.Index(msg.Body, "Second part"))

	require.Len(t, msg.Attachments, 2)
	assert.Equal(t, "report.pdf", msg.Attachments[0].Filename)
	assert.Equal(t, "application/pdf", msg.Attachments[0].ContentType)
	assert.Equal(t, []byte("%PDF-1.4\n"), msg.Attachments[0].Content)
	assert.Equal(t, "logo.png", msg.Attachments[1].Filename)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G', '\r', '\n'}, msg.Attachments[1].Content)
}

const alternativeMessage = `From: alice@example.com
From: carol@example.com
To: ops@example.com
Subject: Nested
Date: Wed, 06 Mar 2024 12:00:00 +0000
MIME-Version: 1.0
Content-Type: multipart/mixed; boundary="outer"

--outer
Content-Type: multipart/alternative; boundary="inner"

--inner
Content-Type: text/plain; charset=us-ascii

plain version
--inner
Content-Type: text/html; charset=us-ascii

<p>html version</p>
--inner--
--outer
Content-Type: text/csv
Content-Disposition: attachment; filename="data.csv"

a,b
1,2
--outer--
`

func TestExtract_NestedMultipartSkipsHtmlBody(t *testing.T) {
	msg, err := NewExtractor().Extract(crlf(alternativeMessage))
	require.NoError(t, err)

	assert.Equal(t, "alice@example.com, carol@example.com", msg.Sender)
	assert.Contains(t, msg.Body, "plain version")
	assert.NotContains(t, msg.Body, "html version")
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, "data.csv", msg.Attachments[0].Filename)
}

func TestExtract_SinglePartMessage(t *testing.T) {
	raw := crlf(`From: alice@example.com
To: ops@example.com
Subject: Ping
Date: Thu, 07 Mar 2024 09:00:00 -0500
Content-Type: text/plain; charset=utf-8

just text
`)

	msg, err := NewExtractor().Extract(raw)
	require.NoError(t, err)

	assert.Contains(t, msg.Body, "just text")
	assert.Empty(t, msg.Attachments)
	assert.Equal(t, time.Date(2024, 3, 7, 14, 0, 0, 0, time.UTC), msg.Timestamp)
}

func TestExtract_UntypedPartIsPlainText(t *testing.T) {
	raw := crlf(`From: alice@example.com
To: ops@example.com
Subject: Untyped
Date: Thu, 07 Mar 2024 09:00:00 +0000
MIME-Version: 1.0
Content-Type: multipart/mixed; boundary="b"

--b
Content-Type: text/plain

first
--b
Content-Disposition: attachment

zz
--b--
`)

	msg, err := NewExtractor().Extract(raw)
	require.NoError(t, err)

	assert.Empty(t, msg.Attachments)
	assert.Contains(t, msg.Body, "first")
	assert.Contains(t, msg.Body, "zz")
}

func TestExtract_MissingDateIsMalformed(t *testing.T) {
	raw := crlf(`From: alice@example.com
To: ops@example.com
Subject: No date
Content-Type: text/plain

body
`)

	_, err := NewExtractor().Extract(raw)

	require.Error(t, err)
	assert.Equal(t, mberrors.KindMalformedMessage, mberrors.KindOf(err))
	assert.ErrorIs(t, err, mberrors.ErrInvalidDate)
}

func TestExtract_UnparsableDateIsMalformed(t *testing.T) {
	raw := crlf(`From: alice@example.com
To: ops@example.com
Subject: Bad date
Date: sometime last week
Content-Type: text/plain

body
`)

	_, err := NewExtractor().Extract(raw)

	assert.Equal(t, mberrors.KindMalformedMessage, mberrors.KindOf(err))
}

func TestExtract_EmptyInputIsMalformed(t *testing.T) {
	_, err := NewExtractor().Extract(nil)

	assert.Equal(t, mberrors.KindMalformedMessage, mberrors.KindOf(err))
	assert.Equal(t, mberrors.ActionRecover, mberrors.ActionFor(mberrors.KindOf(err)))
}

func TestExtract_Deterministic(t *testing.T) {
	first, err := NewExtractor().Extract(crlf(mixedMessage))
	require.NoError(t, err)
	second, err := NewExtractor().Extract(crlf(mixedMessage))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestExtract_ClassificationHeaders(t *testing.T) {
	raw := crlf(`From: News <news@example.com>
To: ops@example.com
Subject: Weekly digest
Date: Mon, 04 Mar 2024 09:00:00 +0000
Message-ID: <digest-1@example.com>
List-Unsubscribe: <mailto:unsubscribe@example.com>
Auto-Submitted: auto-generated
Reply-To: replies@example.com
X-Failed-Recipients: a@example.com, b@example.com
Content-Type: text/plain; charset=utf-8

Hello
`)

	msg, err := NewExtractor().Extract(raw)
	require.NoError(t, err)
	require.NotNil(t, msg.Headers)
	assert.True(t, msg.Headers.ListUnsubscribe)
	assert.True(t, msg.Headers.AutoSubmitted)
	assert.True(t, msg.Headers.ReplyToExists)
	assert.Equal(t, "replies@example.com", msg.Headers.ReplyTo)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, msg.Headers.XFailedRecipients)
	assert.False(t, msg.Headers.XLoop)
	assert.Empty(t, msg.Classification)
}
