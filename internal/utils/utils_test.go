package utils

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinHeaderValues(t *testing.T) {
	assert.Equal(t, "a@x.com, b@y.com", JoinHeaderValues([]string{"a@x.com", " ", "b@y.com"}))
	assert.Equal(t, "", JoinHeaderValues(nil))
}

func TestAttachmentFilename(t *testing.T) {
	assert.Equal(t, "report.pdf", AttachmentFilename("report.pdf", "application/pdf", 0))
	assert.Equal(t, "a_b.txt", AttachmentFilename("a/b.txt", "text/plain", 0))
	assert.Equal(t, "attachment-2.pdf", AttachmentFilename("", "application/pdf", 1))
	assert.Equal(t, "attachment-1.bin", AttachmentFilename("", "application/x-unknown", 0))
}

func TestExtractDomainFromEmail(t *testing.T) {
	assert.Equal(t, "example.com", ExtractDomainFromEmail("Alice <alice@Example.com>"))
	assert.Equal(t, "", ExtractDomainFromEmail("not-an-address"))
}

func TestDatePath(t *testing.T) {
	ts := time.Date(2024, 3, 7, 23, 30, 0, 0, time.FixedZone("x", -2*3600))
	assert.Equal(t, "2024/03/08", DatePath(ts))
}

func TestWithSessionId(t *testing.T) {
	ctx := WithCustomContext(context.Background(), &CustomContext{Mailbox: "ops@example.com", Folder: "INBOX"})
	ctx2 := WithSessionId(ctx, "s-1")

	require.Equal(t, "s-1", GetSessionIdFromContext(ctx2))
	assert.Equal(t, "ops@example.com", GetMailboxFromContext(ctx2))
	assert.Equal(t, "", GetSessionIdFromContext(ctx))
}

func TestGenerateNanoIDWithPrefix(t *testing.T) {
	id := GenerateNanoIDWithPrefix("evt", 12)
	assert.Len(t, id, len("evt_")+12)
	assert.Len(t, GenerateNanoIDWithPrefix("", 0), 16)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "héll", Truncate("héllo", 4))
	assert.Equal(t, "hi", Truncate("hi", 10))
}

func TestExtractEmailAddress(t *testing.T) {
	assert.Equal(t, "alice@example.com", ExtractEmailAddress("Alice <Alice@Example.com>"))
	assert.Equal(t, "bob@example.org", ExtractEmailAddress("  bob@example.org "))
	assert.Empty(t, ExtractEmailAddress(""))
}
