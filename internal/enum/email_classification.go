package enum

type EmailClassification string

const (
	EmailOK                 EmailClassification = "ok"
	EmailBounceNotification EmailClassification = "bounce"
	EmailAutoResponder      EmailClassification = "auto-reply"
	EmailBulk               EmailClassification = "bulk"
	EmailInternal           EmailClassification = "internal"
)

func (c EmailClassification) String() string {
	return string(c)
}
