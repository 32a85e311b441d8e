package dto

import "github.com/customeros/mailbridge/internal/enum"

type DeliveryReceipt struct {
	ID       string
	Sink     enum.SinkName
	Channel  string
	ThreadTS string
	Uploaded int
	Keys     []string
}
