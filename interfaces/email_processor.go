package interfaces

import (
	"github.com/customeros/mailbridge/dto"
)

type MessageExtractor interface {
	Extract(raw []byte) (*dto.NormalizedMessage, error)
}
