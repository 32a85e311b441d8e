package interfaces

import (
	"context"

	"github.com/customeros/mailbridge/dto"
	"github.com/customeros/mailbridge/internal/enum"
)

type EmailFilterService interface {
	ScanEmail(ctx context.Context, email *dto.NormalizedMessage) (enum.EmailClassification, string)
}
