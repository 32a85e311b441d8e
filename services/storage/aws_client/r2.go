package aws_client

import (
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
)

// R2Config holds configuration specific to Cloudflare R2
type R2Config struct {
	AccountID       string
	AccessKeyID     string
	AccessKeySecret string
}

// NewR2Client creates an S3Client configured for Cloudflare R2
func NewR2Client(config R2Config) (S3Client, error) {
	return NewS3Client(&aws.Config{
		Endpoint:    aws.String(R2Endpoint(config.AccountID)),
		Region:      aws.String("auto"), // R2 uses "auto" region
		Credentials: credentials.NewStaticCredentials(config.AccessKeyID, config.AccessKeySecret, ""),
		// R2 does not support virtual-hosted bucket addressing
		S3ForcePathStyle: aws.Bool(true),
	})
}

func R2Endpoint(accountID string) string {
	return "https://" + accountID + ".r2.cloudflarestorage.com"
}
