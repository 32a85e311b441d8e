package storage

import (
	"github.com/pkg/errors"

	"github.com/customeros/mailbridge/config"
	"github.com/customeros/mailbridge/interfaces"
	"github.com/customeros/mailbridge/services/storage/aws_client"
)

const (
	ProviderR2 = "r2"
	ProviderS3 = "s3"
)

// NewStorageServiceFromConfig builds the S3 or R2 backed service named by cfg.Provider.
func NewStorageServiceFromConfig(cfg *config.StorageConfig) (interfaces.StorageService, error) {
	var (
		client aws_client.S3Client
		err    error
	)

	switch cfg.Provider {
	case ProviderR2:
		client, err = aws_client.NewR2Client(aws_client.R2Config{
			AccountID:       cfg.AccountID,
			AccessKeyID:     cfg.AccessKeyID,
			AccessKeySecret: cfg.AccessKeySecret,
		})
	case ProviderS3:
		client, err = aws_client.NewAWSClient(aws_client.S3Config{
			Region:          cfg.Region,
			AccessKeyID:     cfg.AccessKeyID,
			AccessKeySecret: cfg.AccessKeySecret,
		})
	default:
		return nil, errors.Errorf("unknown storage provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create %s client", cfg.Provider)
	}

	return NewStorageService(client, StorageConfig{
		BucketName: cfg.Bucket,
		IsPublic:   cfg.Public,
		CDNDomain:  cfg.CDNDomain,
	}), nil
}
