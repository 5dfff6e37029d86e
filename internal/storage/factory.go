package storage

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/harvester/internal/common"
	"github.com/ternarybob/harvester/internal/interfaces"
	"github.com/ternarybob/harvester/internal/storage/local"
	"github.com/ternarybob/harvester/internal/storage/s3"
)

// NewFileStorage creates the blob storage selected by config.Storage.Backend
func NewFileStorage(ctx context.Context, logger arbor.ILogger, config *common.Config) (interfaces.FileStorage, error) {
	if !config.UseObjectStore() {
		logger.Debug().Str("data_dir", config.Storage.DataDir).Msg("Using local file storage")
		return local.NewStorage(config.Storage.DataDir, logger), nil
	}

	if config.Storage.Bucket == "" {
		return nil, fmt.Errorf("storage.bucket is required for the s3 backend")
	}

	awsCfg, err := LoadAWSConfig(ctx, config.Storage.Region)
	if err != nil {
		return nil, err
	}

	logger.Debug().Str("bucket", config.Storage.Bucket).Str("region", awsCfg.Region).Msg("Using S3 file storage")
	return s3.NewStorage(awss3.NewFromConfig(awsCfg), config.Storage.Bucket, logger), nil
}

// LoadAWSConfig resolves credentials through the SDK default chain, pinning region when set
func LoadAWSConfig(ctx context.Context, region string) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return awsCfg, nil
}
