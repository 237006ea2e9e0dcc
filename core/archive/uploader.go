package archive

import (
	"bytes"
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/upcrm/forms-transport/core/config"
	"github.com/upcrm/forms-transport/core/logger"
)

// Uploader archives accepted raw payloads to an S3-compatible bucket.
// Every write is best effort: failures are logged and swallowed so lead
// capture never depends on the archive being reachable.
type Uploader struct {
	client *s3.Client
	log    logger.Logger
	bucket string
	folder string
}

// NewUploader builds an Uploader from the archive configuration. A
// disabled configuration yields a nil Uploader, which is a valid no-op
// receiver for Store.
func NewUploader(log logger.Logger, conf config.ArchiveConfig) (*Uploader, error) {
	if !conf.Enabled {
		return nil, nil
	}

	customResolver := aws.EndpointResolverWithOptionsFunc(
		func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{
				URL:           conf.Endpoint,
				SigningRegion: conf.Region,
			}, nil
		},
	)
	customProvider := aws.CredentialsProviderFunc(func(ctx context.Context) (aws.Credentials, error) {
		return aws.Credentials{
			AccessKeyID:     conf.AccessKeyID,
			SecretAccessKey: conf.SecretAccessKey,
			CanExpire:       false,
		}, nil
	})

	cfg, err := awsConfig.LoadDefaultConfig(
		context.TODO(),
		awsConfig.WithEndpointResolverWithOptions(customResolver),
		awsConfig.WithCredentialsProvider(customProvider),
	)
	if err != nil {
		return nil, err
	}

	return &Uploader{
		client: s3.NewFromConfig(cfg),
		log:    log,
		bucket: conf.Bucket,
		folder: conf.FolderName,
	}, nil
}

// Store writes the payload under the given key. Failures are logged, not
// returned.
func (u *Uploader) Store(ctx context.Context, key string, payload []byte) {
	if u == nil {
		return
	}

	fullKey := key
	if u.folder != "" {
		fullKey = u.folder + "/" + key
	}

	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(fullKey),
		Body:   bytes.NewReader(payload),
	})
	if err != nil {
		u.log.Warn("cannot archive payload",
			zap.String("key", fullKey), logger.Err(err))
	}
}
