package controller

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/RedHatInsights/sync-connector/internal/config"
	"github.com/RedHatInsights/sync-connector/internal/domain"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

// PayloadArchiver keeps a copy of every raw webhook body outside the database
type PayloadArchiver interface {
	Archive(ctx context.Context, event *domain.WebhookEvent) error
}

func NewPayloadArchiver(cfg *config.Config) (PayloadArchiver, error) {
	if cfg.PayloadArchiveBucket == "" {
		return &NoopPayloadArchiver{}, nil
	}

	awsConfig := aws.NewConfig().WithRegion(cfg.PayloadArchiveRegion)
	if cfg.PayloadArchiveEndpoint != "" {
		awsConfig = awsConfig.WithEndpoint(cfg.PayloadArchiveEndpoint).WithS3ForcePathStyle(true)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, err
	}

	return &S3PayloadArchiver{
		client: s3.New(sess),
		bucket: cfg.PayloadArchiveBucket,
		prefix: cfg.PayloadArchivePrefix,
	}, nil
}

type S3PayloadArchiver struct {
	client s3iface.S3API
	bucket string
	prefix string
}

func (a *S3PayloadArchiver) Archive(ctx context.Context, event *domain.WebhookEvent) error {
	_, err := a.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(a.objectKey(event)),
		Body:        bytes.NewReader(event.Payload),
		ContentType: aws.String("application/json"),
		Metadata: map[string]*string{
			"Event-Type": aws.String(event.Type),
		},
	})

	return err
}

// objectKey partitions archived payloads by provider and day
func (a *S3PayloadArchiver) objectKey(event *domain.WebhookEvent) string {
	received := event.ReceivedAt.UTC()
	return path.Join(a.prefix,
		event.Provider.String(),
		received.Format("2006/01/02"),
		fmt.Sprintf("%s.json", event.ID))
}

type NoopPayloadArchiver struct {
}

func (na *NoopPayloadArchiver) Archive(ctx context.Context, event *domain.WebhookEvent) error {
	return nil
}
