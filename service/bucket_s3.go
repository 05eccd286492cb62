package service

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"prime-nature-nuts/config"
	"prime-nature-nuts/logger"
)

// objectPutter is the part of the S3 client the bucket uses
type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Bucket writes images to an S3-compatible bucket (MinIO, Supabase storage)
type S3Bucket struct {
	client     objectPutter
	bucket     string
	publicBase string
}

var _ ImageBucket = (*S3Bucket)(nil)

// NewS3Bucket builds a path-style S3 client from the storage settings
func NewS3Bucket(ctx context.Context, cfg *config.Config) (*S3Bucket, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3AccessKey,
			cfg.S3SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("failed to load s3 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		}
		o.UsePathStyle = true
	})

	return newS3Bucket(client, cfg.S3Bucket, cfg.PublicBucketBase()), nil
}

func newS3Bucket(client objectPutter, bucket, publicBase string) *S3Bucket {
	return &S3Bucket{client: client, bucket: bucket, publicBase: publicBase}
}

// Upload puts the object and returns its public URL
func (b *S3Bucket) Upload(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(b.bucket),
		Key:           aws.String(path),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
		CacheControl:  aws.String("public, max-age=3600"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to put object %s: %w", path, err)
	}

	url := b.publicBase + "/" + path
	logger.Get().Info("☁️  Image uploaded", zap.String("bucket", b.bucket), zap.String("path", path))
	return url, nil
}

// Name identifies the backend
func (b *S3Bucket) Name() string {
	return "s3:" + b.bucket
}
