// Package storage provides the optional artifact sink for compiled PDFs.
package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ArtifactSink stores a compiled artifact and returns its location. The
// handler calls it only when one is configured; the default is none.
type ArtifactSink interface {
	Store(ctx context.Context, data []byte, name string) (string, error)
}

// S3Sink uploads artifacts to an S3 bucket.
type S3Sink struct {
	client *s3.Client
	bucket string
}

// NewS3Sink builds an S3-backed sink using the default AWS credential chain.
func NewS3Sink(ctx context.Context, bucket, region string) (*S3Sink, error) {
	if bucket == "" {
		return nil, fmt.Errorf("s3 sink: bucket is empty")
	}

	opts := []func(*awsconfig.LoadOptions) error{}
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("s3 sink: load aws config: %w", err)
	}

	return &S3Sink{client: s3.NewFromConfig(cfg), bucket: bucket}, nil
}

// Store uploads the PDF bytes under the given object key.
func (s *S3Sink) Store(ctx context.Context, data []byte, name string) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(name),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/pdf"),
	})
	if err != nil {
		return "", fmt.Errorf("s3 sink: upload %s: %w", name, err)
	}
	return "s3://" + s.bucket + "/" + name, nil
}
