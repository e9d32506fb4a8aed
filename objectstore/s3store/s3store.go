// Package s3store stores objects in an S3 compatible bucket.
package s3store

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"ali-crawler/objectstore"
)

// Config selects the bucket and, for S3 compatible services, the endpoint.
type Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	PathStyle bool
}

// API is the subset of the S3 client the store uses.
type API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// Store implements objectstore.Store on top of an S3 bucket.
type Store struct {
	api    API
	bucket string
}

var _ objectstore.Store = (*Store)(nil)

// New loads AWS credentials from the default chain and returns a Store.
func New(ctx context.Context, cfg Config) (*Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("s3: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
	})
	return NewWithAPI(client, cfg.Bucket), nil
}

// NewWithAPI wraps an existing client.
func NewWithAPI(api API, bucket string) *Store {
	return &Store{api: api, bucket: bucket}
}

// Put uploads the object, replacing any existing object with the same key.
func (s *Store) Put(ctx context.Context, input *objectstore.PutInput) (*objectstore.PutResult, error) {
	in := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(input.Key),
		Body:   input.Data,
	}
	if input.ContentType != "" {
		in.ContentType = aws.String(input.ContentType)
	}
	if input.Size > 0 {
		in.ContentLength = aws.Int64(input.Size)
	}

	if _, err := s.api.PutObject(ctx, in); err != nil {
		return nil, fmt.Errorf("s3: put s3://%s/%s: %w", s.bucket, input.Key, err)
	}
	return &objectstore.PutResult{
		Key: input.Key,
		URL: fmt.Sprintf("s3://%s/%s", s.bucket, input.Key),
	}, nil
}

// Ping checks that the bucket exists and is accessible.
func (s *Store) Ping(ctx context.Context) error {
	if _, err := s.api.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)}); err != nil {
		return fmt.Errorf("s3: head bucket %s: %w", s.bucket, err)
	}
	return nil
}
