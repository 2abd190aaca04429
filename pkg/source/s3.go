package source

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3GetObjectAPI is the subset of the S3 client used by S3Source
type S3GetObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source reads the dataset from an S3 object
type S3Source struct {
	client S3GetObjectAPI
	bucket string
	key    string
}

// NewS3Source creates an S3Source for s3://bucket/key
func NewS3Source(client S3GetObjectAPI, bucket, key string) (*S3Source, error) {
	if bucket == "" || key == "" {
		return nil, fmt.Errorf("s3 source requires a bucket and key, got %q/%q", bucket, key)
	}
	return &S3Source{client: client, bucket: bucket, key: key}, nil
}

// Location returns the s3:// URL
func (s *S3Source) Location() string {
	return fmt.Sprintf("s3://%s/%s", s.bucket, s.key)
}

// Fetch reads the whole object
func (s *S3Source) Fetch(ctx context.Context) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return nil, fmt.Errorf("error getting object %s: %w", s.Location(), err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading object %s: %w", s.Location(), err)
	}
	return body, nil
}
