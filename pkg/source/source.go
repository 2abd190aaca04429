// Package source reads the instances.json document from HTTP, S3 or the local
// filesystem.
package source

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// DefaultURL is the public ec2instances.info dataset
const DefaultURL = "https://instances.vantage.sh/instances.json"

// Options configures source construction
type Options struct {
	// Region is used for s3:// sources
	Region string
	// Timeout bounds HTTP requests
	Timeout time.Duration
}

// Source is implemented by every source type and satisfies instances.Source
type Source interface {
	Fetch(ctx context.Context) ([]byte, error)
	Location() string
}

// New returns the Source matching the scheme of rawURL.
// Supported schemes are http, https, s3 and file; a bare path is read from
// the local filesystem.
func New(ctx context.Context, rawURL string, opts Options) (Source, error) {
	if rawURL == "" {
		rawURL = DefaultURL
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid source URL %q: %w", rawURL, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return NewHTTPSource(rawURL, opts.Timeout), nil
	case "s3":
		client, err := newS3Client(ctx, opts.Region)
		if err != nil {
			return nil, err
		}
		return NewS3Source(client, u.Host, strings.TrimPrefix(u.Path, "/"))
	case "file":
		return NewFileSource(u.Path), nil
	case "":
		return NewFileSource(rawURL), nil
	default:
		return nil, fmt.Errorf("unsupported source scheme %q", u.Scheme)
	}
}

func newS3Client(ctx context.Context, region string) (*s3.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithRetryMode(aws.RetryModeStandard),
	)
	if err != nil {
		return nil, fmt.Errorf("error loading AWS config: %w", err)
	}
	return s3.NewFromConfig(cfg), nil
}
