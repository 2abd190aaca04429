// Package spot queries current EC2 spot prices.
package spot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/smithy-go"
	"github.com/juju/clock"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/younsl/ec2spot/internal/models"
)

// ProductDescription restricts queries to Linux spot prices
const ProductDescription = "Linux/UNIX"

const (
	defaultBatchSize   = 50
	defaultConcurrency = 4
	defaultTimeout     = 15 * time.Second
)

// ErrUnknownInstanceType is returned when EC2 rejects a requested type
var ErrUnknownInstanceType = errors.New("unknown instance type")

// PricingFetchError reports that spot prices could not be retrieved. It is
// independent of the instance metadata cache.
type PricingFetchError struct {
	Region string
	Err    error
}

func (e *PricingFetchError) Error() string {
	return fmt.Sprintf("error fetching spot prices in %s: %v", e.Region, e.Err)
}

func (e *PricingFetchError) Unwrap() error {
	return e.Err
}

// Client fetches spot prices for a single region
type Client struct {
	api         ec2.DescribeSpotPriceHistoryAPIClient
	region      string
	clock       clock.Clock
	logger      logrus.FieldLogger
	batchSize   int
	concurrency int
	timeout     time.Duration
}

// Option configures a Client
type Option func(*Client)

// WithClock sets the clock used for the query window
func WithClock(clk clock.Clock) Option {
	return func(c *Client) {
		c.clock = clk
	}
}

// WithLogger sets the logger
func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithBatchSize sets how many instance types go into one request
func WithBatchSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.batchSize = n
		}
	}
}

// WithConcurrency sets how many batches are requested in parallel
func WithConcurrency(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// NewClient creates a Client on top of an EC2 API implementation
func NewClient(api ec2.DescribeSpotPriceHistoryAPIClient, region string, opts ...Option) *Client {
	c := &Client{
		api:         api,
		region:      region,
		clock:       clock.WallClock,
		logger:      logrus.StandardLogger(),
		batchSize:   defaultBatchSize,
		concurrency: defaultConcurrency,
		timeout:     defaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewEC2Client creates a Client backed by the AWS EC2 API in region
func NewEC2Client(ctx context.Context, region string, opts ...Option) (*Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("error loading AWS config: %w", err)
	}
	return NewClient(ec2.NewFromConfig(cfg), region, opts...), nil
}

// Region returns the region prices are queried in
func (c *Client) Region() string {
	return c.region
}

// Location identifies the pricing source in API responses
func (c *Client) Location() string {
	return "ec2:DescribeSpotPriceHistory/" + c.region
}

// GetPrices returns the current spot price per availability zone for each of
// instanceTypes, or for every instance type when the list is empty. Prices
// are never cached.
func (c *Client) GetPrices(ctx context.Context, instanceTypes []string) (models.Prices, time.Time, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	now := c.clock.Now()
	batches := batch(instanceTypes, c.batchSize)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	results := make([]models.Prices, len(batches))
	for i, chunk := range batches {
		i, chunk := i, chunk
		g.Go(func() error {
			prices, err := c.fetch(ctx, chunk, now)
			if err != nil {
				return err
			}
			results[i] = prices
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, now, &PricingFetchError{Region: c.region, Err: err}
	}

	prices := models.Prices{}
	for _, result := range results {
		for instanceType, zones := range result {
			for zone, entry := range zones {
				prices.Add(instanceType, zone, entry)
			}
		}
	}

	c.logger.WithFields(logrus.Fields{
		"region":        c.region,
		"requested":     len(instanceTypes),
		"instanceTypes": len(prices),
		"requests":      len(batches),
	}).Debug("Fetched spot prices")

	return prices, now, nil
}

// fetch pages through the spot price history of one batch at instant now
func (c *Client) fetch(ctx context.Context, instanceTypes []string, now time.Time) (models.Prices, error) {
	input := &ec2.DescribeSpotPriceHistoryInput{
		ProductDescriptions: []string{ProductDescription},
		StartTime:           aws.Time(now),
		EndTime:             aws.Time(now),
	}
	for _, t := range instanceTypes {
		input.InstanceTypes = append(input.InstanceTypes, types.InstanceType(t))
	}

	prices := models.Prices{}
	paginator := ec2.NewDescribeSpotPriceHistoryPaginator(c.api, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			var apiErr smithy.APIError
			if errors.As(err, &apiErr) && apiErr.ErrorCode() == "InvalidParameterValue" {
				return nil, fmt.Errorf("%w: %s", ErrUnknownInstanceType, apiErr.ErrorMessage())
			}
			return nil, fmt.Errorf("error describing spot price history: %w", err)
		}

		for _, p := range page.SpotPriceHistory {
			price, err := strconv.ParseFloat(aws.ToString(p.SpotPrice), 64)
			if err != nil {
				c.logger.WithError(err).WithField("instanceType", string(p.InstanceType)).
					Warn("Skipping spot price with invalid value")
				continue
			}
			prices.Add(string(p.InstanceType), aws.ToString(p.AvailabilityZone), models.PriceEntry{
				Price:     price,
				Timestamp: aws.ToTime(p.Timestamp),
			})
		}
	}

	return prices, nil
}

// batch splits instanceTypes into chunks of at most size. An empty list
// yields a single empty batch, which queries every instance type.
func batch(instanceTypes []string, size int) [][]string {
	if len(instanceTypes) == 0 {
		return [][]string{nil}
	}
	var batches [][]string
	for start := 0; start < len(instanceTypes); start += size {
		end := min(start+size, len(instanceTypes))
		batches = append(batches, instanceTypes[start:end])
	}
	return batches
}
