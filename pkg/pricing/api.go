package pricing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/pricing"
	"github.com/aws/aws-sdk-go-v2/service/pricing/types"
	"github.com/sirupsen/logrus"
)

// APIRegion is where the AWS Pricing API is served.
// The AWS Pricing API is only available in us-east-1 and ap-south-1 regions
const APIRegion = "us-east-1"

// ErrNoPrice is returned when the Pricing API has no product for the query
var ErrNoPrice = errors.New("no pricing found")

// GetProductsAPI is the subset of the Pricing client used here
type GetProductsAPI interface {
	GetProducts(ctx context.Context, params *pricing.GetProductsInput, optFns ...func(*pricing.Options)) (*pricing.GetProductsOutput, error)
}

// Client looks up on-demand EC2 prices. Prices are cached per region and
// instance type for the lifetime of the Client, since on-demand rates only
// change with AWS price announcements.
type Client struct {
	api     GetProductsAPI
	logger  logrus.FieldLogger
	timeout time.Duration

	cacheLock sync.RWMutex
	cache     map[string]float64

	stats *Stats
}

// NewClient creates a Client on top of a Pricing API implementation
func NewClient(api GetProductsAPI, logger logrus.FieldLogger) *Client {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Client{
		api:     api,
		logger:  logger,
		timeout: 5 * time.Second,
		cache:   make(map[string]float64),
		stats:   newStats(),
	}
}

// NewAWSClient creates a Client backed by the AWS Pricing API
func NewAWSClient(ctx context.Context, logger logrus.FieldLogger) (*Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(APIRegion))
	if err != nil {
		return nil, fmt.Errorf("error loading AWS config for pricing API: %w", err)
	}
	return NewClient(pricing.NewFromConfig(cfg), logger), nil
}

// Stats returns the call statistics of the client
func (c *Client) Stats() *Stats {
	return c.stats
}

// getPriceFromAPI returns the first price list document matching filters
func (c *Client) getPriceFromAPI(ctx context.Context, serviceCode string, filters []types.Filter, resourceType, region string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	input := &pricing.GetProductsInput{
		ServiceCode: aws.String(serviceCode),
		Filters:     filters,
		MaxResults:  aws.Int32(1),
	}

	resp, err := c.api.GetProducts(ctx, input)
	if err != nil {
		return "", fmt.Errorf("error calling AWS Pricing API: %w", err)
	}

	if len(resp.PriceList) == 0 {
		return "", fmt.Errorf("%w for %s in region %s", ErrNoPrice, resourceType, region)
	}

	return resp.PriceList[0], nil
}
