package spot

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/smithy-go"
	qt "github.com/frankban/quicktest"
	"github.com/juju/clock/testclock"
	"github.com/sirupsen/logrus"

	"github.com/younsl/ec2spot/internal/models"
)

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeEC2 struct {
	mu     sync.Mutex
	inputs []*ec2.DescribeSpotPriceHistoryInput
	pages  []*ec2.DescribeSpotPriceHistoryOutput
	err    error
}

func (f *fakeEC2) DescribeSpotPriceHistory(ctx context.Context, params *ec2.DescribeSpotPriceHistoryInput, optFns ...func(*ec2.Options)) (*ec2.DescribeSpotPriceHistoryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, params)
	if f.err != nil {
		return nil, f.err
	}
	page := 0
	if params.NextToken != nil {
		page = int(aws.ToString(params.NextToken)[0] - '0')
	}
	if page >= len(f.pages) {
		return &ec2.DescribeSpotPriceHistoryOutput{}, nil
	}
	return f.pages[page], nil
}

func spotPrice(instanceType, zone, price string, ts time.Time) types.SpotPrice {
	return types.SpotPrice{
		InstanceType:       types.InstanceType(instanceType),
		AvailabilityZone:   aws.String(zone),
		SpotPrice:          aws.String(price),
		Timestamp:          aws.Time(ts),
		ProductDescription: types.RIProductDescription(ProductDescription),
	}
}

func newTestClient(api ec2.DescribeSpotPriceHistoryAPIClient, opts ...Option) *Client {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	opts = append([]Option{WithClock(testclock.NewClock(testNow)), WithLogger(logger)}, opts...)
	return NewClient(api, "us-east-1", opts...)
}

func TestGetPricesGroupsByTypeAndZone(t *testing.T) {
	c := qt.New(t)
	earlier := testNow.Add(-time.Hour)

	api := &fakeEC2{pages: []*ec2.DescribeSpotPriceHistoryOutput{{
		SpotPriceHistory: []types.SpotPrice{
			spotPrice("m5.large", "us-east-1a", "0.0350", testNow),
			spotPrice("m5.large", "us-east-1b", "0.0360", earlier),
		},
		NextToken: aws.String("1"),
	}, {
		SpotPriceHistory: []types.SpotPrice{
			spotPrice("m5.large", "us-east-1a", "0.0300", earlier),
			spotPrice("c5.xlarge", "us-east-1a", "0.0700", testNow),
			spotPrice("c5.xlarge", "us-east-1c", "bogus", testNow),
		},
	}}}

	prices, fetchedAt, err := newTestClient(api).GetPrices(context.Background(), nil)
	c.Assert(err, qt.IsNil)
	c.Assert(fetchedAt, qt.Equals, testNow)
	c.Assert(prices, qt.DeepEquals, models.Prices{
		"m5.large": {
			"us-east-1a": {Price: 0.035, Timestamp: testNow},
			"us-east-1b": {Price: 0.036, Timestamp: earlier},
		},
		"c5.xlarge": {
			"us-east-1a": {Price: 0.07, Timestamp: testNow},
		},
	})

	c.Assert(api.inputs, qt.HasLen, 2)
	input := api.inputs[0]
	c.Assert(input.InstanceTypes, qt.HasLen, 0)
	c.Assert(input.ProductDescriptions, qt.DeepEquals, []string{"Linux/UNIX"})
	c.Assert(aws.ToTime(input.StartTime), qt.Equals, testNow)
	c.Assert(aws.ToTime(input.EndTime), qt.Equals, testNow)
}

func TestGetPricesBatchesInstanceTypes(t *testing.T) {
	c := qt.New(t)
	api := &fakeEC2{}

	requested := []string{"a.1", "a.2", "a.3", "a.4", "a.5"}
	_, _, err := newTestClient(api, WithBatchSize(2), WithConcurrency(2)).GetPrices(context.Background(), requested)
	c.Assert(err, qt.IsNil)
	c.Assert(api.inputs, qt.HasLen, 3)

	var seen []string
	for _, input := range api.inputs {
		c.Assert(len(input.InstanceTypes) <= 2, qt.IsTrue)
		for _, it := range input.InstanceTypes {
			seen = append(seen, string(it))
		}
	}
	sort.Strings(seen)
	c.Assert(seen, qt.DeepEquals, requested)
}

func TestGetPricesError(t *testing.T) {
	c := qt.New(t)
	upstream := errors.New("throttled")
	api := &fakeEC2{err: upstream}

	_, _, err := newTestClient(api).GetPrices(context.Background(), []string{"m5.large"})
	var pricingErr *PricingFetchError
	c.Assert(err, qt.ErrorAs, &pricingErr)
	c.Assert(pricingErr.Region, qt.Equals, "us-east-1")
	c.Assert(err, qt.ErrorIs, upstream)
}

func TestGetPricesUnknownInstanceType(t *testing.T) {
	c := qt.New(t)
	api := &fakeEC2{err: &smithy.GenericAPIError{
		Code:    "InvalidParameterValue",
		Message: "Invalid value 'x1.bogus' for InstanceType",
	}}

	_, _, err := newTestClient(api).GetPrices(context.Background(), []string{"x1.bogus"})
	c.Assert(err, qt.ErrorIs, ErrUnknownInstanceType)
}

func TestBatch(t *testing.T) {
	c := qt.New(t)

	c.Assert(batch(nil, 3), qt.DeepEquals, [][]string{nil})
	c.Assert(batch([]string{"a", "b", "c", "d"}, 3), qt.DeepEquals, [][]string{{"a", "b", "c"}, {"d"}})
	c.Assert(batch([]string{"a", "b"}, 2), qt.DeepEquals, [][]string{{"a", "b"}})
}
