package pricing

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/pricing/types"
	"github.com/sirupsen/logrus"

	"github.com/younsl/ec2spot/internal/models"
	"github.com/younsl/ec2spot/pkg/utils"
)

// GetOnDemandPrice returns the hourly Linux on-demand price of an instance
// type in region, from the cache when it has been looked up before
func (c *Client) GetOnDemandPrice(ctx context.Context, instanceType, region string) (models.OnDemandPrice, error) {
	result := models.OnDemandPrice{
		InstanceType:  instanceType,
		Region:        region,
		PricingSource: string(PricingSourceNA),
	}

	cacheKey := fmt.Sprintf("%s:%s", region, instanceType)

	c.cacheLock.RLock()
	price, exists := c.cache[cacheKey]
	c.cacheLock.RUnlock()
	if exists {
		c.stats.record("EC2", region, statCache)
		result.Price = price
		result.MonthlyCost = price * HoursPerMonth
		result.PricingSource = string(PricingSourceCache)
		return result, nil
	}

	price, err := c.getEC2PriceFromAPI(ctx, instanceType, region)
	if err != nil {
		c.stats.record("EC2", region, statFailure)
		c.logger.WithError(err).WithFields(logrus.Fields{
			"instanceType": instanceType,
			"region":       region,
		}).Warn("Error getting on-demand price from API")
		return result, err
	}
	c.stats.record("EC2", region, statSuccess)

	c.cacheLock.Lock()
	c.cache[cacheKey] = price
	c.cacheLock.Unlock()

	result.Price = price
	result.MonthlyCost = price * HoursPerMonth
	result.PricingSource = string(PricingSourceAPI)
	return result, nil
}

// getEC2PriceFromAPI retrieves EC2 instance pricing from the AWS Pricing API
func (c *Client) getEC2PriceFromAPI(ctx context.Context, instanceType, region string) (float64, error) {
	// Construct filters for EC2 Linux on-demand instances
	filters := []types.Filter{
		termMatch("instanceType", instanceType),
		termMatch("location", utils.GetRegionDescriptiveName(region)),
		termMatch("operatingSystem", "Linux"),
		termMatch("tenancy", "Shared"),
		termMatch("preInstalledSw", "NA"),
		termMatch("capacitystatus", "Used"),
	}

	priceJSON, err := c.getPriceFromAPI(ctx, ServiceCodeEC2, filters, instanceType, region)
	if err != nil {
		return 0, err
	}

	return ExtractOnDemandPrice(priceJSON)
}

func termMatch(field, value string) types.Filter {
	return types.Filter{
		Type:  types.FilterTypeTermMatch,
		Field: aws.String(field),
		Value: aws.String(value),
	}
}
