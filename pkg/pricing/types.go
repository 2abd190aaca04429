package pricing

// PricingSource represents the source of pricing information
type PricingSource string

const (
	// PricingSourceAPI indicates pricing data came from AWS API
	PricingSourceAPI PricingSource = "API"

	// PricingSourceCache indicates pricing data came from cache
	PricingSourceCache PricingSource = "Cache"

	// PricingSourceNA indicates pricing data is not available
	PricingSourceNA PricingSource = "N/A"
)

// ServiceCodeEC2 is the Pricing API service code for EC2
const ServiceCodeEC2 = "AmazonEC2"

// HoursPerMonth approximates a month (365 days / 12 months * 24 hours)
const HoursPerMonth = 730.0
