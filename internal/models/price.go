package models

import "time"

// PriceEntry is a single spot price observation for an instance type in an
// availability zone
type PriceEntry struct {
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`
}

// ZonePrices maps availability zone to its latest price observation
type ZonePrices map[string]PriceEntry

// Prices maps instance type to its per-zone spot prices
type Prices map[string]ZonePrices

// Add records p unless a newer observation for the same type and zone exists
func (p Prices) Add(instanceType, zone string, entry PriceEntry) {
	zones, ok := p[instanceType]
	if !ok {
		zones = make(ZonePrices)
		p[instanceType] = zones
	}
	if existing, ok := zones[zone]; ok && existing.Timestamp.After(entry.Timestamp) {
		return
	}
	zones[zone] = entry
}

// OnDemandPrice is the hourly on-demand price of an instance type in a region
type OnDemandPrice struct {
	InstanceType  string  `json:"instanceType"`
	Region        string  `json:"region"`
	Price         float64 `json:"price"`
	MonthlyCost   float64 `json:"monthlyCost"`
	PricingSource string  `json:"source"` // "API" or "Cache"
}
