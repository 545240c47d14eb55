package services

import (
	"math"

	"roadrescue-backend/models"
)

// earthRadiusMiles is the great-circle radius used for all distance math.
const earthRadiusMiles = 3958.8

// jumpstartEstimateCap bounds the jumpstart estimate regardless of extras.
const jumpstartEstimateCap = 45.0

type priceRule struct {
	base     float64
	service  float64
	perUnit  float64
	maxUnits int
	perMile  float64
}

// pricingTable is the fixed pricing policy per service type. Amounts are USD.
var pricingTable = map[models.ServiceType]priceRule{
	models.ServiceAirInflation:     {base: 20},
	models.ServiceSpareReplacement: {base: 20, service: 15},
	models.ServiceShopPickup:       {base: 20, service: 30, perMile: 1.5},
	models.ServiceLockout:          {base: 20, service: 25},
	models.ServiceJumpstart:        {base: 20, perUnit: 12.5, maxUnits: 2},
	models.ServiceFuelDelivery:     {base: 20, perUnit: 10, maxUnits: 2},
}

// ComputePricing maps a service type and its options to a price breakdown.
// It is deterministic and side-effect-free; it runs once at creation, plus
// one refinement pass for shop-pickup when the shop is selected later.
func ComputePricing(serviceType models.ServiceType, opts models.PricingOptions, loc models.Location, shop *models.Shop) (models.Pricing, error) {
	rule, ok := pricingTable[serviceType]
	if !ok {
		return models.Pricing{}, models.ErrInvalidServiceType
	}

	pricing := models.Pricing{
		Base:     rule.base,
		Service:  rule.service,
		PerUnit:  rule.perUnit,
		MaxUnits: rule.maxUnits,
		PerMile:  rule.perMile,
		Currency: "USD",
	}

	switch serviceType {
	case models.ServiceShopPickup:
		miles := shopMiles(opts, loc, shop)
		pricing.EstimatedMiles = round2(miles)
		pricing.Estimate = round2(rule.base + rule.service + rule.perMile*miles)
	case models.ServiceJumpstart:
		extras := opts.Extras
		if extras > rule.maxUnits {
			extras = rule.maxUnits
		}
		pricing.Estimate = round2(math.Min(jumpstartEstimateCap, rule.base+float64(extras)*rule.perUnit))
	case models.ServiceFuelDelivery:
		units := opts.Units
		if units > rule.maxUnits {
			units = rule.maxUnits
		}
		pricing.Estimate = round2(rule.base + float64(units)*rule.perUnit)
	default:
		pricing.Estimate = round2(rule.base + rule.service)
	}

	return pricing, nil
}

// RefineShopPricing recomputes the mileage component of an existing
// shop-pickup breakdown once the shop (and so the distance) is known. The
// formula is the same as at creation; only estimatedMiles changes.
func RefineShopPricing(pricing models.Pricing, opts models.PricingOptions, loc models.Location, shop *models.Shop) models.Pricing {
	miles := shopMiles(opts, loc, shop)
	pricing.EstimatedMiles = round2(miles)
	pricing.Estimate = round2(pricing.Base + pricing.Service + pricing.PerMile*miles)
	return pricing
}

// shopMiles resolves the billable round-trip mileage: an explicit caller
// override wins; otherwise it is derived from the customer and shop
// coordinates when both are known. The one-way distance is stored on the
// shop reference as a side product.
func shopMiles(opts models.PricingOptions, loc models.Location, shop *models.Shop) float64 {
	if opts.EstimatedMiles != nil {
		return *opts.EstimatedMiles
	}
	if shop != nil && loc.Latitude != nil && loc.Longitude != nil &&
		(shop.Latitude != 0 || shop.Longitude != 0) {
		oneWay := Haversine(*loc.Latitude, *loc.Longitude, shop.Latitude, shop.Longitude)
		shop.DistanceMiles = round2(oneWay)
		return oneWay * 2
	}
	return 0
}

// Haversine returns the great-circle distance in miles between two points
// given in decimal degrees.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusMiles * c
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
