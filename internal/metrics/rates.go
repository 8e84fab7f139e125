// Package metrics computes the money and CO2 impact of wasted and consumed food.
package metrics

import (
	"foodsaver/internal/models"

	"github.com/shopspring/decimal"
)

// Rate is the per-unit cost and CO2 estimate for a category
type Rate struct {
	Cost decimal.Decimal
	CO2  decimal.Decimal
}

var (
	rates = map[models.Category]Rate{
		models.CategoryProduce: {Cost: decimal.RequireFromString("2.50"), CO2: decimal.RequireFromString("0.5")},
		models.CategoryDairy:   {Cost: decimal.RequireFromString("3.50"), CO2: decimal.RequireFromString("1.2")},
		models.CategoryMeat:    {Cost: decimal.RequireFromString("8.00"), CO2: decimal.RequireFromString("3.5")},
		models.CategoryPantry:  {Cost: decimal.RequireFromString("2.00"), CO2: decimal.RequireFromString("0.3")},
		models.CategoryFrozen:  {Cost: decimal.RequireFromString("4.00"), CO2: decimal.RequireFromString("0.8")},
		models.CategoryOther:   {Cost: decimal.RequireFromString("3.00"), CO2: decimal.RequireFromString("0.6")},
	}

	fallback = rates[models.CategoryOther]
)

// RateFor returns the rate row for category, or the "other" row when the
// category is unknown
func RateFor(category models.Category) Rate {
	if r, ok := rates[category]; ok {
		return r
	}
	return fallback
}

// EstimateCost returns the estimated money value of quantity units
func EstimateCost(category models.Category, quantity float64) float64 {
	return RateFor(category).Cost.Mul(decimal.NewFromFloat(quantity)).InexactFloat64()
}

// EstimateCO2 returns the estimated kg of CO2 of quantity units
func EstimateCO2(category models.Category, quantity float64) float64 {
	return RateFor(category).CO2.Mul(decimal.NewFromFloat(quantity)).InexactFloat64()
}
