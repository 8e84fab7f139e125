package metrics

import (
	"foodsaver/internal/models"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Share is one row of a breakdown
type Share struct {
	Key     string  `json:"key"`
	Value   float64 `json:"value"`
	Percent float64 `json:"percent"`
}

// CategoryBreakdown returns each category's share of total waste cost.
// Rows follow the fixed category order and categories with no waste cost
// are omitted.
func CategoryBreakdown(waste []models.WasteRecord) []Share {
	costs := make(map[models.Category]decimal.Decimal)
	total := decimal.Zero
	for _, r := range waste {
		category := r.Category
		if !category.Valid() {
			category = models.CategoryOther
		}
		c := decimal.NewFromFloat(r.EstimatedCost)
		costs[category] = costs[category].Add(c)
		total = total.Add(c)
	}

	shares := []Share{}
	if total.IsZero() {
		return shares
	}
	for _, category := range models.Categories {
		cost, ok := costs[category]
		if !ok || cost.IsZero() {
			continue
		}
		shares = append(shares, Share{
			Key:     string(category),
			Value:   cost.InexactFloat64(),
			Percent: cost.Div(total).Mul(hundred).InexactFloat64(),
		})
	}
	return shares
}

// ReasonBreakdown returns each reason's share of the number of waste records.
// Rows follow the fixed reason order and unused reasons are omitted.
func ReasonBreakdown(waste []models.WasteRecord) []Share {
	counts := make(map[models.WasteReason]int64)
	for _, r := range waste {
		counts[models.ParseWasteReason(string(r.Reason))]++
	}

	shares := []Share{}
	if len(waste) == 0 {
		return shares
	}
	total := decimal.NewFromInt(int64(len(waste)))
	for _, reason := range models.WasteReasons {
		n := counts[reason]
		if n == 0 {
			continue
		}
		shares = append(shares, Share{
			Key:     string(reason),
			Value:   float64(n),
			Percent: decimal.NewFromInt(n).Div(total).Mul(hundred).InexactFloat64(),
		})
	}
	return shares
}
