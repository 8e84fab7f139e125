package receipt

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"time"

	"foodsaver/internal/models"
)

// MaxShelfDays caps daysUntilExpiration; larger values are rejected
const MaxShelfDays = 3650

// Rejection explains why a line item was dropped
type Rejection struct {
	Index  int    `json:"index"`
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// Normalize turns line items into drafts dated from the reference day.
// Items with a missing name, a non-numeric, negative or implausibly large day
// count, or a non-numeric or negative quantity are rejected.
func Normalize(items []LineItem, reference time.Time) ([]models.Draft, []Rejection) {
	today := models.StartOfDay(reference)
	drafts := []models.Draft{}
	rejected := []Rejection{}

	reject := func(i int, item LineItem, reason string) {
		rejected = append(rejected, Rejection{Index: i, Name: item.Name, Reason: reason})
	}

	for i, item := range items {
		name := strings.TrimSpace(item.Name)
		if name == "" {
			reject(i, item, "missing name")
			continue
		}

		days, present, ok := number(item.DaysUntilExpiration)
		switch {
		case !present:
			reject(i, item, "missing daysUntilExpiration")
			continue
		case !ok:
			reject(i, item, "daysUntilExpiration is not a number")
			continue
		case days < 0:
			reject(i, item, "daysUntilExpiration is negative")
			continue
		case days > MaxShelfDays:
			reject(i, item, "daysUntilExpiration is too large")
			continue
		}

		quantity, present, ok := number(item.Quantity)
		switch {
		case !present:
			quantity = 1
		case !ok:
			reject(i, item, "quantity is not a number")
			continue
		case quantity < 0:
			reject(i, item, "quantity is negative")
			continue
		case quantity == 0:
			quantity = 1
		}

		drafts = append(drafts, models.Draft{
			Name:           name,
			Category:       models.ParseCategory(item.Category),
			Quantity:       quantity,
			Unit:           models.ParseUnit(item.Unit),
			PurchaseDate:   today,
			ExpirationDate: today.AddDate(0, 0, int(math.Ceil(days))),
		})
	}

	return drafts, rejected
}

// number decodes a raw JSON number. present is false for a missing or null
// value, ok is false when the value is not a JSON number.
func number(raw json.RawMessage) (value float64, present, ok bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false, false
	}
	if err := json.Unmarshal(raw, &value); err != nil {
		return 0, true, false
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, true, false
	}
	return value, true, true
}
