package metrics

import (
	"sort"
	"time"

	"foodsaver/internal/models"

	"github.com/shopspring/decimal"
)

// Totals aggregates both logs
type Totals struct {
	WastedCost    float64 `json:"wastedCost"`
	WastedCO2     float64 `json:"wastedCO2"`
	WastedCount   int     `json:"wastedCount"`
	SavedCost     float64 `json:"savedCost"`
	SavedCO2      float64 `json:"savedCO2"`
	ConsumedCount int     `json:"consumedCount"`
	// SuccessRate is consumed / (consumed + wasted), 0 when both are empty
	SuccessRate float64 `json:"successRate"`
}

// Summarize totals the waste and consumed logs
func Summarize(waste []models.WasteRecord, consumed []models.ConsumedRecord) Totals {
	wastedCost, wastedCO2 := decimal.Zero, decimal.Zero
	for _, r := range waste {
		wastedCost = wastedCost.Add(decimal.NewFromFloat(r.EstimatedCost))
		wastedCO2 = wastedCO2.Add(decimal.NewFromFloat(r.CO2))
	}

	savedCost, savedCO2 := decimal.Zero, decimal.Zero
	for _, r := range consumed {
		savedCost = savedCost.Add(decimal.NewFromFloat(r.SavedCost))
		savedCO2 = savedCO2.Add(decimal.NewFromFloat(r.SavedCO2))
	}

	t := Totals{
		WastedCost:    wastedCost.InexactFloat64(),
		WastedCO2:     wastedCO2.InexactFloat64(),
		WastedCount:   len(waste),
		SavedCost:     savedCost.InexactFloat64(),
		SavedCO2:      savedCO2.InexactFloat64(),
		ConsumedCount: len(consumed),
	}

	if total := len(waste) + len(consumed); total > 0 {
		t.SuccessRate = decimal.NewFromInt(int64(len(consumed))).
			Div(decimal.NewFromInt(int64(total))).
			InexactFloat64()
	}

	return t
}

// DayBucket holds the activity of one local calendar day
type DayBucket struct {
	Date      time.Time `json:"date"`
	Wasted    int       `json:"wasted"`
	Consumed  int       `json:"consumed"`
	WasteCost float64   `json:"wasteCost"`
	SavedCost float64   `json:"savedCost"`
}

type dayKey struct {
	year  int
	month time.Month
	day   int
}

type dayAccumulator struct {
	wasted, consumed     int
	wasteCost, savedCost decimal.Decimal
}

// TimeSeries groups both logs by calendar day in loc. Only days with activity
// are returned, oldest first.
func TimeSeries(waste []models.WasteRecord, consumed []models.ConsumedRecord, loc *time.Location) []DayBucket {
	if loc == nil {
		loc = time.Local
	}

	days := make(map[dayKey]*dayAccumulator)
	bucket := func(t time.Time) *dayAccumulator {
		y, m, d := t.In(loc).Date()
		k := dayKey{y, m, d}
		acc, ok := days[k]
		if !ok {
			acc = &dayAccumulator{wasteCost: decimal.Zero, savedCost: decimal.Zero}
			days[k] = acc
		}
		return acc
	}

	for _, r := range waste {
		acc := bucket(r.Date)
		acc.wasted++
		acc.wasteCost = acc.wasteCost.Add(decimal.NewFromFloat(r.EstimatedCost))
	}
	for _, r := range consumed {
		acc := bucket(r.Date)
		acc.consumed++
		acc.savedCost = acc.savedCost.Add(decimal.NewFromFloat(r.SavedCost))
	}

	series := make([]DayBucket, 0, len(days))
	for k, acc := range days {
		series = append(series, DayBucket{
			Date:      time.Date(k.year, k.month, k.day, 0, 0, 0, 0, loc),
			Wasted:    acc.wasted,
			Consumed:  acc.consumed,
			WasteCost: acc.wasteCost.InexactFloat64(),
			SavedCost: acc.savedCost.InexactFloat64(),
		})
	}
	sort.Slice(series, func(i, j int) bool {
		return series[i].Date.Before(series[j].Date)
	})
	return series
}
