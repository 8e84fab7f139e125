package freshness

import (
	"sort"
	"time"

	"foodsaver/internal/models"
)

// NewestFirst returns a copy of records ordered by date, most recent first.
// Records with equal dates keep their input order.
func NewestFirst[T any](records []T, dateOf func(T) time.Time) []T {
	out := make([]T, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool {
		return dateOf(out[i]).After(dateOf(out[j]))
	})
	return out
}

// WasteNewestFirst orders the waste log for display
func WasteNewestFirst(log []models.WasteRecord) []models.WasteRecord {
	return NewestFirst(log, func(r models.WasteRecord) time.Time { return r.Date })
}

// ConsumedNewestFirst orders the consumed log for display
func ConsumedNewestFirst(log []models.ConsumedRecord) []models.ConsumedRecord {
	return NewestFirst(log, func(r models.ConsumedRecord) time.Time { return r.Date })
}
