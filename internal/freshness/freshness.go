// Package freshness classifies inventory items by how close they are to
// expiring and produces the ordered views the API serves.
//
// Every function takes the reference instant as an argument; nothing here
// reads the wall clock.
package freshness

import (
	"sort"
	"time"

	"foodsaver/internal/models"
)

const day = 24 * time.Hour

// Status represents the freshness class of an item
type Status string

const (
	StatusExpired Status = "expired"
	StatusUrgent  Status = "urgent"
	StatusWarning Status = "warning"
	StatusFresh   Status = "fresh"
)

// Thresholds, in whole days until expiration
const (
	UrgentMaxDays  = 2
	WarningMaxDays = 5
)

// ItemView is an item annotated with its classification
type ItemView struct {
	models.InventoryItem
	DaysLeft int    `json:"daysLeft"`
	Status   Status `json:"status"`
}

// DaysUntilExpiration returns ceil((expiration - reference) / 24h).
func DaysUntilExpiration(expiration, reference time.Time) int {
	diff := expiration.Sub(reference)
	days := int(diff / day)
	// Integer division truncates toward zero, which is already the ceiling
	// for negative values.
	if diff > 0 && diff%day != 0 {
		days++
	}
	return days
}

// ClassifyDays maps a day count onto a status
func ClassifyDays(days int) Status {
	switch {
	case days < 0:
		return StatusExpired
	case days <= UrgentMaxDays:
		return StatusUrgent
	case days <= WarningMaxDays:
		return StatusWarning
	default:
		return StatusFresh
	}
}

// Classify returns the status of item at the reference instant
func Classify(item models.InventoryItem, reference time.Time) Status {
	return ClassifyDays(DaysUntilExpiration(item.ExpirationDate, reference))
}

// Annotate returns every item with its days left and status, soonest first.
// Items expiring on the same day keep their input order.
func Annotate(items []models.InventoryItem, reference time.Time) []ItemView {
	views := make([]ItemView, len(items))
	for i, item := range items {
		days := DaysUntilExpiration(item.ExpirationDate, reference)
		views[i] = ItemView{InventoryItem: item, DaysLeft: days, Status: ClassifyDays(days)}
	}
	sort.SliceStable(views, func(i, j int) bool {
		return views[i].DaysLeft < views[j].DaysLeft
	})
	return views
}

// SortByExpiry returns a sorted copy of items, soonest expiration first
func SortByExpiry(items []models.InventoryItem, reference time.Time) []models.InventoryItem {
	views := Annotate(items, reference)
	out := make([]models.InventoryItem, len(views))
	for i, v := range views {
		out[i] = v.InventoryItem
	}
	return out
}

// Urgent returns the items expiring within UrgentMaxDays, including the
// ones already expired, in expiry order.
func Urgent(items []models.InventoryItem, reference time.Time) []ItemView {
	var urgent []ItemView
	for _, v := range Annotate(items, reference) {
		if v.DaysLeft <= UrgentMaxDays {
			urgent = append(urgent, v)
		}
	}
	return urgent
}

// StatusCounts tallies active items per status
type StatusCounts struct {
	Expired int `json:"expired"`
	Urgent  int `json:"urgent"`
	Warning int `json:"warning"`
	Fresh   int `json:"fresh"`
	Total   int `json:"total"`
}

// Count classifies every item and tallies the result
func Count(items []models.InventoryItem, reference time.Time) StatusCounts {
	var c StatusCounts
	for _, item := range items {
		switch Classify(item, reference) {
		case StatusExpired:
			c.Expired++
		case StatusUrgent:
			c.Urgent++
		case StatusWarning:
			c.Warning++
		case StatusFresh:
			c.Fresh++
		}
		c.Total++
	}
	return c
}
