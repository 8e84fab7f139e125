package models

import (
	"strings"
	"time"
)

// InventoryItem represents a purchased food item that is still active
type InventoryItem struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Category       Category  `json:"category"`
	Quantity       float64   `json:"quantity"`
	Unit           Unit      `json:"unit"`
	PurchaseDate   time.Time `json:"purchaseDate"`
	ExpirationDate time.Time `json:"expirationDate"`
	AddedDate      time.Time `json:"addedDate"`
}

// Category represents the food category of an item
type Category string

const (
	CategoryProduce Category = "produce"
	CategoryDairy   Category = "dairy"
	CategoryMeat    Category = "meat"
	CategoryPantry  Category = "pantry"
	CategoryFrozen  Category = "frozen"
	CategoryOther   Category = "other"
)

// Categories lists the fixed categories in display order
var Categories = []Category{
	CategoryProduce,
	CategoryDairy,
	CategoryMeat,
	CategoryPantry,
	CategoryFrozen,
	CategoryOther,
}

// Valid reports whether c is one of the fixed categories
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCategory normalizes free-form input to a known category.
// Anything unrecognized becomes CategoryOther.
func ParseCategory(s string) Category {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if c.Valid() {
		return c
	}
	return CategoryOther
}

// Unit represents the unit of measurement for an item
type Unit string

const (
	// Count units
	UnitItems Unit = "items"

	// Weight units
	UnitPounds   Unit = "lbs"
	UnitOunces   Unit = "oz"
	UnitKilogram Unit = "kg"
	UnitGram     Unit = "g"
)

// Units lists the supported units
var Units = []Unit{UnitItems, UnitPounds, UnitOunces, UnitKilogram, UnitGram}

// Valid reports whether u is a supported unit
func (u Unit) Valid() bool {
	for _, known := range Units {
		if u == known {
			return true
		}
	}
	return false
}

// ParseUnit normalizes free-form input to a supported unit, defaulting to items
func ParseUnit(s string) Unit {
	u := Unit(strings.ToLower(strings.TrimSpace(s)))
	switch u {
	case "lb", "pound", "pounds":
		return UnitPounds
	case "item", "pc", "pcs", "piece", "pieces", "":
		return UnitItems
	}
	if u.Valid() {
		return u
	}
	return UnitItems
}

// Draft is the input used to create an item
type Draft struct {
	Name           string    `json:"name" validate:"required,max=200"`
	Category       Category  `json:"category"`
	Quantity       float64   `json:"quantity" validate:"gt=0"`
	Unit           Unit      `json:"unit"`
	PurchaseDate   time.Time `json:"purchaseDate"`
	ExpirationDate time.Time `json:"expirationDate" validate:"required"`
}

// ItemPatch holds optional changes to an active item
type ItemPatch struct {
	Name           *string    `json:"name,omitempty"`
	Category       *Category  `json:"category,omitempty"`
	Quantity       *float64   `json:"quantity,omitempty"`
	Unit           *Unit      `json:"unit,omitempty"`
	PurchaseDate   *time.Time `json:"purchaseDate,omitempty"`
	ExpirationDate *time.Time `json:"expirationDate,omitempty"`
}

// Apply returns the draft of item with the patch applied
func (p ItemPatch) Apply(item InventoryItem) Draft {
	d := Draft{
		Name:           item.Name,
		Category:       item.Category,
		Quantity:       item.Quantity,
		Unit:           item.Unit,
		PurchaseDate:   item.PurchaseDate,
		ExpirationDate: item.ExpirationDate,
	}
	if p.Name != nil {
		d.Name = *p.Name
	}
	if p.Category != nil {
		d.Category = *p.Category
	}
	if p.Quantity != nil {
		d.Quantity = *p.Quantity
	}
	if p.Unit != nil {
		d.Unit = *p.Unit
	}
	if p.PurchaseDate != nil {
		d.PurchaseDate = *p.PurchaseDate
	}
	if p.ExpirationDate != nil {
		d.ExpirationDate = *p.ExpirationDate
	}
	return d
}

// StartOfDay returns midnight of t's calendar day in t's location
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
