package models

import (
	"strings"
	"time"
)

// WasteReason represents why an item was thrown away
type WasteReason string

const (
	ReasonExpired WasteReason = "expired"
	ReasonSpoiled WasteReason = "spoiled"
	ReasonForgot  WasteReason = "forgot"
	ReasonTooMuch WasteReason = "too much"
	ReasonOther   WasteReason = "other"
)

// WasteReasons lists the reasons in display order
var WasteReasons = []WasteReason{ReasonExpired, ReasonSpoiled, ReasonForgot, ReasonTooMuch, ReasonOther}

// ParseWasteReason normalizes input, mapping unknown reasons to ReasonOther
func ParseWasteReason(s string) WasteReason {
	r := WasteReason(strings.ToLower(strings.TrimSpace(s)))
	if r == "too_much" || r == "toomuch" {
		return ReasonTooMuch
	}
	for _, known := range WasteReasons {
		if r == known {
			return r
		}
	}
	return ReasonOther
}

// WasteRecord is an immutable entry in the waste log
type WasteRecord struct {
	ID            string      `json:"id"`
	ItemID        string      `json:"itemId,omitempty"`
	ItemName      string      `json:"itemName"`
	Category      Category    `json:"category"`
	Amount        float64     `json:"amount"`
	Unit          Unit        `json:"unit"`
	Reason        WasteReason `json:"reason"`
	Date          time.Time   `json:"date"`
	EstimatedCost float64     `json:"estimatedCost"`
	CO2           float64     `json:"co2"`
}

// ConsumedRecord is an immutable entry in the consumed log
type ConsumedRecord struct {
	ID        string    `json:"id"`
	ItemID    string    `json:"itemId,omitempty"`
	ItemName  string    `json:"itemName"`
	Category  Category  `json:"category"`
	Amount    float64   `json:"amount"`
	Unit      Unit      `json:"unit"`
	Date      time.Time `json:"date"`
	SavedCost float64   `json:"savedCost"`
	SavedCO2  float64   `json:"savedCO2"`
}

// State is the whole persisted document
type State struct {
	Items       []InventoryItem  `json:"items"`
	WasteLog    []WasteRecord    `json:"wasteLog"`
	ConsumedLog []ConsumedRecord `json:"consumedLog"`
}

// NewState returns an empty state with non-nil slices
func NewState() *State {
	return &State{
		Items:       []InventoryItem{},
		WasteLog:    []WasteRecord{},
		ConsumedLog: []ConsumedRecord{},
	}
}

// Clone returns a copy that shares no slices with s
func (s *State) Clone() *State {
	out := &State{
		Items:       make([]InventoryItem, len(s.Items)),
		WasteLog:    make([]WasteRecord, len(s.WasteLog)),
		ConsumedLog: make([]ConsumedRecord, len(s.ConsumedLog)),
	}
	copy(out.Items, s.Items)
	copy(out.WasteLog, s.WasteLog)
	copy(out.ConsumedLog, s.ConsumedLog)
	return out
}

// FindItem returns the index of the active item with the given id, or -1
func (s *State) FindItem(id string) int {
	for i := range s.Items {
		if s.Items[i].ID == id {
			return i
		}
	}
	return -1
}
