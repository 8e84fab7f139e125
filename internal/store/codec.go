package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"foodsaver/internal/models"
)

// Encode serializes the state document. Dates are written as RFC 3339.
func Encode(state *models.State) ([]byte, error) {
	if state == nil {
		state = models.NewState()
	}
	data, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("failed to encode state: %w", err)
	}
	return data, nil
}

// Decode parses a state document. Empty input yields an empty state; input
// that is not a valid document yields ErrCorruptState.
//
// Dates are revived from RFC 3339 (with or without fractional seconds) or
// plain YYYY-MM-DD, and numeric ids are accepted, so documents exported by
// the browser version of the tracker load unchanged.
func Decode(data []byte) (*models.State, error) {
	state := models.NewState()
	if len(bytes.TrimSpace(data)) == 0 {
		return state, nil
	}

	var doc wireState
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}

	for _, it := range doc.Items {
		state.Items = append(state.Items, models.InventoryItem{
			ID:             string(it.ID),
			Name:           it.Name,
			Category:       models.ParseCategory(it.Category),
			Quantity:       it.Quantity,
			Unit:           models.ParseUnit(it.Unit),
			PurchaseDate:   time.Time(it.PurchaseDate),
			ExpirationDate: time.Time(it.ExpirationDate),
			AddedDate:      time.Time(it.AddedDate),
		})
	}
	for _, w := range doc.WasteLog {
		state.WasteLog = append(state.WasteLog, models.WasteRecord{
			ID:            string(w.ID),
			ItemID:        string(w.ItemID),
			ItemName:      w.ItemName,
			Category:      models.ParseCategory(w.Category),
			Amount:        w.Amount,
			Unit:          models.ParseUnit(w.Unit),
			Reason:        models.ParseWasteReason(w.Reason),
			Date:          time.Time(w.Date),
			EstimatedCost: w.EstimatedCost,
			CO2:           w.CO2,
		})
	}
	for _, c := range doc.ConsumedLog {
		state.ConsumedLog = append(state.ConsumedLog, models.ConsumedRecord{
			ID:        string(c.ID),
			ItemID:    string(c.ItemID),
			ItemName:  c.ItemName,
			Category:  models.ParseCategory(c.Category),
			Amount:    c.Amount,
			Unit:      models.ParseUnit(c.Unit),
			Date:      time.Time(c.Date),
			SavedCost: c.SavedCost,
			SavedCO2:  c.SavedCO2,
		})
	}

	return state, nil
}

type wireState struct {
	Items       []wireItem     `json:"items"`
	WasteLog    []wireWaste    `json:"wasteLog"`
	ConsumedLog []wireConsumed `json:"consumedLog"`
}

type wireItem struct {
	ID             flexID   `json:"id"`
	Name           string   `json:"name"`
	Category       string   `json:"category"`
	Quantity       float64  `json:"quantity"`
	Unit           string   `json:"unit"`
	PurchaseDate   flexTime `json:"purchaseDate"`
	ExpirationDate flexTime `json:"expirationDate"`
	AddedDate      flexTime `json:"addedDate"`
}

type wireWaste struct {
	ID            flexID   `json:"id"`
	ItemID        flexID   `json:"itemId"`
	ItemName      string   `json:"itemName"`
	Category      string   `json:"category"`
	Amount        float64  `json:"amount"`
	Unit          string   `json:"unit"`
	Reason        string   `json:"reason"`
	Date          flexTime `json:"date"`
	EstimatedCost float64  `json:"estimatedCost"`
	CO2           float64  `json:"co2"`
}

type wireConsumed struct {
	ID        flexID   `json:"id"`
	ItemID    flexID   `json:"itemId"`
	ItemName  string   `json:"itemName"`
	Category  string   `json:"category"`
	Amount    float64  `json:"amount"`
	Unit      string   `json:"unit"`
	Date      flexTime `json:"date"`
	SavedCost float64  `json:"savedCost"`
	SavedCO2  float64  `json:"savedCO2"`
}

// flexID accepts both string and numeric ids
type flexID string

func (id *flexID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = flexID(n.String())
	return nil
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// flexTime revives the date encodings seen in stored documents
type flexTime time.Time

func (t *flexTime) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*t = flexTime(parsed)
	return nil
}

// ParseDate parses an RFC 3339 timestamp or a YYYY-MM-DD date. Values
// without a zone are read in the local time zone.
func ParseDate(s string) (time.Time, error) {
	return ParseDateIn(s, time.Local)
}

// ParseDateIn is ParseDate with values without a zone read in loc
func ParseDateIn(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}
