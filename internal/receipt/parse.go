package receipt

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// LineItem is one entry of the model's reply, before normalization.
// Quantity and DaysUntilExpiration stay raw so that non-numeric values can
// be rejected per item.
type LineItem struct {
	Name                string          `json:"name"`
	Category            string          `json:"category"`
	Quantity            json.RawMessage `json:"quantity,omitempty"`
	Unit                string          `json:"unit"`
	DaysUntilExpiration json.RawMessage `json:"daysUntilExpiration,omitempty"`
}

var fencePattern = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*(.*?)```")

// ParseReply extracts the JSON array of line items from a model reply.
// Code fences and prose around the array are ignored.
func ParseReply(text string) ([]LineItem, error) {
	s := strings.TrimSpace(text)
	if m := fencePattern.FindStringSubmatch(s); m != nil {
		s = strings.TrimSpace(m[1])
	}

	start := strings.Index(s, "[")
	end := strings.LastIndex(s, "]")
	if start < 0 || end < start {
		return nil, ErrMalformedReply
	}

	var items []LineItem
	if err := json.Unmarshal([]byte(s[start:end+1]), &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	if items == nil {
		items = []LineItem{}
	}
	return items, nil
}
