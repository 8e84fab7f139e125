package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseCategory(t *testing.T) {
	tests := []struct {
		input string
		want  Category
	}{
		{"produce", CategoryProduce},
		{" Dairy ", CategoryDairy},
		{"MEAT", CategoryMeat},
		{"frozen", CategoryFrozen},
		{"snacks", CategoryOther},
		{"", CategoryOther},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseCategory(tt.input), tt.input)
	}
}

func TestParseUnit(t *testing.T) {
	assert.Equal(t, UnitPounds, ParseUnit("lb"))
	assert.Equal(t, UnitKilogram, ParseUnit("KG"))
	assert.Equal(t, UnitItems, ParseUnit(""))
	assert.Equal(t, UnitItems, ParseUnit("bunch"))
}

func TestParseWasteReason(t *testing.T) {
	assert.Equal(t, ReasonTooMuch, ParseWasteReason("too much"))
	assert.Equal(t, ReasonTooMuch, ParseWasteReason("too_much"))
	assert.Equal(t, ReasonSpoiled, ParseWasteReason("Spoiled"))
	assert.Equal(t, ReasonOther, ParseWasteReason("dropped it"))
}

func TestItemPatchApply(t *testing.T) {
	exp := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	item := InventoryItem{ID: "a", Name: "Milk", Category: CategoryDairy, Quantity: 1, Unit: UnitItems, ExpirationDate: exp}

	name := "Oat milk"
	qty := 2.0
	d := ItemPatch{Name: &name, Quantity: &qty}.Apply(item)

	assert.Equal(t, "Oat milk", d.Name)
	assert.Equal(t, 2.0, d.Quantity)
	assert.Equal(t, CategoryDairy, d.Category)
	assert.Equal(t, exp, d.ExpirationDate)
}

func TestStateClone(t *testing.T) {
	s := NewState()
	s.Items = append(s.Items, InventoryItem{ID: "a"})

	c := s.Clone()
	c.Items[0].ID = "b"

	assert.Equal(t, "a", s.Items[0].ID)
	assert.Equal(t, 0, s.FindItem("a"))
	assert.Equal(t, -1, s.FindItem("b"))
}

func TestErrorsUnwrap(t *testing.T) {
	var err error = &ItemNotFoundError{ID: "x"}
	assert.True(t, errors.Is(err, ErrItemNotFound))
	assert.Equal(t, "item not found: x", err.Error())

	err = &ValidationError{Field: "name", Reason: "required"}
	assert.True(t, errors.Is(err, ErrValidation))
}
