package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"foodsaver/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleState() *models.State {
	purchased := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	s := models.NewState()
	s.Items = append(s.Items, models.InventoryItem{
		ID:             "item-1",
		Name:           "Milk",
		Category:       models.CategoryDairy,
		Quantity:       1,
		Unit:           models.UnitItems,
		PurchaseDate:   purchased,
		ExpirationDate: purchased.Add(7 * 24 * time.Hour),
		AddedDate:      purchased.Add(90 * time.Minute),
	})
	s.WasteLog = append(s.WasteLog, models.WasteRecord{
		ID:            "waste-1",
		ItemID:        "item-0",
		ItemName:      "Steak",
		Category:      models.CategoryMeat,
		Amount:        2,
		Unit:          models.UnitPounds,
		Reason:        models.ReasonTooMuch,
		Date:          purchased.Add(48 * time.Hour),
		EstimatedCost: 16,
		CO2:           7,
	})
	s.ConsumedLog = append(s.ConsumedLog, models.ConsumedRecord{
		ID:        "consumed-1",
		ItemID:    "item-2",
		ItemName:  "Apples",
		Category:  models.CategoryProduce,
		Amount:    3,
		Unit:      models.UnitItems,
		Date:      purchased.Add(72 * time.Hour),
		SavedCost: 7.5,
		SavedCO2:  1.5,
	})
	return s
}

func assertSameState(t *testing.T, want, got *models.State) {
	t.Helper()
	require.Len(t, got.Items, len(want.Items))
	require.Len(t, got.WasteLog, len(want.WasteLog))
	require.Len(t, got.ConsumedLog, len(want.ConsumedLog))

	for i := range want.Items {
		w, g := want.Items[i], got.Items[i]
		assert.Equal(t, w.ID, g.ID)
		assert.Equal(t, w.Name, g.Name)
		assert.Equal(t, w.Category, g.Category)
		assert.Equal(t, w.Quantity, g.Quantity)
		assert.Equal(t, w.Unit, g.Unit)
		assert.True(t, w.PurchaseDate.Equal(g.PurchaseDate))
		assert.True(t, w.ExpirationDate.Equal(g.ExpirationDate))
		assert.True(t, w.AddedDate.Equal(g.AddedDate))
	}
	for i := range want.WasteLog {
		w, g := want.WasteLog[i], got.WasteLog[i]
		assert.Equal(t, w.ID, g.ID)
		assert.Equal(t, w.ItemID, g.ItemID)
		assert.Equal(t, w.Reason, g.Reason)
		assert.Equal(t, w.EstimatedCost, g.EstimatedCost)
		assert.Equal(t, w.CO2, g.CO2)
		assert.True(t, w.Date.Equal(g.Date))
	}
	for i := range want.ConsumedLog {
		w, g := want.ConsumedLog[i], got.ConsumedLog[i]
		assert.Equal(t, w.ID, g.ID)
		assert.Equal(t, w.SavedCost, g.SavedCost)
		assert.Equal(t, w.SavedCO2, g.SavedCO2)
		assert.True(t, w.Date.Equal(g.Date))
	}
}

func TestBackendsRoundTrip(t *testing.T) {
	dir := t.TempDir()

	backends := []struct {
		name string
		opts Options
	}{
		{"memory", Options{Backend: BackendMemory}},
		{"bolt", Options{Backend: BackendBolt, Path: filepath.Join(dir, "bolt", "state.db")}},
		{"badger", Options{Backend: BackendBadger, Path: filepath.Join(dir, "badger")}},
		{"sqlite", Options{Backend: BackendSQL, Dialect: "sqlite3", DSN: filepath.Join(dir, "state.sqlite")}},
	}

	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			s, err := New(b.opts)
			require.NoError(t, err)
			defer s.Close()

			// Nothing saved yet
			empty, err := s.Load(ctx)
			require.NoError(t, err)
			assert.Empty(t, empty.Items)
			assert.NotNil(t, empty.WasteLog)

			want := sampleState()
			require.NoError(t, s.Save(ctx, want))

			got, err := s.Load(ctx)
			require.NoError(t, err)
			assertSameState(t, want, got)

			// Saving again overwrites the same slot
			want.Items = want.Items[:0]
			require.NoError(t, s.Save(ctx, want))
			got, err = s.Load(ctx)
			require.NoError(t, err)
			assert.Empty(t, got.Items)
			assert.Len(t, got.WasteLog, 1)
		})
	}
}

func TestBoltStoreReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.db")

	s, err := NewBoltStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, sampleState()))
	require.NoError(t, s.Close())

	s, err = NewBoltStore(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assertSameState(t, sampleState(), got)
}

func TestNewUnknownBackend(t *testing.T) {
	_, err := New(Options{Backend: "mongo"})
	assert.Error(t, err)
}

func TestDecodeCorrupt(t *testing.T) {
	for _, doc := range []string{"{not json", `{"items": 5}`, `[1,2,3]`, `{"items":[{"expirationDate":"next week"}]}`} {
		_, err := Decode([]byte(doc))
		assert.True(t, errors.Is(err, ErrCorruptState), doc)
	}
}

func TestDecodeEmpty(t *testing.T) {
	s, err := Decode(nil)
	require.NoError(t, err)
	assert.NotNil(t, s.Items)
	assert.NotNil(t, s.ConsumedLog)

	s, err = Decode([]byte(`{}`))
	require.NoError(t, err)
	assert.Empty(t, s.Items)
}

func TestDecodeBrowserDocument(t *testing.T) {
	doc := `{
		"items": [{
			"id": 1710498600000,
			"name": "Spinach",
			"category": "produce",
			"quantity": 1,
			"unit": "items",
			"purchaseDate": "2024-03-15",
			"expirationDate": "2024-03-20",
			"addedDate": "2024-03-15T10:30:00.000Z"
		}],
		"wasteLog": [{
			"id": 1710498700000,
			"itemName": "Yogurt",
			"category": "dairy",
			"amount": 2,
			"unit": "items",
			"reason": "too much",
			"date": "2024-03-14T08:00:00.000Z",
			"estimatedCost": 7,
			"co2": 2.4
		}],
		"consumedLog": []
	}`

	s, err := Decode([]byte(doc))
	require.NoError(t, err)
	require.Len(t, s.Items, 1)

	item := s.Items[0]
	assert.Equal(t, "1710498600000", item.ID)
	assert.True(t, item.ExpirationDate.Equal(time.Date(2024, 3, 20, 0, 0, 0, 0, time.Local)))
	assert.True(t, item.AddedDate.Equal(time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)))

	require.Len(t, s.WasteLog, 1)
	assert.Equal(t, models.ReasonTooMuch, s.WasteLog[0].Reason)
	assert.Equal(t, "1710498700000", s.WasteLog[0].ID)
	assert.Empty(t, s.ConsumedLog)
}
