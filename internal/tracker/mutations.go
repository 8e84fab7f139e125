package tracker

import (
	"context"
	"slices"

	"foodsaver/internal/metrics"
	"foodsaver/internal/models"

	"github.com/sirupsen/logrus"
)

// Rejection describes a draft that ImportBatch skipped
type Rejection struct {
	Index  int    `json:"index"`
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// BatchResult reports the outcome of ImportBatch
type BatchResult struct {
	Added    []models.InventoryItem `json:"added"`
	Rejected []Rejection            `json:"rejected"`
}

// newItem builds a validated item from a draft. Must be called with t.mu held.
func (t *Tracker) newItem(draft models.Draft) (models.InventoryItem, error) {
	now := t.clock()
	d := normalizeDraft(draft, now.In(t.loc))
	if err := validateDraft(d); err != nil {
		return models.InventoryItem{}, err
	}

	return models.InventoryItem{
		ID:             t.newID(),
		Name:           d.Name,
		Category:       d.Category,
		Quantity:       d.Quantity,
		Unit:           d.Unit,
		PurchaseDate:   d.PurchaseDate,
		ExpirationDate: d.ExpirationDate,
		AddedDate:      now,
	}, nil
}

// AddItem validates the draft and appends a new active item. On a validation
// error the state is unchanged.
func (t *Tracker) AddItem(ctx context.Context, draft models.Draft) (models.InventoryItem, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	item, err := t.newItem(draft)
	if err != nil {
		t.logger.WithError(err).WithField("name", draft.Name).Debug("Rejected item")
		return models.InventoryItem{}, err
	}

	t.state.Items = append(t.state.Items, item)
	t.recorder.RecordItemsAdded(1)

	t.logger.WithFields(logrus.Fields{
		"item_id":  item.ID,
		"name":     item.Name,
		"category": item.Category,
	}).Info("Item added")

	t.persist(ctx)
	return item, nil
}

// UpdateItem applies a patch to an active item
func (t *Tracker) UpdateItem(ctx context.Context, id string, patch models.ItemPatch) (models.InventoryItem, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx := t.state.FindItem(id)
	if idx < 0 {
		return models.InventoryItem{}, &models.ItemNotFoundError{ID: id}
	}
	current := t.state.Items[idx]

	d := normalizeDraft(patch.Apply(current), t.clock().In(t.loc))
	if err := validateDraft(d); err != nil {
		return models.InventoryItem{}, err
	}

	updated := current
	updated.Name = d.Name
	updated.Category = d.Category
	updated.Quantity = d.Quantity
	updated.Unit = d.Unit
	updated.PurchaseDate = d.PurchaseDate
	updated.ExpirationDate = d.ExpirationDate
	t.state.Items[idx] = updated

	t.logger.WithField("item_id", id).Info("Item updated")

	t.persist(ctx)
	return updated, nil
}

// LogWaste resolves an active item into a waste record. A non-positive
// amount means the whole quantity. The record is appended and the item
// removed in the same step.
func (t *Tracker) LogWaste(ctx context.Context, id string, amount float64, reason models.WasteReason) (models.WasteRecord, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx := t.state.FindItem(id)
	if idx < 0 {
		t.logger.WithField("item_id", id).Warn("Waste logged for unknown item")
		return models.WasteRecord{}, &models.ItemNotFoundError{ID: id}
	}
	item := t.state.Items[idx]

	if amount <= 0 {
		amount = item.Quantity
	}
	if amount > item.Quantity {
		if t.strict {
			return models.WasteRecord{}, &models.ValidationError{Field: "amount", Reason: "exceeds the item quantity"}
		}
		t.logger.WithFields(logrus.Fields{
			"item_id":  id,
			"amount":   amount,
			"quantity": item.Quantity,
		}).Warn("Waste amount exceeds item quantity")
	}

	record := models.WasteRecord{
		ID:            t.newID(),
		ItemID:        item.ID,
		ItemName:      item.Name,
		Category:      item.Category,
		Amount:        amount,
		Unit:          item.Unit,
		Reason:        models.ParseWasteReason(string(reason)),
		Date:          t.clock(),
		EstimatedCost: metrics.EstimateCost(item.Category, amount),
		CO2:           metrics.EstimateCO2(item.Category, amount),
	}

	t.state.WasteLog = append(t.state.WasteLog, record)
	t.state.Items = slices.Delete(t.state.Items, idx, idx+1)
	t.recorder.RecordWaste(record)

	t.logger.WithFields(logrus.Fields{
		"item_id": id,
		"reason":  record.Reason,
		"cost":    record.EstimatedCost,
	}).Info("Waste logged")

	t.persist(ctx)
	return record, nil
}

// MarkConsumed resolves an active item into a consumed record for its full
// quantity
func (t *Tracker) MarkConsumed(ctx context.Context, id string) (models.ConsumedRecord, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx := t.state.FindItem(id)
	if idx < 0 {
		t.logger.WithField("item_id", id).Warn("Consumption logged for unknown item")
		return models.ConsumedRecord{}, &models.ItemNotFoundError{ID: id}
	}
	item := t.state.Items[idx]

	record := models.ConsumedRecord{
		ID:        t.newID(),
		ItemID:    item.ID,
		ItemName:  item.Name,
		Category:  item.Category,
		Amount:    item.Quantity,
		Unit:      item.Unit,
		Date:      t.clock(),
		SavedCost: metrics.EstimateCost(item.Category, item.Quantity),
		SavedCO2:  metrics.EstimateCO2(item.Category, item.Quantity),
	}

	t.state.ConsumedLog = append(t.state.ConsumedLog, record)
	t.state.Items = slices.Delete(t.state.Items, idx, idx+1)
	t.recorder.RecordConsumed(record)

	t.logger.WithFields(logrus.Fields{
		"item_id": id,
		"saved":   record.SavedCost,
	}).Info("Item consumed")

	t.persist(ctx)
	return record, nil
}

// ImportBatch adds each draft independently. Invalid drafts are skipped and
// reported; the valid ones are added and saved together.
func (t *Tracker) ImportBatch(ctx context.Context, drafts []models.Draft) BatchResult {
	t.mu.Lock()
	defer t.mu.Unlock()

	result := BatchResult{Added: []models.InventoryItem{}, Rejected: []Rejection{}}
	for i, draft := range drafts {
		item, err := t.newItem(draft)
		if err != nil {
			result.Rejected = append(result.Rejected, Rejection{Index: i, Name: draft.Name, Reason: err.Error()})
			continue
		}
		t.state.Items = append(t.state.Items, item)
		result.Added = append(result.Added, item)
	}

	t.logger.WithFields(logrus.Fields{
		"added":    len(result.Added),
		"rejected": len(result.Rejected),
	}).Info("Batch imported")

	if len(result.Added) > 0 {
		t.recorder.RecordItemsAdded(len(result.Added))
		t.persist(ctx)
	}
	return result
}

// ReplaceState swaps in a whole document, for restoring a backup
func (t *Tracker) ReplaceState(ctx context.Context, state *models.State) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if state == nil {
		state = models.NewState()
	}
	next := state.Clone()
	t.state = next

	t.logger.WithFields(logrus.Fields{
		"items":    len(next.Items),
		"wasted":   len(next.WasteLog),
		"consumed": len(next.ConsumedLog),
	}).Info("State replaced")

	t.persist(ctx)
}
