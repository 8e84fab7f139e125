package api

import (
	"errors"
	"io"
	"net/http"
	"sort"
	"time"

	"foodsaver/internal/models"
	"foodsaver/internal/store"
	"foodsaver/internal/tracker"

	"github.com/gin-gonic/gin"
)

// draftRequest is the JSON body of an item. Dates accept RFC 3339 or
// YYYY-MM-DD.
type draftRequest struct {
	Name           string  `json:"name"`
	Category       string  `json:"category"`
	Quantity       float64 `json:"quantity"`
	Unit           string  `json:"unit"`
	PurchaseDate   string  `json:"purchaseDate"`
	ExpirationDate string  `json:"expirationDate"`
}

func (r draftRequest) draft(loc *time.Location) (models.Draft, error) {
	d := models.Draft{
		Name:     r.Name,
		Category: models.Category(r.Category),
		Quantity: r.Quantity,
		Unit:     models.Unit(r.Unit),
	}

	var err error
	if d.PurchaseDate, err = optionalDate("purchaseDate", r.PurchaseDate, loc); err != nil {
		return models.Draft{}, err
	}
	if d.ExpirationDate, err = optionalDate("expirationDate", r.ExpirationDate, loc); err != nil {
		return models.Draft{}, err
	}
	return d, nil
}

type patchRequest struct {
	Name           *string  `json:"name"`
	Category       *string  `json:"category"`
	Quantity       *float64 `json:"quantity"`
	Unit           *string  `json:"unit"`
	PurchaseDate   *string  `json:"purchaseDate"`
	ExpirationDate *string  `json:"expirationDate"`
}

func (r patchRequest) patch(loc *time.Location) (models.ItemPatch, error) {
	p := models.ItemPatch{Name: r.Name, Quantity: r.Quantity}
	if r.Category != nil {
		category := models.Category(*r.Category)
		p.Category = &category
	}
	if r.Unit != nil {
		unit := models.Unit(*r.Unit)
		p.Unit = &unit
	}
	if r.PurchaseDate != nil {
		t, err := requiredDate("purchaseDate", *r.PurchaseDate, loc)
		if err != nil {
			return models.ItemPatch{}, err
		}
		p.PurchaseDate = &t
	}
	if r.ExpirationDate != nil {
		t, err := requiredDate("expirationDate", *r.ExpirationDate, loc)
		if err != nil {
			return models.ItemPatch{}, err
		}
		p.ExpirationDate = &t
	}
	return p, nil
}

type wasteRequest struct {
	Amount float64 `json:"amount"`
	Reason string  `json:"reason"`
}

type importRequest struct {
	Items []draftRequest `json:"items"`
}

func optionalDate(field, value string, loc *time.Location) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return requiredDate(field, value, loc)
}

func requiredDate(field, value string, loc *time.Location) (time.Time, error) {
	t, err := store.ParseDateIn(value, loc)
	if err != nil {
		return time.Time{}, &models.ValidationError{Field: field, Reason: "not a date: " + value}
	}
	return t, nil
}

// bindJSON decodes the body, answering 400 on failure
func bindJSON(c *gin.Context, v interface{}) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "invalid_body"})
		return false
	}
	return true
}

// bindOptionalJSON is bindJSON that accepts an empty body, leaving v unchanged.
// Chunked requests carry no length, so emptiness is detected from the decoder.
func bindOptionalJSON(c *gin.Context, v interface{}) bool {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(v); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "invalid_body"})
		return false
	}
	return true
}

// Inventory handlers

func (a *TrackerAPI) ListItems(c *gin.Context) {
	ref, ok := a.reference(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"items":     a.tracker.Items(ref),
		"counts":    a.tracker.StatusCounts(ref),
		"reference": ref,
	})
}

func (a *TrackerAPI) UrgentItems(c *gin.Context) {
	ref, ok := a.reference(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": a.tracker.Urgent(ref), "reference": ref})
}

func (a *TrackerAPI) AddItem(c *gin.Context) {
	var req draftRequest
	if !bindJSON(c, &req) {
		return
	}
	draft, err := req.draft(a.tracker.Location())
	if err != nil {
		respondError(c, err)
		return
	}

	item, err := a.tracker.AddItem(c.Request.Context(), draft)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (a *TrackerAPI) UpdateItem(c *gin.Context) {
	var req patchRequest
	if !bindJSON(c, &req) {
		return
	}
	patch, err := req.patch(a.tracker.Location())
	if err != nil {
		respondError(c, err)
		return
	}

	item, err := a.tracker.UpdateItem(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (a *TrackerAPI) LogWaste(c *gin.Context) {
	var req wasteRequest
	// an empty body wastes the whole item for reason "other"
	if !bindOptionalJSON(c, &req) {
		return
	}

	record, err := a.tracker.LogWaste(c.Request.Context(), c.Param("id"), req.Amount, models.ParseWasteReason(req.Reason))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

func (a *TrackerAPI) MarkConsumed(c *gin.Context) {
	record, err := a.tracker.MarkConsumed(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

func (a *TrackerAPI) ImportItems(c *gin.Context) {
	var req importRequest
	if !bindJSON(c, &req) {
		return
	}

	// unparseable dates are reported like any other rejected draft
	var rejected []tracker.Rejection
	drafts := make([]models.Draft, 0, len(req.Items))
	positions := make([]int, 0, len(req.Items))
	for i, r := range req.Items {
		d, err := r.draft(a.tracker.Location())
		if err != nil {
			rejected = append(rejected, tracker.Rejection{Index: i, Name: r.Name, Reason: err.Error()})
			continue
		}
		drafts = append(drafts, d)
		positions = append(positions, i)
	}

	result := a.tracker.ImportBatch(c.Request.Context(), drafts)
	for _, r := range result.Rejected {
		r.Index = positions[r.Index]
		rejected = append(rejected, r)
	}
	sort.Slice(rejected, func(i, j int) bool { return rejected[i].Index < rejected[j].Index })
	if rejected == nil {
		rejected = []tracker.Rejection{}
	}
	result.Rejected = rejected

	c.JSON(http.StatusOK, result)
}

// History handlers

func (a *TrackerAPI) WasteLog(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"records": a.tracker.WasteLog()})
}

func (a *TrackerAPI) ConsumedLog(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"records": a.tracker.ConsumedLog()})
}
