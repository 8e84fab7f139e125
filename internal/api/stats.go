package api

import (
	"io"
	"net/http"

	"foodsaver/internal/store"

	"github.com/gin-gonic/gin"
)

// maxStateBytes limits an imported state document
const maxStateBytes = 32 << 20

// Statistics handlers

func (a *TrackerAPI) Stats(c *gin.Context) {
	ref, ok := a.reference(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"totals": a.tracker.Totals(),
		"counts": a.tracker.StatusCounts(ref),
	})
}

func (a *TrackerAPI) TimeSeries(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"days": a.tracker.TimeSeries()})
}

func (a *TrackerAPI) CategoryBreakdown(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": a.tracker.CategoryBreakdown()})
}

func (a *TrackerAPI) ReasonBreakdown(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"reasons": a.tracker.ReasonBreakdown()})
}

func (a *TrackerAPI) Coach(c *gin.Context) {
	ref, ok := a.reference(c)
	if !ok {
		return
	}
	kind, message := a.tracker.Advice(ref)
	c.JSON(http.StatusOK, gin.H{"kind": kind, "message": message})
}

// State document handlers

func (a *TrackerAPI) ExportState(c *gin.Context) {
	data, err := store.Encode(a.tracker.Snapshot())
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="foodsaver-export.json"`)
	c.Data(http.StatusOK, "application/json", data)
}

func (a *TrackerAPI) ImportState(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxStateBytes))
	if err != nil {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error(), "code": "body_too_large"})
		return
	}
	if len(body) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "state document required", "code": "invalid_body"})
		return
	}

	state, err := store.Decode(body)
	if err != nil {
		respondError(c, err)
		return
	}

	a.tracker.ReplaceState(c.Request.Context(), state)
	c.JSON(http.StatusOK, gin.H{
		"items":     len(state.Items),
		"wasteLog":  len(state.WasteLog),
		"consumed":  len(state.ConsumedLog),
		"persisted": a.tracker.LastPersistError() == nil,
	})
}

func (a *TrackerAPI) Status(c *gin.Context) {
	status := gin.H{
		"counts":          a.tracker.StatusCounts(a.tracker.Now()),
		"scanning":        a.extractor != nil,
		"last_persist_ok": a.tracker.LastPersistError() == nil,
	}
	if err := a.tracker.LastPersistError(); err != nil {
		status["last_persist_error"] = err.Error()
	}
	if a.collector != nil {
		status["monitor"] = a.collector.Monitor().Status()
	}
	c.JSON(http.StatusOK, status)
}
