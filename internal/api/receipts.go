package api

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"foodsaver/internal/receipt"
	"foodsaver/internal/scanner"

	"github.com/gin-gonic/gin"
)

// ReceiptField is the multipart field carrying the receipt image
const ReceiptField = "receipt"

func (a *TrackerAPI) scanningEnabled(c *gin.Context) bool {
	if a.extractor == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "receipt scanning is not configured", "code": "scanning_disabled"})
		return false
	}
	return true
}

// ScanReceipt extracts the items of an uploaded receipt. The items are
// returned for review and are not added to the inventory.
func (a *TrackerAPI) ScanReceipt(c *gin.Context) {
	if !a.scanningEnabled(c) {
		return
	}

	header, err := c.FormFile(ReceiptField)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("multipart field %q required", ReceiptField), "code": "invalid_body"})
		return
	}
	if header.Size > a.maxImageBytes {
		respondError(c, fmt.Errorf("%w: %d bytes, limit %d", receipt.ErrImageTooLarge, header.Size, a.maxImageBytes))
		return
	}

	file, err := header.Open()
	if err != nil {
		respondError(c, err)
		return
	}
	defer file.Close()

	image, err := io.ReadAll(io.LimitReader(file, a.maxImageBytes+1))
	if err != nil {
		respondError(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), a.scanTimeout)
	defer cancel()

	result := scanner.Scan(ctx, a.extractor, image, header.Header.Get("Content-Type"), a.tracker.Now())
	a.recordExtraction(result)
	if result.Err != nil {
		respondError(c, result.Err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": result.Drafts, "rejected": result.Rejected})
}
