package api

import (
	"errors"
	"net/http"

	"foodsaver/internal/models"
	"foodsaver/internal/receipt"
	"foodsaver/internal/scanner"
	"foodsaver/internal/store"

	"github.com/gin-gonic/gin"
)

// errorStatus maps an error to its HTTP status and stable error code
func errorStatus(err error) (int, string) {
	var validation *models.ValidationError
	switch {
	case errors.As(err, &validation), errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest, "validation_failed"
	case errors.Is(err, models.ErrItemNotFound):
		return http.StatusNotFound, "item_not_found"
	case errors.Is(err, receipt.ErrEmptyImage):
		return http.StatusBadRequest, "empty_image"
	case errors.Is(err, receipt.ErrImageTooLarge):
		return http.StatusRequestEntityTooLarge, "image_too_large"
	case errors.Is(err, receipt.ErrUnsupportedImage):
		return http.StatusUnsupportedMediaType, "unsupported_image"
	case errors.Is(err, receipt.ErrTimeout):
		return http.StatusGatewayTimeout, "extraction_timeout"
	case errors.Is(err, receipt.ErrEmptyReply):
		return http.StatusBadGateway, "empty_reply"
	case errors.Is(err, receipt.ErrMalformedReply):
		return http.StatusUnprocessableEntity, "malformed_reply"
	case errors.Is(err, receipt.ErrServiceUnavailable):
		return http.StatusBadGateway, "extraction_failed"
	case errors.Is(err, scanner.ErrBusy):
		return http.StatusConflict, "scan_in_progress"
	case errors.Is(err, scanner.ErrNothingPending):
		return http.StatusConflict, "nothing_pending"
	case errors.Is(err, store.ErrCorruptState):
		return http.StatusBadRequest, "corrupt_state"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// respondError writes {"error", "code"} with the status matching err
func respondError(c *gin.Context, err error) {
	status, code := errorStatus(err)
	_ = c.Error(err)
	c.JSON(status, gin.H{"error": err.Error(), "code": code})
}
