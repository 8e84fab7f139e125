// Package scanner runs receipt extractions on behalf of a client and holds
// the scanned items until the client confirms them.
package scanner

import (
	"context"
	"errors"
	"time"

	"foodsaver/internal/models"
	"foodsaver/internal/receipt"
)

// Extraction outcomes reported to the Recorder
const (
	OutcomeSuccess   = "success"
	OutcomeEmpty     = "empty"
	OutcomeTimeout   = "timeout"
	OutcomeFailed    = "failed"
	OutcomeDiscarded = "discarded"
)

// Extractor reads line items from a receipt image
type Extractor interface {
	Extract(ctx context.Context, image []byte, mimeType string) ([]receipt.LineItem, error)
}

// Recorder observes finished extractions
type Recorder interface {
	RecordExtraction(outcome string, took time.Duration, items int)
}

type nopRecorder struct{}

func (nopRecorder) RecordExtraction(string, time.Duration, int) {}

// Result is the outcome of one scan
type Result struct {
	Drafts   []models.Draft      `json:"items"`
	Rejected []receipt.Rejection `json:"rejected"`
	Err      error               `json:"-"`
	Duration time.Duration       `json:"-"`
}

// Outcome names the result for metrics
func (r Result) Outcome() string {
	switch {
	case errors.Is(r.Err, receipt.ErrTimeout), errors.Is(r.Err, context.DeadlineExceeded):
		return OutcomeTimeout
	case r.Err != nil:
		return OutcomeFailed
	case len(r.Drafts) == 0:
		return OutcomeEmpty
	default:
		return OutcomeSuccess
	}
}

// Scan extracts and normalizes one receipt. Expiration dates are computed
// from the reference instant.
func Scan(ctx context.Context, extractor Extractor, image []byte, mimeType string, reference time.Time) Result {
	start := time.Now()
	items, err := extractor.Extract(ctx, image, mimeType)
	if err != nil {
		return Result{Err: err, Duration: time.Since(start)}
	}

	drafts, rejected := receipt.Normalize(items, reference)
	return Result{Drafts: drafts, Rejected: rejected, Duration: time.Since(start)}
}
