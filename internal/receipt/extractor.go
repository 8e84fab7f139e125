// Package receipt turns a photo of a grocery receipt into candidate
// inventory items using a multimodal language model.
package receipt

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tmc/langchaingo/llms"
)

// Prompt is the fixed instruction sent with every receipt image
const Prompt = `You are reading a photo of a grocery receipt.
List every food item on it as a JSON array. Each element must be an object with:
  "name": the product name in plain words,
  "category": one of "produce", "dairy", "meat", "pantry", "frozen", "other",
  "quantity": a number,
  "unit": one of "items", "lbs", "oz", "kg", "g",
  "daysUntilExpiration": a whole number estimating how many days the item stays fresh from today.
Skip non-food lines, taxes, totals and discounts.
If the receipt has no food items, answer with [].
Answer with the JSON array only.`

var (
	ErrEmptyImage         = errors.New("receipt image is empty")
	ErrImageTooLarge      = errors.New("receipt image is too large")
	ErrUnsupportedImage   = errors.New("receipt image type is not supported")
	ErrServiceUnavailable = errors.New("extraction service failed")
	ErrTimeout            = errors.New("extraction timed out")
	ErrEmptyReply         = errors.New("extraction service returned an empty reply")
	ErrMalformedReply     = errors.New("extraction reply is not a JSON array of items")
)

// SupportedTypes lists the accepted image MIME types
var SupportedTypes = []string{"image/jpeg", "image/png", "image/webp", "image/gif"}

const (
	DefaultMaxImageBytes = 10 << 20
	DefaultTimeout       = 60 * time.Second
	DefaultMaxTokens     = 2048
)

// Model is the part of llms.Model the extractor uses
type Model interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)
}

// Extractor sends receipt images to a model and parses the reply
type Extractor struct {
	model         Model
	maxImageBytes int64
	timeout       time.Duration
	maxTokens     int
	binaryImages  bool
	logger        *logrus.Logger
}

// Option configures an Extractor
type Option func(*Extractor)

// WithMaxImageBytes limits the accepted image size
func WithMaxImageBytes(n int64) Option {
	return func(e *Extractor) { e.maxImageBytes = n }
}

// WithTimeout bounds each model call
func WithTimeout(d time.Duration) Option {
	return func(e *Extractor) { e.timeout = d }
}

// WithMaxTokens limits the reply length
func WithMaxTokens(n int) Option {
	return func(e *Extractor) { e.maxTokens = n }
}

// WithBinaryImages sends the image as a raw binary part instead of a base64
// data URL. Ollama models need this.
func WithBinaryImages(binary bool) Option {
	return func(e *Extractor) { e.binaryImages = binary }
}

// WithLogger sets the logger
func WithLogger(l *logrus.Logger) Option {
	return func(e *Extractor) { e.logger = l }
}

// NewExtractor creates an extractor around model
func NewExtractor(model Model, opts ...Option) *Extractor {
	e := &Extractor{
		model:         model,
		maxImageBytes: DefaultMaxImageBytes,
		timeout:       DefaultTimeout,
		maxTokens:     DefaultMaxTokens,
		logger:        logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract asks the model for the line items on the receipt. Every failure is
// reported as one of the package errors; an explicit empty list from the
// model is a successful result with no items.
func (e *Extractor) Extract(ctx context.Context, image []byte, mimeType string) ([]LineItem, error) {
	mimeType, err := e.checkImage(image, mimeType)
	if err != nil {
		return nil, err
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	var imagePart llms.ContentPart
	if e.binaryImages {
		imagePart = llms.BinaryPart(mimeType, image)
	} else {
		imagePart = llms.ImageURLPart("data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(image))
	}

	messages := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{imagePart, llms.TextPart(Prompt)},
		},
	}

	start := time.Now()
	resp, err := e.model.GenerateContent(ctx, messages,
		llms.WithTemperature(0),
		llms.WithMaxTokens(e.maxTokens),
	)
	if err != nil {
		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			return nil, fmt.Errorf("%w after %s", ErrTimeout, time.Since(start).Round(time.Millisecond))
		case errors.Is(ctx.Err(), context.Canceled):
			return nil, ctx.Err()
		}
		e.logger.WithError(err).Warn("Receipt extraction call failed")
		return nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}

	if resp == nil || len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Content) == "" {
		return nil, ErrEmptyReply
	}

	items, err := ParseReply(resp.Choices[0].Content)
	if err != nil {
		e.logger.WithFields(logrus.Fields{
			"reply_length": len(resp.Choices[0].Content),
		}).WithError(err).Warn("Unparseable extraction reply")
		return nil, err
	}

	e.logger.WithFields(logrus.Fields{
		"items":    len(items),
		"duration": time.Since(start).String(),
	}).Info("Receipt extracted")
	return items, nil
}

func (e *Extractor) checkImage(image []byte, mimeType string) (string, error) {
	if len(image) == 0 {
		return "", ErrEmptyImage
	}
	if e.maxImageBytes > 0 && int64(len(image)) > e.maxImageBytes {
		return "", fmt.Errorf("%w: %d bytes, limit %d", ErrImageTooLarge, len(image), e.maxImageBytes)
	}

	mimeType = strings.ToLower(strings.TrimSpace(strings.SplitN(mimeType, ";", 2)[0]))
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(image)
	}
	if mimeType == "image/jpg" {
		mimeType = "image/jpeg"
	}

	for _, supported := range SupportedTypes {
		if mimeType == supported {
			return mimeType, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedImage, mimeType)
}
