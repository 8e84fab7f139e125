package receipt

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"foodsaver/internal/models"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

// pngHeader is enough for content sniffing
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type stubModel struct {
	reply    string
	err      error
	delay    time.Duration
	messages []llms.MessageContent
}

func (m *stubModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	m.messages = messages
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: m.reply}}}, nil
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestExtractSendsImageAndPrompt(t *testing.T) {
	model := &stubModel{reply: `[{"name":"Milk","category":"dairy","quantity":1,"unit":"items","daysUntilExpiration":7}]`}
	e := NewExtractor(model, WithLogger(quietLogger()))

	items, err := e.Extract(context.Background(), pngHeader, "image/png")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Milk", items[0].Name)

	require.Len(t, model.messages, 1)
	msg := model.messages[0]
	assert.Equal(t, llms.ChatMessageTypeHuman, msg.Role)
	require.Len(t, msg.Parts, 2)

	image, ok := msg.Parts[0].(llms.ImageURLContent)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(image.URL, "data:image/png;base64,"))
	assert.Equal(t, llms.TextPart(Prompt), msg.Parts[1])
}

func TestExtractBinaryImages(t *testing.T) {
	model := &stubModel{reply: `[]`}
	e := NewExtractor(model, WithBinaryImages(true), WithLogger(quietLogger()))

	_, err := e.Extract(context.Background(), pngHeader, "")
	require.NoError(t, err)

	part, ok := model.messages[0].Parts[0].(llms.BinaryContent)
	require.True(t, ok)
	assert.Equal(t, "image/png", part.MIMEType)
}

func TestExtractEmptyArrayIsSuccess(t *testing.T) {
	e := NewExtractor(&stubModel{reply: "```json\n[]\n```"}, WithLogger(quietLogger()))

	items, err := e.Extract(context.Background(), pngHeader, "image/png")
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestExtractErrors(t *testing.T) {
	tests := []struct {
		name    string
		model   *stubModel
		image   []byte
		mime    string
		opts    []Option
		wantErr error
	}{
		{"empty image", &stubModel{}, nil, "image/png", nil, ErrEmptyImage},
		{"too large", &stubModel{}, pngHeader, "image/png", []Option{WithMaxImageBytes(4)}, ErrImageTooLarge},
		{"pdf", &stubModel{}, []byte("%PDF-1.4"), "application/pdf", nil, ErrUnsupportedImage},
		{"sniffed text", &stubModel{}, []byte("hello there"), "", nil, ErrUnsupportedImage},
		{"service failure", &stubModel{err: errors.New("401 unauthorized")}, pngHeader, "image/png", nil, ErrServiceUnavailable},
		{"empty reply", &stubModel{reply: "   "}, pngHeader, "image/png", nil, ErrEmptyReply},
		{"prose only", &stubModel{reply: "Sorry, I can't read this receipt."}, pngHeader, "image/png", nil, ErrMalformedReply},
		{"object instead of array", &stubModel{reply: `{"items": 3}`}, pngHeader, "image/png", nil, ErrMalformedReply},
		{"timeout", &stubModel{delay: time.Second}, pngHeader, "image/png", []Option{WithTimeout(20 * time.Millisecond)}, ErrTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := append([]Option{WithLogger(quietLogger())}, tt.opts...)
			e := NewExtractor(tt.model, opts...)

			items, err := e.Extract(context.Background(), tt.image, tt.mime)
			assert.Nil(t, items)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestExtractCanceled(t *testing.T) {
	e := NewExtractor(&stubModel{delay: time.Second}, WithLogger(quietLogger()))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Extract(ctx, pngHeader, "image/png")
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestParseReply(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		count int
	}{
		{"bare array", `[{"name":"Eggs","daysUntilExpiration":21}]`, 1},
		{"fenced", "```json\n[{\"name\":\"Eggs\"},{\"name\":\"Bread\"}]\n```", 2},
		{"fence without language", "```\n[{\"name\":\"Eggs\"}]\n```", 1},
		{"prose around", "Here is what I found:\n[{\"name\":\"Eggs\"}]\nLet me know!", 1},
		{"empty", "[]", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := ParseReply(tt.reply)
			require.NoError(t, err)
			assert.Len(t, items, tt.count)
		})
	}

	_, err := ParseReply("[not json]")
	assert.True(t, errors.Is(err, ErrMalformedReply))
}

func TestNormalize(t *testing.T) {
	ref := time.Date(2024, 3, 15, 18, 45, 0, 0, time.UTC)
	today := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	items, err := ParseReply(`[
		{"name":"Milk","category":"Dairy","quantity":1,"unit":"items","daysUntilExpiration":7},
		{"name":"Spinach","category":"veg","quantity":0,"unit":"bunch","daysUntilExpiration":4.2},
		{"name":"Rice","category":"pantry","daysUntilExpiration":"a while"},
		{"name":"Beef","category":"meat","quantity":-1,"unit":"lbs","daysUntilExpiration":3},
		{"name":"","category":"other","daysUntilExpiration":3},
		{"name":"Old cheese","category":"dairy","daysUntilExpiration":-2},
		{"name":"Chips","category":"pantry","quantity":"two","daysUntilExpiration":60},
		{"name":"Ice cream","category":"frozen"}
	]`)
	require.NoError(t, err)

	drafts, rejected := Normalize(items, ref)
	require.Len(t, drafts, 2)

	assert.Equal(t, "Milk", drafts[0].Name)
	assert.Equal(t, models.CategoryDairy, drafts[0].Category)
	assert.Equal(t, today, drafts[0].PurchaseDate)
	assert.Equal(t, today.AddDate(0, 0, 7), drafts[0].ExpirationDate)

	assert.Equal(t, models.CategoryOther, drafts[1].Category)
	assert.Equal(t, models.UnitItems, drafts[1].Unit)
	assert.Equal(t, 1.0, drafts[1].Quantity)
	assert.Equal(t, today.AddDate(0, 0, 5), drafts[1].ExpirationDate)

	require.Len(t, rejected, 6)
	reasons := map[string]string{}
	for _, r := range rejected {
		reasons[r.Name] = r.Reason
	}
	assert.Equal(t, "daysUntilExpiration is not a number", reasons["Rice"])
	assert.Equal(t, "quantity is negative", reasons["Beef"])
	assert.Equal(t, "missing name", reasons[""])
	assert.Equal(t, "daysUntilExpiration is negative", reasons["Old cheese"])
	assert.Equal(t, "quantity is not a number", reasons["Chips"])
	assert.Equal(t, "missing daysUntilExpiration", reasons["Ice cream"])
}

func TestNormalizeShelfLifeCap(t *testing.T) {
	ref := time.Date(2024, 3, 15, 18, 45, 0, 0, time.UTC)
	today := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	items, err := ParseReply(`[
		{"name":"Salt","category":"pantry","daysUntilExpiration":3650},
		{"name":"Honey","category":"pantry","daysUntilExpiration":3650.5},
		{"name":"Canned beans","category":"pantry","daysUntilExpiration":1e300}
	]`)
	require.NoError(t, err)

	drafts, rejected := Normalize(items, ref)
	require.Len(t, drafts, 1)
	assert.Equal(t, "Salt", drafts[0].Name)
	assert.Equal(t, today.AddDate(0, 0, MaxShelfDays), drafts[0].ExpirationDate)

	require.Len(t, rejected, 2)
	assert.Equal(t, Rejection{Index: 1, Name: "Honey", Reason: "daysUntilExpiration is too large"}, rejected[0])
	assert.Equal(t, Rejection{Index: 2, Name: "Canned beans", Reason: "daysUntilExpiration is too large"}, rejected[1])
}

func TestNewProviderValidation(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("GITHUB_TOKEN", "")

	_, err := NewProvider(ProviderConfig{Provider: OpenAIProvider})
	assert.Error(t, err)

	_, err = NewProvider(ProviderConfig{Provider: GitHubModelsProvider})
	assert.Error(t, err)

	_, err = NewProvider(ProviderConfig{Provider: "anthropic"})
	assert.Error(t, err)

	p, err := NewProvider(ProviderConfig{Provider: GitHubModelsProvider, APIKey: "token"})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", p.ModelName)
	assert.False(t, p.BinaryImages)

	p, err = NewProvider(ProviderConfig{Provider: OllamaProvider, BaseURL: "http://localhost:11434"})
	require.NoError(t, err)
	assert.True(t, p.BinaryImages)
	assert.NotNil(t, p.Extractor())
}
