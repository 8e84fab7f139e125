package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"foodsaver/internal/coach"
	"foodsaver/internal/models"
	"foodsaver/internal/monitoring"
	"foodsaver/internal/receipt"
	"foodsaver/internal/store"
	"foodsaver/internal/tracker"

	"github.com/dgrijalva/jwt-go"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type stubExtractor struct {
	items []receipt.LineItem
	err   error
	gate  chan struct{}
}

func (s *stubExtractor) Extract(ctx context.Context, image []byte, mimeType string) ([]receipt.LineItem, error) {
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.items, s.err
}

func receiptItems(t *testing.T) []receipt.LineItem {
	items, err := receipt.ParseReply(`[
		{"name":"Milk","category":"dairy","quantity":1,"unit":"items","daysUntilExpiration":7},
		{"name":"Spinach","category":"produce","quantity":1,"unit":"items","daysUntilExpiration":3},
		{"name":"Mystery","category":"other","daysUntilExpiration":"never"}
	]`)
	require.NoError(t, err)
	return items
}

type fixture struct {
	api       *TrackerAPI
	tracker   *tracker.Tracker
	collector *monitoring.Collector
}

func newFixture(t *testing.T, extractor *stubExtractor, opts ...func(*Options)) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	seq := 0
	collector := monitoring.NewCollector()
	tr := tracker.New(store.NewMemoryStore(),
		tracker.WithClock(func() time.Time { return now }),
		tracker.WithIDGenerator(func() string { seq++; return fmt.Sprintf("id-%d", seq) }),
		tracker.WithLocation(time.UTC),
		tracker.WithLogger(logger),
		tracker.WithCoach(coach.New(rand.NewSource(1))),
		tracker.WithRecorder(collector),
	)
	require.NoError(t, tr.Load(context.Background()))

	o := Options{
		Tracker:     tr,
		Collector:   collector,
		Logger:      logger,
		ScanTimeout: time.Second,
	}
	if extractor != nil {
		o.Extractor = extractor
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &fixture{api: NewTrackerAPI(o), tracker: tr, collector: collector}
}

func (f *fixture) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.api.Router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func (f *fixture) addItem(t *testing.T, name, category, expiration string) models.InventoryItem {
	t.Helper()
	w := f.do(t, http.MethodPost, "/api/v1/items", gin.H{
		"name": name, "category": category, "quantity": 2, "unit": "items", "expirationDate": expiration,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var item models.InventoryItem
	decode(t, w, &item)
	return item
}

func TestHealth(t *testing.T) {
	f := newFixture(t, nil)
	w := f.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}

func TestAddAndListItems(t *testing.T) {
	f := newFixture(t, nil)

	f.addItem(t, "Yogurt", "dairy", "2024-03-25")
	milk := f.addItem(t, "Milk", "dairy", "2024-03-16")
	assert.Equal(t, "id-2", milk.ID)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), milk.PurchaseDate.UTC())

	w := f.do(t, http.MethodGet, "/api/v1/items", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Items []struct {
			Name     string `json:"name"`
			DaysLeft int    `json:"daysLeft"`
			Status   string `json:"status"`
		} `json:"items"`
		Counts struct {
			Urgent int `json:"urgent"`
			Fresh  int `json:"fresh"`
			Total  int `json:"total"`
		} `json:"counts"`
	}
	decode(t, w, &resp)
	require.Len(t, resp.Items, 2)
	assert.Equal(t, "Milk", resp.Items[0].Name)
	assert.Equal(t, "urgent", resp.Items[0].Status)
	assert.Equal(t, "Yogurt", resp.Items[1].Name)
	assert.Equal(t, 2, resp.Counts.Total)
	assert.Equal(t, 1, resp.Counts.Urgent)

	// a later reference moves the yogurt into the urgent set
	w = f.do(t, http.MethodGet, "/api/v1/items/urgent?at=2024-03-24T10:30:00Z", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var urgent struct {
		Items []struct {
			Name string `json:"name"`
		} `json:"items"`
	}
	decode(t, w, &urgent)
	require.Len(t, urgent.Items, 2)
	assert.Equal(t, "Milk", urgent.Items[0].Name)

	w = f.do(t, http.MethodGet, "/api/v1/items?at=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAddItemValidation(t *testing.T) {
	f := newFixture(t, nil)

	tests := []struct {
		name string
		body gin.H
		code string
	}{
		{"missing name", gin.H{"name": "  ", "expirationDate": "2024-03-20"}, "validation_failed"},
		{"missing expiration", gin.H{"name": "Milk"}, "validation_failed"},
		{"bad date", gin.H{"name": "Milk", "expirationDate": "next week"}, "validation_failed"},
		{"purchase after expiration", gin.H{"name": "Milk", "purchaseDate": "2024-03-21", "expirationDate": "2024-03-20"}, "validation_failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, http.MethodPost, "/api/v1/items", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			var resp map[string]string
			decode(t, w, &resp)
			assert.Equal(t, tt.code, resp["code"])
		})
	}

	w := f.do(t, http.MethodPost, "/api/v1/items", "not an object")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, f.tracker.Snapshot().Items)
}

// chunked sends body with an unknown length, as a chunked upload does
func (f *fixture) chunked(t *testing.T, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, nil)
	req.Body = io.NopCloser(strings.NewReader(body))
	req.ContentLength = -1
	req.TransferEncoding = []string{"chunked"}
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.api.Router.ServeHTTP(w, req)
	return w
}

func TestLogWasteChunkedBody(t *testing.T) {
	f := newFixture(t, nil)
	milk := f.addItem(t, "Milk", "dairy", "2024-03-16")
	bread := f.addItem(t, "Bread", "pantry", "2024-03-18")
	eggs := f.addItem(t, "Eggs", "dairy", "2024-03-20")

	w := f.chunked(t, "/api/v1/items/"+milk.ID+"/waste", "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var waste models.WasteRecord
	decode(t, w, &waste)
	assert.Equal(t, models.ReasonOther, waste.Reason)
	assert.Equal(t, milk.Quantity, waste.Amount)

	w = f.chunked(t, "/api/v1/items/"+bread.ID+"/waste", `{"reason":"forgot"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	decode(t, w, &waste)
	assert.Equal(t, models.ReasonForgot, waste.Reason)

	w = f.chunked(t, "/api/v1/items/"+eggs.ID+"/waste", `{"reason":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid_body")
}

func TestWasteAndConsume(t *testing.T) {
	f := newFixture(t, nil)
	milk := f.addItem(t, "Milk", "dairy", "2024-03-16")
	bread := f.addItem(t, "Bread", "pantry", "2024-03-18")

	w := f.do(t, http.MethodPost, "/api/v1/items/"+milk.ID+"/waste", gin.H{"amount": 1, "reason": "spoiled"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var waste models.WasteRecord
	decode(t, w, &waste)
	assert.Equal(t, milk.ID, waste.ItemID)
	assert.Equal(t, models.ReasonSpoiled, waste.Reason)
	assert.Equal(t, 1.0, waste.Amount)

	w = f.do(t, http.MethodPost, "/api/v1/items/"+bread.ID+"/consume", nil)
	require.Equal(t, http.StatusCreated, w.Code)

	// resolved items are gone
	w = f.do(t, http.MethodPost, "/api/v1/items/"+milk.ID+"/consume", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = f.do(t, http.MethodPost, "/api/v1/items/missing/waste", gin.H{"reason": "expired"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodGet, "/api/v1/waste", nil)
	assert.Contains(t, w.Body.String(), "Milk")
	w = f.do(t, http.MethodGet, "/api/v1/consumed", nil)
	assert.Contains(t, w.Body.String(), "Bread")

	w = f.do(t, http.MethodGet, "/api/v1/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats struct {
		Totals struct {
			WastedCount   int     `json:"wastedCount"`
			ConsumedCount int     `json:"consumedCount"`
			SuccessRate   float64 `json:"successRate"`
		} `json:"totals"`
	}
	decode(t, w, &stats)
	assert.Equal(t, 1, stats.Totals.WastedCount)
	assert.Equal(t, 1, stats.Totals.ConsumedCount)
	assert.InDelta(t, 0.5, stats.Totals.SuccessRate, 0.001)

	for _, path := range []string{"/api/v1/stats/timeseries", "/api/v1/stats/categories", "/api/v1/stats/reasons", "/api/v1/coach", "/api/v1/status"} {
		w = f.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestUpdateItem(t *testing.T) {
	f := newFixture(t, nil)
	milk := f.addItem(t, "Milk", "dairy", "2024-03-16")

	w := f.do(t, http.MethodPatch, "/api/v1/items/"+milk.ID, gin.H{"name": "Oat milk", "expirationDate": "2024-03-30"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var item models.InventoryItem
	decode(t, w, &item)
	assert.Equal(t, "Oat milk", item.Name)
	assert.Equal(t, milk.ID, item.ID)

	w = f.do(t, http.MethodPatch, "/api/v1/items/"+milk.ID, gin.H{"expirationDate": "soon"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPatch, "/api/v1/items/nope", gin.H{"name": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestImportItems(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(t, http.MethodPost, "/api/v1/items/import", gin.H{"items": []gin.H{
		{"name": "Eggs", "category": "dairy", "quantity": 12, "expirationDate": "2024-04-01"},
		{"name": "Chips", "expirationDate": "whenever"},
		{"name": "", "expirationDate": "2024-04-01"},
		{"name": "Rice", "category": "pantry", "expirationDate": "2025-01-01"},
	}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result tracker.BatchResult
	decode(t, w, &result)
	require.Len(t, result.Added, 2)
	require.Len(t, result.Rejected, 2)
	assert.Equal(t, 1, result.Rejected[0].Index)
	assert.Equal(t, 2, result.Rejected[1].Index)
	assert.Len(t, f.tracker.Snapshot().Items, 2)
}

func TestExportImportState(t *testing.T) {
	f := newFixture(t, nil)
	f.addItem(t, "Milk", "dairy", "2024-03-16")

	w := f.do(t, http.MethodGet, "/api/v1/state/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	exported := w.Body.Bytes()

	other := newFixture(t, nil)
	req := httptest.NewRequest(http.MethodPut, "/api/v1/state/import", bytes.NewReader(exported))
	rec := httptest.NewRecorder()
	other.api.Router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, other.tracker.Snapshot().Items, 1)
	assert.Equal(t, "Milk", other.tracker.Snapshot().Items[0].Name)

	req = httptest.NewRequest(http.MethodPut, "/api/v1/state/import", strings.NewReader("{not json"))
	rec = httptest.NewRecorder()
	other.api.Router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, other.tracker.Snapshot().Items, 1)
}

func multipartReceipt(t *testing.T, data []byte, contentType string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename="receipt.png"`, ReceiptField))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/receipts/scan", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestScanReceipt(t *testing.T) {
	f := newFixture(t, &stubExtractor{items: receiptItems(t)})

	w := httptest.NewRecorder()
	f.api.Router.ServeHTTP(w, multipartReceipt(t, pngHeader, "image/png"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Items    []models.Draft      `json:"items"`
		Rejected []receipt.Rejection `json:"rejected"`
	}
	decode(t, w, &resp)
	require.Len(t, resp.Items, 2)
	assert.Len(t, resp.Rejected, 1)
	assert.Equal(t, time.Date(2024, 3, 22, 0, 0, 0, 0, time.UTC), resp.Items[0].ExpirationDate.UTC())

	// scanning never touches the inventory
	assert.Empty(t, f.tracker.Snapshot().Items)
}

func TestScanReceiptErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"malformed", receipt.ErrMalformedReply, http.StatusUnprocessableEntity},
		{"service", receipt.ErrServiceUnavailable, http.StatusBadGateway},
		{"timeout", receipt.ErrTimeout, http.StatusGatewayTimeout},
		{"unsupported", receipt.ErrUnsupportedImage, http.StatusUnsupportedMediaType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, &stubExtractor{err: tt.err})
			w := httptest.NewRecorder()
			f.api.Router.ServeHTTP(w, multipartReceipt(t, pngHeader, "image/png"))
			assert.Equal(t, tt.status, w.Code)
		})
	}

	f := newFixture(t, &stubExtractor{}, func(o *Options) { o.MaxImageBytes = 4 })
	w := httptest.NewRecorder()
	f.api.Router.ServeHTTP(w, multipartReceipt(t, pngHeader, "image/png"))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	disabled := newFixture(t, nil)
	w = httptest.NewRecorder()
	disabled.api.Router.ServeHTTP(w, multipartReceipt(t, pngHeader, "image/png"))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestAuthMiddleware(t *testing.T) {
	f := newFixture(t, nil, func(o *Options) { o.JWTSecret = "secret" })

	w := f.do(t, http.MethodGet, "/api/v1/items", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// health stays public
	w = f.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "household"}).SignedString([]byte("secret"))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/items", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	f.api.Router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "household"}).SignedString([]byte("other"))
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/api/v1/items", nil)
	req.Header.Set("Authorization", "Bearer "+forged)
	w = httptest.NewRecorder()
	f.api.Router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func readEvent(t *testing.T, conn *websocket.Conn) ScanEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var raw struct {
		Type  string `json:"type"`
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(data, &raw))
	return ScanEvent{Type: raw.Type, Error: raw.Error, Code: raw.Code}
}

func TestScanSocket(t *testing.T) {
	gate := make(chan struct{})
	f := newFixture(t, &stubExtractor{items: receiptItems(t), gate: gate})
	server := httptest.NewServer(f.api.Router)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/receipts/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	send := func(req ScanRequest) {
		require.NoError(t, conn.WriteJSON(req))
	}

	send(ScanRequest{Type: MessageConfirm})
	event := readEvent(t, conn)
	assert.Equal(t, MessageError, event.Type)
	assert.Equal(t, "nothing_pending", event.Code)

	scan := ScanRequest{Type: MessageScan, MimeType: "image/png", Image: base64.StdEncoding.EncodeToString(pngHeader)}
	send(scan)
	assert.Equal(t, MessageProcessing, readEvent(t, conn).Type)

	send(scan)
	event = readEvent(t, conn)
	assert.Equal(t, MessageError, event.Type)
	assert.Equal(t, "scan_in_progress", event.Code)

	close(gate)
	assert.Equal(t, MessageItems, readEvent(t, conn).Type)

	send(ScanRequest{Type: MessageConfirm})
	assert.Equal(t, MessageImported, readEvent(t, conn).Type)
	assert.Len(t, f.tracker.Snapshot().Items, 2)

	send(ScanRequest{Type: "dance"})
	assert.Equal(t, "invalid_message", readEvent(t, conn).Code)
}

func TestScanSocketEmptyReceipt(t *testing.T) {
	f := newFixture(t, &stubExtractor{items: []receipt.LineItem{}})
	server := httptest.NewServer(f.api.Router)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/receipts/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(ScanRequest{Type: MessageScan, MimeType: "image/png", Image: base64.StdEncoding.EncodeToString(pngHeader)}))
	assert.Equal(t, MessageProcessing, readEvent(t, conn).Type)
	assert.Equal(t, MessageItems, readEvent(t, conn).Type)

	require.NoError(t, conn.WriteJSON(ScanRequest{Type: MessageConfirm}))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var imported struct {
		Type  string            `json:"type"`
		Added []json.RawMessage `json:"added"`
		Code  string            `json:"code"`
	}
	require.NoError(t, json.Unmarshal(data, &imported))
	assert.Equal(t, MessageImported, imported.Type)
	assert.Empty(t, imported.Code)
	assert.NotNil(t, imported.Added)
	assert.Empty(t, imported.Added)
	assert.Empty(t, f.tracker.Snapshot().Items)
}
