package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *ApiClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &ApiClient{httpClient: srv.Client(), BaseURL: srv.URL, Token: "secret"}
}

func TestGetItems(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/items", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"items":[{"id":"a","name":"Milk","category":"dairy","quantity":1,"unit":"items","expirationDate":"2024-03-22T00:00:00Z","daysLeft":2,"status":"urgent"}],"counts":{}}`)
	})

	items, err := client.GetItems()
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Milk", items[0].Name)
	assert.Equal(t, 2, items[0].DaysLeft)
	assert.Equal(t, "urgent", items[0].Status)
}

func TestAddItemSendsDraft(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var draft Draft
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&draft))
		assert.Equal(t, "Eggs", draft.Name)
		assert.Equal(t, "2024-03-30", draft.ExpirationDate)
		assert.Empty(t, draft.PurchaseDate)

		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":"b","name":"Eggs","quantity":12}`)
	})

	item, err := client.AddItem(Draft{Name: "Eggs", Quantity: 12, ExpirationDate: "2024-03-30"})
	require.NoError(t, err)
	assert.Equal(t, "b", item.ID)
}

func TestAPIErrorBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":"item not found: x","code":"item_not_found"}`)
	})

	_, err := client.LogWaste("x", 0, "expired")
	require.Error(t, err)

	var apiErr *apiError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "item_not_found", apiErr.Code)
	assert.Equal(t, "item not found: x", err.Error())
}

func TestScanReceiptUploadsFile(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n0000")
	path := filepath.Join(t.TempDir(), "receipt.png")
	require.NoError(t, os.WriteFile(path, png, 0o600))

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/receipts/scan", r.URL.Path)
		file, header, err := r.FormFile("receipt")
		if !assert.NoError(t, err) {
			return
		}
		defer file.Close()
		assert.Equal(t, "receipt.png", header.Filename)
		assert.Equal(t, "image/png", header.Header.Get("Content-Type"))

		_, _ = io.WriteString(w, `{"items":[{"name":"Bread","quantity":1,"expirationDate":"2024-03-25T00:00:00Z"}],"rejected":[{"index":1,"name":"Bag","reason":"missing daysUntilExpiration"}]}`)
	})

	result, err := client.ScanReceipt(path)
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "Bread", result.Items[0].Name)
	require.Len(t, result.Rejected, 1)
	assert.Equal(t, 1, result.Rejected[0].Index)
}

func TestParseDraft(t *testing.T) {
	draft, err := parseDraft("Milk, dairy, 2, l, 2024-03-22")
	require.NoError(t, err)
	assert.Equal(t, Draft{Name: "Milk", Category: "dairy", Quantity: 2, Unit: "l", ExpirationDate: "2024-03-22"}, draft)

	draft, err = parseDraft("Bread, 2024-03-25")
	require.NoError(t, err)
	assert.Equal(t, 1.0, draft.Quantity)

	_, err = parseDraft("Milk, dairy, lots, l, 2024-03-22")
	assert.Error(t, err)

	_, err = parseDraft("Milk")
	assert.Error(t, err)
}

func TestDaysLabel(t *testing.T) {
	assert.Equal(t, "expired 2 days ago", daysLabel(-2))
	assert.Equal(t, "expires today", daysLabel(0))
	assert.Equal(t, "1 day left", daysLabel(1))
	assert.Equal(t, "4 days left", daysLabel(4))
}
