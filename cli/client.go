package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const defaultBaseURL = "http://localhost:8080"

// ApiClient handles requests to the FoodSaver API
type ApiClient struct {
	httpClient *http.Client
	BaseURL    string
	Token      string
}

// NewApiClient creates a client from FOODSAVER_API_URL and FOODSAVER_TOKEN
func NewApiClient() *ApiClient {
	baseURL := os.Getenv("FOODSAVER_API_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &ApiClient{
		// receipt scans can take as long as the model does
		httpClient: &http.Client{Timeout: 90 * time.Second},
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Token:      os.Getenv("FOODSAVER_TOKEN"),
	}
}

// Item is an inventory item with its freshness
type Item struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Category       string    `json:"category"`
	Quantity       float64   `json:"quantity"`
	Unit           string    `json:"unit"`
	PurchaseDate   time.Time `json:"purchaseDate"`
	ExpirationDate time.Time `json:"expirationDate"`
	DaysLeft       int       `json:"daysLeft"`
	Status         string    `json:"status"`
}

// Draft is an item that has not been added yet. Dates are kept as the
// server wrote them.
type Draft struct {
	Name           string  `json:"name"`
	Category       string  `json:"category"`
	Quantity       float64 `json:"quantity"`
	Unit           string  `json:"unit"`
	PurchaseDate   string  `json:"purchaseDate,omitempty"`
	ExpirationDate string  `json:"expirationDate"`
}

// Rejection explains a skipped item
type Rejection struct {
	Index  int    `json:"index"`
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// WasteRecord is an entry of the waste log
type WasteRecord struct {
	ItemName      string    `json:"itemName"`
	Category      string    `json:"category"`
	Amount        float64   `json:"amount"`
	Unit          string    `json:"unit"`
	Reason        string    `json:"reason"`
	Date          time.Time `json:"date"`
	EstimatedCost float64   `json:"estimatedCost"`
	CO2           float64   `json:"co2"`
}

// Totals summarizes both logs
type Totals struct {
	WastedCost    float64 `json:"wastedCost"`
	WastedCO2     float64 `json:"wastedCO2"`
	WastedCount   int     `json:"wastedCount"`
	SavedCost     float64 `json:"savedCost"`
	SavedCO2      float64 `json:"savedCO2"`
	ConsumedCount int     `json:"consumedCount"`
	SuccessRate   float64 `json:"successRate"`
}

// Share is one row of a breakdown
type Share struct {
	Key     string  `json:"key"`
	Value   float64 `json:"value"`
	Percent float64 `json:"percent"`
}

// ScanResult is the outcome of a receipt scan
type ScanResult struct {
	Items    []Draft     `json:"items"`
	Rejected []Rejection `json:"rejected"`
}

// BatchResult is the outcome of an import
type BatchResult struct {
	Added    []Item      `json:"added"`
	Rejected []Rejection `json:"rejected"`
}

// apiError is the error body of the API
type apiError struct {
	Status  int
	Message string `json:"error"`
	Code    string `json:"code"`
}

func (e *apiError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed with status code: %d", e.Status)
	}
	return e.Message
}

// CheckHealth checks if the API is up and running
func (c *ApiClient) CheckHealth() (bool, error) {
	resp, err := c.httpClient.Get(c.BaseURL + "/health")
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("API health check failed with status code: %d", resp.StatusCode)
	}
	return true, nil
}

// do sends a request and decodes the JSON reply into out
func (c *ApiClient) do(method, path, contentType string, body io.Reader, out interface{}) error {
	req, err := http.NewRequest(method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &apiError{Status: resp.StatusCode}
		_ = json.Unmarshal(data, apiErr)
		return apiErr
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

func (c *ApiClient) doJSON(method, path string, in, out interface{}) error {
	if in == nil {
		return c.do(method, path, "", nil, out)
	}
	data, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return c.do(method, path, "application/json", bytes.NewReader(data), out)
}

// GetItems retrieves the inventory sorted by expiration
func (c *ApiClient) GetItems() ([]Item, error) {
	var resp struct {
		Items []Item `json:"items"`
	}
	if err := c.doJSON(http.MethodGet, "/api/v1/items", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// AddItem creates a new item
func (c *ApiClient) AddItem(draft Draft) (*Item, error) {
	var item Item
	if err := c.doJSON(http.MethodPost, "/api/v1/items", draft, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// LogWaste records an item as wasted
func (c *ApiClient) LogWaste(id string, amount float64, reason string) (*WasteRecord, error) {
	var record WasteRecord
	body := map[string]interface{}{"amount": amount, "reason": reason}
	if err := c.doJSON(http.MethodPost, "/api/v1/items/"+id+"/waste", body, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// MarkConsumed records an item as used
func (c *ApiClient) MarkConsumed(id string) error {
	return c.doJSON(http.MethodPost, "/api/v1/items/"+id+"/consume", nil, nil)
}

// GetWasteLog retrieves the waste log, newest first
func (c *ApiClient) GetWasteLog() ([]WasteRecord, error) {
	var resp struct {
		Records []WasteRecord `json:"records"`
	}
	if err := c.doJSON(http.MethodGet, "/api/v1/waste", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Records, nil
}

// GetTotals retrieves the impact totals
func (c *ApiClient) GetTotals() (*Totals, error) {
	var resp struct {
		Totals Totals `json:"totals"`
	}
	if err := c.doJSON(http.MethodGet, "/api/v1/stats", nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Totals, nil
}

// GetCategoryBreakdown retrieves wasted cost per category
func (c *ApiClient) GetCategoryBreakdown() ([]Share, error) {
	var resp struct {
		Categories []Share `json:"categories"`
	}
	if err := c.doJSON(http.MethodGet, "/api/v1/stats/categories", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Categories, nil
}

// GetCoachMessage retrieves the coach's advice
func (c *ApiClient) GetCoachMessage() (string, error) {
	var resp struct {
		Message string `json:"message"`
	}
	if err := c.doJSON(http.MethodGet, "/api/v1/coach", nil, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// ScanReceipt uploads a receipt photo and returns the items found on it
func (c *ApiClient) ScanReceipt(path string) (*ScanResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="receipt"; filename=%q`, filepath.Base(path)))
	h.Set("Content-Type", http.DetectContentType(data))
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(data); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	var result ScanResult
	if err := c.do(http.MethodPost, "/api/v1/receipts/scan", mw.FormDataContentType(), &body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ImportItems adds the drafts in one batch
func (c *ApiClient) ImportItems(drafts []Draft) (*BatchResult, error) {
	var result BatchResult
	if err := c.doJSON(http.MethodPost, "/api/v1/items/import", map[string]interface{}{"items": drafts}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
