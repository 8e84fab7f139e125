// Package api exposes the tracker over HTTP.
package api

import (
	"net/http"
	"time"

	"foodsaver/internal/monitoring"
	"foodsaver/internal/scanner"
	"foodsaver/internal/store"
	"foodsaver/internal/tracker"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Options configures a TrackerAPI
type Options struct {
	Tracker *tracker.Tracker
	// Extractor reads receipts; nil disables the receipt endpoints
	Extractor scanner.Extractor
	Collector *monitoring.Collector
	Logger    *logrus.Logger
	// JWTSecret enables bearer token auth on /api/v1 when set
	JWTSecret     string
	ScanTimeout   time.Duration
	MaxImageBytes int64
}

// TrackerAPI represents the HTTP API of the food tracker
type TrackerAPI struct {
	Router        *gin.Engine
	tracker       *tracker.Tracker
	extractor     scanner.Extractor
	collector     *monitoring.Collector
	logger        *logrus.Logger
	jwtSecret     string
	scanTimeout   time.Duration
	maxImageBytes int64
}

// NewTrackerAPI creates a new API instance
func NewTrackerAPI(opts Options) *TrackerAPI {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.MaxImageBytes <= 0 {
		opts.MaxImageBytes = 10 << 20
	}
	if opts.ScanTimeout <= 0 {
		opts.ScanTimeout = scanner.DefaultTimeout
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(opts.Logger))

	api := &TrackerAPI{
		Router:        router,
		tracker:       opts.Tracker,
		extractor:     opts.Extractor,
		collector:     opts.Collector,
		logger:        opts.Logger,
		jwtSecret:     opts.JWTSecret,
		scanTimeout:   opts.ScanTimeout,
		maxImageBytes: opts.MaxImageBytes,
	}

	api.setupRoutes()
	return api
}

// setupRoutes configures all API endpoints
func (a *TrackerAPI) setupRoutes() {
	// Health check
	a.Router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "FoodSaver API is running"})
	})

	v1 := a.Router.Group("/api/v1")
	if a.jwtSecret != "" {
		v1.Use(AuthMiddleware(a.jwtSecret))
	}
	{
		// Inventory
		v1.GET("/items", a.ListItems)
		v1.POST("/items", a.AddItem)
		v1.GET("/items/urgent", a.UrgentItems)
		v1.POST("/items/import", a.ImportItems)
		v1.PATCH("/items/:id", a.UpdateItem)
		v1.POST("/items/:id/waste", a.LogWaste)
		v1.POST("/items/:id/consume", a.MarkConsumed)

		// History
		v1.GET("/waste", a.WasteLog)
		v1.GET("/consumed", a.ConsumedLog)

		// Statistics
		v1.GET("/stats", a.Stats)
		v1.GET("/stats/timeseries", a.TimeSeries)
		v1.GET("/stats/categories", a.CategoryBreakdown)
		v1.GET("/stats/reasons", a.ReasonBreakdown)
		v1.GET("/coach", a.Coach)

		// Receipts
		v1.POST("/receipts/scan", a.ScanReceipt)
		v1.GET("/receipts/ws", a.ScanSocket)

		// State document
		v1.GET("/state/export", a.ExportState)
		v1.PUT("/state/import", a.ImportState)
		v1.GET("/status", a.Status)
	}
}

// reference returns the instant that classification is computed against:
// the ?at= query parameter when present, otherwise the tracker clock
func (a *TrackerAPI) reference(c *gin.Context) (time.Time, bool) {
	at := c.Query("at")
	if at == "" {
		return a.tracker.Now(), true
	}
	t, err := store.ParseDateIn(at, a.tracker.Location())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid at parameter: " + at, "code": "invalid_reference"})
		return time.Time{}, false
	}
	return t.In(a.tracker.Location()), true
}

func (a *TrackerAPI) recordExtraction(result scanner.Result) {
	if a.collector != nil {
		a.collector.RecordExtraction(result.Outcome(), result.Duration, len(result.Drafts))
	}
}

// requestLogger logs one line per request through logrus
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := logger.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
			"client":   c.ClientIP(),
		})
		if len(c.Errors) > 0 {
			entry = entry.WithField("errors", c.Errors.String())
		}

		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			entry.Error("Request failed")
		case c.Writer.Status() >= http.StatusBadRequest:
			entry.Warn("Request rejected")
		default:
			entry.Debug("Request handled")
		}
	}
}
