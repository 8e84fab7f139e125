package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"foodsaver/internal/api"
	"foodsaver/internal/coach"
	"foodsaver/internal/config"
	"foodsaver/internal/logging"
	"foodsaver/internal/monitoring"
	"foodsaver/internal/receipt"
	"foodsaver/internal/store"
	"foodsaver/internal/tracker"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

var (
	port        = flag.Int("port", 0, "API server port (overrides config)")
	metricsPort = flag.Int("metrics-port", 0, "Metrics server port (overrides config)")
	configFile  = flag.String("config", "configs/config.yaml", "Path to configuration file")
)

func main() {
	flag.Parse()

	// Load .env before reading FOODSAVER_* overrides
	envErr := godotenv.Load()

	// Load configuration
	cfg, err := config.Load(*configFile)
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *metricsPort != 0 {
		cfg.Server.MetricsPort = *metricsPort
	}

	// Initialize logger
	logger := logging.New(cfg.Log.Level, cfg.Log.Format)
	if envErr != nil {
		logger.Debug(".env file not found, relying on environment")
	}
	gin.SetMode(cfg.Server.Mode)

	// Initialize context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize store
	st, err := initializeStore(cfg)
	if err != nil {
		logger.Fatalf("Failed to initialize store: %v", err)
	}
	defer st.Close()

	// Initialize metrics collector
	collector := monitoring.NewCollector()

	// Initialize tracker
	loc, err := cfg.Tracker.Location()
	if err != nil {
		logger.Fatalf("Invalid timezone: %v", err)
	}
	tr := tracker.New(st,
		tracker.WithLocation(loc),
		tracker.WithStrictWasteAmount(cfg.Tracker.StrictWasteAmount),
		tracker.WithRecorder(collector),
		tracker.WithCoach(coach.New(rand.NewSource(time.Now().UnixNano()))),
		tracker.WithLogger(logger),
	)
	if err := tr.Load(ctx); err != nil {
		logger.Fatalf("Failed to load state: %v", err)
	}

	// Initialize receipt extraction
	extractor, err := initializeExtractor(cfg, logger)
	if err != nil {
		logger.WithError(err).Warn("Receipt scanning disabled")
	}

	// Initialize API server
	opts := api.Options{
		Tracker:       tr,
		Collector:     collector,
		Logger:        logger,
		JWTSecret:     cfg.Auth.JWTSecret,
		ScanTimeout:   cfg.LLM.Timeout + 5*time.Second,
		MaxImageBytes: cfg.LLM.MaxImageBytes,
	}
	if extractor != nil {
		opts.Extractor = extractor
	}
	trackerAPI := api.NewTrackerAPI(opts)

	// Start metrics server
	var metricsServer *http.Server
	if cfg.Server.MetricsPort > 0 {
		metricsServer = startMetricsServer(cfg.Server.MetricsPort, collector, logger)
	}

	// Start API server
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: trackerAPI.Router,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down servers...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("API server shutdown error")
		}
		if metricsServer != nil {
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Error("Metrics server shutdown error")
			}
		}

		cancel() // Cancel main context
	}()

	logger.WithFields(logrus.Fields{
		"port":     cfg.Server.Port,
		"backend":  cfg.Store.Backend,
		"provider": cfg.LLM.Provider,
	}).Info("Starting API server")
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("API server error: %v", err)
	}

	<-ctx.Done()
}

func initializeStore(cfg *config.Config) (store.Store, error) {
	return store.New(store.Options{
		Backend: store.Backend(cfg.Store.Backend),
		Path:    cfg.Store.Path,
		Dialect: cfg.Store.Dialect,
		DSN:     cfg.Store.DSN,
	})
}

// initializeExtractor builds the receipt extractor, or returns nil when
// scanning is turned off
func initializeExtractor(cfg *config.Config, logger *logrus.Logger) (*receipt.Extractor, error) {
	if cfg.LLM.Provider == "none" {
		return nil, nil
	}

	provider, err := receipt.NewProvider(receipt.ProviderConfig{
		Provider: receipt.ProviderType(cfg.LLM.Provider),
		Model:    cfg.LLM.Model,
		APIKey:   cfg.LLM.APIKey,
		BaseURL:  cfg.LLM.BaseURL,
	})
	if err != nil {
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"provider": provider.Type,
		"model":    provider.ModelName,
	}).Info("Receipt scanning enabled")

	return provider.Extractor(
		receipt.WithTimeout(cfg.LLM.Timeout),
		receipt.WithMaxImageBytes(cfg.LLM.MaxImageBytes),
		receipt.WithLogger(logger),
	), nil
}

func startMetricsServer(port int, collector *monitoring.Collector, logger *logrus.Logger) *http.Server {
	metricsRouter := gin.New()
	metricsRouter.GET("/metrics", gin.WrapH(collector.Handler()))

	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: metricsRouter,
	}

	go func() {
		logger.WithField("port", port).Info("Starting metrics server")
		if err := metricsServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("Metrics server error")
		}
	}()
	return metricsServer
}
