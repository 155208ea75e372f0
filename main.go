package main

import (
	"context"
	"encoding/json"
	"flag"
	stdlog "log"
	"net/http"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/username/salesclaro/src/config"
	"github.com/username/salesclaro/src/enrichment"
	"github.com/username/salesclaro/src/feed"
	"github.com/username/salesclaro/src/handlers"
	"github.com/username/salesclaro/src/logger"
	"github.com/username/salesclaro/src/models"
	"github.com/username/salesclaro/src/parsers"
	"github.com/username/salesclaro/src/pipeline"
	"github.com/username/salesclaro/src/reports"
	"github.com/username/salesclaro/src/utils"
	"github.com/username/salesclaro/src/validation"
)

var limiter = rate.NewLimiter(rate.Every(100*time.Millisecond), 30)

func rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			logger.L.Warn("Rate limit exceeded",
				"method", r.Method,
				"path", r.URL.Path,
				"remoteAddr", r.RemoteAddr)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func main() {
	inputPath := flag.String("input", "", "run once over the given sales feed file instead of serving HTTP")
	regionFlag := flag.String("region", "", "batch mode: only analyze records from this region")
	minAmountFlag := flag.String("min-amount", "", "batch mode: minimum line total")
	maxAmountFlag := flag.String("max-amount", "", "batch mode: maximum line total")
	dateFromFlag := flag.String("date-from", "", "batch mode: earliest record date (YYYY-MM-DD)")
	dateToFlag := flag.String("date-to", "", "batch mode: latest record date (YYYY-MM-DD)")
	flag.Parse()

	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)
	logger.L.Info("Salesclaro starting...")

	parser := parsers.NewDelimitedParser(config.Cfg.FieldDelimiter)
	catalog := enrichment.NewCatalogClient(
		config.Cfg.CatalogBaseURL,
		config.Cfg.CatalogTimeout,
		enrichment.RetryConfig{
			MaxAttempts:  config.Cfg.EnrichMaxAttempts,
			InitialDelay: config.Cfg.EnrichInitialBackoff,
			MaxDelay:     config.Cfg.EnrichMaxBackoff,
			Multiplier:   2.0,
		},
		config.Cfg.CacheExpiration,
		config.Cfg.CacheCleanupInterval,
		config.Cfg.EnrichRatePerSecond,
	)
	orchestrator := pipeline.NewOrchestrator(parser, catalog, config.Cfg.EnrichFanout, validation.Options{})

	if *inputPath != "" {
		filters, err := buildBatchFilters(*regionFlag, *minAmountFlag, *maxAmountFlag, *dateFromFlag, *dateToFlag)
		if err != nil {
			logger.L.Error("Invalid filter flags", "error", err)
			os.Exit(1)
		}
		if err := runBatch(orchestrator, *inputPath, filters); err != nil {
			logger.L.Error("Batch run failed", "error", err)
			os.Exit(1)
		}
		return
	}

	uploadHandler := handlers.NewUploadHandler(orchestrator)

	logger.L.Info("Configuring routes...")
	mux := http.NewServeMux()
	mux.Handle("POST /api/sales/upload", http.HandlerFunc(uploadHandler.HandleUpload))
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"message": "Salesclaro backend is running"})
	})

	serverAddr := ":" + config.Cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      rateLimitMiddleware(mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.L.Info("Server starting", "address", serverAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.L.Error("Failed to start server", "error", err)
		stdlog.Fatalf("Failed to start server: %v", err)
	} else if err == http.ErrServerClosed {
		logger.L.Info("Server stopped gracefully.")
	}
}

// runBatch is the one-shot flow: read the feed, run the pipeline, write the
// report and the enriched data file.
func runBatch(orchestrator *pipeline.Orchestrator, inputPath string, filters models.FilterOptions) error {
	lines, err := feed.ReadFile(inputPath)
	if err != nil {
		return err
	}

	result, err := orchestrator.Run(context.Background(), lines, config.Cfg.ResolveReferenceDate(), filters)
	if err != nil {
		return err
	}

	if err := reports.SaveEnrichedData(config.Cfg.EnrichedOutputPath, result.Records); err != nil {
		return err
	}
	if err := reports.SaveReport(config.Cfg.ReportOutputPath, result); err != nil {
		return err
	}

	logger.L.Info("Batch run complete",
		"runID", result.RunID,
		"accepted", result.Accepted,
		"rejected", len(result.Rejected),
		"totalRevenue", result.Metrics.TotalRevenue.StringFixed(2),
		"report", config.Cfg.ReportOutputPath,
		"enrichedData", config.Cfg.EnrichedOutputPath)
	return nil
}

func buildBatchFilters(region, minAmount, maxAmount, dateFrom, dateTo string) (models.FilterOptions, error) {
	var filters models.FilterOptions
	filters.Region = region

	if minAmount != "" {
		amount, err := decimal.NewFromString(minAmount)
		if err != nil {
			return filters, err
		}
		filters.MinAmount = &amount
	}
	if maxAmount != "" {
		amount, err := decimal.NewFromString(maxAmount)
		if err != nil {
			return filters, err
		}
		filters.MaxAmount = &amount
	}
	if dateFrom != "" {
		t, err := time.Parse(utils.DefaultDateFormat, dateFrom)
		if err != nil {
			return filters, err
		}
		filters.DateFrom = &t
	}
	if dateTo != "" {
		t, err := time.Parse(utils.DefaultDateFormat, dateTo)
		if err != nil {
			return filters, err
		}
		filters.DateTo = &t
	}
	return filters, nil
}
