package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	Port               string
	LogLevel           string
	InputPath          string
	EnrichedOutputPath string
	ReportOutputPath   string
	FieldDelimiter     string
	MaxUploadSizeBytes int64

	// Reference date for the future-date validation rule. Empty means "now".
	ReferenceDate string

	CatalogBaseURL       string
	CatalogTimeout       time.Duration
	EnrichMaxAttempts    int
	EnrichInitialBackoff time.Duration
	EnrichMaxBackoff     time.Duration
	EnrichFanout         int
	EnrichRatePerSecond  float64
	CacheExpiration      time.Duration
	CacheCleanupInterval time.Duration
}

var Cfg *AppConfig

func LoadConfig() {
	errEnv := godotenv.Load()
	if errEnv != nil {
		log.Println("Info: No .env file found or error loading .env file. Relying on OS environment variables and defaults. Error (if any):", errEnv)
	} else {
		log.Println(".env file loaded successfully.")
	}

	log.Println("Loading application configuration...")

	maxUploadSizeBytesStr := getEnv("MAX_UPLOAD_SIZE_BYTES", "10485760")
	maxUploadSizeBytes, err := strconv.ParseInt(maxUploadSizeBytesStr, 10, 64)
	if err != nil {
		log.Printf("WARNING: Invalid MAX_UPLOAD_SIZE_BYTES format '%s'. Using default 10MB. Error: %v", maxUploadSizeBytesStr, err)
		maxUploadSizeBytes = 10 * 1024 * 1024
	}

	enrichRateStr := getEnv("ENRICH_RATE", "10")
	enrichRate, err := strconv.ParseFloat(enrichRateStr, 64)
	if err != nil || enrichRate <= 0 {
		log.Printf("WARNING: Invalid ENRICH_RATE '%s'. Using default 10 req/s. Error: %v", enrichRateStr, err)
		enrichRate = 10
	}

	Cfg = &AppConfig{
		Port:               getEnv("PORT", "8080"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		InputPath:          getEnv("INPUT_PATH", "data/sales_data.txt"),
		EnrichedOutputPath: getEnv("ENRICHED_OUTPUT_PATH", "output/enriched_sales_data.txt"),
		ReportOutputPath:   getEnv("REPORT_OUTPUT_PATH", "output/sales_report.txt"),
		FieldDelimiter:     getEnv("FIELD_DELIMITER", "|"),
		MaxUploadSizeBytes: maxUploadSizeBytes,

		ReferenceDate: getEnv("REFERENCE_DATE", ""),

		CatalogBaseURL:       getEnv("CATALOG_BASE_URL", "https://dummyjson.com"),
		CatalogTimeout:       getEnvAsDuration("CATALOG_TIMEOUT", 5*time.Second),
		EnrichMaxAttempts:    getEnvAsInt("ENRICH_MAX_ATTEMPTS", 3),
		EnrichInitialBackoff: getEnvAsDuration("ENRICH_INITIAL_BACKOFF", 200*time.Millisecond),
		EnrichMaxBackoff:     getEnvAsDuration("ENRICH_MAX_BACKOFF", 5*time.Second),
		EnrichFanout:         getEnvAsInt("ENRICH_FANOUT", 8),
		EnrichRatePerSecond:  enrichRate,
		CacheExpiration:      getEnvAsDuration("CACHE_EXPIRATION", 15*time.Minute),
		CacheCleanupInterval: getEnvAsDuration("CACHE_CLEANUP_INTERVAL", 30*time.Minute),
	}

	if Cfg.EnrichMaxAttempts < 1 {
		log.Printf("WARNING: ENRICH_MAX_ATTEMPTS must be at least 1, got %d. Using 1.", Cfg.EnrichMaxAttempts)
		Cfg.EnrichMaxAttempts = 1
	}
	if Cfg.EnrichFanout < 1 {
		log.Printf("WARNING: ENRICH_FANOUT must be at least 1, got %d. Using 1.", Cfg.EnrichFanout)
		Cfg.EnrichFanout = 1
	}

	log.Printf("Configuration loaded: Port=%s, LogLevel=%s, CatalogBaseURL=%s, Delimiter=%q",
		Cfg.Port, Cfg.LogLevel, Cfg.CatalogBaseURL, Cfg.FieldDelimiter)
}

// ResolveReferenceDate returns the configured reference date for the
// future-date rule, or now when unset or unparseable.
func (c *AppConfig) ResolveReferenceDate() time.Time {
	if c.ReferenceDate == "" {
		return time.Now()
	}
	t, err := time.Parse("2006-01-02", c.ReferenceDate)
	if err != nil {
		log.Printf("WARNING: Invalid REFERENCE_DATE '%s', falling back to now. Error: %v", c.ReferenceDate, err)
		return time.Now()
	}
	return t
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("Environment variable %s not set, using default: %s", key, fallback)
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		log.Printf("Integer value for %s not set or empty, using default: %d", key, fallback)
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid integer value for %s ('%s'), using default: %d", key, valueStr, fallback)
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		log.Printf("Duration value for %s not set or empty, using default: %s", key, fallback.String())
		return fallback
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid duration value for %s ('%s'), using default: %s", key, valueStr, fallback.String())
	return fallback
}
