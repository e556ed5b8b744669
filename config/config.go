package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment variables
type Config struct {
	DatabaseURL string
	Port        string

	TickerCSVFile string
	StockTable    string
	BulkTable     string

	FeedBaseURL  string
	TickerSuffix string

	ChunkSize    int
	BatchDelay   time.Duration
	HistoryEpoch time.Time
}

// Load reads configuration from environment variables. A .env file in the
// working directory is applied first if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	chunkSize, err := intEnv("CHUNK_SIZE", 500)
	if err != nil {
		return nil, err
	}

	delaySeconds, err := intEnv("BATCH_DELAY_SECONDS", 30)
	if err != nil {
		return nil, err
	}

	epochStr := os.Getenv("HISTORY_EPOCH")
	if epochStr == "" {
		epochStr = "2015-01-01"
	}
	epoch, err := time.Parse("2006-01-02", epochStr)
	if err != nil {
		return nil, fmt.Errorf("invalid HISTORY_EPOCH %q: %w", epochStr, err)
	}

	return &Config{
		DatabaseURL:   dbURL,
		Port:          port,
		TickerCSVFile: stringEnv("TICKER_CSV_FILE", "data/tickers.csv"),
		StockTable:    stringEnv("STOCK_TABLE", "stockdata"),
		BulkTable:     stringEnv("BULK_TABLE", "stockdata_bulk"),
		FeedBaseURL:   stringEnv("FEED_BASE_URL", "https://query1.finance.yahoo.com"),
		TickerSuffix:  stringEnv("TICKER_SUFFIX", ".T"),
		ChunkSize:     chunkSize,
		BatchDelay:    time.Duration(delaySeconds) * time.Second,
		HistoryEpoch:  epoch,
	}, nil
}

func stringEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %d", key, n)
	}
	return n, nil
}
