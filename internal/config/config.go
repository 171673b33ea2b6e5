package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// URLsFile is the input list of profile URLs, one per line.
	URLsFile string `envconfig:"URLS_FILE" default:"urls.txt"`

	// OutputCSV is the durable review table appended to on every run.
	OutputCSV string `envconfig:"OUTPUT_CSV" default:"avvo_reviews.csv"`

	// SnapshotDir, when set, persists each fetched page for offline
	// reprocessing with cmd/convert.
	SnapshotDir string `envconfig:"SNAPSHOT_DIR" default:""`

	// DatabaseURL enables the optional Postgres mirror sink.
	DatabaseURL string `envconfig:"DB_URL" default:""`

	// FetchMode selects the page fetcher: "browser" (chromedp) or
	// "static" (plain HTTP with the Cloudflare bypass transport).
	FetchMode string `envconfig:"FETCH_MODE" default:"browser"`

	// Headless controls the browser session. Running headful can help
	// against stubborn bot challenges.
	Headless bool `envconfig:"HEADLESS" default:"true"`

	// MaxPages bounds pagination per target.
	MaxPages int `envconfig:"MAX_PAGES" default:"20"`

	// Retries is the per-page retry budget for transient failures.
	Retries int `envconfig:"RETRIES" default:"3"`

	// InitialBackoff is the first retry delay; it doubles per attempt.
	InitialBackoff time.Duration `envconfig:"INITIAL_BACKOFF" default:"2s"`

	// NavTimeout bounds a single page navigation including the wait
	// for the review list to render.
	NavTimeout time.Duration `envconfig:"NAV_TIMEOUT" default:"20s"`

	// RateLimit is the minimum interval between page loads per domain.
	RateLimit time.Duration `envconfig:"RATE_LIMIT" default:"2s"`

	// RespectRobots turns on the robots.txt check before each target.
	RespectRobots bool `envconfig:"RESPECT_ROBOTS" default:"false"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// Load processes environment variables and populates the Config struct.
func Load() (*Config, error) {
	// Try the .env file first; in production the vars are usually
	// injected directly and the file is absent.
	if err := godotenv.Load(); err != nil {
		if _, statErr := os.Stat(".env"); statErr == nil {
			log.Printf("Warning: .env file found but could not be loaded: %v", err)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
