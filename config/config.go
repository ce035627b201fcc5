// Package config holds run configuration for both the crawl and the
// import phase.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

// Config holds crawl and import settings for one run.
type Config struct {
	// Source catalog.
	SourceURL string
	UserAgent string
	Timeout   time.Duration

	// Crop knobs applied to the fetched category forest.
	TopCategories        int
	SubcategoriesPerNode int
	MaxDepth             int

	// Target sample size used by page-budget rebalancing.
	TargetProducts int

	// Target catalog webservice.
	APIURL string
	APIKey string

	// Administrative SQL path for rows the REST surface does not expose.
	DatabaseURL string

	// Import phase.
	Workers        int
	Limit          int // 0 imports every loaded record
	HomeCategoryID int // parent of all created top-level categories
	DestinationID  string
	ZoneID         int
	CustomerGroups []int

	// Pipeline buffering between extraction and writers.
	PipelineBufferSize int
	BatchSize          int
	DedupeMaxSize      int

	// Phase boundary documents.
	TreeFile         string
	ProductsFile     string
	SummaryFile      string
	CarrierStateFile string

	MetricsAddr string
	Verbose     bool
}

// DefaultConfig returns conservative defaults for a local target shop.
func DefaultConfig() *Config {
	return &Config{
		SourceURL:            "https://agrochowski.pl",
		UserAgent:            "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
		Timeout:              10 * time.Second,
		TopCategories:        4,
		SubcategoriesPerNode: 3,
		MaxDepth:             2,
		TargetProducts:       200,
		APIURL:               "https://localhost:8443/api",
		Workers:              8,
		Limit:                0,
		HomeCategoryID:       2,
		DestinationID:        "179",
		ZoneID:               1,
		CustomerGroups:       []int{1, 2, 3},
		PipelineBufferSize:   512,
		BatchSize:            64,
		DedupeMaxSize:        100_000,
		TreeFile:             "results/categories.json",
		ProductsFile:         "results/products.json",
		SummaryFile:          "results/summary.json",
		CarrierStateFile:     "results/carrier_state.json",
		MetricsAddr:          "",
		Verbose:              false,
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.SourceURL == "" {
		return fmt.Errorf("source URL cannot be empty")
	}
	parsed, err := url.Parse(c.SourceURL)
	if err != nil {
		return fmt.Errorf("invalid source URL: %w", err)
	}
	if parsed.Host == "" {
		return fmt.Errorf("source URL must include a host")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.TopCategories <= 0 {
		return fmt.Errorf("top categories must be positive")
	}
	if c.SubcategoriesPerNode < 0 {
		return fmt.Errorf("subcategories per node cannot be negative")
	}
	if c.MaxDepth <= 0 {
		return fmt.Errorf("max depth must be positive")
	}
	if c.TargetProducts <= 0 {
		return fmt.Errorf("target products must be positive")
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive")
	}
	if c.Limit < 0 {
		return fmt.Errorf("limit cannot be negative")
	}
	if c.PipelineBufferSize <= 0 {
		return fmt.Errorf("pipeline buffer size must be positive")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive")
	}
	if c.DedupeMaxSize <= 0 {
		return fmt.Errorf("dedupe max size must be positive")
	}
	if c.TreeFile == "" || c.ProductsFile == "" || c.SummaryFile == "" {
		return fmt.Errorf("phase boundary file paths cannot be empty")
	}
	return nil
}

// EnvString reads a string environment override.
func EnvString(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return "", false
	}
	return value, true
}

// EnvInt reads an integer environment override.
func EnvInt(key string) (int, bool, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return 0, false, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, false, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return parsed, true, nil
}
