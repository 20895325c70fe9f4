// Package config collects the environment-driven service configuration. A .env
// file in the working directory is folded into the environment before any
// variable is read.
package config

import (
	"fmt"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	_ "github.com/joho/godotenv/autoload"
)

const (
	DefaultPort      = 8080
	DefaultCatalog   = "catalog.json"
	DefaultDataDir   = "data"
	DefaultTargetDir = "downloads"
	DefaultAPIBase   = "https://api.unsplash.com"
)

// Config is the full service configuration. Every field is either populated
// from the environment or falls back to its default, then the whole struct is
// validated in one pass.
type Config struct {
	// Port the HTTP API listens on.
	Port int `validate:"gte=1,lte=65535"`
	// CatalogPath locates the catalog JSON document.
	CatalogPath string `validate:"required"`
	// AssetBase resolves relative asset URLs; empty means the catalog only
	// holds absolute URLs.
	AssetBase string `validate:"omitempty,url"`
	// DataDir holds the delivery journal and provider index databases.
	DataDir string `validate:"required"`
	// TargetDir receives delivered files.
	TargetDir string `validate:"required"`
	// Watch reloads the catalog whenever the document changes on disk.
	Watch bool
	// AccessKey authenticates compliance notifications; empty sends them
	// anonymously.
	AccessKey string
	// APIBase is the provider API root used by the notification endpoint
	// template.
	APIBase string `validate:"required,url"`
}

// Load builds a Config from the environment and validates it.
func Load() (*Config, error) {
	c := &Config{
		Port:        getIntEnv("PNGNEST_PORT", DefaultPort),
		CatalogPath: getEnv("PNGNEST_CATALOG", DefaultCatalog),
		AssetBase:   getEnv("PNGNEST_ASSET_BASE", ""),
		DataDir:     getEnv("PNGNEST_DATA_DIR", DefaultDataDir),
		TargetDir:   getEnv("PNGNEST_TARGET_DIR", DefaultTargetDir),
		Watch:       getBoolEnv("PNGNEST_WATCH", true),
		AccessKey:   getEnv("UNSPLASH_ACCESS_KEY", ""),
		APIBase:     getEnv("UNSPLASH_API_BASE", DefaultAPIBase),
	}
	if err := validator.New().Struct(c); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return c, nil
}

// JournalPath is where the delivery journal database lives.
func (c *Config) JournalPath() string {
	return filepath.Join(c.DataDir, "journal.db")
}

// IndexPath is where the provider index database lives.
func (c *Config) IndexPath() string {
	return filepath.Join(c.DataDir, "index.db")
}
