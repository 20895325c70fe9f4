package config

import (
	"path/filepath"
	"testing"

	assert_ "github.com/stretchr/testify/assert"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PNGNEST_PORT",
		"PNGNEST_CATALOG",
		"PNGNEST_ASSET_BASE",
		"PNGNEST_DATA_DIR",
		"PNGNEST_TARGET_DIR",
		"PNGNEST_WATCH",
		"UNSPLASH_ACCESS_KEY",
		"UNSPLASH_API_BASE",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	assert := assert_.New(t)
	clearEnv(t)

	c, err := Load()
	assert.NoError(err)
	assert.Equal(DefaultPort, c.Port)
	assert.Equal(DefaultCatalog, c.CatalogPath)
	assert.Equal("", c.AssetBase)
	assert.Equal(DefaultDataDir, c.DataDir)
	assert.Equal(DefaultTargetDir, c.TargetDir)
	assert.True(c.Watch)
	assert.Equal("", c.AccessKey)
	assert.Equal(DefaultAPIBase, c.APIBase)
}

func TestLoadFromEnvironment(t *testing.T) {
	assert := assert_.New(t)
	clearEnv(t)
	t.Setenv("PNGNEST_PORT", "9000")
	t.Setenv("PNGNEST_CATALOG", "/srv/pngnest/catalog.json")
	t.Setenv("PNGNEST_ASSET_BASE", "https://assets.example.com")
	t.Setenv("PNGNEST_DATA_DIR", "/var/lib/pngnest")
	t.Setenv("PNGNEST_TARGET_DIR", "/srv/downloads")
	t.Setenv("PNGNEST_WATCH", "false")
	t.Setenv("UNSPLASH_ACCESS_KEY", "test-key")
	t.Setenv("UNSPLASH_API_BASE", "https://api.example.com")

	c, err := Load()
	assert.NoError(err)
	assert.Equal(9000, c.Port)
	assert.Equal("/srv/pngnest/catalog.json", c.CatalogPath)
	assert.Equal("https://assets.example.com", c.AssetBase)
	assert.Equal("/var/lib/pngnest", c.DataDir)
	assert.Equal("/srv/downloads", c.TargetDir)
	assert.False(c.Watch)
	assert.Equal("test-key", c.AccessKey)
	assert.Equal("https://api.example.com", c.APIBase)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	assert := assert_.New(t)

	clearEnv(t)
	t.Setenv("PNGNEST_PORT", "70000")
	_, err := Load()
	assert.Error(err)

	clearEnv(t)
	t.Setenv("PNGNEST_ASSET_BASE", "not a url")
	_, err = Load()
	assert.Error(err)

	clearEnv(t)
	t.Setenv("UNSPLASH_API_BASE", "not a url")
	_, err = Load()
	assert.Error(err)
}

func TestLoadIgnoresUnparseableValues(t *testing.T) {
	assert := assert_.New(t)
	clearEnv(t)
	t.Setenv("PNGNEST_PORT", "lots")
	t.Setenv("PNGNEST_WATCH", "sometimes")

	c, err := Load()
	assert.NoError(err)
	assert.Equal(DefaultPort, c.Port)
	assert.True(c.Watch)
}

func TestDataDirPaths(t *testing.T) {
	assert := assert_.New(t)
	c := &Config{DataDir: "/var/lib/pngnest"}
	assert.Equal(filepath.Join("/var/lib/pngnest", "journal.db"), c.JournalPath())
	assert.Equal(filepath.Join("/var/lib/pngnest", "index.db"), c.IndexPath())
}
