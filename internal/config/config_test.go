package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
}

func TestLoad_Defaults(t *testing.T) {
	resetViper(t)
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OLLAMA_URL", "")
	InitConfig()

	cfg := Load()

	assert.Equal(t, "./data", cfg.DataDir)
	assert.Equal(t, filepath.Join("./data", "cache.db"), cfg.CacheDBFile)
	assert.Equal(t, 720*time.Hour, cfg.CacheTTL)
	assert.Equal(t, "ollama", cfg.Primary.Provider)
	assert.Equal(t, "openai", cfg.Fallback.Provider)
	assert.Equal(t, "hash", cfg.Embedding.Provider)
	assert.Equal(t, 384, cfg.Embedding.Dimensions)
	assert.Equal(t, 60*time.Second, cfg.GeneratorTimeout)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, filepath.Join("./data", "bookmind.db"), cfg.DatasetteDB)
	assert.Empty(t, cfg.DatasetteURL)
}

func TestLoad_EnvironmentBindings(t *testing.T) {
	resetViper(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("NYT_API_KEY", "nyt-test")
	t.Setenv("OLLAMA_URL", "http://ollama:11434")
	InitConfig()

	cfg := Load()

	assert.Equal(t, "sk-test", cfg.Fallback.APIKey)
	assert.Equal(t, "sk-test", cfg.Analyzer.APIKey)
	assert.Empty(t, cfg.Primary.APIKey, "ollama provider needs no key")
	assert.Equal(t, "nyt-test", cfg.NYTAPIKey)
	assert.Equal(t, "http://ollama:11434", cfg.Primary.BaseURL)
}

func TestLoad_PathsAndBounds(t *testing.T) {
	testCases := []struct {
		name     string
		dbfile   string
		expected string
	}{
		{name: "relative joins data dir", dbfile: "c.db", expected: filepath.Join("/srv/bookmind", "c.db")},
		{name: "absolute kept", dbfile: "/tmp/c.db", expected: "/tmp/c.db"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resetViper(t)
			InitConfig()
			viper.Set("data.dir", "/srv/bookmind")
			viper.Set("cache.dbfile", tc.dbfile)
			viper.Set("workers", 0)
			viper.Set("timeouts.http", "bogus")

			cfg := Load()

			assert.Equal(t, tc.expected, cfg.CacheDBFile)
			assert.Equal(t, 1, cfg.Workers)
			assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
		})
	}
}
