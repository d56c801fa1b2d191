package config

import (
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// LLMConfig selects and configures one text generator.
type LLMConfig struct {
	Provider string
	Model    string
	BaseURL  string
	APIKey   string
}

// EmbeddingConfig selects the embedder used by the similarity index.
type EmbeddingConfig struct {
	Provider   string
	Model      string
	BaseURL    string
	Dimensions int
}

// Config is a typed snapshot of the viper configuration.
type Config struct {
	DataDir         string
	CacheDBFile     string
	CacheTTL        time.Duration
	IndexDBFile     string
	HistoryFile     string
	ReadingListFile string
	GenresFile      string

	Primary   LLMConfig
	Fallback  LLMConfig
	Analyzer  LLMConfig
	Embedding EmbeddingConfig

	GeneratorTimeout time.Duration
	HTTPTimeout      time.Duration
	Workers          int

	NYTAPIKey     string
	PushoverUser  string
	PushoverToken string

	DatasetteDB    string
	DatasetteURL   string
	DatasetteToken string
}

// InitConfig registers default values and environment bindings
func InitConfig() {
	viper.SetDefault("data.dir", "./data")
	viper.SetDefault("cache.dbfile", "cache.db")
	viper.SetDefault("cache.ttl", "720h")
	viper.SetDefault("index.dbfile", "index.db")
	viper.SetDefault("history.file", "recommendations.json")
	viper.SetDefault("readinglist.file", "reading_lists.json")
	viper.SetDefault("genres.file", "")

	viper.SetDefault("llm.primary.provider", "ollama")
	viper.SetDefault("llm.primary.model", "llama3.2")
	viper.SetDefault("llm.primary.baseurl", "http://localhost:11434")
	viper.SetDefault("llm.fallback.provider", "openai")
	viper.SetDefault("llm.fallback.model", "gpt-4-turbo")
	viper.SetDefault("llm.fallback.baseurl", "https://api.openai.com/v1")
	viper.SetDefault("llm.analyzer.provider", "openai")
	viper.SetDefault("llm.analyzer.model", "gpt-4-turbo")
	viper.SetDefault("llm.analyzer.baseurl", "https://api.openai.com/v1")

	viper.SetDefault("embedding.provider", "hash")
	viper.SetDefault("embedding.model", "nomic-embed-text")
	viper.SetDefault("embedding.baseurl", "http://localhost:11434")
	viper.SetDefault("embedding.dimensions", 384)

	viper.SetDefault("timeouts.generator", "60s")
	viper.SetDefault("timeouts.http", "30s")
	viper.SetDefault("workers", 4)

	viper.SetDefault("datasette.dbfile", "bookmind.db")
	viper.SetDefault("datasette.url", "")

	_ = viper.BindEnv("openai.apikey", "OPENAI_API_KEY")
	_ = viper.BindEnv("nyt.apikey", "NYT_API_KEY")
	_ = viper.BindEnv("pushover.user", "PUSHOVER_USER")
	_ = viper.BindEnv("pushover.token", "PUSHOVER_TOKEN")
	_ = viper.BindEnv("ollama.url", "OLLAMA_URL")
	_ = viper.BindEnv("datasette.token", "DATASETTE_TOKEN")
}

// Load reads the current viper state into a Config.
// Relative file names are resolved against the data directory.
func Load() Config {
	dataDir := viper.GetString("data.dir")

	cfg := Config{
		DataDir:         dataDir,
		CacheDBFile:     inDataDir(dataDir, viper.GetString("cache.dbfile")),
		CacheTTL:        durationOr("cache.ttl", 720*time.Hour),
		IndexDBFile:     inDataDir(dataDir, viper.GetString("index.dbfile")),
		HistoryFile:     inDataDir(dataDir, viper.GetString("history.file")),
		ReadingListFile: inDataDir(dataDir, viper.GetString("readinglist.file")),
		GenresFile:      viper.GetString("genres.file"),

		Primary:  llmConfig("llm.primary"),
		Fallback: llmConfig("llm.fallback"),
		Analyzer: llmConfig("llm.analyzer"),
		Embedding: EmbeddingConfig{
			Provider:   viper.GetString("embedding.provider"),
			Model:      viper.GetString("embedding.model"),
			BaseURL:    viper.GetString("embedding.baseurl"),
			Dimensions: viper.GetInt("embedding.dimensions"),
		},

		GeneratorTimeout: durationOr("timeouts.generator", 60*time.Second),
		HTTPTimeout:      durationOr("timeouts.http", 30*time.Second),
		Workers:          viper.GetInt("workers"),

		NYTAPIKey:     viper.GetString("nyt.apikey"),
		PushoverUser:  viper.GetString("pushover.user"),
		PushoverToken: viper.GetString("pushover.token"),

		DatasetteDB:    inDataDir(dataDir, viper.GetString("datasette.dbfile")),
		DatasetteURL:   viper.GetString("datasette.url"),
		DatasetteToken: viper.GetString("datasette.token"),
	}

	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if url := viper.GetString("ollama.url"); url != "" {
		if cfg.Primary.Provider == "ollama" {
			cfg.Primary.BaseURL = url
		}
		if cfg.Embedding.Provider == "ollama" {
			cfg.Embedding.BaseURL = url
		}
	}

	return cfg
}

func llmConfig(prefix string) LLMConfig {
	c := LLMConfig{
		Provider: viper.GetString(prefix + ".provider"),
		Model:    viper.GetString(prefix + ".model"),
		BaseURL:  viper.GetString(prefix + ".baseurl"),
		APIKey:   viper.GetString(prefix + ".apikey"),
	}
	if c.APIKey == "" && c.Provider == "openai" {
		c.APIKey = viper.GetString("openai.apikey")
	}
	return c
}

func durationOr(key string, fallback time.Duration) time.Duration {
	d := viper.GetDuration(key)
	if d <= 0 {
		return fallback
	}
	return d
}

func inDataDir(dataDir, name string) string {
	if name == "" || filepath.IsAbs(name) || dataDir == "" {
		return name
	}
	return filepath.Join(dataDir, name)
}
