package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"botbrain/internal/domain"
)

// Config is the top-level application configuration.
type Config struct {
	Logger    LoggerConfig             `yaml:"logger"`
	Tracer    TracerConfig             `yaml:"tracer"`
	Provider  ProviderConfig           `yaml:"provider"`
	Knowledge KnowledgeConfig          `yaml:"knowledge"`
	Fetcher   FetcherConfig            `yaml:"fetcher"`
	Bots      []domain.DiscordBotConfig `yaml:"bots"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
	Output string `yaml:"output"` // stdout, stderr, or file path
}

// TracerConfig holds OpenTelemetry settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"` // "stdout" or "noop"
}

// ProviderConfig holds completion/embedding provider settings shared by
// all per-key clients.
type ProviderConfig struct {
	BaseURL        string        `yaml:"base_url"`
	EmbeddingModel string        `yaml:"embedding_model"`
	ConnTimeout    time.Duration `yaml:"conn_timeout"`
	RespTimeout    time.Duration `yaml:"resp_timeout"`
}

// KnowledgeConfig holds knowledge store settings.
type KnowledgeConfig struct {
	DBPath string `yaml:"db_path"`
}

// FetcherConfig holds webpage fetcher settings.
type FetcherConfig struct {
	Headless    bool          `yaml:"headless"`
	NavTimeout  time.Duration `yaml:"nav_timeout"`
	PageTimeout time.Duration `yaml:"page_timeout"`
}

// Load reads and parses a YAML config file, applying defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns a config with all defaults applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Logger.Level == "" {
		c.Logger.Level = "info"
	}
	if c.Logger.Format == "" {
		c.Logger.Format = "text"
	}
	if c.Knowledge.DBPath == "" {
		c.Knowledge.DBPath = "./data/knowledge.db"
	}
	if c.Provider.EmbeddingModel == "" {
		c.Provider.EmbeddingModel = "text-embedding-3-large"
	}
	if c.Fetcher.NavTimeout <= 0 {
		c.Fetcher.NavTimeout = 10 * time.Second
	}
	if c.Fetcher.PageTimeout <= 0 {
		c.Fetcher.PageTimeout = 20 * time.Second
	}
	if !c.Fetcher.Headless {
		c.Fetcher.Headless = true
	}
}
