package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	EnvPrefix     = "GRAFANA_AI_"
	EnvConfigFile = "GRAFANA_AI_CONFIG"
	EnvGroqAPIKey = "GROQ_API_KEY"

	ModeLocal = "local"
	ModeCloud = "cloud"
)

type Config struct {
	LLM       LLMConfig       `koanf:"llm"`
	Store     StoreConfig     `koanf:"store"`
	Server    ServerConfig    `koanf:"server"`
	Log       LogConfig       `koanf:"log"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Analytics AnalyticsConfig `koanf:"analytics"`
	Layout    LayoutConfig    `koanf:"layout"`
}

type LLMConfig struct {
	BaseURL           string        `koanf:"base_url"`
	APIKey            string        `koanf:"api_key"`
	Model             string        `koanf:"model"`
	Temperature       float64       `koanf:"temperature"`
	MaxTokens         int           `koanf:"max_tokens"`
	Timeout           time.Duration `koanf:"timeout"`
	RequestsPerMinute int           `koanf:"requests_per_minute"`
}

type StoreConfig struct {
	Path      string `koanf:"path"`
	CacheSize int    `koanf:"cache_size"`
}

type ServerConfig struct {
	Mode string `koanf:"mode"` // local, cloud
	Port string `koanf:"port"`
}

type LogConfig struct {
	Level string `koanf:"level"`
}

type TelemetryConfig struct {
	OTLPEndpoint string `koanf:"otlp_endpoint"`
	ServiceName  string `koanf:"service_name"`
}

type AnalyticsConfig struct {
	SegmentKey string `koanf:"segment_key"`
}

type LayoutConfig struct {
	Columns int `koanf:"columns"`
}

var defaults = map[string]any{
	"llm.base_url":            "https://api.groq.com/openai/v1",
	"llm.model":               "llama-3.3-70b-versatile",
	"llm.temperature":         0.2,
	"llm.max_tokens":          4096,
	"llm.timeout":             "120s",
	"llm.requests_per_minute": 30,
	"store.path":              "dashboards.db",
	"store.cache_size":        128,
	"server.mode":             ModeLocal,
	"server.port":             "8000",
	"log.level":               "info",
	"telemetry.service_name":  "gen-grafana-ai",
	"layout.columns":          2,
}

// LoadConfig layers defaults, the optional YAML file named by
// GRAFANA_AI_CONFIG and GRAFANA_AI_* environment variables, in that order.
func LoadConfig() (*Config, error) {
	return Load(os.Getenv(EnvConfigFile))
}

// Load is LoadConfig with an explicit config file path. An empty path skips
// the file layer.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	for key, v := range defaults {
		if err := k.Set(key, v); err != nil {
			return nil, fmt.Errorf("failed to set default %s: %w", key, err)
		}
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// GRAFANA_AI_LLM_BASE_URL -> llm.base_url
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".", 1)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv(EnvGroqAPIKey)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values the services cannot start with.
func (c *Config) Validate() error {
	switch c.Server.Mode {
	case ModeLocal, ModeCloud:
	default:
		return fmt.Errorf("server.mode must be %q or %q, got %q", ModeLocal, ModeCloud, c.Server.Mode)
	}
	if c.Server.Mode == ModeCloud && c.Server.Port == "" {
		return fmt.Errorf("server.port is required in %s mode", ModeCloud)
	}
	if c.Store.Path == "" {
		return fmt.Errorf("store.path must not be empty")
	}
	if c.Store.CacheSize <= 0 {
		return fmt.Errorf("store.cache_size must be positive, got %d", c.Store.CacheSize)
	}
	if c.LLM.RequestsPerMinute < 0 {
		return fmt.Errorf("llm.requests_per_minute must not be negative, got %d", c.LLM.RequestsPerMinute)
	}
	if c.LLM.Timeout <= 0 {
		return fmt.Errorf("llm.timeout must be positive, got %s", c.LLM.Timeout)
	}
	if c.Layout.Columns < 1 || c.Layout.Columns > 24 {
		return fmt.Errorf("layout.columns must be between 1 and 24, got %d", c.Layout.Columns)
	}
	return nil
}
