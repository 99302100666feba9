package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(EnvGroqAPIKey, "")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://api.groq.com/openai/v1", cfg.LLM.BaseURL)
	assert.Equal(t, 120*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 30, cfg.LLM.RequestsPerMinute)
	assert.Equal(t, "dashboards.db", cfg.Store.Path)
	assert.Equal(t, ModeLocal, cfg.Server.Mode)
	assert.Equal(t, 2, cfg.Layout.Columns)
	assert.Empty(t, cfg.LLM.APIKey)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
llm:
  model: "mixtral"
  timeout: "30s"
store:
  path: "/tmp/dash.db"
server:
  mode: "cloud"
  port: "9000"
layout:
  columns: 3
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	t.Setenv("GRAFANA_AI_LLM_BASE_URL", "http://localhost:11434/v1")
	t.Setenv("GRAFANA_AI_SERVER_PORT", "9100")
	t.Setenv(EnvGroqAPIKey, "gsk-test")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "mixtral", cfg.LLM.Model)
	assert.Equal(t, 30*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, "http://localhost:11434/v1", cfg.LLM.BaseURL)
	assert.Equal(t, "/tmp/dash.db", cfg.Store.Path)
	assert.Equal(t, ModeCloud, cfg.Server.Mode)
	assert.Equal(t, "9100", cfg.Server.Port)
	assert.Equal(t, 3, cfg.Layout.Columns)
	assert.Equal(t, "gsk-test", cfg.LLM.APIKey)
}

func TestLoadExplicitKeyWins(t *testing.T) {
	t.Setenv("GRAFANA_AI_LLM_API_KEY", "explicit")
	t.Setenv(EnvGroqAPIKey, "fallback")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "explicit", cfg.LLM.APIKey)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			LLM:    LLMConfig{Timeout: time.Second},
			Store:  StoreConfig{Path: "x.db", CacheSize: 1},
			Server: ServerConfig{Mode: ModeLocal},
			Layout: LayoutConfig{Columns: 2},
		}
	}
	require.NoError(t, valid().Validate())

	tests := map[string]func(c *Config){
		"bad mode":           func(c *Config) { c.Server.Mode = "hybrid" },
		"cloud without port": func(c *Config) { c.Server.Mode = ModeCloud },
		"empty store":        func(c *Config) { c.Store.Path = "" },
		"zero cache":         func(c *Config) { c.Store.CacheSize = 0 },
		"negative rate":      func(c *Config) { c.LLM.RequestsPerMinute = -1 },
		"zero timeout":       func(c *Config) { c.LLM.Timeout = 0 },
		"too many columns":   func(c *Config) { c.Layout.Columns = 25 },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			c := valid()
			mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}
