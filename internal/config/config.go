// Package config loads the service configuration from a YAML file with
// environment overrides for secrets and connection strings.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Auth       AuthConfig       `yaml:"auth"`
	Transcript TranscriptConfig `yaml:"transcript"`
	LLM        LLMConfig        `yaml:"llm"`
	Scene      SceneConfig      `yaml:"scene"`
	Personas   PersonasConfig   `yaml:"personas"`
}

type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type AuthConfig struct {
	DatabasePath string        `yaml:"database_path"`
	SessionTTL   time.Duration `yaml:"session_ttl"`
}

type TranscriptConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver      string `yaml:"driver"`
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

type LLMConfig struct {
	APIURL      string        `yaml:"api_url"`
	APIKey      string        `yaml:"api_key"`
	Model       string        `yaml:"model"`
	Temperature float64       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout"`
}

type SceneConfig struct {
	TickInterval time.Duration `yaml:"tick_interval"`
	Seed         int64         `yaml:"seed"`
	TopK         int           `yaml:"top_k"`
	HistoryLimit int           `yaml:"history_limit"`
}

type PersonasConfig struct {
	Path string `yaml:"path"`
}

// Default returns the configuration a bare deployment starts from.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8090,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		},
		Auth: AuthConfig{
			DatabasePath: "data/benchtalk.db",
			SessionTTL:   7 * 24 * time.Hour,
		},
		Transcript: TranscriptConfig{
			Driver:     "sqlite",
			SQLitePath: "data/transcripts.db",
		},
		LLM: LLMConfig{
			Model:       "gpt-4o-mini",
			Temperature: 0.8,
			MaxTokens:   200,
			Timeout:     30 * time.Second,
		},
		Scene: SceneConfig{
			TickInterval: 4 * time.Second,
			TopK:         1,
			HistoryLimit: 20,
		},
		Personas: PersonasConfig{
			Path: "data/personas.json",
		},
	}
}

// Load reads the YAML file at path over the defaults. An empty path keeps
// the defaults. Secrets may come from the environment instead of the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	if v := strings.TrimSpace(os.Getenv("LLM_API_KEY")); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("LLM_API_URL")); v != "" {
		cfg.LLM.APIURL = v
	}
	if v := strings.TrimSpace(os.Getenv("TRANSCRIPT_DATABASE_DSN")); v != "" {
		cfg.Transcript.Driver = "postgres"
		cfg.Transcript.PostgresDSN = v
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port out of range: %d", c.Server.Port)
	}
	switch c.Transcript.Driver {
	case "sqlite":
		if strings.TrimSpace(c.Transcript.SQLitePath) == "" {
			return fmt.Errorf("transcript sqlite_path is required")
		}
	case "postgres":
		if strings.TrimSpace(c.Transcript.PostgresDSN) == "" {
			return fmt.Errorf("transcript postgres_dsn is required")
		}
	default:
		return fmt.Errorf("unknown transcript driver %q", c.Transcript.Driver)
	}
	if c.Scene.TickInterval <= 0 {
		return fmt.Errorf("scene tick_interval must be positive")
	}
	if c.Scene.TopK <= 0 {
		return fmt.Errorf("scene top_k must be positive")
	}
	if c.Scene.HistoryLimit <= 0 {
		return fmt.Errorf("scene history_limit must be positive")
	}
	return nil
}
