package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_EmptyPathKeepsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:8090", cfg.Server.Addr())
	assert.Equal(t, "sqlite", cfg.Transcript.Driver)
	assert.Equal(t, 4*time.Second, cfg.Scene.TickInterval)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
scene:
  tick_interval: 2s
  top_k: 2
llm:
  api_url: http://localhost:11434/v1
  model: llama3
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 2*time.Second, cfg.Scene.TickInterval)
	assert.Equal(t, 2, cfg.Scene.TopK)
	assert.Equal(t, "llama3", cfg.LLM.Model)
	// Untouched sections keep their defaults.
	assert.Equal(t, "data/benchtalk.db", cfg.Auth.DatabasePath)
}

func TestLoad_EnvOverridesSecrets(t *testing.T) {
	t.Setenv("LLM_API_KEY", "sk-test")
	t.Setenv("TRANSCRIPT_DATABASE_DSN", "postgres://app@db/benchtalk?sslmode=disable")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, "postgres", cfg.Transcript.Driver)
	assert.Equal(t, "postgres://app@db/benchtalk?sslmode=disable", cfg.Transcript.PostgresDSN)
}

func TestLoad_RejectsBadValues(t *testing.T) {
	t.Setenv("TRANSCRIPT_DATABASE_DSN", "")

	cases := map[string]string{
		"bad port":   "server:\n  port: -1\n",
		"bad driver": "transcript:\n  driver: mongodb\n",
		"empty dsn":  "transcript:\n  driver: postgres\n  postgres_dsn: \"\"\n",
		"zero tick":  "scene:\n  tick_interval: 0s\n",
	}
	for name, body := range cases {
		_, err := Load(writeConfig(t, body))
		assert.Error(t, err, name)
	}

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err, "missing file")
}

func TestLoad_MalformedYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "server: [not a map"))
	assert.Error(t, err)
}
