package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pipelineEnv = []string{
	"DISCORD_WEBHOOK_URL", "MODEL_HUMOR_PATH1", "MODEL_HUMOR_PATH", "ORACLE_API_KEY",
	"DEEPSEEK_API_KEY", "PROJECT_CONTEXT_INFO", "MCP_CONTEXT_URL", "SCAN_LOG_PATH", "LOG_LEVEL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, n := range pipelineEnv {
		t.Setenv(n, "")
	}
}

const sample = `
server:
  port: 9090
  api_keys:
    ui: abc
database:
  host: db
  port: 3306
  user: advisor
  password: pw
  name: advisor
context_store:
  driver: mysql
oracle:
  provider: gemini
  api_key: from-file
pipeline:
  webhook_url: https://discord.example/webhook
  template_path: /etc/humor.txt
  project_info: billing api
`

func TestLoad(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "abc", cfg.Server.APIKeys["ui"])
	assert.Equal(t, "mysql", cfg.ContextStore.Driver)
	assert.Equal(t, "gemini", cfg.Oracle.Provider)
	assert.Equal(t, "trivy_output.json", cfg.Pipeline.ScanLogPath)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.NoError(t, cfg.ValidatePipeline())
	assert.Equal(t, "advisor:pw@tcp(db:3306)/advisor?parseTime=true&charset=utf8mb4&loc=UTC", cfg.MySQLDSN())
	assert.Equal(t, "host=db port=3306 user=advisor password=pw dbname=advisor sslmode=disable", cfg.PostgresDSN())
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("MODEL_HUMOR_PATH", "/second.txt")
	t.Setenv("DEEPSEEK_API_KEY", "sk-deepseek")
	t.Setenv("DISCORD_WEBHOOK_URL", "https://hook")
	t.Setenv("PROJECT_CONTEXT_INFO", "Keine weiteren Informationen")
	t.Setenv("MCP_CONTEXT_URL", "http://ctx:8080")
	t.Setenv("SCAN_LOG_PATH", "/logs/scan.json")

	cfg, err := LoadOptional(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "/second.txt", cfg.Pipeline.TemplatePath)
	assert.Equal(t, "sk-deepseek", cfg.Oracle.APIKey)
	assert.Equal(t, "http://ctx:8080", cfg.Pipeline.ContextURL)
	assert.Equal(t, "/logs/scan.json", cfg.Pipeline.ScanLogPath)
	assert.Equal(t, "memory", cfg.ContextStore.Driver)
	assert.NoError(t, cfg.ValidatePipeline())

	t.Setenv("MODEL_HUMOR_PATH1", "/first.txt")
	t.Setenv("ORACLE_API_KEY", "sk-oracle")
	cfg, err = LoadOptional("")
	require.NoError(t, err)
	assert.Equal(t, "/first.txt", cfg.Pipeline.TemplatePath)
	assert.Equal(t, "sk-oracle", cfg.Oracle.APIKey)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0o644))
	_, err := LoadOptional(path)
	assert.Error(t, err)
}

func TestValidatePipelineNamesEveryMissingParameter(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadOptional(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	err = cfg.ValidatePipeline()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingParameter))
	for _, name := range []string{"DISCORD_WEBHOOK_URL", "MODEL_HUMOR_PATH1", "ORACLE_API_KEY", "PROJECT_CONTEXT_INFO"} {
		assert.Contains(t, err.Error(), name)
	}

	cfg.Pipeline.WebhookURL = "https://hook"
	cfg.Pipeline.TemplatePath = "/t"
	cfg.Oracle.APIKey = "k"
	cfg.Pipeline.ProjectInfo = "info"
	cfg.Oracle.Provider = "llama"
	err = cfg.ValidatePipeline()
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrMissingParameter))
	assert.True(t, strings.Contains(err.Error(), "llama"))
}
