package bootstrap

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/mitchellh/go-homedir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bryanwahyu/cve-advisor/internal/application/contexts"
	"github.com/bryanwahyu/cve-advisor/internal/config"
	"github.com/bryanwahyu/cve-advisor/internal/infra/ai/openai"
	"github.com/bryanwahyu/cve-advisor/internal/infra/contextclient"
	"github.com/bryanwahyu/cve-advisor/internal/infra/contextstore"
)

func baseConfig(t *testing.T) *config.Config {
	t.Helper()
	for _, n := range []string{"DISCORD_WEBHOOK_URL", "MODEL_HUMOR_PATH1", "MODEL_HUMOR_PATH", "ORACLE_API_KEY",
		"DEEPSEEK_API_KEY", "PROJECT_CONTEXT_INFO", "MCP_CONTEXT_URL", "SCAN_LOG_PATH", "LOG_LEVEL"} {
		t.Setenv(n, "")
	}
	cfg, err := config.LoadOptional(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	return cfg
}

func TestOpenStore(t *testing.T) {
	cfg := baseConfig(t)

	st, err := OpenStore(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &contextstore.Memory{}, st.Persister)
	assert.Nil(t, st.History)
	assert.NoError(t, st.Close())

	cfg.ContextStore.Driver = "file"
	cfg.ContextStore.Path = filepath.Join(t.TempDir(), "ctx.json")
	st, err = OpenStore(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &contextstore.File{}, st.Persister)

	cfg.ContextStore.Driver = "redis"
	_, err = OpenStore(context.Background(), cfg)
	assert.Error(t, err)
}

func TestPipelineRequiresConfig(t *testing.T) {
	cfg := baseConfig(t)
	_, err := Pipeline(context.Background(), cfg, PipelineDeps{}, zap.NewNop())
	assert.True(t, errors.Is(err, config.ErrMissingParameter))
}

func TestPipelineWiring(t *testing.T) {
	cfg := baseConfig(t)
	cfg.Pipeline.WebhookURL = "https://discord.example/hook"
	cfg.Pipeline.TemplatePath = "/nonexistent/humor.txt"
	cfg.Oracle.APIKey = "sk-test"
	cfg.Pipeline.ProjectInfo = "billing"

	local := contexts.NewService(context.Background(), contextstore.NewMemory(), zap.NewNop())
	svc, err := Pipeline(context.Background(), cfg, PipelineDeps{Contexts: local}, zap.NewNop())
	require.NoError(t, err)
	assert.Same(t, local, svc.Contexts)
	assert.IsType(t, &openai.Client{}, svc.Synth.Oracle)
	assert.Nil(t, svc.Archive)
	assert.NotNil(t, svc.Runs)
	assert.Equal(t, "billing", svc.ProjectInfo)

	cfg.Pipeline.ContextURL = "http://ctx:8080"
	svc, err = Pipeline(context.Background(), cfg, PipelineDeps{Contexts: local}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &contextclient.Client{}, svc.Contexts)

	cfg.Oracle.Provider = "llama"
	_, err = Pipeline(context.Background(), cfg, PipelineDeps{}, zap.NewNop())
	assert.Error(t, err)
}

func TestPipelineRejectsBadWebhookURL(t *testing.T) {
	cfg := baseConfig(t)
	cfg.Pipeline.WebhookURL = "discord.example/hook"
	cfg.Pipeline.TemplatePath = "humor.txt"
	cfg.Oracle.APIKey = "sk-test"
	cfg.Pipeline.ProjectInfo = "billing"

	_, err := Pipeline(context.Background(), cfg, PipelineDeps{}, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "webhook_url")
}

func TestOpenStoreExpandsHome(t *testing.T) {
	homedir.DisableCache = true
	t.Cleanup(func() { homedir.DisableCache = false })
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg := baseConfig(t)
	cfg.ContextStore.Driver = "file"
	cfg.ContextStore.Path = "~/.advisor/context.json"
	st, err := OpenStore(context.Background(), cfg)
	require.NoError(t, err)
	require.IsType(t, &contextstore.File{}, st.Persister)
	assert.Equal(t, filepath.Join(home, ".advisor", "context.json"), st.Persister.(*contextstore.File).Path)
}
