package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestSettingsYAML(t *testing.T) {
	t.Run("basic fields", func(t *testing.T) {
		var cfg Config
		content := "model: claude-3-5-sonnet-20241022\nmax-tokens: 2048\ntemp: 0.5\nquiet: true\n"
		require.NoError(t, yaml.Unmarshal([]byte(content), &cfg))
		require.Equal(t, "claude-3-5-sonnet-20241022", cfg.Model)
		require.EqualValues(t, 2048, cfg.MaxTokens)
		require.InDelta(t, 0.5, cfg.Temperature, 0.0001)
		require.True(t, cfg.Quiet)
	})

	t.Run("mcp servers", func(t *testing.T) {
		var cfg Config
		content := `
mcp-servers:
  scope3:
    type: http
    url: https://api.agentic.scope3.com/mcp
    auth-token-env: SCOPE3_API_KEY
  local:
    type: stdio
    command: campaign-tools
    args: ["--verbose"]
`
		require.NoError(t, yaml.Unmarshal([]byte(content), &cfg))
		require.Len(t, cfg.MCPServers, 2)
		require.Equal(t, "http", cfg.MCPServers["scope3"].Type)
		require.Equal(t, DefaultScope3URL, cfg.MCPServers["scope3"].URL)
		require.Equal(t, "campaign-tools", cfg.MCPServers["local"].Command)
	})
}

func TestBearerToken(t *testing.T) {
	t.Run("literal", func(t *testing.T) {
		s := MCPServerConfig{AuthToken: "tok"}
		require.Equal(t, "tok", s.BearerToken())
	})

	t.Run("env", func(t *testing.T) {
		t.Setenv("TEST_SCOPA_TOKEN", "envtok")
		s := MCPServerConfig{AuthTokenEnv: "TEST_SCOPA_TOKEN"}
		require.Equal(t, "envtok", s.BearerToken())
	})

	t.Run("literal wins", func(t *testing.T) {
		t.Setenv("TEST_SCOPA_TOKEN", "envtok")
		s := MCPServerConfig{AuthToken: "tok", AuthTokenEnv: "TEST_SCOPA_TOKEN"}
		require.Equal(t, "tok", s.BearerToken())
	})

	t.Run("empty", func(t *testing.T) {
		require.Empty(t, MCPServerConfig{}.BearerToken())
	})
}

func TestDefault(t *testing.T) {
	def := Default()
	require.Equal(t, DefaultModel, def.Model)
	require.EqualValues(t, 4096, def.MaxTokens)
	require.Zero(t, def.Temperature)
	require.Contains(t, def.MCPServers, "scope3")
	require.Equal(t, DefaultScope3URL, def.MCPServers["scope3"].URL)
}

func TestApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.Model = "claude-3-7-sonnet"
	applyDefaults(&cfg)

	require.Equal(t, "claude-3-7-sonnet", cfg.Model)
	require.EqualValues(t, 4096, cfg.MaxTokens)
	require.Equal(t, 80, cfg.WordWrap)
	require.NotZero(t, cfg.MCPTimeout)
	require.NotZero(t, cfg.MaxToolSteps)
	require.Contains(t, cfg.MCPServers, "scope3")
}

func TestWriteConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scopa.yml")
	require.NoError(t, WriteConfigFile(path))

	content, err := os.ReadFile(path)
	require.NoError(t, err)

	var cfg Config
	require.NoError(t, yaml.Unmarshal(content, &cfg))
	require.Equal(t, DefaultModel, cfg.Model)
	require.Contains(t, cfg.MCPServers, "scope3")

	// A second call must not clobber the existing file.
	require.NoError(t, os.WriteFile(path, []byte("model: custom\n"), 0o600))
	require.NoError(t, WriteConfigFile(path))
	content, err = os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "model: custom\n", string(content))
}
