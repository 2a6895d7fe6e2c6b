package mcp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dotcommander/scopa/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Settings: config.Settings{
			MCPTimeout: config.Default().MCPTimeout,
			MCPServers: map[string]config.MCPServerConfig{
				"scope3": {
					Type:         "http",
					URL:          config.DefaultScope3URL,
					AuthTokenEnv: config.Scope3KeyEnv,
				},
				"extra": {
					Type:    "stdio",
					Command: "campaign-tools",
				},
			},
		},
	}
}

func TestIsEnabled(t *testing.T) {
	t.Run("enabled by default", func(t *testing.T) {
		svc := New(testConfig())
		require.True(t, svc.IsEnabled("scope3"))
		require.True(t, svc.IsEnabled("extra"))
	})

	t.Run("disable one", func(t *testing.T) {
		cfg := testConfig()
		cfg.MCPDisable = []string{"extra"}
		svc := New(cfg)
		require.True(t, svc.IsEnabled("scope3"))
		require.False(t, svc.IsEnabled("extra"))
	})

	t.Run("disable all", func(t *testing.T) {
		cfg := testConfig()
		cfg.MCPDisable = []string{"*"}
		svc := New(cfg)
		require.False(t, svc.IsEnabled("scope3"))
		require.False(t, svc.IsEnabled("extra"))
	})
}

func TestEnabledServers(t *testing.T) {
	cfg := testConfig()
	cfg.MCPDisable = []string{"extra"}
	svc := New(cfg)

	var names []string
	for name := range svc.EnabledServers() {
		names = append(names, name)
	}
	require.Equal(t, []string{"scope3"}, names)
}

func TestConnectAllDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.MCPDisable = []string{"*"}
	svc := New(cfg)

	err := svc.Connect(context.Background())
	require.Error(t, err)
	require.ErrorContains(t, err, "disabled")
}

func TestConnectUnsupportedType(t *testing.T) {
	cfg := testConfig()
	cfg.MCPServers = map[string]config.MCPServerConfig{
		"weird": {Type: "carrier-pigeon"},
	}
	svc := New(cfg)

	err := svc.Connect(context.Background())
	require.Error(t, err)
	require.ErrorContains(t, err, "unsupported MCP server type")
}

func TestToolsNotConnected(t *testing.T) {
	svc := New(testConfig())
	_, err := svc.Tools(context.Background())
	require.Error(t, err)
	require.ErrorContains(t, err, "Connect must succeed")
}

func TestCallTool(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid name", func(t *testing.T) {
		svc := New(testConfig())
		_, err := svc.CallTool(ctx, "nounderscore", nil)
		require.Error(t, err)
		require.ErrorContains(t, err, "invalid tool name")
	})

	t.Run("unknown server", func(t *testing.T) {
		svc := New(testConfig())
		_, err := svc.CallTool(ctx, "nope_list", nil)
		require.Error(t, err)
		require.ErrorContains(t, err, "invalid server name")
	})

	t.Run("configured but not connected", func(t *testing.T) {
		svc := New(testConfig())
		_, err := svc.CallTool(ctx, "scope3_list_campaigns", nil)
		require.Error(t, err)
		require.ErrorContains(t, err, "not connected")
	})
}

func TestCloseIdempotent(t *testing.T) {
	svc := New(testConfig())
	require.NoError(t, svc.Close())
	require.NoError(t, svc.Close())
}
