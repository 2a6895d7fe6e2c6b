// Package mcp connects scopa to its MCP tool servers.
//
// Unlike one-shot CLI flows, the interactive session keeps every client
// connected for the whole process: connect once, discover once, then reuse
// the same connection for each tool call until exit.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"maps"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
	"golang.org/x/sync/errgroup"

	"github.com/dotcommander/scopa/internal/config"
	"github.com/dotcommander/scopa/internal/errs"
)

// Service provides access to MCP server discovery and tool execution.
type Service struct {
	cfg *config.Config

	mu      sync.Mutex
	clients map[string]*client.Client
}

// New creates a new MCP service. Call Connect before Tools or CallTool.
func New(cfg *config.Config) *Service {
	return &Service{cfg: cfg, clients: map[string]*client.Client{}}
}

// IsEnabled reports whether the named MCP server is enabled.
func (s *Service) IsEnabled(name string) bool {
	return !slices.Contains(s.cfg.MCPDisable, "*") &&
		!slices.Contains(s.cfg.MCPDisable, name)
}

// EnabledServers iterates enabled MCP servers in stable order.
func (s *Service) EnabledServers() iter.Seq2[string, config.MCPServerConfig] {
	return func(yield func(string, config.MCPServerConfig) bool) {
		names := slices.Collect(maps.Keys(s.cfg.MCPServers))
		slices.Sort(names)
		for _, name := range names {
			if !s.IsEnabled(name) {
				continue
			}
			if !yield(name, s.cfg.MCPServers[name]) {
				return
			}
		}
	}
}

// Connect dials, starts, and initializes every enabled server.
//
// Clients stay connected until Close; a failure on any server tears down the
// ones already connected and reports which server could not be reached.
func (s *Service) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, server := range s.EnabledServers() {
		cli, err := dial(ctx, s.cfg, server)
		if errors.Is(err, context.DeadlineExceeded) {
			s.closeLocked()
			return errs.Wrapf(
				fmt.Errorf("timeout connecting to %q - check the server URL and your network: %w", name, err),
				"Could not connect to the %s MCP server.", name,
			)
		}
		if err != nil {
			s.closeLocked()
			return errs.Wrapf(err, "Could not connect to the %s MCP server.", name)
		}
		s.clients[name] = cli
	}

	if len(s.clients) == 0 {
		return errs.Error{
			Err:    errs.UserErrorf("all MCP servers are disabled; check mcp-disable in your settings"),
			Reason: "No MCP servers to connect to.",
		}
	}
	return nil
}

// Close shuts down all held clients. Safe to call more than once.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
	return nil
}

func (s *Service) closeLocked() {
	for name, cli := range s.clients {
		_ = cli.Close()
		delete(s.clients, name)
	}
}

// Tools returns tools grouped by server name.
//
// Servers are queried concurrently; the result is the session's tool set and
// is not refreshed afterwards.
func (s *Service) Tools(ctx context.Context) (map[string][]mcp.Tool, error) {
	s.mu.Lock()
	clients := maps.Clone(s.clients)
	s.mu.Unlock()

	if len(clients) == 0 {
		return nil, errs.Error{
			Err:    errs.UserErrorf("Connect must succeed before listing tools"),
			Reason: "Not connected to any MCP server.",
		}
	}

	var mu sync.Mutex
	var wg errgroup.Group
	result := map[string][]mcp.Tool{}
	for sname, cli := range clients {
		wg.Go(func() error {
			list, err := cli.ListTools(ctx, mcp.ListToolsRequest{})
			if errors.Is(err, context.DeadlineExceeded) {
				return errs.Wrap(
					fmt.Errorf("timeout while listing tools for %q: %w", sname, err),
					"Could not list tools",
				)
			}
			if err != nil {
				return errs.Wrap(fmt.Errorf("list tools for %q: %w", sname, err), "Could not list tools")
			}
			mu.Lock()
			result[sname] = append(result[sname], list.Tools...)
			mu.Unlock()
			return nil
		})
	}
	if err := wg.Wait(); err != nil {
		return nil, fmt.Errorf("mcp tools: %w", err)
	}
	return result, nil
}

// CallTool executes a tool call against the held connection.
// fullName must be of the form: <server>_<tool>.
func (s *Service) CallTool(ctx context.Context, fullName string, data []byte) (string, error) {
	sname, tool, ok := strings.Cut(fullName, "_")
	if !ok {
		return "", fmt.Errorf("mcp: invalid tool name: %q", fullName)
	}

	s.mu.Lock()
	cli, ok := s.clients[sname]
	s.mu.Unlock()
	if !ok {
		if _, configured := s.cfg.MCPServers[sname]; !configured {
			return "", fmt.Errorf("mcp: invalid server name: %q", sname)
		}
		return "", fmt.Errorf("mcp: server is not connected: %q", sname)
	}

	var args map[string]any
	if len(data) > 0 {
		if err := json.Unmarshal(data, &args); err != nil {
			return "", fmt.Errorf("mcp: %w: %s", err, string(data))
		}
	}

	request := mcp.CallToolRequest{}
	request.Params.Name = tool
	request.Params.Arguments = args
	result, err := cli.CallTool(ctx, request)
	if err != nil {
		return "", fmt.Errorf("mcp: %w", err)
	}

	var sb strings.Builder
	for _, content := range result.Content {
		switch content := content.(type) {
		case mcp.TextContent:
			sb.WriteString(content.Text)
		default:
			sb.WriteString("[Non-text content]")
		}
	}

	if result.IsError {
		return "", errors.New(sb.String())
	}
	return sb.String(), nil
}

func dial(ctx context.Context, cfg *config.Config, server config.MCPServerConfig) (*client.Client, error) {
	var cli *client.Client
	var err error

	switch server.Type {
	case "", "http":
		var opts []transport.StreamableHTTPCOption
		if token := server.BearerToken(); token != "" {
			opts = append(opts, transport.WithHTTPHeaders(map[string]string{
				"Authorization": "Bearer " + token,
			}))
		}
		cli, err = client.NewStreamableHttpClient(server.URL, opts...)
	case "sse":
		var opts []transport.ClientOption
		if token := server.BearerToken(); token != "" {
			opts = append(opts, transport.WithHeaders(map[string]string{
				"Authorization": "Bearer " + token,
			}))
		}
		cli, err = client.NewSSEMCPClient(server.URL, opts...)
	case "stdio":
		env := append(os.Environ(), server.Env...)
		cli, err = client.NewStdioMCPClient(server.Command, env, server.Args...)
	default:
		return nil, fmt.Errorf("unsupported MCP server type: %q, supported types are: http, sse, stdio", server.Type)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create MCP client: %w", err)
	}

	dialCtx, cancel := context.WithTimeout(ctx, cfg.MCPTimeout)
	defer cancel()

	if err := cli.Start(dialCtx); err != nil {
		cli.Close() //nolint:errcheck,gosec
		return nil, fmt.Errorf("failed to start MCP client: %w", err)
	}
	if _, err := cli.Initialize(dialCtx, mcp.InitializeRequest{}); err != nil {
		cli.Close() //nolint:errcheck,gosec
		return nil, fmt.Errorf("failed to initialize MCP client: %w", err)
	}

	return cli, nil
}
