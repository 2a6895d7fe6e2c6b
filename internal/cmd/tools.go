package cmd

import (
	"context"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	mmcp "github.com/mark3labs/mcp-go/mcp"
	"github.com/spf13/cobra"

	"github.com/dotcommander/scopa/internal/config"
	imcp "github.com/dotcommander/scopa/internal/mcp"
	"github.com/dotcommander/scopa/internal/present"
)

func newToolsCmd(rt *runtime) *cobra.Command {
	toolsCmd := &cobra.Command{
		Use:   "tools",
		Short: "Inspect MCP servers and their tools",
	}

	toolsCmd.AddCommand(&cobra.Command{
		Use:   "servers",
		Short: "List configured MCP servers",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if rt.cfgErr != nil {
				return rt.cfgErr
			}
			listServers(&rt.cfg)
			return nil
		},
	})

	toolsCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List tools from enabled MCP servers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if rt.cfgErr != nil {
				return rt.cfgErr
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), rt.cfg.MCPTimeout)
			defer cancel()
			return listTools(ctx, &rt.cfg)
		},
	})

	return toolsCmd
}

func listServers(cfg *config.Config) {
	svc := imcp.New(cfg)
	names := slices.Collect(maps.Keys(cfg.MCPServers))
	slices.Sort(names)
	for _, name := range names {
		s := name
		if svc.IsEnabled(name) {
			s += present.StdoutStyles().Timeago.Render(" (enabled)")
		}
		fmt.Println(s)
	}
}

func listTools(ctx context.Context, cfg *config.Config) error {
	svc := imcp.New(cfg)
	if err := svc.Connect(ctx); err != nil {
		return fmt.Errorf("list tools: %w", err)
	}
	defer svc.Close() //nolint:errcheck

	servers, err := svc.Tools(ctx)
	if err != nil {
		return fmt.Errorf("list tools: %w", err)
	}

	names := slices.Collect(maps.Keys(servers))
	slices.Sort(names)
	for _, sname := range names {
		tools := servers[sname]
		slices.SortFunc(tools, func(a, b mmcp.Tool) int { return strings.Compare(a.Name, b.Name) })
		for _, tool := range tools {
			_, _ = fmt.Fprint(os.Stdout, present.StdoutStyles().Timeago.Render(sname+" > "))
			_, _ = fmt.Fprintln(os.Stdout, tool.Name)
		}
	}
	return nil
}
