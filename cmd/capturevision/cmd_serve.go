package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	mcpserver "capturevision/internal/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server over stdio",
	Long: `Starts an MCP server over stdin/stdout exposing license, template,
capture and journal tools.

The server monitors for parent process death. When the client goes away
without closing stdio, the server shuts itself down.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	app, err := buildApp()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	mcpserver.WatchParent(ctx, 2*time.Second, cancel)
	return app.MCPServer().Run(ctx)
}
