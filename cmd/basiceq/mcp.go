package main

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/aretw0/basiceq/internal/cli"
	"github.com/aretw0/basiceq/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Starts the equalizer session as an MCP Server.
This allows AI agents to list, select and save presets and edit band gains as tools.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")

		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()

		// Logs go to stderr so they never corrupt JSON-RPC on stdout.
		log.SetOutput(os.Stderr)
		app, err := openApp(sigCtx, cmd, true)
		if err != nil {
			return err
		}
		defer func() {
			sigCtx.Cancel()
			app.Close()
		}()

		srv := mcp.NewServer(app.Session, mcp.WithLogger(app.Logger))

		switch transport {
		case "stdio":
			app.Logger.Info("Starting basiceq MCP Server (Stdio)")
			err := srv.ServeStdio()
			sigCtx.Cancel()
			return err
		case "sse":
			app.Logger.Info("Starting basiceq MCP Server (SSE)", "port", port)
			if err := srv.ServeSSE(sigCtx, port); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			app.Logger.Info("MCP Server stopped gracefully")
			return nil
		default:
			return fmt.Errorf("unknown transport: %s. Supported: stdio, sse", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().Int("port", 8081, "Port to listen on (only for SSE)")
}
