package main

import (
	"context"
	"strings"

	"github.com/aretw0/basiceq"
	"github.com/aretw0/basiceq/internal/cli"
	"github.com/aretw0/basiceq/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Show the displayed gains live",
	Long:  `Redraws the band gains whenever the selection changes here or in the shared backend.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()

		out := cmd.OutOrStdout()
		tui.PrintBanner(out, strings.TrimSpace(basiceq.Version))

		cmd.SetContext(sigCtx)
		return withApp(cmd, func(ctx context.Context, app *cli.App) error {
			return cli.RunMonitor(ctx, app.Session, out, tui.TerminalWidth(80))
		})
	},
}

func init() {
	rootCmd.AddCommand(monitorCmd)
}
