package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aretw0/basiceq/internal/cli"
	"github.com/aretw0/basiceq/internal/presentation/tui"
	"github.com/aretw0/basiceq/pkg/domain"
	"github.com/spf13/cobra"
)

var gainCmd = &cobra.Command{
	Use:   "gain",
	Short: "Edit band gains",
}

var gainSetCmd = &cobra.Command{
	Use:   "set <band> <dB>",
	Short: "Set one band's gain on the manual preset",
	Long: `Copies the selected preset's gains into the manual preset, sets the band and
selects manual. Bands: bass, mid, treble.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		band, err := domain.ParseBand(args[0])
		if err != nil {
			return err
		}
		gain, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("invalid gain %q: %w", args[1], err)
		}
		animate, _ := cmd.Flags().GetBool("animate")

		return withApp(cmd, func(ctx context.Context, app *cli.App) error {
			if err := app.Session.SetGain(ctx, band, gain, !animate); err != nil {
				return err
			}
			if animate {
				if err := app.Session.WaitSettled(ctx); err != nil {
					return err
				}
			}
			fmt.Fprint(cmd.OutOrStdout(), tui.RenderGains(app.Session.Displayed(), true, tui.TerminalWidth(80)))
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(gainCmd)
	gainCmd.AddCommand(gainSetCmd)

	gainSetCmd.Flags().Bool("animate", false, "Animate towards the new value instead of jumping")
}
