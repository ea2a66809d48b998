package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aretw0/basiceq/internal/cli"
	"github.com/aretw0/basiceq/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var presetsCmd = &cobra.Command{
	Use:     "presets",
	Aliases: []string{"preset"},
	Short:   "List, select, save and delete presets",
}

var presetsListCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List presets in display order",
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		return withApp(cmd, func(ctx context.Context, app *cli.App) error {
			snap := app.Session.Snapshot()
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(snap.Presets)
			}
			rendered, err := tui.RenderPresets(snap.Presets, snap.Selected.ID, tui.TerminalWidth(100))
			if err != nil {
				return err
			}
			fmt.Fprint(out, rendered)
			return nil
		})
	},
}

var presetsSelectCmd = &cobra.Command{
	Use:   "select <id>",
	Short: "Select a preset by id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *cli.App) error {
			if err := app.Session.SelectPreset(ctx, args[0]); err != nil {
				return err
			}
			selected, _ := app.Session.Selected()
			cli.PrintSystemMessage(cmd.OutOrStdout(), "Preset '%s' (%s) selected.", selected.Name, selected.ID)
			return nil
		})
	},
}

var presetsSaveCmd = &cobra.Command{
	Use:   "save <name>",
	Short: "Save the selected preset's gains under a new name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *cli.App) error {
			preset, err := app.Session.SavePreset(ctx, args[0])
			if err != nil {
				return err
			}
			cli.PrintSystemMessage(cmd.OutOrStdout(), "Preset '%s' saved as %s.", preset.Name, preset.ID)
			return nil
		})
	},
}

var presetsDeleteCmd = &cobra.Command{
	Use:     "rm",
	Aliases: []string{"delete"},
	Short:   "Delete the selected user preset and fall back to flat",
	Long: `Deletes the selected preset. Built-in presets are never deleted; when one is
selected the command does nothing. Pass --select to pick the preset first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		target, _ := cmd.Flags().GetString("select")
		return withApp(cmd, func(ctx context.Context, app *cli.App) error {
			if target != "" {
				if err := app.Session.SelectPreset(ctx, target); err != nil {
					return err
				}
			}
			before, _ := app.Session.Selected()
			if err := app.Session.DeletePreset(ctx); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if before.IsDefault {
				cli.PrintSystemMessage(out, "Preset '%s' is built-in; nothing deleted.", before.ID)
				return nil
			}
			cli.PrintSystemMessage(out, "Preset '%s' deleted.", before.Name)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(presetsCmd)
	presetsCmd.AddCommand(presetsListCmd, presetsSelectCmd, presetsSaveCmd, presetsDeleteCmd)

	presetsListCmd.Flags().Bool("json", false, "Print presets as JSON")
	presetsDeleteCmd.Flags().String("select", "", "Select this preset before deleting")
}
