package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aretw0/basiceq/internal/cli"
	"github.com/aretw0/basiceq/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var rootCmd = &cobra.Command{
	Use:   "basiceq",
	Short: "basiceq keeps an equalizer display in step with its presets",
	Long: `basiceq selects and edits three-band equalizer presets, animates the displayed
gains towards the selected preset and persists every change to a memory, file or
Redis backend.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	addConfigFlags(rootCmd.PersistentFlags())
}

// addConfigFlags declares the flags loadConfig reads.
func addConfigFlags(flags *pflag.FlagSet) {
	flags.String("config", config.DefaultPath, "Path to the basiceq.yaml settings file")
	flags.String("backend", "", "Preset backend: memory, file or redis")
	flags.String("file", "", "Preset file used by the file backend")
	flags.String("redis-addr", "", "Redis address used by the redis backend")
	flags.String("library", "", "Directory of extra factory presets")
	flags.Duration("duration", 0, "Transition length, 0s disables animation")
	flags.String("easing", "", "Transition curve: smoothstep or linear")
	flags.String("log-level", "", "Log level: debug, info, warn or error")
}

// loadConfig reads the settings file and applies the flags the user set.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("backend") {
		cfg.Backend.Kind, _ = flags.GetString("backend")
	}
	if flags.Changed("file") {
		cfg.Backend.File.Path, _ = flags.GetString("file")
	}
	if flags.Changed("redis-addr") {
		cfg.Backend.Redis.Addr, _ = flags.GetString("redis-addr")
	}
	if flags.Changed("library") {
		cfg.Presets.Library, _ = flags.GetString("library")
	}
	if flags.Changed("duration") {
		cfg.Transition.Duration, _ = flags.GetDuration("duration")
	}
	if flags.Changed("easing") {
		cfg.Transition.Easing, _ = flags.GetString("easing")
	}
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}
	if cmd.Name() == "serve" && flags.Changed("port") {
		cfg.HTTP.Port, _ = flags.GetInt("port")
	}
	return cfg, cfg.Validate()
}

// openApp builds and starts the app. The caller must cancel ctx and Close the app.
func openApp(ctx context.Context, cmd *cobra.Command, jsonLogs bool) (*cli.App, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger, err := cli.NewLogger(cfg.LogLevel, jsonLogs)
	if err != nil {
		return nil, err
	}
	app, err := cli.NewApp(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := app.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to load presets: %w", err)
	}
	return app, nil
}

// withApp runs fn against a started app and shuts it down afterwards.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, app *cli.App) error) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	app, err := openApp(ctx, cmd, false)
	if err != nil {
		return err
	}
	runErr := fn(ctx, app)
	cancel()
	if err := app.Close(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}
