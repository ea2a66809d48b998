package main

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/aretw0/basiceq/internal/cli"
	"github.com/aretw0/basiceq/pkg/adapters/process"
	"github.com/spf13/cobra"
)

var scriptCmd = &cobra.Command{
	Use:   "script",
	Short: "Run bundled helper scripts (driver install, system settings)",
}

// newRunner builds the script runner from the settings file and scripts.yaml.
func newRunner(cmd *cobra.Command) (*process.Runner, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger, err := cli.NewLogger(cfg.LogLevel, false)
	if err != nil {
		return nil, err
	}

	opts := []process.RunnerOption{
		process.WithDir(cfg.Scripts.Dir),
		process.WithLogger(logger),
	}
	if cfg.Scripts.Config != "" {
		path := cfg.Scripts.Config
		if !filepath.IsAbs(path) {
			path = filepath.Join(cfg.Scripts.Dir, path)
		}
		scripts, err := process.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		opts = append(opts, process.WithConfig(scripts))
	}
	return process.NewRunner(opts...), nil
}

var scriptSudoCmd = &cobra.Command{
	Use:   "sudo <name>",
	Short: "Run <dir>/<name>.sh with administrator privileges",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		runner, err := newRunner(cmd)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		done := make(chan bool, 1)
		runner.Sudo(cmd.Context(), args[0],
			func() { cli.PrintSystemMessage(out, "Script '%s' started.", args[0]) },
			func(ok bool) { done <- ok },
		)
		if !<-done {
			return fmt.Errorf("script %q failed", args[0])
		}
		cli.PrintSystemMessage(out, "Script '%s' finished.", args[0])
		return nil
	},
}

var scriptAppleCmd = &cobra.Command{
	Use:   "apple <name>",
	Short: "Run <dir>/<name>.scpt with osascript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		runner, err := newRunner(cmd)
		if err != nil {
			return err
		}
		return runner.Apple(cmd.Context(), args[0])
	},
}

var scriptListCmd = &cobra.Command{
	Use:   "ls",
	Short: "List scripts registered in scripts.yaml",
	RunE: func(cmd *cobra.Command, args []string) error {
		runner, err := newRunner(cmd)
		if err != nil {
			return err
		}
		scripts := runner.Scripts()
		sort.Slice(scripts, func(i, j int) bool { return scripts[i].Name < scripts[j].Name })
		for _, s := range scripts {
			fmt.Fprintf(cmd.OutOrStdout(), "%-24s %s\n", s.Name, s.Description)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scriptCmd)
	scriptCmd.AddCommand(scriptSudoCmd, scriptAppleCmd, scriptListCmd)
}
