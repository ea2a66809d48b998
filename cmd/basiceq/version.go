package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/basiceq"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of basiceq",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "basiceq version %s\n", strings.TrimSpace(basiceq.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
