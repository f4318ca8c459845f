package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/plml/oscquery-go/pkg/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "oscquery", version.Current)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
