package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nnsuite/aarforge/src/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.String())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
