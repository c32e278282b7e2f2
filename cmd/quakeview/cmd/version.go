package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"quakeview/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Name, version.String())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
