package cmd

import "github.com/spf13/cobra"

var viewCmd = &cobra.Command{
	Use:   "view",
	Short: "Browse the catalog in the terminal (default command)",
	RunE:  runView,
}

func init() {
	rootCmd.AddCommand(viewCmd)
}
