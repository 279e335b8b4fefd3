package main

import (
	"github.com/spf13/cobra"

	"github.com/jxucoder/truthordare/manual"
)

var manualCmd = &cobra.Command{
	Use:   "manual",
	Short: "Show the user manual",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return manual.Render(cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(manualCmd)
}
