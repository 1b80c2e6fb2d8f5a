package main

import (
	"github.com/aretw0/arbor/internal/cli"
	"github.com/spf13/cobra"
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Discard every node of a conversation",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withTarget(cmd, func(t cli.Target) error {
			return cli.Clear(cmd.Context(), t, cmd.OutOrStdout())
		})
	},
}

func init() {
	rootCmd.AddCommand(clearCmd)
}
