package main

import (
	"github.com/aretw0/arbor/internal/cli"
	"github.com/spf13/cobra"
)

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "List the nodes of a conversation with their positions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withTarget(cmd, func(t cli.Target) error {
			return cli.PrintTree(cmd.Context(), t, cmd.OutOrStdout())
		})
	},
}

func init() {
	rootCmd.AddCommand(treeCmd)
}
