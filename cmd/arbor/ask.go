package main

import (
	"strings"

	"github.com/aretw0/arbor/internal/cli"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask one question and print the answer",
	Long: `Asks a question in the conversation. Without --parent the question starts
a new root; with it, the question follows up on that node and the answerer
sees the path from the root as context.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		parent, _ := cmd.Flags().GetString("parent")
		question := strings.Join(args, " ")
		return withTarget(cmd, func(t cli.Target) error {
			_, err := cli.Ask(cmd.Context(), t, domain.NodeID(parent), question, cmd.OutOrStdout())
			return err
		})
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringP("parent", "p", "", "Node id to follow up on")
}
