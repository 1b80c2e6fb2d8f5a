package main

import (
	"github.com/aretw0/arbor/internal/cli"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the conversation graph",
	Long: `Outputs the conversation as a Mermaid diagram (graph TD) or as an SVG drawn
with the canvas layout. --selected highlights a node and its ancestry.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		selected, _ := cmd.Flags().GetString("selected")
		return withTarget(cmd, func(t cli.Target) error {
			return cli.ExportGraph(cmd.Context(), t, format, domain.NodeID(selected), cmd.OutOrStdout())
		})
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().StringP("format", "f", cli.FormatMermaid, "Output format: 'mermaid' or 'svg'")
	graphCmd.Flags().String("selected", "", "Node id to highlight")
}
