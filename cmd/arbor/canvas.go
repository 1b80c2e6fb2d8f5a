package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/arbor/internal/cli"
	"github.com/aretw0/arbor/internal/logging"
	"github.com/spf13/cobra"
)

var canvasCmd = &cobra.Command{
	Use:   "canvas",
	Short: "Explore a conversation on the terminal canvas",
	Long: `Opens the interactive canvas. Click a node to branch from it, drag nodes
to rearrange them, drag the background to pan, and type to ask.

Logs would corrupt the full-screen view, so they are discarded unless
--log-file is given.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		logger := logging.NewNop()
		if path, _ := cmd.Flags().GetString("log-file"); path != "" {
			f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return fmt.Errorf("failed to open log file: %w", err)
			}
			defer f.Close()
			logger, err = fileLogger(f, cfg.Log.Level, cfg.Log.Format)
			if err != nil {
				return err
			}
		}

		rt, err := newRuntime(cmd, cfg, logger)
		if err != nil {
			return err
		}
		defer rt.Close()

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()
		return cli.RunCanvas(ctx, rt, targetOptions(cmd, rt))
	},
}

func fileLogger(f *os.File, level, format string) (*slog.Logger, error) {
	lvl, err := logging.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return logging.NewWithFormat(f, lvl, logging.Format(format)), nil
}

func init() {
	rootCmd.AddCommand(canvasCmd)
	canvasCmd.Flags().String("log-file", "", "Append logs to this file")

	// Make 'canvas' the default if no command is provided.
	rootCmd.RunE = canvasCmd.RunE
}
