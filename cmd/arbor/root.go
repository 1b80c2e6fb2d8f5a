package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/arbor/internal/cli"
	"github.com/aretw0/arbor/internal/config"
	"github.com/aretw0/arbor/internal/logging"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "arbor",
	Short: "Arbor is a branching question-and-answer canvas",
	Long: `Arbor keeps a conversation as a tree: every question can branch from any
earlier answer. Run a server with 'arbor serve', explore it with 'arbor canvas',
or script it with ask, tree and graph.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "Path to an arbor YAML config file")
	rootCmd.PersistentFlags().StringP("conversation", "c", "", "Conversation id (default from config)")
	rootCmd.PersistentFlags().String("url", "", "Base URL of a running arbor server (default from config)")
	rootCmd.PersistentFlags().Bool("local", false, "Use an in-process backend with the configured store instead of a server")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: text or json")
}

// loadConfig reads --config and applies the persistent flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.Log.Level = v
	}
	if v, _ := cmd.Flags().GetString("log-format"); v != "" {
		cfg.Log.Format = v
	}
	if v, _ := cmd.Flags().GetString("url"); v != "" {
		cfg.Client.BaseURL = v
	}
	if v, _ := cmd.Flags().GetString("conversation"); v != "" {
		cfg.Client.Conversation = v
	}
	return cfg, nil
}

// setup loads configuration and builds a runtime logging to stderr.
func setup(cmd *cobra.Command) (*cli.Runtime, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger, err := logging.FromConfig(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}
	return newRuntime(cmd, cfg, logger)
}

func newRuntime(cmd *cobra.Command, cfg *config.Config, logger *slog.Logger) (*cli.Runtime, error) {
	rt, err := cli.NewRuntime(cmd.Context(), cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("error initializing arbor: %w", err)
	}
	return rt, nil
}

func targetOptions(cmd *cobra.Command, rt *cli.Runtime) cli.TargetOptions {
	local, _ := cmd.Flags().GetBool("local")
	return cli.TargetOptions{
		Local:        local,
		BaseURL:      rt.Config.Client.BaseURL,
		Conversation: rt.Config.Client.Conversation,
	}
}

// withTarget runs fn against the conversation selected by the flags.
func withTarget(cmd *cobra.Command, fn func(t cli.Target) error) error {
	rt, err := setup(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	t, err := rt.Target(targetOptions(cmd, rt))
	if err != nil {
		return err
	}
	return fn(t)
}
