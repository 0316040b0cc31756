package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ollamatui/internal/config"
	"ollamatui/internal/logging"
	"ollamatui/internal/ollama"
	"ollamatui/internal/registry"
	"ollamatui/internal/styles"
	"ollamatui/internal/ui"
)

var version = "0.1.0"

var (
	flagHost           string
	flagConfig         string
	flagRegistryURL    string
	flagRegistryFormat string
	flagLogFile        string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ollamatui",
	Short: "Terminal client for a local Ollama server",
	Long: `ollamatui chats with models served by Ollama, lists the models installed
locally and searches the public model registry.

The server address comes from --host, then OLLAMA_HOST, then the config file,
and defaults to http://localhost:11434.`,
	Version:       version,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return run(cfg)
	},
}

func init() {
	rootCmd.Flags().StringVar(&flagHost, "host", "", "Ollama server address (overrides OLLAMA_HOST)")
	rootCmd.Flags().StringVarP(&flagConfig, "config", "c", "", "Config file (default $XDG_CONFIG_HOME/ollamatui/config.yaml)")
	rootCmd.Flags().StringVar(&flagRegistryURL, "registry-url", "", "Model registry search URL")
	rootCmd.Flags().StringVar(&flagRegistryFormat, "registry-format", "", "Registry response format (html/json)")
	rootCmd.Flags().StringVar(&flagLogFile, "log-file", "", "Write debug logs to this file")
}

// loadConfig layers defaults, the config file, OLLAMA_HOST and flags.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, explicit := flagConfig, flagConfig != ""
	if !explicit {
		if p, err := config.DefaultPath(); err == nil {
			path = p
		}
	}

	cfg, err := config.Load(path, explicit)
	if err != nil {
		return cfg, err
	}
	cfg.ApplyEnv(os.Getenv)

	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Host = flagHost
	}
	if flags.Changed("registry-url") {
		cfg.Registry.URL = flagRegistryURL
	}
	if flags.Changed("registry-format") {
		cfg.Registry.Format = registry.Format(flagRegistryFormat)
	}
	if flags.Changed("log-file") {
		cfg.LogFile = flagLogFile
	}

	if err := cfg.Normalize(); err != nil {
		return cfg, fmt.Errorf("invalid host: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func run(cfg config.Config) error {
	styles.InitTheme()

	logger, closer, err := logging.Open(cfg.LogFile)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer closer.Close()

	logger.Info("starting", "version", version, "host", cfg.Host, "registry", cfg.Registry.URL)

	m := ui.NewModel(ui.Options{
		Backend:  ollama.NewClient(cfg.Host, logger),
		Searcher: registry.NewClient(cfg.Registry, nil, logger),
		Logger:   logger,
		Host:     cfg.Host,
		Debounce: cfg.SearchDebounce,
	})

	if _, err := ui.NewProgram(m).Run(); err != nil {
		logger.Error("program exited", "err", err)
		return err
	}
	logger.Info("bye")
	return nil
}
