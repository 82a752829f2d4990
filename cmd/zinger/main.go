package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/antoniostano/zinger/internal/config"
)

var (
	verbose       bool
	bindAddr      string
	knowledgePath string
	envFile       string

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "zinger",
	Short: "Zerina Zinger's interior design course assistant",
	Long: `zinger answers questions about the interior design course in Zerina's
voice, using the FAQ knowledge base for worked examples and short-reply fallbacks.

Run "zinger serve" for the web chat or "zinger console" for a terminal chat.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadEnv(envFile); err != nil {
			return err
		}

		level := zapcore.InfoLevel
		if cmd.Name() == consoleCmd.Name() {
			// Keep the terminal transcript readable.
			level = zapcore.WarnLevel
		}
		if verbose {
			level = zapcore.DebugLevel
		}
		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(level)
		var err error
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&knowledgePath, "knowledge", "", "knowledge base file (overrides KNOWLEDGE_BASE_PATH)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	serveCmd.Flags().StringVar(&bindAddr, "addr", "", "listen address (overrides APP_BIND_ADDR)")

	rootCmd.AddCommand(serveCmd, consoleCmd)
}

// loadEnv reads a dotenv file without overriding variables that are already set.
func loadEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// loadConfig reads the environment and applies command-line overrides.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, fmt.Errorf("config error: %w", err)
	}
	if bindAddr != "" {
		cfg.BindAddr = bindAddr
	}
	if knowledgePath != "" {
		cfg.KnowledgeBasePath = knowledgePath
	}
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
