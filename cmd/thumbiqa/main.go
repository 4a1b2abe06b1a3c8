package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	thumbiqa "github.com/menta2k/thumbnail-iqa"
	"github.com/menta2k/thumbnail-iqa/internal/config"
	"github.com/menta2k/thumbnail-iqa/internal/utils"
)

var (
	configPath string
	logLevel   string

	studio *thumbiqa.Studio
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:           "thumbiqa",
	Short:         "Layout planning and image quality checks for video frames and thumbnails",
	Version:       thumbiqa.GetVersion(),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env is optional
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load .env: %w", err)
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}
		logger = newLogger(cfg.Log)

		studio, err = thumbiqa.NewWithConfig(cfg, logger)
		return err
	},
}

func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.GetConfigPath()
		if !utils.FileExists(path) {
			return config.Default(), nil
		}
	}
	return config.Load(path)
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func main() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (yaml|toml|json); defaults to $THUMBIQA_CONFIG")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug|info|warn|error")

	rootCmd.AddCommand(
		planCmd(),
		validateCmd(),
		auditCmd(),
		palettesCmd(),
		renderCmd(),
		debugLayoutCmd(),
		subtitlesCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
