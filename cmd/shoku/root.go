package shoku

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/p42rthicle/shoku/internal/app"
	"github.com/p42rthicle/shoku/internal/logging"
)

var (
	dbPath     string
	configPath string
	logLevel   string

	cfg    *app.Config
	logger = logging.Discard()
)

var rootCmd = &cobra.Command{
	Use:          "shoku",
	Short:        "shoku logs what you eat and suggests foods you log often",
	Long:         "shoku is a local-first food log. Every logged food joins a personal catalog that ranks suggestions by how often you eat it.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig(cmd)
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to SQLite database (overrides db_path)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: user config dir)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
}

func loadConfig(cmd *cobra.Command) error {
	c, err := app.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if dbPath != "" {
		c.DBPath = dbPath
	}
	level := c.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	l, err := logging.New(level, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	cfg = c
	logger = l
	slog.SetDefault(l)
	return nil
}
