package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/byteowlz/baitgen/internal/config"
)

// Exit codes for granular error handling
const (
	ExitSuccess      = 0
	ExitNetworkError = 1
	ExitProcessError = 2
	ExitInvalidInput = 3
	ExitConfigError  = 4
	ExitFileIOError  = 5
	ExitPartialError = 6 // some links failed, some succeeded
)

var (
	cfgFile string
	verbose bool
	quiet   bool

	cfg *config.Config
)

const version = "0.3.0"

var rootCmd = &cobra.Command{
	Use:   "baitgen",
	Short: "Build a clickbait headline dataset and evaluate headline generators",
	Long: `baitgen scrapes the news articles linked from clickbait posts, cleans the
resulting dataset, drives fine-tuning of a headline generator and scores its output.`,
	Version:           version,
	PersistentPreRunE: loadConfig,
	SilenceErrors:     true,
	SilenceUsage:      true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if exitErr, ok := err.(*exitErr); ok {
			os.Exit(exitErr.code)
		}
		if !quiet {
			fmt.Fprintf(os.Stderr, "%v\n", err)
		}
		os.Exit(ExitInvalidInput)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/baitgen/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "only log errors")

	rootCmd.AddCommand(scrapeCmd, mergeCmd, cleanCmd, trainCmd, evaluateCmd)
}

// initConfig creates the default config file on first run and loads .env.
func initConfig() {
	// A missing .env is normal.
	_ = godotenv.Load()

	if cfgFile != "" {
		return
	}
	configPath := getDefaultConfigPath()
	if configPath == "" {
		return
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if createErr := config.Default().CreateExampleConfig(configPath); createErr == nil && !quiet {
			fmt.Fprintf(os.Stderr, "Created config file: %s\n", configPath)
		}
	}
}

func getDefaultConfigPath() string {
	dir, err := config.Dir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "config.toml")
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return exitError(ExitConfigError, "Error loading config: %v", err)
	}

	switch {
	case verbose:
		cfg.Log.Level = "debug"
	case quiet:
		cfg.Log.Level = "error"
	}
	if err := config.InitLogger(cfg.Log); err != nil {
		return exitError(ExitConfigError, "Error configuring logger: %v", err)
	}
	return nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func networkTimeout() time.Duration {
	return time.Duration(cfg.Network.Timeout) * time.Second
}

type exitErr struct {
	code int
	msg  string
}

func (e *exitErr) Error() string {
	return e.msg
}

func exitError(code int, format string, args ...interface{}) *exitErr {
	msg := fmt.Sprintf(format, args...)
	if msg != "" && !quiet {
		fmt.Fprintf(os.Stderr, "%s\n", msg)
	}
	return &exitErr{code: code, msg: msg}
}

func syncLogger() {
	_ = zap.L().Sync()
}
