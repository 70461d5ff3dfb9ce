package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"GreenDeck/internal/config"
	"GreenDeck/internal/deck"
	"GreenDeck/internal/kv"
	"GreenDeck/internal/logger"
)

var (
	// Global flags
	configPath string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "greendeck",
	Short: "Green Finance Foundations course deck",
	Long: `greendeck serves the Week 1 Green Finance Foundations deck with per-learner
progress tracking and the green bond price calculator.

Run "greendeck serve" to start the HTTP and websocket API.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default configs/config.yaml, or $CONFIG_PATH)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig resolves the config path from --config, then CONFIG_PATH, then
// the default location, and validates the result.
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = "configs/config.yaml"
		if v := os.Getenv("CONFIG_PATH"); v != "" {
			path = v
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// openDeck loads the configured deck, or the built-in one when no path is set.
func openDeck(cfg *config.Config) (*deck.Deck, error) {
	if cfg.Deck.Path == "" {
		return deck.Default()
	}
	return deck.Load(cfg.Deck.Path)
}

func openStore(cfg *config.Config, log *logger.Logger) (kv.Store, error) {
	return kv.Open(kv.Options{
		Backend:       cfg.Storage.Backend,
		FilePath:      cfg.Storage.FilePath,
		SQLitePath:    cfg.Storage.SQLitePath,
		RedisAddr:     cfg.Storage.RedisAddr,
		RedisPassword: cfg.Storage.RedisPassword,
		RedisDB:       cfg.Storage.RedisDB,
	}, log)
}
