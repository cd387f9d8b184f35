package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/sleeptracker/internal/config"
	"github.com/abhisek/sleeptracker/internal/logging"
	"github.com/abhisek/sleeptracker/internal/store"
	"github.com/abhisek/sleeptracker/internal/tracker"
)

var (
	cfg       config.Config
	logger    = logging.Discard()
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "sleeptracker",
	Short: "Track your sleep from the terminal",
	Long:  "Sleeptracker: start a night when you go to bed, stop it when you wake up, and rate how you slept.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configFile, _ := cmd.Flags().GetString("config")
		c, err := config.Load(config.Options{
			ConfigFile: configFile,
			Flags:      cmd.Flags(),
		})
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		level, err := logging.ParseLevel(cfg.Log.Level)
		if err != nil {
			return err
		}
		l, closer, err := logging.Setup(cfg.Log.Path, level)
		if err != nil {
			return fmt.Errorf("set up logging: %w", err)
		}
		logger, logCloser = l, closer
		logger.Debug("config loaded", logging.Path(cfg.File), slog.String("db", cfg.DB.Path))
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if logCloser != nil {
			return logCloser.Close()
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runApp(cmd)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (env SLEEPTRACKER_DB_PATH, config db.path)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().String("config", "", "Config file (default $XDG_CONFIG_HOME/sleeptracker/config.yaml)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(nightsCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(insightCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(updateCmd)
}

// openStore opens the configured database, creating its directory.
func openStore() (*store.Store, error) {
	if err := store.EnsureDir(cfg.DB.Path); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}
	st, err := store.Open(cfg.DB.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return st, nil
}

// newController builds a controller over st and waits for it to load.
// The caller must Close it.
func newController(ctx context.Context, st *store.Store) (*tracker.Controller, error) {
	ctl := tracker.New(st.NightRepo(), tracker.WithLogger(logger))

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := ctl.Initialized().Wait(ctx); err != nil {
		ctl.Close()
		return nil, err
	}
	return ctl, nil
}
