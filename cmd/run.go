package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/sleeptracker/internal/app"
	"github.com/abhisek/sleeptracker/internal/insight"
	"github.com/abhisek/sleeptracker/internal/llm"
	"github.com/abhisek/sleeptracker/internal/logging"
	"github.com/abhisek/sleeptracker/internal/store"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Open the tracker (default)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runApp(cmd)
	},
}

func init() {
	runCmd.Flags().Bool("no-splash", false, "Skip the welcome screen")
}

// runApp opens the store, builds dependencies, and launches the TUI.
func runApp(cmd *cobra.Command) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	if cfg.Watch.Enabled {
		w, err := st.NewWatcher(cfg.Watch.Debounce, logger)
		if err == nil {
			err = w.Start(ctx)
			defer w.Close()
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, "Not watching for external changes:", err)
		}
	}

	ctl, err := newController(ctx, st)
	if err != nil {
		return fmt.Errorf("load tonight: %w", err)
	}
	defer ctl.Close()

	skip, _ := cmd.Flags().GetBool("no-splash")
	return app.Run(app.Options{
		Controller: ctl,
		Repo:       st.NightRepo(),
		Insight:    buildInsight(ctx, st, true),
		Logger:     logger,
		SkipSplash: skip,
	})
}

// buildInsight returns nil when no provider is configured. With warn set,
// a misconfigured provider is reported on stderr.
func buildInsight(ctx context.Context, st *store.Store, warn bool) *insight.Service {
	llmCfg := cfg.LLMProvider()
	if !llmCfg.Enabled() {
		return nil
	}
	provider, err := llm.NewProvider(ctx, llmCfg, st.EventRepo(), logger)
	if err != nil {
		logger.Warn("llm provider unavailable", logging.Provider(llmCfg.Provider), logging.Err(err))
		if warn {
			fmt.Fprintln(os.Stderr, "LLM provider not configured:", err)
			fmt.Fprintln(os.Stderr, "Insights will be unavailable.")
		}
		return nil
	}
	return insight.NewService(provider, insight.DefaultConfig())
}
