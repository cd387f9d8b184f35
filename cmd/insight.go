package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/sleeptracker/internal/insight"
)

var insightCmd = &cobra.Command{
	Use:   "insight",
	Short: "Ask the configured LLM for a comment on your recent nights",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		svc := buildInsight(ctx, st, false)
		if !svc.Available() {
			return fmt.Errorf("%w (set llm.provider or an *_API_KEY variable)", insight.ErrUnavailable)
		}

		nights, err := st.NightRepo().All(ctx)
		if err != nil {
			return fmt.Errorf("load nights: %w", err)
		}
		in, err := svc.Generate(ctx, nights)
		if errors.Is(err, insight.ErrNoNights) {
			fmt.Println("Track a night first.")
			return nil
		}
		if err != nil {
			return err
		}

		fmt.Println(in.Headline)
		fmt.Println()
		fmt.Println(in.Observation)
		fmt.Println()
		fmt.Println("Tip:", in.Tip)
		return nil
	},
}
