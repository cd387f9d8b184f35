package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/sleeptracker/internal/format"
	"github.com/abhisek/sleeptracker/internal/tracker"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start tracking a night",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		ctl, err := newController(ctx, st)
		if err != nil {
			return err
		}
		defer ctl.Close()

		if err := ctl.Start(ctx).Wait(ctx); err != nil {
			if errors.Is(err, tracker.ErrAlreadyTracking) {
				fmt.Println("Already tracking since", format.Timestamp(ctl.Tonight().Get().StartTime))
				return nil
			}
			return err
		}
		fmt.Println("Tracking started:", format.Timestamp(ctl.Tonight().Get().StartTime))
		return nil
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop tracking the current night",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		quality, _ := cmd.Flags().GetInt("quality")
		rate := cmd.Flags().Changed("quality")
		if rate && (quality < tracker.MinQuality || quality > tracker.MaxQuality) {
			return fmt.Errorf("--quality must be between %d and %d", tracker.MinQuality, tracker.MaxQuality)
		}

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		ctl, err := newController(ctx, st)
		if err != nil {
			return err
		}
		defer ctl.Close()

		if !ctl.StopEnabled().Get() {
			fmt.Println("No night is being tracked.")
			return nil
		}
		if err := ctl.Stop(ctx).Wait(ctx); err != nil {
			return err
		}

		night, ok := ctl.Navigation().Take()
		if !ok {
			return errors.New("the night was stopped elsewhere")
		}

		if rate {
			q := tracker.NewQualityController(st.NightRepo(), night.ID, tracker.WithLogger(logger))
			defer q.Close()
			if err := q.SetQuality(ctx, quality).Wait(ctx); err != nil {
				return err
			}
			night.Quality = quality
		}

		for _, line := range format.Night(night) {
			fmt.Println(line)
		}
		return nil
	},
}

func init() {
	stopCmd.Flags().IntP("quality", "q", 0, "Rate the night from 0 (very bad) to 5 (excellent)")
}
