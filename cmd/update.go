package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/sleeptracker/internal/selfupdate"
)

var updateCmd = &cobra.Command{
	Use:   "update [version]",
	Short: "Update sleeptracker to the latest (or given) release",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		checker := selfupdate.NewChecker(selfupdate.WithTimeout(2 * time.Minute))

		ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
		defer cancel()

		if check, _ := cmd.Flags().GetBool("check"); check {
			res, err := checker.Check(ctx, &selfupdate.CheckInput{Version: currentVersion()})
			if err != nil {
				return err
			}
			if res.UpdateAvailable {
				fmt.Printf("Update available: %s -> %s\n%s\n", currentVersion(), res.LatestVersion, res.ReleaseURL)
			} else {
				fmt.Printf("Up to date (latest release is %s).\n", res.LatestVersion)
			}
			return nil
		}

		input := &selfupdate.UpdateInput{CurrentVersion: currentVersion()}
		if len(args) == 1 {
			input.TargetVersion = args[0]
		}
		err := checker.Update(ctx, input, func(p selfupdate.UpdateProgress) {
			fmt.Println(p.Message)
		})
		switch {
		case err == nil:
			return nil
		case errors.Is(err, selfupdate.ErrDevBuild):
			fmt.Println("Cannot update a development build. Install a release build first.")
			return nil
		case errors.Is(err, selfupdate.ErrAlreadyLatest):
			fmt.Println("Already running the latest version.")
			return nil
		case errors.Is(err, os.ErrPermission):
			return fmt.Errorf("%w\n\nTry running: sudo sleeptracker update", err)
		}
		return err
	},
}

func init() {
	updateCmd.Flags().Bool("check", false, "Only report whether an update is available")
}
