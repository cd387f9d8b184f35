package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every recorded night",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		yes, _ := cmd.Flags().GetBool("yes")

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

		if err := ctl.Refresh(ctx).Wait(ctx); err != nil {
			return err
		}
		n := len(ctl.Nights().Get())
		if n == 0 {
			fmt.Println("Nothing to clear.")
			return nil
		}
		if !yes && !confirm(os.Stdin, fmt.Sprintf("Delete all %d nights? [y/N] ", n)) {
			fmt.Println("Aborted.")
			return nil
		}

		if err := ctl.Clear(ctx).Wait(ctx); err != nil {
			return err
		}
		if _, ok := ctl.Notification().Take(); ok {
			fmt.Println("All your sleep data is gone forever.")
		}
		return nil
	},
}

func init() {
	clearCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
}

func confirm(in io.Reader, prompt string) bool {
	fmt.Print(prompt)
	answer, _ := bufio.NewReader(in).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}
