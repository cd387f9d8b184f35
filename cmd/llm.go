package cmd

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/abhisek/sleeptracker/internal/llm"
	"github.com/abhisek/sleeptracker/internal/store"
)

var llmCmd = &cobra.Command{
	Use:   "llm",
	Short: "Inspect LLM request/response events",
}

var llmListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent LLM events",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		purpose, _ := cmd.Flags().GetString("purpose")

		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := cmd.Context()
		events, err := s.EventRepo().QueryLLMEvents(ctx, store.QueryOpts{Limit: limit})
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}

		return printLLMEvents(os.Stdout, events, purpose)
	},
}

// printLLMEvents writes one row per event whose purpose matches filter.
func printLLMEvents(w io.Writer, events []store.LLMRequestEventRecord, filter string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTIME\tPROVIDER\tMODEL\tPURPOSE\tTOKENS\tMS\tOK")

	shown := 0
	for _, e := range events {
		if filter != "" && e.Purpose != filter {
			continue
		}
		ok := "yes"
		if !e.Success {
			ok = "no"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d/%d\t%d\t%s\n",
			e.ID,
			e.Timestamp.Local().Format("2006-01-02 15:04"),
			e.Provider,
			e.Model,
			e.Purpose,
			e.InputTokens, e.OutputTokens,
			e.LatencyMs,
			ok,
		)
		shown++
	}
	if shown == 0 {
		_, err := fmt.Fprintln(w, "No LLM events found.")
		return err
	}
	return tw.Flush()
}

var llmViewCmd = &cobra.Command{
	Use:   "view <id>",
	Short: "Show the full request and response of one LLM event",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid ID %q: %w", args[0], err)
		}

		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		e, err := s.EventRepo().GetLLMEvent(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("get event: %w", err)
		}
		if e == nil {
			return fmt.Errorf("event %d not found", id)
		}

		fmt.Printf("Event %d at %s\n", e.ID, e.Timestamp.Local().Format("2006-01-02 15:04:05"))
		fmt.Printf("%s / %s, purpose %q\n", e.Provider, e.Model, e.Purpose)
		fmt.Printf("%d tokens in, %d out, %dms\n", e.InputTokens, e.OutputTokens, e.LatencyMs)
		if !e.Success {
			fmt.Println("Failed:", e.ErrorMessage)
		}
		printSection("Request", e.RequestBody)
		printSection("Response", e.ResponseBody)
		return nil
	},
}

func printSection(title, body string) {
	fmt.Println()
	fmt.Println("== " + title + " " + strings.Repeat("=", max(0, 56-len(title))))
	if body == "" {
		body = "(not captured)"
	}
	fmt.Println(body)
}

var llmModelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List supported providers and model aliases",
	Run: func(cmd *cobra.Command, args []string) {
		active := cfg.LLMProvider()
		for _, p := range llm.Providers() {
			marker := " "
			if p == active.Provider {
				marker = "*"
			}
			fmt.Printf("%s %-10s  default %-28s  aliases: %s\n",
				marker, p, llm.DefaultModel(p), strings.Join(llm.Models(p), ", "))
		}
	},
}

func init() {
	llmListCmd.Flags().Int("limit", 20, "Number of events to show")
	llmListCmd.Flags().String("purpose", "", "Only show events with this purpose")

	llmCmd.AddCommand(llmListCmd)
	llmCmd.AddCommand(llmViewCmd)
	llmCmd.AddCommand(llmModelsCmd)
}
