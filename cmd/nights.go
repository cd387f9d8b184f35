package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/abhisek/sleeptracker/internal/format"
	"github.com/abhisek/sleeptracker/internal/store"
)

var nightsCmd = &cobra.Command{
	Use:   "nights",
	Short: "Print your sleep history",
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		limit := cfg.History.Limit
		if cmd.Flags().Changed("limit") {
			limit, _ = cmd.Flags().GetInt("limit")
		}

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		nights, err := st.NightRepo().All(cmd.Context())
		if err != nil {
			return fmt.Errorf("load nights: %w", err)
		}
		if limit > 0 && len(nights) > limit {
			nights = nights[:limit]
		}
		return writeNights(os.Stdout, nights, output)
	},
}

func init() {
	nightsCmd.Flags().Int("limit", 0, "Show at most this many nights, newest first (0 = all)")
	nightsCmd.Flags().StringP("output", "o", "text", "Output format: text, json or yaml")
}

// nightRecord is the exported shape of a night.
type nightRecord struct {
	ID              int64      `json:"id" yaml:"id"`
	Start           time.Time  `json:"start" yaml:"start"`
	End             *time.Time `json:"end,omitempty" yaml:"end,omitempty"`
	Quality         *int       `json:"quality,omitempty" yaml:"quality,omitempty"`
	QualityLabel    string     `json:"quality_label" yaml:"quality_label"`
	DurationSeconds int64      `json:"duration_seconds" yaml:"duration_seconds"`
	InProgress      bool       `json:"in_progress" yaml:"in_progress"`
}

func toRecord(n store.Night) nightRecord {
	r := nightRecord{
		ID:              n.ID,
		Start:           n.StartTime.UTC(),
		QualityLabel:    format.Quality(n.Quality),
		DurationSeconds: int64(n.Duration() / time.Second),
		InProgress:      n.InProgress(),
	}
	if !r.InProgress {
		end := n.EndTime.UTC()
		r.End = &end
	}
	if n.Quality != store.QualityUnrated {
		q := n.Quality
		r.Quality = &q
	}
	return r
}

func writeNights(w io.Writer, nights []store.Night, output string) error {
	switch strings.ToLower(output) {
	case "", "text":
		_, err := fmt.Fprintln(w, strings.Join(format.Nights(nights), "\n"))
		return err
	case "json", "yaml":
		records := make([]nightRecord, 0, len(nights))
		for _, n := range nights {
			records = append(records, toRecord(n))
		}
		if output == "yaml" {
			enc := yaml.NewEncoder(w)
			enc.SetIndent(2)
			if err := enc.Encode(records); err != nil {
				return fmt.Errorf("encode yaml: %w", err)
			}
			return enc.Close()
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	default:
		return fmt.Errorf("unknown output format %q (want text, json or yaml)", output)
	}
}
