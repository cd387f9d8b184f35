package insight

import (
	"fmt"
	"strings"
	"time"

	"github.com/abhisek/sleeptracker/internal/format"
	"github.com/abhisek/sleeptracker/internal/store"
)

const systemPrompt = `You review a person's self-tracked sleep log and reply with a brief,
friendly insight. Work only from the data given. Do not diagnose or give
medical advice. Quality is self-rated from 0 (very bad) to 5 (excellent);
"--" means the night was not rated.`

func buildUserMessage(s Summary, nights []store.Night) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Nights tracked: %d (rated: %d)\n", s.Nights, s.Rated)
	fmt.Fprintf(&b, "Average duration: %s\n", hm(s.AverageDuration))
	if s.Rated > 0 {
		fmt.Fprintf(&b, "Average quality: %.1f\n", s.AverageQuality)
	}
	b.WriteString("\nMost recent first:\n")
	for _, n := range nights {
		if n.InProgress() {
			continue
		}
		fmt.Fprintf(&b, "- %s, slept %s, quality %s\n",
			format.Timestamp(n.StartTime), format.Duration(n), format.Quality(n.Quality))
	}
	return b.String()
}

// hm renders d as e.g. 7h05m.
func hm(d time.Duration) string {
	d = d.Round(time.Minute)
	return fmt.Sprintf("%dh%02dm", int(d/time.Hour), int(d%time.Hour/time.Minute))
}
