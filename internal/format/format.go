// Package format renders nights for display. Everything here is pure.
package format

import (
	"fmt"
	"time"

	"github.com/abhisek/sleeptracker/internal/store"
)

// Header is the first line of a rendered history.
const Header = "Here is your sleep data"

// TimestampLayout is the layout used for start and end times.
const TimestampLayout = "Monday Jan-02-2006 Time: 15:04"

var qualityNames = [...]string{
	0: "Very bad",
	1: "Poor",
	2: "So-so",
	3: "OK",
	4: "Pretty good",
	5: "Excellent",
}

// Quality returns the label for a rating. Unrated and out-of-range values
// render as "--".
func Quality(q int) string {
	if q < 0 || q >= len(qualityNames) {
		return "--"
	}
	return qualityNames[q]
}

// Timestamp renders t in local time.
func Timestamp(t time.Time) string {
	return t.Local().Format(TimestampLayout)
}

// Duration renders the time slept as H:MM:SS.
func Duration(n store.Night) string {
	if n.InProgress() {
		return "in progress"
	}
	d := n.Duration().Round(time.Second)
	if d < 0 {
		d = 0
	}
	h := int(d / time.Hour)
	m := int(d%time.Hour) / int(time.Minute)
	s := int(d%time.Minute) / int(time.Second)
	return fmt.Sprintf("%d:%02d:%02d", h, m, s)
}

// Night renders a single night as display lines.
func Night(n store.Night) []string {
	end := Timestamp(n.EndTime)
	if n.InProgress() {
		end = "--"
	}
	return []string{
		"Start: " + Timestamp(n.StartTime),
		"End: " + end,
		"Quality: " + Quality(n.Quality),
		"Hours:Minutes:Seconds: " + Duration(n),
	}
}

// Nights renders a history in the order given, header first, with a blank
// line before each night.
func Nights(nights []store.Night) []string {
	lines := make([]string, 0, 1+len(nights)*5)
	lines = append(lines, Header)
	for _, n := range nights {
		lines = append(lines, "")
		lines = append(lines, Night(n)...)
	}
	return lines
}
