package cmd

import (
	"bytes"
	"encoding/json"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/abhisek/sleeptracker/internal/store"
)

func testNights() []store.Night {
	start := time.Date(2024, time.March, 1, 22, 30, 0, 0, time.UTC)
	return []store.Night{
		{ID: 2, StartTime: start.Add(24 * time.Hour), EndTime: start.Add(24 * time.Hour), Quality: store.QualityUnrated},
		{ID: 1, StartTime: start, EndTime: start.Add(7*time.Hour + 30*time.Minute), Quality: 4},
	}
}

func TestWriteNightsText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeNights(&buf, testNights(), "text"))
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "Here is your sleep data"))
	assert.Contains(t, out, "Quality: Pretty good")
	assert.Contains(t, out, "7:30:00")
}

func TestWriteNightsJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeNights(&buf, testNights(), "json"))

	var got []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 2)

	assert.Equal(t, true, got[0]["in_progress"])
	assert.NotContains(t, got[0], "end")
	assert.NotContains(t, got[0], "quality")
	assert.Equal(t, "--", got[0]["quality_label"])

	assert.Equal(t, float64(4), got[1]["quality"])
	assert.Equal(t, float64(27000), got[1]["duration_seconds"])
}

func TestWriteNightsYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeNights(&buf, testNights()[1:], "yaml"))

	var got []nightRecord
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].ID)
	require.NotNil(t, got[0].Quality)
	assert.Equal(t, 4, *got[0].Quality)
	assert.Equal(t, "Pretty good", got[0].QualityLabel)
}

func TestWriteNightsUnknownFormat(t *testing.T) {
	assert.ErrorContains(t, writeNights(&bytes.Buffer{}, nil, "csv"), "unknown output format")
}

func TestConfirm(t *testing.T) {
	assert.True(t, confirm(strings.NewReader("y\n"), ""))
	assert.True(t, confirm(strings.NewReader(" YES \n"), ""))
	assert.False(t, confirm(strings.NewReader("n\n"), ""))
	assert.False(t, confirm(strings.NewReader(""), ""))
}

func TestPrintLLMEvents(t *testing.T) {
	events := []store.LLMRequestEventRecord{
		{ID: 1, Timestamp: time.Now(), LLMRequestEventData: store.LLMRequestEventData{
			Provider: "mock", Model: "mock", Purpose: "insight", Success: true, InputTokens: 10, OutputTokens: 5,
		}},
		{ID: 2, Timestamp: time.Now(), LLMRequestEventData: store.LLMRequestEventData{
			Provider: "mock", Model: "mock", Purpose: "other",
		}},
	}

	var buf bytes.Buffer
	require.NoError(t, printLLMEvents(&buf, events, "insight"))
	assert.Contains(t, buf.String(), "10/5")
	assert.NotContains(t, buf.String(), "other")

	buf.Reset()
	require.NoError(t, printLLMEvents(&buf, events, "nothing"))
	assert.Equal(t, "No LLM events found.\n", buf.String())
}

func TestCommandsRegistered(t *testing.T) {
	for _, name := range []string{"run", "nights", "start", "stop", "clear", "insight", "llm", "version", "update"} {
		c, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, c.Name())
	}
}

func TestWriteVersion(t *testing.T) {
	var buf bytes.Buffer
	writeVersion(&buf, "v1.2.3", false)
	assert.Equal(t, "sleeptracker v1.2.3\n", buf.String())

	buf.Reset()
	writeVersion(&buf, "v1.2.3", true)
	assert.Contains(t, buf.String(), runtime.Version())
	assert.Contains(t, buf.String(), runtime.GOOS+"/"+runtime.GOARCH)
}

func TestCurrentVersionPrefersLdflags(t *testing.T) {
	saved := version
	t.Cleanup(func() { version = saved })

	version = "v9.9.9"
	assert.Equal(t, "v9.9.9", currentVersion())
}
