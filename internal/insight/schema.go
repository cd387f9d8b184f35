package insight

import "github.com/abhisek/sleeptracker/internal/llm"

// Schema is the JSON shape the model must return.
var Schema = &llm.Schema{
	Name:        "sleep-insight",
	Description: "A short observation about recent sleep with one practical tip",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"headline": map[string]any{
				"type":        "string",
				"description": "One-line summary of the recent nights (under 10 words)",
			},
			"observation": map[string]any{
				"type":        "string",
				"description": "What stands out in the data: duration, consistency, quality (2-3 sentences)",
			},
			"tip": map[string]any{
				"type":        "string",
				"description": "One concrete, non-medical suggestion for the next few nights",
			},
		},
		"required":             []any{"headline", "observation", "tip"},
		"additionalProperties": false,
	},
}
