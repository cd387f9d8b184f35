package llm

import (
	"testing"

	"google.golang.org/genai"
)

func TestGeminiSchema(t *testing.T) {
	s := geminiSchema(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"headline": map[string]any{"type": "string", "description": "short"},
			"score":    map[string]any{"type": "integer"},
			"mood":     map[string]any{"type": "string", "enum": []any{"good", "bad"}},
			"nights": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "number"},
			},
		},
		"required": []string{"headline"},
	})

	if s.Type != genai.TypeObject {
		t.Fatalf("type = %v", s.Type)
	}
	if len(s.Properties) != 4 {
		t.Fatalf("properties = %d", len(s.Properties))
	}
	if s.Properties["headline"].Description != "short" {
		t.Errorf("description lost")
	}
	if s.Properties["score"].Type != genai.TypeInteger {
		t.Errorf("score type = %v", s.Properties["score"].Type)
	}
	if got := s.Properties["mood"].Enum; len(got) != 2 || got[0] != "good" {
		t.Errorf("enum = %v", got)
	}
	if s.Properties["nights"].Items == nil || s.Properties["nights"].Items.Type != genai.TypeNumber {
		t.Errorf("items not converted")
	}
	if len(s.Required) != 1 || s.Required[0] != "headline" {
		t.Errorf("required = %v", s.Required)
	}
}

func TestGeminiSchemaUnknownTypeDefaultsToString(t *testing.T) {
	if s := geminiSchema(map[string]any{"type": "null"}); s.Type != genai.TypeString {
		t.Fatalf("type = %v", s.Type)
	}
}

func TestGeminiModelAlias(t *testing.T) {
	if got := resolveModel(ProviderGemini, "gemini-flash"); got != "gemini-2.0-flash" {
		t.Fatalf("resolveModel = %q", got)
	}
	if got := resolveModel(ProviderGemini, "gemini-2.5-pro"); got != "gemini-2.5-pro" {
		t.Fatalf("pass-through = %q", got)
	}
}
