package llm

import (
	"encoding/json"
	"errors"
	"testing"
)

func insightLikeSchema() *Schema {
	return &Schema{
		Name:        "test-insight",
		Description: "A test insight",
		Definition: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"headline":    map[string]any{"type": "string", "minLength": 1},
				"observation": map[string]any{"type": "string"},
				"tip":         map[string]any{"type": "string"},
			},
			"required":             []string{"headline", "observation", "tip"},
			"additionalProperties": false,
		},
	}
}

func TestValidateResponse(t *testing.T) {
	cases := []struct {
		name  string
		raw   string
		valid bool
	}{
		{"complete", `{"headline":"h","observation":"o","tip":"t"}`, true},
		{"missing field", `{"headline":"h","observation":"o"}`, false},
		{"empty headline", `{"headline":"","observation":"o","tip":"t"}`, false},
		{"extra field", `{"headline":"h","observation":"o","tip":"t","x":1}`, false},
		{"wrong type", `{"headline":1,"observation":"o","tip":"t"}`, false},
		{"not json", `headline: h`, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validateResponse(insightLikeSchema(), json.RawMessage(tc.raw))
			if tc.valid && err != nil {
				t.Fatalf("expected valid, got %v", err)
			}
			if !tc.valid {
				var invalid *ErrInvalidResponse
				if !errors.As(err, &invalid) {
					t.Fatalf("expected ErrInvalidResponse, got %T (%v)", err, err)
				}
				if string(invalid.Content) != tc.raw {
					t.Fatalf("content not preserved: %s", invalid.Content)
				}
			}
		})
	}
}

func TestValidateResponseNilSchema(t *testing.T) {
	if err := validateResponse(nil, json.RawMessage(`not even json`)); err != nil {
		t.Fatalf("nil schema should accept anything, got %v", err)
	}
}

func TestCompileSchemaCaches(t *testing.T) {
	s := insightLikeSchema()
	s.Name = "test-cache"
	first, err := compileSchema(s)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	second, err := compileSchema(s)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if first != second {
		t.Fatal("expected cached schema to be reused")
	}
}
