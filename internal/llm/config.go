package llm

import (
	"fmt"
	"os"
	"slices"
	"time"
)

// Provider names.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
	ProviderMock      = "mock"
)

// Config selects and configures one provider.
type Config struct {
	// Provider is one of the Provider* names. Empty disables LLM features.
	Provider string
	// Model is a friendly alias (see Models) or a raw model ID.
	Model   string
	APIKey  string
	BaseURL string
	// Timeout bounds one Generate call, retries included.
	Timeout time.Duration
	Retry   RetryConfig
}

// RetryConfig configures exponential backoff for transient failures.
type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

// DefaultRetry is used when a Config leaves Retry zero.
var DefaultRetry = RetryConfig{
	MaxAttempts: 3,
	InitialWait: time.Second,
	MaxWait:     10 * time.Second,
	Multiplier:  2,
}

// DefaultTimeout is used when a Config leaves Timeout zero.
const DefaultTimeout = 30 * time.Second

// keyEnv lists the conventional API key variables, in discovery order.
var keyEnv = []struct {
	provider string
	env      string
}{
	{ProviderAnthropic, "ANTHROPIC_API_KEY"},
	{ProviderOpenAI, "OPENAI_API_KEY"},
	{ProviderGemini, "GEMINI_API_KEY"},
}

// Resolve fills in whatever c leaves unset: the provider and key from the
// conventional *_API_KEY variables, then default model, timeout and retry.
func (c Config) Resolve() Config {
	if c.Provider == "" && c.APIKey == "" {
		for _, k := range keyEnv {
			if v := os.Getenv(k.env); v != "" {
				c.Provider = k.provider
				c.APIKey = v
				break
			}
		}
	}
	if c.APIKey == "" {
		for _, k := range keyEnv {
			if k.provider == c.Provider {
				c.APIKey = os.Getenv(k.env)
			}
		}
	}
	if c.Model == "" {
		c.Model = DefaultModel(c.Provider)
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Retry.MaxAttempts <= 0 {
		c.Retry = DefaultRetry
	}
	return c
}

// Enabled reports whether a provider has been chosen.
func (c Config) Enabled() bool {
	return c.Provider != ""
}

// Validate checks that the chosen provider can be constructed.
func (c Config) Validate() error {
	switch c.Provider {
	case "":
		return ErrNotConfigured
	case ProviderMock:
		return nil
	case ProviderAnthropic, ProviderOpenAI, ProviderGemini:
		if c.APIKey == "" {
			return fmt.Errorf("an API key is required for the %s provider (set llm.api_key or SLEEPTRACKER_LLM_API_KEY)", c.Provider)
		}
		return nil
	default:
		return fmt.Errorf("unknown LLM provider %q (want one of %v)", c.Provider, Providers())
	}
}

// Providers lists the supported provider names.
func Providers() []string {
	return []string{ProviderAnthropic, ProviderOpenAI, ProviderGemini, ProviderMock}
}

// models maps friendly aliases to provider model IDs.
var models = map[string]map[string]string{
	ProviderAnthropic: {
		"claude-haiku":  "claude-haiku-4-5-20251001",
		"claude-sonnet": "claude-sonnet-4-20250514",
	},
	ProviderOpenAI: {
		"gpt-4o":      "gpt-4o",
		"gpt-4o-mini": "gpt-4o-mini",
	},
	ProviderGemini: {
		"gemini-flash": "gemini-2.0-flash",
		"gemini-pro":   "gemini-2.0-pro",
	},
}

var defaultModels = map[string]string{
	ProviderAnthropic: "claude-haiku",
	ProviderOpenAI:    "gpt-4o-mini",
	ProviderGemini:    "gemini-flash",
	ProviderMock:      "mock",
}

// DefaultModel is the alias used for provider when none is configured.
func DefaultModel(provider string) string {
	return defaultModels[provider]
}

// Models returns the sorted aliases known for provider.
func Models(provider string) []string {
	var out []string
	for alias := range models[provider] {
		out = append(out, alias)
	}
	slices.Sort(out)
	return out
}

// resolveModel maps an alias to a model ID; unknown names pass through.
func resolveModel(provider, name string) string {
	if id, ok := models[provider][name]; ok {
		return id
	}
	return name
}
