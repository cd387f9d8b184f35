// Package insight asks an LLM for a short commentary on recent nights.
package insight

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abhisek/sleeptracker/internal/llm"
	"github.com/abhisek/sleeptracker/internal/store"
)

var (
	// ErrUnavailable is returned when no provider is configured.
	ErrUnavailable = errors.New("insights unavailable: no LLM provider configured")

	// ErrNoNights is returned when there is no completed night to look at.
	ErrNoNights = errors.New("no completed nights to analyse")
)

// Insight is the model's commentary.
type Insight struct {
	Headline    string `json:"headline"`
	Observation string `json:"observation"`
	Tip         string `json:"tip"`
}

// Summary holds the aggregate numbers sent alongside the raw nights.
type Summary struct {
	Nights          int
	Rated           int
	AverageDuration time.Duration
	AverageQuality  float64
}

// Summarize aggregates completed nights; in-progress ones are skipped.
func Summarize(nights []store.Night) Summary {
	var s Summary
	var total time.Duration
	var quality int
	for _, n := range nights {
		if n.InProgress() {
			continue
		}
		s.Nights++
		total += n.Duration()
		if n.Quality >= 0 {
			s.Rated++
			quality += n.Quality
		}
	}
	if s.Nights > 0 {
		s.AverageDuration = total / time.Duration(s.Nights)
	}
	if s.Rated > 0 {
		s.AverageQuality = float64(quality) / float64(s.Rated)
	}
	return s
}

type Config struct {
	// MaxNights caps how many of the most recent nights are sent.
	MaxNights   int
	MaxTokens   int
	Temperature float64
}

func DefaultConfig() Config {
	return Config{MaxNights: 14, MaxTokens: 512, Temperature: 0.3}
}

// Service generates insights. A nil provider makes every call fail with
// ErrUnavailable.
type Service struct {
	provider llm.Provider
	cfg      Config
}

func NewService(provider llm.Provider, cfg Config) *Service {
	if cfg.MaxNights <= 0 {
		cfg.MaxNights = DefaultConfig().MaxNights
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultConfig().MaxTokens
	}
	return &Service{provider: provider, cfg: cfg}
}

// Available reports whether a provider is configured.
func (s *Service) Available() bool {
	return s != nil && s.provider != nil
}

// Generate asks for an insight over nights, which must be newest first.
func (s *Service) Generate(ctx context.Context, nights []store.Night) (*Insight, error) {
	if !s.Available() {
		return nil, ErrUnavailable
	}
	if len(nights) > s.cfg.MaxNights {
		nights = nights[:s.cfg.MaxNights]
	}
	sum := Summarize(nights)
	if sum.Nights == 0 {
		return nil, ErrNoNights
	}

	resp, err := s.provider.Generate(llm.WithPurpose(ctx, "insight"), llm.Request{
		System:      systemPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: buildUserMessage(sum, nights)}},
		Schema:      Schema,
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("insight generation: %w", err)
	}

	out, err := llm.Decode[Insight](resp)
	if err != nil {
		return nil, fmt.Errorf("parse insight response: %w", err)
	}
	return &out, nil
}
