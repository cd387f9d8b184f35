package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/abhisek/sleeptracker/internal/logging"
	"github.com/abhisek/sleeptracker/internal/store"
)

// AuditProvider records every request in the llm_requests table and the
// process log. Audit failures never fail the request.
type AuditProvider struct {
	inner    Provider
	provider string
	events   store.EventRepo
	logger   *slog.Logger
}

// WithAudit wraps p. events may be nil, in which case only slog is used.
func WithAudit(p Provider, providerName string, events store.EventRepo, logger *slog.Logger) *AuditProvider {
	if logger == nil {
		logger = logging.Discard()
	}
	return &AuditProvider{inner: p, provider: providerName, events: events, logger: logger}
}

func (a *AuditProvider) ModelID() string { return a.inner.ModelID() }

func (a *AuditProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	began := time.Now()
	resp, err := a.inner.Generate(ctx, req)
	latency := time.Since(began)

	data := store.LLMRequestEventData{
		Provider:    a.provider,
		Model:       a.inner.ModelID(),
		Purpose:     PurposeFrom(ctx),
		LatencyMs:   latency.Milliseconds(),
		Success:     err == nil,
		RequestBody: describeRequest(req),
	}
	if resp != nil {
		data.Model = resp.Model
		data.InputTokens = resp.Usage.InputTokens
		data.OutputTokens = resp.Usage.OutputTokens
		data.ResponseBody = string(resp.Content)
	}
	if err != nil {
		data.ErrorMessage = err.Error()
	}

	level := slog.LevelInfo
	if err != nil {
		level = slog.LevelWarn
	}
	a.logger.LogAttrs(ctx, level, "llm request",
		logging.Provider(a.provider), slog.String("model", data.Model),
		slog.String("purpose", data.Purpose), logging.DurationMS(data.LatencyMs),
		slog.Int("input_tokens", data.InputTokens), slog.Int("output_tokens", data.OutputTokens),
		logging.Err(err))

	if a.events != nil {
		if auditErr := a.events.AppendLLMRequest(ctx, data); auditErr != nil {
			a.logger.LogAttrs(ctx, slog.LevelWarn, "record llm request", logging.Err(auditErr))
		}
	}
	return resp, err
}

// describeRequest renders a request for the audit table.
func describeRequest(req Request) string {
	var b strings.Builder
	if req.System != "" {
		fmt.Fprintf(&b, "[system]\n%s\n\n", req.System)
	}
	for _, m := range req.Messages {
		fmt.Fprintf(&b, "[%s]\n%s\n\n", m.Role, m.Content)
	}
	if req.Schema != nil {
		if def, err := json.Marshal(req.Schema.Definition); err == nil {
			fmt.Fprintf(&b, "[schema: %s]\n%s\n", req.Schema.Name, def)
		}
	}
	return b.String()
}
