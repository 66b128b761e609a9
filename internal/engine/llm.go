package engine

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/anatolykoptev/go-kit/llm"
)

// Completer sends one system+user chat completion and returns the reply text.
type Completer interface {
	Complete(ctx context.Context, system, prompt string, temperature float64) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, system, prompt string, temperature float64) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, system, prompt string, temperature float64) (string, error) {
	return f(ctx, system, prompt, temperature)
}

// NewLLMCompleter builds a Completer backed by an OpenAI-compatible endpoint.
// An empty key is not an error here: every call fails with ErrMissingAPIKey instead.
func NewLLMCompleter(base, key, model string, fallbackKeys []string, maxTokens int, hc *http.Client) Completer {
	if key == "" {
		return CompleterFunc(func(context.Context, string, string, float64) (string, error) {
			return "", &UpstreamError{Service: "llm", Err: ErrMissingAPIKey}
		})
	}

	if maxTokens <= 0 {
		maxTokens = 4096
	}
	if hc == nil {
		hc = &http.Client{Timeout: 60 * time.Second}
	}
	client := llm.NewClient(base, key, model,
		llm.WithFallbackKeys(fallbackKeys),
		llm.WithMaxTokens(maxTokens),
		llm.WithHTTPClient(hc),
	)

	return CompleterFunc(func(ctx context.Context, system, prompt string, temperature float64) (string, error) {
		return client.Complete(ctx, system, prompt, llm.WithChatTemperature(temperature))
	})
}

// CallLLM sends a prompt through c, or the configured completer when c is nil.
// Failures come back as *UpstreamError.
func CallLLM(ctx context.Context, c Completer, system, prompt string, temperature float64) (string, error) {
	if c == nil {
		c = cfg.LLM
	}
	metrics.LLMCalls.Add(1)
	if c == nil {
		metrics.LLMErrors.Add(1)
		return "", &UpstreamError{Service: "llm", Err: ErrMissingAPIKey}
	}
	resp, err := c.Complete(ctx, system, prompt, temperature)
	if err != nil {
		metrics.LLMErrors.Add(1)
		return "", NewUpstream("llm", err)
	}
	return resp, nil
}

// StripFences removes markdown code fences from LLM output.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 && !strings.ContainsAny(s[:nl], " \t") {
		s = s[nl+1:] // language tag line
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
