// Package toolutil provides shared helper functions for go_academy MCP tools.
package toolutil

import (
	"errors"
	"net/url"
	"strings"

	"github.com/anatolykoptev/go_academy/internal/engine"
)

// ParseContentType normalises a content_type field ("Summary " -> summary).
func ParseContentType(s string) engine.ContentType {
	return engine.ContentType(strings.ToLower(strings.TrimSpace(s)))
}

// NormalizePlaylistID accepts a bare playlist ID or any URL carrying list=.
func NormalizePlaylistID(s string) string {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, "list=") {
		return s
	}
	u, err := url.Parse(s)
	if err != nil {
		return s
	}
	if id := u.Query().Get("list"); id != "" {
		return id
	}
	return s
}

// UserError turns engine errors into messages fit for a tool result.
// Validation errors pass through unchanged.
func UserError(err error) error {
	var ue *engine.UpstreamError
	switch {
	case err == nil:
		return nil
	case errors.Is(err, engine.ErrNoTranscript):
		return errors.New("captions unavailable")
	case errors.Is(err, engine.ErrMissingAPIKey):
		return errors.New("generation failed: LLM_API_KEY is not configured")
	case errors.As(err, &ue) && ue.Service == "llm":
		return errors.New("generation failed, try again")
	default:
		return err
	}
}
