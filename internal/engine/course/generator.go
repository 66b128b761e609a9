package course

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/time/rate"

	"github.com/anatolykoptev/go_academy/internal/engine"
)

// Generator turns a transcript into a summary or a quiz with one LLM call.
type Generator struct {
	LLM         engine.Completer // nil = engine.Cfg.LLM
	MaxChars    int              // transcript cap in runes; <=0 = engine.DefaultMaxTranscriptChars
	Temperature float64
	Limiter     *rate.Limiter // nil = unlimited
}

// NewGenerator builds a Generator from engine.Cfg. limiter may be nil.
func NewGenerator(limiter *rate.Limiter) *Generator {
	return &Generator{
		LLM:         engine.Cfg.LLM,
		MaxChars:    engine.Cfg.MaxTranscriptChars,
		Temperature: engine.Cfg.LLMTemperature,
		Limiter:     limiter,
	}
}

// NewLimiter returns a limiter for rps completions per second, or nil when rps <= 0.
func NewLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// Generate returns the model's raw reply for the requested content type.
func (g *Generator) Generate(ctx context.Context, segments []engine.TranscriptSegment, contentType engine.ContentType) (string, error) {
	if len(segments) == 0 {
		return "", &engine.ValidationError{Field: "segments", Err: engine.ErrEmptyTranscript}
	}
	if !contentType.Valid() {
		return "", &engine.ValidationError{
			Field: "content_type",
			Err:   fmt.Errorf("%w: %q", engine.ErrUnknownContentType, contentType),
		}
	}

	transcript := g.transcriptText(segments)
	var prompt string
	switch contentType {
	case engine.ContentSummary:
		prompt = fmt.Sprintf(engine.SummaryPrompt, transcript)
	case engine.ContentQuestions:
		prompt = fmt.Sprintf(engine.QuestionsPrompt, engine.QuestionsPerQuiz, transcript)
	}

	if g.Limiter != nil {
		if err := g.Limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("course: rate limit: %w", err)
		}
	}

	raw, err := engine.CallLLM(ctx, g.LLM, engine.CourseSystemPrompt, prompt, g.temperature())
	if err != nil {
		slog.Warn("course: generation failed",
			slog.String("type", string(contentType)), slog.Any("err", err))
		return "", err
	}
	return raw, nil
}

// GenerateContent wraps Generate and shapes the reply: the summary as-is, or
// parsed questions.
func (g *Generator) GenerateContent(ctx context.Context, segments []engine.TranscriptSegment, contentType engine.ContentType) (*engine.ContentResult, error) {
	raw, err := g.Generate(ctx, segments, contentType)
	if err != nil {
		return nil, err
	}
	res := &engine.ContentResult{Type: contentType}
	if contentType == engine.ContentSummary {
		res.Summary = raw
		return res, nil
	}
	res.Questions = ParseQuestions(raw)
	if len(res.Questions) == 0 {
		slog.Warn("course: no questions recovered from reply", slog.Int("reply_len", len(raw)))
	}
	return res, nil
}

// transcriptText joins segment texts with single spaces and caps the result.
func (g *Generator) transcriptText(segments []engine.TranscriptSegment) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		parts = append(parts, s.Text)
	}
	text := strings.Join(parts, " ")

	limit := g.MaxChars
	if limit <= 0 {
		limit = engine.DefaultMaxTranscriptChars
	}
	return engine.TruncateRunes(text, limit, engine.TruncationMarker)
}

// temperature passes 0 through. Only negative values, which no API accepts,
// fall back to the configured default.
func (g *Generator) temperature() float64 {
	if g.Temperature < 0 {
		return engine.DefaultLLMTemperature
	}
	return g.Temperature
}
