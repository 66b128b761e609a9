package course

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/anatolykoptev/go_academy/internal/engine"
)

// fakeLLM records every call and answers with reply(prompt).
type fakeLLM struct {
	mu    sync.Mutex
	calls []fakeCall
	reply func(prompt string, n int) (string, error)
}

type fakeCall struct {
	system, prompt string
	temperature    float64
}

func (f *fakeLLM) Complete(_ context.Context, system, prompt string, temperature float64) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, fakeCall{system, prompt, temperature})
	n := len(f.calls)
	f.mu.Unlock()
	return f.reply(prompt, n)
}

func (f *fakeLLM) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func constLLM(s string) *fakeLLM {
	return &fakeLLM{reply: func(string, int) (string, error) { return s, nil }}
}

var droneSegments = []engine.TranscriptSegment{{Text: "Drones fly using four motors.", Start: 0, Duration: 3}}

func TestGenerateSummary(t *testing.T) {
	llm := constLLM("Drones use four motors to fly.")
	g := &Generator{LLM: llm, Temperature: 0.7}

	res, err := g.GenerateContent(context.Background(), droneSegments, engine.ContentSummary)
	require.NoError(t, err)
	assert.Equal(t, engine.ContentSummary, res.Type)
	assert.Equal(t, "Drones use four motors to fly.", res.Summary)
	assert.Nil(t, res.Questions)

	require.Equal(t, 1, llm.count())
	call := llm.calls[0]
	assert.Equal(t, engine.CourseSystemPrompt, call.system)
	assert.Equal(t, 0.7, call.temperature)
	assert.Contains(t, call.prompt, "Drones fly using four motors.")
}

func TestGenerateZeroTemperature(t *testing.T) {
	llm := constLLM("ok")
	g := &Generator{LLM: llm, Temperature: 0}

	_, err := g.Generate(context.Background(), droneSegments, engine.ContentSummary)
	require.NoError(t, err)
	assert.Equal(t, 0.0, llm.calls[0].temperature, "0 is a valid temperature")
}

func TestGenerateNegativeTemperatureUsesDefault(t *testing.T) {
	llm := constLLM("ok")
	g := &Generator{LLM: llm, Temperature: -0.5}

	_, err := g.Generate(context.Background(), droneSegments, engine.ContentSummary)
	require.NoError(t, err)
	assert.Equal(t, engine.DefaultLLMTemperature, llm.calls[0].temperature)
}

func TestGenerateReturnsRawReply(t *testing.T) {
	reply := "  **Summary**\n\n- point one\n"
	g := &Generator{LLM: constLLM(reply)}
	got, err := g.Generate(context.Background(), droneSegments, engine.ContentSummary)
	require.NoError(t, err)
	assert.Equal(t, reply, got)
}

func TestGenerateQuestions(t *testing.T) {
	llm := constLLM(threeQuestions)
	g := &Generator{LLM: llm}

	res, err := g.GenerateContent(context.Background(), droneSegments, engine.ContentQuestions)
	require.NoError(t, err)
	assert.Len(t, res.Questions, 3)
	assert.Empty(t, res.Summary)
	assert.Contains(t, llm.calls[0].prompt, "exactly 3 multiple-choice questions")
	assert.Contains(t, llm.calls[0].prompt, "Correct answer: B")
}

func TestGenerateJoinsSegments(t *testing.T) {
	llm := constLLM("ok")
	g := &Generator{LLM: llm}
	segs := []engine.TranscriptSegment{{Text: "Drones fly"}, {Text: "using four"}, {Text: "motors."}}

	_, err := g.Generate(context.Background(), segs, engine.ContentSummary)
	require.NoError(t, err)
	assert.Contains(t, llm.calls[0].prompt, "Drones fly using four motors.")
}

func TestGenerateTruncates(t *testing.T) {
	llm := constLLM("ok")
	g := &Generator{LLM: llm, MaxChars: engine.DefaultMaxTranscriptChars}
	// Two-byte runes: the cap counts characters, not bytes.
	segs := []engine.TranscriptSegment{{Text: strings.Repeat("ж", 20000)}}

	_, err := g.Generate(context.Background(), segs, engine.ContentSummary)
	require.NoError(t, err)
	prompt := llm.calls[0].prompt
	assert.True(t, strings.HasSuffix(prompt, engine.TruncationMarker))
	assert.True(t, utf8.ValidString(prompt))

	text := prompt[strings.Index(prompt, "ж"):]
	n := utf8.RuneCountInString(text)
	assert.LessOrEqual(t, n, engine.DefaultMaxTranscriptChars+len(engine.TruncationMarker))
	assert.GreaterOrEqual(t, strings.Count(text, "ж"), engine.DefaultMaxTranscriptChars-len(engine.TruncationMarker))
}

func TestGenerateNoTruncationAtLimit(t *testing.T) {
	llm := constLLM("ok")
	g := &Generator{LLM: llm, MaxChars: 10}

	_, err := g.Generate(context.Background(), []engine.TranscriptSegment{{Text: "0123456789"}}, engine.ContentSummary)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(llm.calls[0].prompt, "0123456789"))
}

func TestGenerateValidation(t *testing.T) {
	llm := constLLM("unused")
	g := &Generator{LLM: llm}

	_, err := g.Generate(context.Background(), nil, engine.ContentSummary)
	assert.True(t, engine.IsValidation(err))
	assert.ErrorIs(t, err, engine.ErrEmptyTranscript)

	_, err = g.Generate(context.Background(), droneSegments, engine.ContentType("essay"))
	assert.True(t, engine.IsValidation(err))
	assert.ErrorIs(t, err, engine.ErrUnknownContentType)

	assert.Equal(t, 0, llm.count(), "validation must fail before any completion")
}

func TestGenerateMissingKey(t *testing.T) {
	g := &Generator{LLM: engine.NewLLMCompleter("https://api.openai.com/v1", "", "gpt-4o-mini", nil, 0, nil)}

	_, err := g.Generate(context.Background(), droneSegments, engine.ContentSummary)
	assert.True(t, engine.IsUpstream(err), "got %v", err)
	assert.ErrorIs(t, err, engine.ErrMissingAPIKey)
}

func TestGenerateUpstreamFailure(t *testing.T) {
	llm := &fakeLLM{reply: func(string, int) (string, error) {
		return "", errors.New("status 500: internal error")
	}}
	g := &Generator{LLM: llm}

	_, err := g.GenerateContent(context.Background(), droneSegments, engine.ContentQuestions)
	var ue *engine.UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "llm", ue.Service)
}

func TestGenerateRateLimited(t *testing.T) {
	llm := constLLM("ok")
	limiter := rate.NewLimiter(rate.Limit(0.001), 1)
	require.True(t, limiter.Allow())
	g := &Generator{LLM: llm, Limiter: limiter}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := g.Generate(ctx, droneSegments, engine.ContentSummary)
	assert.Error(t, err)
	assert.Equal(t, 0, llm.count())
}

func TestNewLimiter(t *testing.T) {
	assert.Nil(t, NewLimiter(0, 5))
	l := NewLimiter(2, 0)
	require.NotNil(t, l)
	assert.Equal(t, 1, l.Burst())
}
