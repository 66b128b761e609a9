package academyserver

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go_academy/internal/engine"
	"github.com/anatolykoptev/go_academy/internal/engine/course"
)

type stubTranscripts struct {
	segs  []engine.TranscriptSegment
	calls int
}

func (s *stubTranscripts) FetchTranscript(context.Context, string) ([]engine.TranscriptSegment, error) {
	s.calls++
	return s.segs, nil
}

type mapStore map[string]engine.CourseContent

func (m mapStore) Save(_ context.Context, c *engine.CourseContent) error {
	m[c.VideoID] = *c
	return nil
}

func (m mapStore) Load(_ context.Context, id string) (*engine.CourseContent, error) {
	c, ok := m[id]
	if !ok {
		return nil, engine.ErrNotFound
	}
	return &c, nil
}

func (m mapStore) List(context.Context, int) ([]engine.CourseContent, error) {
	out := []engine.CourseContent{}
	for _, c := range m {
		out = append(out, c)
	}
	return out, nil
}

const oneQuestion = "1. What is X?\nA) Opt1\nB) Opt2\nC) Opt3\nD) Opt4\nCorrect answer: B"

var drone = []engine.TranscriptSegment{{Text: "Drones fly using four motors.", Start: 0, Duration: 3}}

func testDeps(segs []engine.TranscriptSegment, llm engine.CompleterFunc, store course.Store) (Deps, *stubTranscripts) {
	tr := &stubTranscripts{segs: segs}
	gen := &course.Generator{LLM: llm}
	p := &course.Pipeline{Transcripts: tr, Generator: gen, Store: store}
	loader := &course.Loader{Builder: p, MaxTries: 2, InitialInterval: time.Millisecond}
	return Deps{Transcripts: tr, Generator: gen, Loader: loader, Store: store}, tr
}

func echoLLM(_ context.Context, _, prompt string, _ float64) (string, error) {
	if strings.Contains(prompt, "multiple-choice") {
		return oneQuestion, nil
	}
	return "A summary.", nil
}

func failingLLM(context.Context, string, string, float64) (string, error) {
	return "", errors.New("status 503")
}

func TestTranscriptTool(t *testing.T) {
	d, _ := testDeps(drone, echoLLM, nil)
	_, out, err := transcriptHandler(d)(context.Background(), nil, engine.TranscriptInput{VideoID: "https://youtu.be/dQw4w9WgXcQ"})
	require.NoError(t, err)
	assert.True(t, out.Available)
	assert.Equal(t, "dQw4w9WgXcQ", out.VideoID)
	assert.Equal(t, 1, out.SegmentCount)
	assert.Empty(t, out.Error)
}

func TestTranscriptToolUnavailable(t *testing.T) {
	d, _ := testDeps(nil, echoLLM, nil)
	_, out, err := transcriptHandler(d)(context.Background(), nil, engine.TranscriptInput{VideoID: "vid123"})
	require.NoError(t, err, "missing captions are data, not a tool error")
	assert.False(t, out.Available)
	assert.Equal(t, "No transcript available", out.Error)
	assert.NotNil(t, out.Segments)
}

func TestGenerateTool(t *testing.T) {
	d, tr := testDeps(drone, echoLLM, nil)
	h := generateHandler(d)

	_, out, err := h(context.Background(), nil, engine.GenerateInput{VideoID: "vid123", ContentType: "summary"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"summary": "A summary."}, out)
	_, hasQuestions := out["questions"]
	assert.False(t, hasQuestions)

	_, out, err = h(context.Background(), nil, engine.GenerateInput{Transcript: drone, ContentType: "Questions"})
	require.NoError(t, err)
	qs, ok := out["questions"].([]engine.GeneratedQuestion)
	require.True(t, ok)
	require.Len(t, qs, 1)
	assert.Equal(t, "B", qs[0].CorrectAnswer)
	assert.Equal(t, 1, tr.calls, "inline transcript skips the fetch")
}

func TestGenerateToolErrors(t *testing.T) {
	tests := []struct {
		name  string
		segs  []engine.TranscriptSegment
		llm   engine.CompleterFunc
		input engine.GenerateInput
		want  string
	}{
		{"bad type", drone, echoLLM, engine.GenerateInput{VideoID: "vid123", ContentType: "essay"}, "invalid content_type"},
		{"nothing to work on", drone, echoLLM, engine.GenerateInput{ContentType: "summary"}, "invalid video_id: is required when transcript is empty"},
		{"no captions", nil, echoLLM, engine.GenerateInput{VideoID: "vid123", ContentType: "summary"}, "captions unavailable"},
		{"llm down", drone, failingLLM, engine.GenerateInput{VideoID: "vid123", ContentType: "summary"}, "generation failed, try again"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, _ := testDeps(tt.segs, tt.llm, nil)
			_, _, err := generateHandler(d)(context.Background(), nil, tt.input)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestContentToolStoreFirst(t *testing.T) {
	store := mapStore{"vid123": {VideoID: "vid123", Summary: "saved"}}
	d, tr := testDeps(drone, echoLLM, store)
	h := contentHandler(d)

	_, out, err := h(context.Background(), nil, engine.ContentInput{VideoID: "vid123"})
	require.NoError(t, err)
	assert.Equal(t, "saved", out.Summary)
	assert.Equal(t, 0, tr.calls)

	_, out, err = h(context.Background(), nil, engine.ContentInput{VideoID: "vid123", Refresh: true})
	require.NoError(t, err)
	assert.Equal(t, "A summary.", out.Summary)
	assert.Len(t, out.Questions, 1)
	assert.True(t, out.Partial)
	assert.Equal(t, "A summary.", store["vid123"].Summary, "refreshed content is saved")
}

func TestContentToolErrors(t *testing.T) {
	d, _ := testDeps(nil, echoLLM, mapStore{})
	_, _, err := contentHandler(d)(context.Background(), nil, engine.ContentInput{VideoID: "vid123"})
	assert.EqualError(t, err, "captions unavailable")

	d, _ = testDeps(drone, failingLLM, nil)
	_, _, err = contentHandler(d)(context.Background(), nil, engine.ContentInput{VideoID: "vid123"})
	assert.EqualError(t, err, "generation failed, try again")

	_, _, err = contentHandler(d)(context.Background(), nil, engine.ContentInput{})
	assert.True(t, engine.IsValidation(err), "got %v", err)
}

func TestCallerID(t *testing.T) {
	assert.Empty(t, callerID(nil))
	assert.Empty(t, callerID(&mcp.CallToolRequest{}), "requests without a session share the untracked caller")
}

func TestSavedTool(t *testing.T) {
	d, _ := testDeps(drone, echoLLM, mapStore{"a": {VideoID: "a"}, "b": {VideoID: "b"}})
	_, out, err := savedHandler(d)(context.Background(), nil, engine.SavedInput{})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Total)

	d.Store = nil
	_, _, err = savedHandler(d)(context.Background(), nil, engine.SavedInput{})
	assert.Error(t, err)
}

func TestPlaylistTool(t *testing.T) {
	var gotID string
	d := Deps{Playlists: PlaylistFunc(func(_ context.Context, id string) (*engine.Playlist, error) {
		gotID = id
		return &engine.Playlist{ID: id, Videos: []engine.PlaylistVideo{{ID: "a1"}}, TotalVideos: 1}, nil
	})}
	_, pl, err := playlistHandler(d)(context.Background(), nil, engine.PlaylistInput{PlaylistID: "https://www.youtube.com/playlist?list=PL9"})
	require.NoError(t, err)
	assert.Equal(t, "PL9", gotID)
	assert.Equal(t, 1, pl.TotalVideos)

	gotID = ""
	_, _, err = playlistHandler(d)(context.Background(), nil, engine.PlaylistInput{})
	assert.True(t, engine.IsValidation(err), "got %v", err)
	assert.Empty(t, gotID, "invalid input never reaches the source")
}

func TestRegisterTools(t *testing.T) {
	server := mcp.NewServer(&mcp.Implementation{Name: "go_academy", Version: "test"}, nil)
	d, _ := testDeps(drone, echoLLM, mapStore{})
	assert.Equal(t, 5, RegisterTools(server, d))
}
