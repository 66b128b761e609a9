package course

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go_academy/internal/engine"
)

type builderFunc func(ctx context.Context, videoID string) (*engine.CourseContent, error)

func (f builderFunc) Build(ctx context.Context, videoID string) (*engine.CourseContent, error) {
	return f(ctx, videoID)
}

func fastLoader(b Builder) *Loader {
	return &Loader{Builder: b, MaxTries: 3, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond}
}

func TestLoaderRetriesTransient(t *testing.T) {
	var calls atomic.Int32
	l := fastLoader(builderFunc(func(_ context.Context, id string) (*engine.CourseContent, error) {
		if calls.Add(1) < 3 {
			return nil, &engine.UpstreamError{Service: "llm", StatusCode: 503, Err: errors.New("unavailable")}
		}
		return &engine.CourseContent{VideoID: id}, nil
	}))

	content, err := l.Load(context.Background(), "alice", "vid123")
	require.NoError(t, err)
	assert.Equal(t, "vid123", content.VideoID)
	assert.Equal(t, 3, l.Attempts("alice"))
}

func TestLoaderGivesUp(t *testing.T) {
	l := fastLoader(builderFunc(func(context.Context, string) (*engine.CourseContent, error) {
		return nil, errors.New("boom")
	}))

	_, err := l.Load(context.Background(), "alice", "vid123")
	assert.ErrorContains(t, err, "boom")
	assert.Equal(t, 3, l.Attempts("alice"))
}

func TestLoaderPermanentErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"no transcript", fmt.Errorf("course: vid123: %w", engine.ErrNoTranscript)},
		{"validation", &engine.ValidationError{Field: "video_id", Err: errors.New("is required")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := fastLoader(builderFunc(func(context.Context, string) (*engine.CourseContent, error) {
				return nil, tt.err
			}))
			_, err := l.Load(context.Background(), "alice", "vid123")
			assert.ErrorIs(t, err, tt.err)
			assert.Equal(t, 1, l.Attempts("alice"), "permanent errors are not retried")
		})
	}
}

func TestLoaderNewVideoCancelsPrevious(t *testing.T) {
	started := make(chan struct{})
	l := fastLoader(builderFunc(func(ctx context.Context, id string) (*engine.CourseContent, error) {
		if id == "first" {
			close(started)
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return &engine.CourseContent{VideoID: id}, nil
	}))

	firstErr := make(chan error, 1)
	go func() {
		_, err := l.Load(context.Background(), "alice", "first")
		firstErr <- err
	}()
	<-started

	content, err := l.Load(context.Background(), "alice", "second")
	require.NoError(t, err)
	assert.Equal(t, "second", content.VideoID)

	select {
	case err := <-firstErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("superseded load was not cancelled")
	}
	assert.Equal(t, 1, l.Attempts("alice"), "attempts restart for the new video")
}

func TestLoaderSameVideoKeepsCount(t *testing.T) {
	l := fastLoader(builderFunc(func(_ context.Context, id string) (*engine.CourseContent, error) {
		return &engine.CourseContent{VideoID: id}, nil
	}))
	for i := 0; i < 2; i++ {
		_, err := l.Load(context.Background(), "alice", "vid123")
		require.NoError(t, err)
	}
	assert.Equal(t, 2, l.Attempts("alice"))

	_, err := l.Load(context.Background(), "alice", "other")
	require.NoError(t, err)
	assert.Equal(t, 1, l.Attempts("alice"))
}

func TestLoaderCallersDoNotCancelEachOther(t *testing.T) {
	bothStarted := make(chan struct{})
	var started atomic.Int32
	l := fastLoader(builderFunc(func(ctx context.Context, id string) (*engine.CourseContent, error) {
		if started.Add(1) == 2 {
			close(bothStarted)
		}
		select {
		case <-bothStarted:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return &engine.CourseContent{VideoID: id}, nil
	}))

	type result struct {
		content *engine.CourseContent
		err     error
	}
	results := make(chan result, 2)
	for caller, id := range map[string]string{"alice": "video-x", "bob": "video-y"} {
		go func() {
			c, err := l.Load(context.Background(), caller, id)
			results <- result{c, err}
		}()
	}

	got := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case r := <-results:
			require.NoError(t, r.err)
			got[r.content.VideoID] = true
		case <-time.After(5 * time.Second):
			t.Fatal("concurrent loads did not finish")
		}
	}
	assert.Equal(t, map[string]bool{"video-x": true, "video-y": true}, got)
	assert.Equal(t, 1, l.Attempts("alice"))
	assert.Equal(t, 1, l.Attempts("bob"))
}

func TestLoaderAnonymousCallerUntracked(t *testing.T) {
	l := fastLoader(builderFunc(func(_ context.Context, id string) (*engine.CourseContent, error) {
		return &engine.CourseContent{VideoID: id}, nil
	}))
	_, err := l.Load(context.Background(), "", "vid123")
	require.NoError(t, err)
	assert.Equal(t, 0, l.Attempts(""))
	assert.Empty(t, l.callers)
}

func TestLoaderPrunesIdleCallers(t *testing.T) {
	l := fastLoader(builderFunc(func(_ context.Context, id string) (*engine.CourseContent, error) {
		return &engine.CourseContent{VideoID: id}, nil
	}))
	l.IdleTTL = time.Millisecond

	_, err := l.Load(context.Background(), "alice", "vid123")
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	_, err = l.Load(context.Background(), "bob", "vid123")
	require.NoError(t, err)
	assert.NotContains(t, l.callers, "alice")
	assert.Contains(t, l.callers, "bob")
}

func TestNewLoaderDefaults(t *testing.T) {
	l := NewLoader(builderFunc(func(context.Context, string) (*engine.CourseContent, error) { return nil, nil }))
	assert.EqualValues(t, engine.Cfg.LoaderMaxTries, l.MaxTries)
	assert.Equal(t, time.Second, l.InitialInterval)
}
