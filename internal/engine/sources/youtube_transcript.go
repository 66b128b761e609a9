package sources

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anatolykoptev/go_academy/internal/engine"
)

// TranscriptStrategy is one way of obtaining captions for a video.
// Attempt returns no segments on any failure; it logs instead of erroring.
type TranscriptStrategy interface {
	Name() string
	Attempt(ctx context.Context, videoID string) []engine.TranscriptSegment
}

// TranscriptChain tries strategies in order and returns the first non-empty result.
type TranscriptChain struct {
	strategies []TranscriptStrategy
	cache      bool
}

// NewTranscriptChain builds an uncached chain from the given strategies, in order.
func NewTranscriptChain(strategies ...TranscriptStrategy) *TranscriptChain {
	return &TranscriptChain{strategies: strategies}
}

// DefaultTranscriptChain is timedtext first, watch page second, both configured
// from engine.Cfg, with results cached.
func DefaultTranscriptChain() *TranscriptChain {
	c := engine.Cfg
	return &TranscriptChain{
		strategies: []TranscriptStrategy{
			&TimedTextStrategy{BaseURL: c.YouTubeBaseURL, Client: c.HTTPClient, Timeout: c.FetchTimeout},
			&PageStrategy{BaseURL: c.YouTubeBaseURL, Client: c.HTTPClient, Browser: c.BrowserClient, Timeout: c.FetchTimeout},
		},
		cache: true,
	}
}

// Names lists the strategy names in attempt order.
func (c *TranscriptChain) Names() []string {
	names := make([]string, len(c.strategies))
	for i, s := range c.strategies {
		names[i] = s.Name()
	}
	return names
}

// FetchTranscript returns the video's segments, or nil with a nil error when no
// strategy finds captions. Errors are reserved for an empty video ID, a
// cancelled context, and a strategy that panicked.
func (c *TranscriptChain) FetchTranscript(ctx context.Context, videoID string) ([]engine.TranscriptSegment, error) {
	videoID = strings.TrimSpace(videoID)
	if videoID == "" {
		return nil, &engine.ValidationError{Field: "video_id", Err: errors.New("is required")}
	}
	engine.IncrTranscriptRequest()

	if !c.cache {
		return c.resolve(ctx, videoID)
	}
	return engine.CacheFetchJSON(ctx, engine.CacheKey("transcript", videoID),
		func(ctx context.Context) ([]engine.TranscriptSegment, error) { return c.resolve(ctx, videoID) },
		func(segs []engine.TranscriptSegment) bool { return len(segs) > 0 },
	)
}

// resolve walks the strategies in order.
func (c *TranscriptChain) resolve(ctx context.Context, videoID string) ([]engine.TranscriptSegment, error) {
	for _, s := range c.strategies {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		segs, err := attempt(ctx, s, videoID)
		if err != nil {
			return nil, err
		}
		if len(segs) == 0 {
			continue
		}
		countHit(s.Name())
		slog.Info("youtube: transcript fetched",
			slog.String("id", videoID), slog.String("strategy", s.Name()), slog.Int("segments", len(segs)))
		return segs, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	engine.IncrTranscriptMiss()
	slog.Info("youtube: no transcript available",
		slog.String("id", videoID), slog.Any("strategies", c.Names()))
	return nil, nil
}

// attempt runs one strategy, turning a panic into an error for the caller.
func attempt(ctx context.Context, s TranscriptStrategy, videoID string) (segs []engine.TranscriptSegment, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("youtube: transcript strategy panicked",
				slog.String("strategy", s.Name()), slog.String("id", videoID), slog.Any("panic", r))
			segs, err = nil, fmt.Errorf("youtube: strategy %s: %v", s.Name(), r)
		}
	}()
	return s.Attempt(ctx, videoID), nil
}

func countHit(name string) {
	switch name {
	case "timedtext":
		engine.IncrTranscriptTimedTextHit()
	case "page":
		engine.IncrTranscriptPageHit()
	}
}

// FetchTranscript resolves videoID through the default chain.
func FetchTranscript(ctx context.Context, videoID string) ([]engine.TranscriptSegment, error) {
	return DefaultTranscriptChain().FetchTranscript(ctx, videoID)
}
