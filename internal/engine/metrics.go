package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
)

// Metrics tracks operational counters across the engine.
var metrics struct {
	LLMCalls                atomic.Int64
	LLMErrors               atomic.Int64
	TranscriptRequests      atomic.Int64
	TranscriptMisses        atomic.Int64
	TranscriptTimedTextHits atomic.Int64
	TranscriptPageHits      atomic.Int64
	QuestionsParsed         atomic.Int64
	QuestionParseFallbacks  atomic.Int64
	PlaylistRequests        atomic.Int64
	ContentBuilds           atomic.Int64
	ContentBuildErrors      atomic.Int64
}

// metricKeys fixes the output order of FormatMetrics.
var metricKeys = []string{
	"llm_calls", "llm_errors",
	"transcript_requests", "transcript_misses",
	"transcript_timedtext_hits", "transcript_page_hits",
	"questions_parsed", "question_parse_fallbacks",
	"playlist_requests",
	"content_builds", "content_build_errors",
	"cache_hits", "cache_misses", "cache_shared", "cache_evictions",
}

// GetMetrics returns a snapshot of all metrics including cache stats.
func GetMetrics() map[string]int64 {
	cs := CacheStats()
	return map[string]int64{
		"llm_calls":                 metrics.LLMCalls.Load(),
		"llm_errors":                metrics.LLMErrors.Load(),
		"transcript_requests":       metrics.TranscriptRequests.Load(),
		"transcript_misses":         metrics.TranscriptMisses.Load(),
		"transcript_timedtext_hits": metrics.TranscriptTimedTextHits.Load(),
		"transcript_page_hits":      metrics.TranscriptPageHits.Load(),
		"questions_parsed":          metrics.QuestionsParsed.Load(),
		"question_parse_fallbacks":  metrics.QuestionParseFallbacks.Load(),
		"playlist_requests":         metrics.PlaylistRequests.Load(),
		"content_builds":            metrics.ContentBuilds.Load(),
		"content_build_errors":      metrics.ContentBuildErrors.Load(),
		"cache_hits":                cs.Hits,
		"cache_misses":              cs.Misses,
		"cache_shared":              cs.Shared,
		"cache_evictions":           cs.Evictions,
	}
}

// FormatMetrics returns metrics as a simple text format for HTTP endpoint.
func FormatMetrics() string {
	m := GetMetrics()
	var sb strings.Builder
	for _, k := range metricKeys {
		fmt.Fprintf(&sb, "%s %d\n", k, m[k])
	}
	return sb.String()
}

// Incrementors for sources/ sub-package.
func IncrTranscriptRequest() { metrics.TranscriptRequests.Add(1) }
func IncrTranscriptMiss() { metrics.TranscriptMisses.Add(1) }
func IncrTranscriptTimedTextHit() { metrics.TranscriptTimedTextHits.Add(1) }
func IncrTranscriptPageHit() { metrics.TranscriptPageHits.Add(1) }
func IncrPlaylistRequest() { metrics.PlaylistRequests.Add(1) }

// Incrementors for course/ sub-package.
func AddQuestionsParsed(n int) { metrics.QuestionsParsed.Add(int64(n)) }
func IncrQuestionParseFallback() { metrics.QuestionParseFallbacks.Add(1) }
func IncrContentBuild() { metrics.ContentBuilds.Add(1) }
func IncrContentBuildError() { metrics.ContentBuildErrors.Add(1) }

// TrackOperation logs a warning if an operation takes longer than threshold.
func TrackOperation(ctx context.Context, name string, threshold time.Duration, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	if elapsed > threshold {
		slog.Warn("slow operation", slog.String("op", name), slog.Duration("elapsed", elapsed))
	}
	return err
}
