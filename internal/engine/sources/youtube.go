package sources

// YouTube implementation is split across files by responsibility:
//   youtube.go:            shared HTTP primitives and video ID parsing
//   youtube_timedtext.go:  timedtext track listing, json3 and XML caption decoding
//   youtube_page.go:       watch page scraping for the embedded captionTracks list
//   youtube_transcript.go: strategy chain and FetchTranscript
//   youtube_playlist.go:   playlist listing via Data API v3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/anatolykoptev/go_academy/internal/engine"
)

const (
	captionBodyLimit = 2 << 20 // timedtext list and caption bodies
	watchPageLimit   = 6 << 20
)

var videoIDRE = regexp.MustCompile(`(?:youtube\.com/(?:watch\?(?:.*&)?v=|embed/|shorts/|live/)|youtu\.be/)([a-zA-Z0-9_-]{11})`)

// NormalizeVideoID pulls the 11-char video ID from any YouTube URL format.
// Input that is not a URL is returned trimmed, as-is.
func NormalizeVideoID(s string) string {
	s = strings.TrimSpace(s)
	if m := videoIDRE.FindStringSubmatch(s); len(m) >= 2 {
		return m[1]
	}
	return s
}

// getBody performs one GET bounded by timeout and returns at most limit bytes.
// A non-2xx status is an *engine.UpstreamError. There is no retry: a failed
// call ends the calling strategy.
func getBody(ctx context.Context, client *http.Client, rawURL string, headers map[string]string, timeout time.Duration, limit int64) ([]byte, error) {
	if client == nil {
		client = http.DefaultClient
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &engine.UpstreamError{
			Service:    "youtube",
			StatusCode: resp.StatusCode,
			Err:        errors.New(http.StatusText(resp.StatusCode)),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}
