package sources

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/anatolykoptev/go_academy/internal/engine"
)

var (
	captionTracksRE = regexp.MustCompile(`"captionTracks":\[(.*?)\]`)
	trackBaseURLRE  = regexp.MustCompile(`"baseUrl":"(.*?)"`)
)

// PageStrategy scrapes the public watch page for the embedded caption track
// list and downloads the first track as json3.
type PageStrategy struct {
	BaseURL string
	Client  *http.Client
	Browser *engine.BrowserClient // optional TLS-fingerprinted client for the watch page
	Timeout time.Duration

	// browserDo stands in for Browser.Do in tests.
	browserDo func(url string, headers map[string]string) ([]byte, int, error)
}

func (s *PageStrategy) Name() string { return "page" }

// Attempt never fails: every error is logged and yields no segments.
func (s *PageStrategy) Attempt(ctx context.Context, videoID string) []engine.TranscriptSegment {
	page, err := s.fetchWatchPage(ctx, videoID)
	if err != nil {
		slog.Warn("youtube: watch page fetch failed",
			slog.String("id", videoID), slog.Any("err", err))
		return nil
	}

	trackURL, err := CaptionTrackURL(page)
	if err != nil {
		slog.Warn("youtube: watch page has no usable caption track",
			slog.String("id", videoID), slog.Any("err", err))
		return nil
	}

	body, err := getBody(ctx, s.Client, trackURL, nil, s.Timeout, captionBodyLimit)
	if err != nil {
		slog.Warn("youtube: caption track fetch failed",
			slog.String("id", videoID), slog.Any("err", err))
		return nil
	}
	segs, err := ParseJSON3(body)
	if err != nil {
		slog.Warn("youtube: caption track decode failed",
			slog.String("id", videoID), slog.Any("err", err))
		return nil
	}
	return segs
}

// fetchWatchPage prefers the stealth browser client and falls back to net/http
// with the same browser headers.
func (s *PageStrategy) fetchWatchPage(ctx context.Context, videoID string) ([]byte, error) {
	base := strings.TrimRight(s.BaseURL, "/")
	if base == "" {
		base = engine.DefaultYouTubeBaseURL
	}
	watchURL := base + "/watch?" + url.Values{"v": {videoID}}.Encode()
	headers := engine.BrowserHeaders()
	headers["accept"] = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"

	if s.Browser != nil || s.browserDo != nil {
		data, status, err := s.browserGet(ctx, watchURL, headers)
		if err == nil && status == http.StatusOK {
			return data, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		slog.Debug("youtube: browser client failed, using net/http",
			slog.String("id", videoID), slog.Int("status", status), slog.Any("err", err))
	}

	return getBody(ctx, s.Client, watchURL, headers, s.Timeout, watchPageLimit)
}

// browserGet bounds the browser call by ctx and the strategy timeout. Do takes
// no context, so a call still running when ctx ends is abandoned and its
// result dropped.
func (s *PageStrategy) browserGet(ctx context.Context, watchURL string, headers map[string]string) ([]byte, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	do := s.browserDo
	if do == nil {
		do = func(u string, h map[string]string) ([]byte, int, error) {
			data, _, status, err := s.Browser.Do(http.MethodGet, u, h, nil)
			return data, status, err
		}
	}

	type result struct {
		data   []byte
		status int
		err    error
	}
	done := make(chan result, 1)
	go func() {
		data, status, err := do(watchURL, headers)
		done <- result{data, status, err}
	}()
	select {
	case r := <-done:
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		return r.data, r.status, r.err
	case <-ctx.Done():
		return nil, 0, ctx.Err()
	}
}

// CaptionTrackURL extracts the first caption track's base URL from watch page
// HTML, un-escaped and switched to json3.
func CaptionTrackURL(page []byte) (string, error) {
	tracks := findCaptionTracks(page)
	if tracks == "" {
		return "", errors.New("captionTracks not found in watch page")
	}
	m := trackBaseURLRE.FindStringSubmatch(tracks)
	if len(m) < 2 || m[1] == "" {
		return "", errors.New("captionTracks has no baseUrl")
	}
	u := strings.ReplaceAll(m[1], `\u0026`, "&")
	u = strings.ReplaceAll(u, `\/`, "/")
	if _, err := url.Parse(u); err != nil {
		return "", fmt.Errorf("caption baseUrl: %w", err)
	}
	return u + "&fmt=json3", nil
}

// findCaptionTracks looks inside <script> bodies first, then the raw page.
func findCaptionTracks(page []byte) string {
	if doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page)); err == nil {
		var found string
		doc.Find("script").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			if m := captionTracksRE.FindStringSubmatch(sel.Text()); len(m) >= 2 {
				found = m[1]
				return false
			}
			return true
		})
		if found != "" {
			return found
		}
	}
	if m := captionTracksRE.FindSubmatch(page); len(m) >= 2 {
		return string(m[1])
	}
	return ""
}
