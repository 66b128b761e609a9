package sources

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/anatolykoptev/go_academy/internal/engine"
)

// langCodeRE pulls the first advertised language out of a timedtext track list.
// The list is XML-ish but its structure is not guaranteed, so no decoder is used.
var langCodeRE = regexp.MustCompile(`lang_code="([^"]+)"`)

// --- json3 caption format ---

type json3Transcript struct {
	Events []json3Event `json:"events"`
}

type json3Event struct {
	TStartMs    float64    `json:"tStartMs"`
	DDurationMs float64    `json:"dDurationMs"`
	Segs        []json3Seg `json:"segs"`
}

type json3Seg struct {
	UTF8 string `json:"utf8"`
}

// --- XML caption format ---

type timedTextXML struct {
	Cues []timedTextCue `xml:"text"`
}

type timedTextCue struct {
	Start string `xml:"start,attr"`
	Dur   string `xml:"dur,attr"`
	Text  string `xml:",chardata"`
}

// ParseJSON3 normalizes a json3 caption body. Times arrive in milliseconds;
// a missing duration counts as one second. Events without text are dropped.
func ParseJSON3(data []byte) ([]engine.TranscriptSegment, error) {
	var tt json3Transcript
	if err := json.Unmarshal(data, &tt); err != nil {
		return nil, fmt.Errorf("decode json3: %w", err)
	}

	segs := make([]engine.TranscriptSegment, 0, len(tt.Events))
	for _, ev := range tt.Events {
		var sb strings.Builder
		for _, s := range ev.Segs {
			sb.WriteString(s.UTF8)
		}
		text := engine.CaptionText(sb.String())
		if text == "" {
			continue
		}
		dur := ev.DDurationMs
		if dur <= 0 {
			dur = 1000
		}
		segs = append(segs, engine.TranscriptSegment{
			Text:     text,
			Start:    max(ev.TStartMs, 0) / 1000,
			Duration: dur / 1000,
		})
	}
	return segs, nil
}

// ParseTimedTextXML normalizes an XML caption body. Times arrive in seconds;
// a missing duration is 0. Cues without text are dropped.
func ParseTimedTextXML(data []byte) ([]engine.TranscriptSegment, error) {
	var tt timedTextXML
	if err := xml.Unmarshal(data, &tt); err != nil {
		return nil, fmt.Errorf("decode timedtext xml: %w", err)
	}

	segs := make([]engine.TranscriptSegment, 0, len(tt.Cues))
	for _, cue := range tt.Cues {
		text := engine.CaptionText(cue.Text)
		if text == "" {
			continue
		}
		segs = append(segs, engine.TranscriptSegment{
			Text:     text,
			Start:    parseSeconds(cue.Start),
			Duration: parseSeconds(cue.Dur),
		})
	}
	return segs, nil
}

func parseSeconds(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

// TimedTextStrategy reads captions straight from the timedtext endpoint:
// list the tracks, take the first language, then fetch json3 with an XML retry.
type TimedTextStrategy struct {
	BaseURL string // scheme+host, e.g. https://www.youtube.com
	Client  *http.Client
	Timeout time.Duration // per HTTP call
}

func (s *TimedTextStrategy) Name() string { return "timedtext" }

// Attempt never fails: every error is logged and yields no segments.
func (s *TimedTextStrategy) Attempt(ctx context.Context, videoID string) []engine.TranscriptSegment {
	lang, err := s.firstLanguage(ctx, videoID)
	if err != nil {
		slog.Warn("youtube: timedtext list failed",
			slog.String("id", videoID), slog.Any("err", err))
		return nil
	}
	if lang == "" {
		slog.Debug("youtube: timedtext list has no tracks", slog.String("id", videoID))
		return nil
	}

	segs, err := s.fetchTrack(ctx, videoID, lang, "json3")
	if err == nil && len(segs) > 0 {
		return segs
	}
	slog.Warn("youtube: timedtext json3 unusable, trying xml",
		slog.String("id", videoID), slog.String("lang", lang), slog.Any("err", err))

	segs, err = s.fetchTrack(ctx, videoID, lang, "")
	if err != nil {
		slog.Warn("youtube: timedtext xml failed",
			slog.String("id", videoID), slog.String("lang", lang), slog.Any("err", err))
		return nil
	}
	return segs
}

func (s *TimedTextStrategy) firstLanguage(ctx context.Context, videoID string) (string, error) {
	body, err := getBody(ctx, s.Client, s.endpoint(url.Values{"type": {"list"}, "v": {videoID}}),
		nil, s.Timeout, captionBodyLimit)
	if err != nil {
		return "", err
	}
	if m := langCodeRE.FindSubmatch(body); len(m) >= 2 {
		return string(m[1]), nil
	}
	return "", nil
}

// fetchTrack downloads one caption track; format "json3" or "" for XML.
func (s *TimedTextStrategy) fetchTrack(ctx context.Context, videoID, lang, format string) ([]engine.TranscriptSegment, error) {
	params := url.Values{"lang": {lang}, "v": {videoID}}
	if format != "" {
		params.Set("fmt", format)
	}
	body, err := getBody(ctx, s.Client, s.endpoint(params), nil, s.Timeout, captionBodyLimit)
	if err != nil {
		return nil, err
	}
	if format == "json3" {
		return ParseJSON3(body)
	}
	return ParseTimedTextXML(body)
}

func (s *TimedTextStrategy) endpoint(params url.Values) string {
	base := strings.TrimRight(s.BaseURL, "/")
	if base == "" {
		base = engine.DefaultYouTubeBaseURL
	}
	return base + "/api/timedtext?" + params.Encode()
}
