package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/anatolykoptev/go_academy/internal/engine"
)

// Data API v3 page size ceiling for both playlistItems and videos.
const ytMaxResults = 50

// --- YouTube Data API v3 types ---

type ytPlaylistItemsResp struct {
	NextPageToken string `json:"nextPageToken"`
	Items         []struct {
		Snippet struct {
			ResourceID struct {
				VideoID string `json:"videoId"`
			} `json:"resourceId"`
		} `json:"snippet"`
	} `json:"items"`
}

type ytVideosResp struct {
	Items []ytVideoItem `json:"items"`
}

type ytVideoItem struct {
	ID      string `json:"id"`
	Snippet struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Thumbnails  map[string]struct {
			URL string `json:"url"`
		} `json:"thumbnails"`
	} `json:"snippet"`
	ContentDetails struct {
		Duration string `json:"duration"`
	} `json:"contentDetails"`
}

func (v ytVideoItem) thumbnail() string {
	for _, size := range []string{"medium", "high", "default"} {
		if t, ok := v.Snippet.Thumbnails[size]; ok && t.URL != "" {
			return t.URL
		}
	}
	return ""
}

var isoDurationRE = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)

// FormatDuration renders an ISO 8601 duration (PT1H30M45S) as 1:30:45,
// or M:SS under an hour. Unparseable input renders as 0:00.
func FormatDuration(iso string) string {
	m := isoDurationRE.FindStringSubmatch(strings.TrimSpace(iso))
	if m == nil {
		return "0:00"
	}
	n := func(s string) int {
		v, _ := strconv.Atoi(s)
		return v
	}
	hours := n(m[1])*24 + n(m[2])
	minutes, seconds := n(m[3]), n(m[4])
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

// PlaylistClient lists playlist videos through the YouTube Data API.
type PlaylistClient struct {
	APIBase string
	APIKey  string
	Client  *http.Client
}

// FetchPlaylist returns every available video of the playlist in playlist order.
// Results are cached under the "playlist" kind.
func FetchPlaylist(ctx context.Context, playlistID string) (*engine.Playlist, error) {
	c := &PlaylistClient{APIBase: engine.Cfg.YouTubeAPIBase, APIKey: engine.Cfg.YouTubeAPIKey, Client: engine.Cfg.HTTPClient}
	return engine.CacheFetchJSON(ctx, engine.CacheKey("playlist", playlistID), c.fetchFunc(playlistID),
		func(pl *engine.Playlist) bool { return pl != nil })
}

func (c *PlaylistClient) fetchFunc(playlistID string) func(context.Context) (*engine.Playlist, error) {
	return func(ctx context.Context) (*engine.Playlist, error) { return c.Fetch(ctx, playlistID) }
}

// Fetch pages through playlistItems and resolves each page's video details.
// Private and deleted entries, which have no video details, are skipped.
func (c *PlaylistClient) Fetch(ctx context.Context, playlistID string) (*engine.Playlist, error) {
	playlistID = strings.TrimSpace(playlistID)
	if playlistID == "" {
		return nil, &engine.ValidationError{Field: "playlist_id", Err: errors.New("is required")}
	}
	if c.APIKey == "" {
		return nil, &engine.UpstreamError{Service: "youtube data api", Err: errors.New("YOUTUBE_API_KEY is not configured")}
	}
	engine.IncrPlaylistRequest()

	pl := &engine.Playlist{ID: playlistID, Videos: []engine.PlaylistVideo{}}
	pageToken := ""
	for {
		var page ytPlaylistItemsResp
		params := url.Values{
			"part":       {"snippet"},
			"maxResults": {strconv.Itoa(ytMaxResults)},
			"playlistId": {playlistID},
		}
		if pageToken != "" {
			params.Set("pageToken", pageToken)
		}
		if err := c.getJSON(ctx, "playlistItems", params, &page); err != nil {
			return nil, fmt.Errorf("playlist items: %w", err)
		}

		ids := make([]string, 0, len(page.Items))
		for _, item := range page.Items {
			if id := item.Snippet.ResourceID.VideoID; id != "" {
				ids = append(ids, id)
			}
		}
		if len(ids) > 0 {
			videos, err := c.videoDetails(ctx, ids)
			if err != nil {
				return nil, err
			}
			for _, v := range videos {
				v.Position = len(pl.Videos)
				pl.Videos = append(pl.Videos, v)
			}
		}

		if page.NextPageToken == "" || len(page.Items) == 0 {
			break
		}
		pageToken = page.NextPageToken
	}

	pl.TotalVideos = len(pl.Videos)
	slog.Info("youtube: playlist fetched",
		slog.String("playlist", playlistID), slog.Int("videos", pl.TotalVideos))
	return pl, nil
}

// videoDetails returns the videos for ids in the order of ids.
func (c *PlaylistClient) videoDetails(ctx context.Context, ids []string) ([]engine.PlaylistVideo, error) {
	var resp ytVideosResp
	params := url.Values{
		"part": {"contentDetails,snippet"},
		"id":   {strings.Join(ids, ",")},
	}
	if err := c.getJSON(ctx, "videos", params, &resp); err != nil {
		return nil, fmt.Errorf("video details: %w", err)
	}

	byID := make(map[string]ytVideoItem, len(resp.Items))
	for _, item := range resp.Items {
		byID[item.ID] = item
	}
	videos := make([]engine.PlaylistVideo, 0, len(ids))
	for _, id := range ids {
		item, ok := byID[id]
		if !ok {
			continue
		}
		videos = append(videos, engine.PlaylistVideo{
			ID:          id,
			Title:       item.Snippet.Title,
			Description: engine.TruncateRunes(item.Snippet.Description, 300, engine.TruncationMarker),
			Thumbnail:   item.thumbnail(),
			Duration:    FormatDuration(item.ContentDetails.Duration),
		})
	}
	return videos, nil
}

func (c *PlaylistClient) getJSON(ctx context.Context, resource string, params url.Values, out any) error {
	params.Set("key", c.APIKey)
	base := strings.TrimRight(c.APIBase, "/")
	if base == "" {
		base = engine.DefaultYouTubeAPIBase
	}
	apiURL := base + "/" + resource + "?" + params.Encode()

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := engine.RetryHTTP(ctx, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return client.Do(req)
	})
	if err != nil {
		return &engine.UpstreamError{Service: "youtube data api", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &engine.UpstreamError{
			Service:    "youtube data api",
			StatusCode: resp.StatusCode,
			Err:        errors.New(strings.TrimSpace(string(body))),
		}
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, captionBodyLimit)).Decode(out); err != nil {
		return &engine.UpstreamError{Service: "youtube data api", Err: fmt.Errorf("decode %s: %w", resource, err)}
	}
	return nil
}
