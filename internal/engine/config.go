package engine

import (
	"net/http"
	"time"
)

// Config holds all engine configuration, injected from main.
type Config struct {
	LLMAPIKey          string
	LLMAPIKeyFallbacks []string
	LLMAPIBase         string
	LLMModel           string
	LLMTemperature     float64
	LLMMaxTokens       int
	LLMRequestsPerSec  float64 // 0 = unlimited
	LLMBurst           int
	LLM                Completer // built by main from the LLM* fields

	MaxTranscriptChars int
	FetchTimeout       time.Duration
	YouTubeBaseURL     string // watch page + timedtext host
	YouTubeAPIKey      string // Data API v3, playlist fetch only
	YouTubeAPIBase     string

	QuestionRetries int
	LoaderMaxTries  int

	DatabaseURL   string // empty = SQLite store
	ContentDBPath string

	CacheMaxEntries      int
	CacheCleanupInterval time.Duration
	HTTPClient           *http.Client
	BrowserClient        *BrowserClient // nil = plain net/http for the watch page
}

const (
	DefaultYouTubeBaseURL     = "https://www.youtube.com"
	DefaultYouTubeAPIBase     = "https://www.googleapis.com/youtube/v3"
	DefaultMaxTranscriptChars = 15000
	DefaultLLMTemperature     = 0.7
)

var cfg = Config{
	LLMTemperature:     DefaultLLMTemperature,
	MaxTranscriptChars: DefaultMaxTranscriptChars,
	FetchTimeout:       15 * time.Second,
	YouTubeBaseURL:     DefaultYouTubeBaseURL,
	YouTubeAPIBase:     DefaultYouTubeAPIBase,
	QuestionRetries:    1,
	LoaderMaxTries:     3,
	HTTPClient:         &http.Client{Timeout: 30 * time.Second},
}

// Cfg exposes the engine configuration for sub-packages (sources, course).
// Always points to the current cfg value.
var Cfg = &cfg

// Init initializes the engine with the given configuration.
// Zero values fall back to the package defaults, except LLMTemperature where
// 0 is a valid setting and only a negative value is replaced.
func Init(c Config) {
	if c.LLMTemperature < 0 {
		c.LLMTemperature = DefaultLLMTemperature
	}
	if c.LoaderMaxTries <= 0 {
		c.LoaderMaxTries = 3
	}
	if c.MaxTranscriptChars <= 0 {
		c.MaxTranscriptChars = DefaultMaxTranscriptChars
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 15 * time.Second
	}
	if c.YouTubeBaseURL == "" {
		c.YouTubeBaseURL = DefaultYouTubeBaseURL
	}
	if c.YouTubeAPIBase == "" {
		c.YouTubeAPIBase = DefaultYouTubeAPIBase
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if c.LLM == nil {
		c.LLM = NewLLMCompleter(c.LLMAPIBase, c.LLMAPIKey, c.LLMModel, c.LLMAPIKeyFallbacks, c.LLMMaxTokens, c.HTTPClient)
	}
	cfg = c
	Cfg = &cfg
}
