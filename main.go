// go_academy: YouTube course builder MCP server.
//
// Turns a video's captions into course material: transcript, study summary,
// and a multiple-choice quiz. Exposes five MCP tools: youtube_transcript,
// course_generate, course_content, course_saved, youtube_playlist.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/anatolykoptev/go-kit/env"
	"github.com/anatolykoptev/go-mcpserver"
	stealth "github.com/anatolykoptev/go-stealth"
	"github.com/anatolykoptev/go-stealth/proxypool"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_academy/internal/academyserver"
	"github.com/anatolykoptev/go_academy/internal/engine"
	"github.com/anatolykoptev/go_academy/internal/engine/course"
	"github.com/anatolykoptev/go_academy/internal/engine/sources"
)

var (
	version = "dev"
	mcpPort = env.Str("MCP_PORT", "8893")
)

func main() {
	initEngine()

	slog.Info("starting go_academy",
		slog.String("port", mcpPort),
	)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "go_academy",
		Version: version,
	}, nil)

	n := academyserver.RegisterTools(server, buildDeps())
	slog.Info("tools registered", slog.Int("count", n))

	if err := mcpserver.Run(server, mcpserver.Config{
		Name:         "go_academy",
		Version:      version,
		Port:         mcpPort,
		WriteTimeout: 300 * time.Second,
		Metrics:      engine.FormatMetrics,
	}); err != nil {
		slog.Error("server failed", slog.Any("error", err))
	}
}

func initEngine() {
	c := engine.Config{
		LLMAPIKey:            env.Str("LLM_API_KEY", ""),
		LLMAPIKeyFallbacks:   env.List("LLM_API_KEY_FALLBACKS", ""),
		LLMAPIBase:           env.Str("LLM_API_BASE", "https://api.openai.com/v1"),
		LLMModel:             env.Str("LLM_MODEL", "gpt-4o-mini"),
		LLMTemperature:       env.Float("LLM_TEMPERATURE", engine.DefaultLLMTemperature),
		LLMMaxTokens:         env.Int("LLM_MAX_TOKENS", 4096),
		LLMRequestsPerSec:    env.Float("LLM_RPS", 0),
		LLMBurst:             env.Int("LLM_BURST", 1),
		MaxTranscriptChars:   env.Int("MAX_TRANSCRIPT_CHARS", engine.DefaultMaxTranscriptChars),
		FetchTimeout:         env.Duration("FETCH_TIMEOUT", 15*time.Second),
		YouTubeBaseURL:       env.Str("YOUTUBE_BASE_URL", engine.DefaultYouTubeBaseURL),
		YouTubeAPIKey:        env.Str("YOUTUBE_API_KEY", ""),
		YouTubeAPIBase:       env.Str("YOUTUBE_API_BASE", engine.DefaultYouTubeAPIBase),
		QuestionRetries:      env.Int("QUESTION_RETRIES", 1),
		LoaderMaxTries:       env.Int("LOADER_MAX_TRIES", 3),
		DatabaseURL:          env.Str("DATABASE_URL", ""),
		ContentDBPath:        env.Str("CONTENT_DB_PATH", ""),
		CacheMaxEntries:      env.Int("CACHE_MAX_ENTRIES", 1000),
		CacheCleanupInterval: env.Duration("CACHE_CLEANUP_INTERVAL", 300*time.Second),
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     60 * time.Second,
			},
		},
	}
	var opts []stealth.ClientOption
	opts = append(opts, stealth.WithTimeout(15))

	if apiKey := env.Str("WEBSHARE_API_KEY", ""); apiKey != "" {
		pool, err := proxypool.NewWebshare(apiKey)
		if err != nil {
			slog.Warn("proxy pool init failed, running without proxy", slog.Any("error", err))
		} else {
			opts = append(opts, stealth.WithProxyPool(pool))
			slog.Info("proxy pool initialized", slog.Int("proxies", pool.Len()))
		}
	}

	bc, err := stealth.NewClient(opts...)
	if err != nil {
		slog.Error("stealth client init failed", slog.Any("error", err))
	} else {
		c.BrowserClient = bc
		slog.Info("stealth browser client initialized")
	}

	if c.LLMAPIKey == "" {
		slog.Warn("LLM_API_KEY is not set; generation tools will fail until it is configured")
	}
	c.LLM = engine.NewLLMCompleter(c.LLMAPIBase, c.LLMAPIKey, c.LLMModel,
		c.LLMAPIKeyFallbacks, c.LLMMaxTokens, &http.Client{Timeout: 60 * time.Second})

	engine.Init(c)

	engine.InitCache(engine.CacheOptions{
		RedisURL: env.Str("REDIS_URL", ""),
		TTL:      env.Duration("CACHE_TTL", 6*time.Hour),
		KindTTL: map[string]time.Duration{
			"playlist": env.Duration("PLAYLIST_CACHE_TTL", 30*time.Minute),
		},
		MaxEntries:      c.CacheMaxEntries,
		CleanupInterval: c.CacheCleanupInterval,
	})
}

// buildDeps wires the content store, generator, pipeline and loader.
// Postgres is used when DATABASE_URL is set, SQLite otherwise.
func buildDeps() academyserver.Deps {
	var store course.Store
	if url := engine.Cfg.DatabaseURL; url != "" {
		pg, err := course.ConnectPGStore(context.Background(), url)
		if err != nil {
			slog.Warn("postgres store init failed, falling back to sqlite", slog.Any("error", err))
		} else {
			store = pg
		}
	}
	if store == nil {
		sq, err := course.OpenSQLiteStore()
		if err != nil {
			slog.Warn("sqlite store init failed, content will not be saved", slog.Any("error", err))
		} else {
			store = sq
			slog.Info("sqlite content store ready")
		}
	}

	limiter := course.NewLimiter(engine.Cfg.LLMRequestsPerSec, engine.Cfg.LLMBurst)
	gen := course.NewGenerator(limiter)
	pipeline := course.NewPipeline(gen, store)

	return academyserver.Deps{
		Transcripts: pipeline.Transcripts,
		Generator:   gen,
		Loader:      course.NewLoader(pipeline),
		Store:       store,
		Playlists:   academyserver.PlaylistFunc(sources.FetchPlaylist),
	}
}
