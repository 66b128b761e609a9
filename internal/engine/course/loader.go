package course

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/anatolykoptev/go_academy/internal/engine"
)

// Builder produces course content for a video. *Pipeline implements it.
type Builder interface {
	Build(ctx context.Context, videoID string) (*engine.CourseContent, error)
}

// Loader retries Build with exponential backoff for the video a caller most
// recently requested. A caller that starts a load for another video cancels
// its own load in flight and restarts its attempt count. Callers never touch
// each other's loads. An empty caller key is untracked.
type Loader struct {
	Builder         Builder
	MaxTries        uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
	IdleTTL         time.Duration // idle caller state is dropped after this; <=0 = 30m

	mu      sync.Mutex
	callers map[string]*callerState
}

type callerState struct {
	videoID  string   // last requested video
	current  *loadGen // in-flight load, nil when idle
	attempts int
	lastUsed time.Time
}

// NewLoader returns a Loader with engine.Cfg.LoaderMaxTries and a 1s initial interval.
func NewLoader(b Builder) *Loader {
	tries := engine.Cfg.LoaderMaxTries
	if tries <= 0 {
		tries = 3
	}
	return &Loader{
		Builder:         b,
		MaxTries:        uint(tries),
		InitialInterval: time.Second,
		MaxInterval:     8 * time.Second,
	}
}

// Load builds content for videoID on behalf of caller. Validation failures
// and missing captions are returned at once; other errors are retried up to
// MaxTries.
func (l *Loader) Load(ctx context.Context, caller, videoID string) (*engine.CourseContent, error) {
	ctx, gen := l.begin(ctx, caller, videoID)
	defer l.end(gen)

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = l.InitialInterval
	if l.MaxInterval > 0 {
		bo.MaxInterval = l.MaxInterval
	}
	tries := l.MaxTries
	if tries == 0 {
		tries = 3
	}

	return backoff.Retry(ctx, func() (*engine.CourseContent, error) {
		n := l.countAttempt(gen)
		content, err := l.Builder.Build(ctx, videoID)
		if err == nil {
			return content, nil
		}
		if engine.IsValidation(err) || errors.Is(err, engine.ErrNoTranscript) || ctx.Err() != nil {
			return nil, backoff.Permanent(err)
		}
		slog.Warn("course: load attempt failed",
			slog.String("id", videoID), slog.Int("attempt", n), slog.Any("err", err))
		return nil, err
	},
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(tries),
	)
}

// Attempts reports how many builds caller has tried for its current video.
func (l *Loader) Attempts(caller string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if st, ok := l.callers[caller]; ok {
		return st.attempts
	}
	return 0
}

// loadGen identifies one Load call so a superseded call cannot touch the
// state of its successor.
type loadGen struct {
	state   *callerState
	videoID string
	cancel  context.CancelFunc
}

func (l *Loader) begin(ctx context.Context, caller, videoID string) (context.Context, *loadGen) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	l.pruneIdle(now)
	st := l.stateFor(caller)
	if st.videoID != videoID {
		if st.current != nil {
			st.current.cancel()
			slog.Debug("course: superseded load cancelled",
				slog.String("caller", caller), slog.String("id", st.videoID))
		}
		st.attempts = 0
	}
	ctx, cancel := context.WithCancel(ctx)
	g := &loadGen{state: st, videoID: videoID, cancel: cancel}
	st.videoID = videoID
	st.current = g
	st.lastUsed = now
	return ctx, g
}

// stateFor returns the tracked state of caller. Caller holds mu.
func (l *Loader) stateFor(caller string) *callerState {
	if caller == "" {
		return &callerState{}
	}
	if l.callers == nil {
		l.callers = make(map[string]*callerState)
	}
	st, ok := l.callers[caller]
	if !ok {
		st = &callerState{}
		l.callers[caller] = st
	}
	return st
}

// pruneIdle drops callers with no load in flight that have been quiet for
// IdleTTL. Caller holds mu.
func (l *Loader) pruneIdle(now time.Time) {
	ttl := l.IdleTTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	for key, st := range l.callers {
		if st.current == nil && now.Sub(st.lastUsed) > ttl {
			delete(l.callers, key)
		}
	}
}

func (l *Loader) end(g *loadGen) {
	g.cancel()
	l.mu.Lock()
	defer l.mu.Unlock()
	if g.state.current == g {
		g.state.current = nil
		g.state.lastUsed = time.Now()
	}
}

func (l *Loader) countAttempt(g *loadGen) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if g.state.current != g {
		return 0
	}
	g.state.attempts++
	return g.state.attempts
}
