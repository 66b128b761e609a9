package course

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/anatolykoptev/go_academy/internal/engine"
	"github.com/anatolykoptev/go_academy/internal/engine/sources"
)

// slowGeneration is the threshold above which a completion is logged as slow.
const slowGeneration = 30 * time.Second

// TranscriptSource yields a video's caption segments, nil when it has none.
type TranscriptSource interface {
	FetchTranscript(ctx context.Context, videoID string) ([]engine.TranscriptSegment, error)
}

// Pipeline builds the full course material for one video:
// transcript, then summary, then quiz.
type Pipeline struct {
	Transcripts     TranscriptSource
	Generator       *Generator
	Store           Store // optional; nil = nothing persisted
	QuestionRetries int   // extra quiz requests when fewer than QuestionsPerQuiz parse
}

// NewPipeline wires the default transcript chain and engine.Cfg settings.
func NewPipeline(gen *Generator, store Store) *Pipeline {
	return &Pipeline{
		Transcripts:     sources.DefaultTranscriptChain(),
		Generator:       gen,
		Store:           store,
		QuestionRetries: engine.Cfg.QuestionRetries,
	}
}

// Build fetches the transcript and generates summary and questions.
// It returns an error wrapping engine.ErrNoTranscript when the video has no captions.
func (p *Pipeline) Build(ctx context.Context, videoID string) (*engine.CourseContent, error) {
	engine.IncrContentBuild()
	content, err := p.build(ctx, videoID)
	if err != nil {
		engine.IncrContentBuildError()
		return nil, err
	}
	return content, nil
}

func (p *Pipeline) build(ctx context.Context, videoID string) (*engine.CourseContent, error) {
	videoID = sources.NormalizeVideoID(videoID)
	if videoID == "" {
		return nil, &engine.ValidationError{Field: "video_id", Err: errors.New("is required")}
	}

	segs, err := p.Transcripts.FetchTranscript(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("course: transcript %s: %w", videoID, err)
	}
	if len(segs) == 0 {
		return nil, fmt.Errorf("course: %s: %w", videoID, engine.ErrNoTranscript)
	}

	var summary string
	err = engine.TrackOperation(ctx, "course_summary", slowGeneration, func(ctx context.Context) error {
		res, err := p.Generator.GenerateContent(ctx, segs, engine.ContentSummary)
		if err != nil {
			return err
		}
		summary = res.Summary
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("course: summary: %w", err)
	}

	questions, err := p.questions(ctx, videoID, segs)
	if err != nil {
		return nil, fmt.Errorf("course: questions: %w", err)
	}

	content := &engine.CourseContent{
		VideoID:      videoID,
		Summary:      summary,
		Questions:    questions,
		SegmentCount: len(segs),
		Partial:      len(questions) < engine.QuestionsPerQuiz,
		GeneratedAt:  time.Now().UTC().Format(time.RFC3339),
	}
	slog.Info("course: content built",
		slog.String("id", videoID),
		slog.Int("segments", len(segs)),
		slog.Int("questions", len(questions)),
		slog.Bool("partial", content.Partial))

	if p.Store != nil {
		if err := p.Store.Save(ctx, content); err != nil {
			slog.Warn("course: save failed", slog.String("id", videoID), slog.Any("err", err))
		}
	}
	return content, nil
}

// questions asks for a quiz, re-asking up to QuestionRetries times while fewer
// than QuestionsPerQuiz questions survive parsing. The largest result wins.
// A failed retry keeps the earlier result.
func (p *Pipeline) questions(ctx context.Context, videoID string, segs []engine.TranscriptSegment) ([]engine.GeneratedQuestion, error) {
	retries := max(p.QuestionRetries, 0)
	var (
		best []engine.GeneratedQuestion
		have bool
	)
	for attempt := 0; attempt <= retries; attempt++ {
		var res *engine.ContentResult
		err := engine.TrackOperation(ctx, "course_questions", slowGeneration, func(ctx context.Context) error {
			var err error
			res, err = p.Generator.GenerateContent(ctx, segs, engine.ContentQuestions)
			return err
		})
		if err != nil {
			if !have {
				return nil, err
			}
			slog.Warn("course: quiz retry failed, keeping earlier result",
				slog.String("id", videoID), slog.Int("attempt", attempt+1), slog.Any("err", err))
			break
		}
		if !have || len(res.Questions) > len(best) {
			best = res.Questions
		}
		have = true
		if len(best) >= engine.QuestionsPerQuiz {
			break
		}
		if attempt < retries {
			slog.Info("course: short quiz, regenerating",
				slog.String("id", videoID), slog.Int("questions", len(best)))
		}
	}
	if best == nil {
		best = []engine.GeneratedQuestion{}
	}
	return best, nil
}
