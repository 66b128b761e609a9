package academyserver

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_academy/internal/engine"
	"github.com/anatolykoptev/go_academy/internal/engine/sources"
	"github.com/anatolykoptev/go_academy/internal/toolutil"
)

func registerCourseGenerate(server *mcp.Server, d Deps) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "course_generate",
		Description: "Generate study material from a video transcript with the LLM. content_type=summary returns {summary}; content_type=questions returns {questions}: 3 multiple-choice questions with options A-D and the correct answer. Pass transcript segments directly or a video_id to fetch captions.",
	}, generateHandler(d))
}

// The output is a map so that exactly one of summary or questions is present.
func generateHandler(d Deps) func(context.Context, *mcp.CallToolRequest, engine.GenerateInput) (*mcp.CallToolResult, map[string]any, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input engine.GenerateInput) (*mcp.CallToolResult, map[string]any, error) {
		if err := toolutil.Validate(input); err != nil {
			return nil, nil, err
		}
		contentType := toolutil.ParseContentType(input.ContentType)
		if !contentType.Valid() {
			return nil, nil, toolutil.UserError(&engine.ValidationError{Field: "content_type", Err: engine.ErrUnknownContentType})
		}

		segs := input.Transcript
		if len(segs) == 0 {
			videoID := sources.NormalizeVideoID(input.VideoID)
			if videoID == "" {
				return nil, nil, &engine.ValidationError{Field: "video_id", Err: errors.New("is not a YouTube video ID or URL")}
			}
			var err error
			segs, err = d.Transcripts.FetchTranscript(ctx, videoID)
			if err != nil {
				return nil, nil, toolutil.UserError(err)
			}
			if len(segs) == 0 {
				return nil, nil, toolutil.UserError(engine.ErrNoTranscript)
			}
		}

		res, err := d.Generator.GenerateContent(ctx, segs, contentType)
		if err != nil {
			return nil, nil, toolutil.UserError(err)
		}
		if res.Type == engine.ContentSummary {
			return nil, map[string]any{"summary": res.Summary}, nil
		}
		return nil, map[string]any{"questions": res.Questions}, nil
	}
}
