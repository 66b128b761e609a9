package academyserver

import (
	"context"
	"errors"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_academy/internal/engine"
	"github.com/anatolykoptev/go_academy/internal/engine/sources"
	"github.com/anatolykoptev/go_academy/internal/toolutil"
)

func registerCourseContent(server *mcp.Server, d Deps) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "course_content",
		Description: "Build the full course module for a YouTube video: caption transcript, study summary, and a 3-question multiple-choice quiz. Saved content is returned when present unless refresh=true. partial=true means fewer than 3 questions could be generated.",
	}, contentHandler(d))
}

func contentHandler(d Deps) func(context.Context, *mcp.CallToolRequest, engine.ContentInput) (*mcp.CallToolResult, *engine.CourseContent, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input engine.ContentInput) (*mcp.CallToolResult, *engine.CourseContent, error) {
		if err := toolutil.Validate(input); err != nil {
			return nil, nil, err
		}
		videoID := sources.NormalizeVideoID(input.VideoID)

		if d.Store != nil && !input.Refresh {
			saved, err := d.Store.Load(ctx, videoID)
			if err == nil {
				return nil, saved, nil
			}
			if !errors.Is(err, engine.ErrNotFound) {
				slog.Warn("course: store lookup failed, regenerating",
					slog.String("id", videoID), slog.Any("err", err))
			}
		}

		content, err := d.Loader.Load(ctx, callerID(req), videoID)
		if err != nil {
			return nil, nil, toolutil.UserError(err)
		}
		return nil, content, nil
	}
}

// callerID keys loader state by MCP session. Stateless requests have none.
func callerID(req *mcp.CallToolRequest) string {
	if req == nil || req.Session == nil {
		return ""
	}
	return req.Session.ID()
}
