package academyserver

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_academy/internal/engine"
	"github.com/anatolykoptev/go_academy/internal/toolutil"
)

func registerCourseSaved(server *mcp.Server, d Deps) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "course_saved",
		Description: "List previously generated course modules, newest first. Returns video_id, summary, questions, and generation time for each.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, savedHandler(d))
}

func savedHandler(d Deps) func(context.Context, *mcp.CallToolRequest, engine.SavedInput) (*mcp.CallToolResult, *engine.SavedOutput, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input engine.SavedInput) (*mcp.CallToolResult, *engine.SavedOutput, error) {
		if err := toolutil.Validate(input); err != nil {
			return nil, nil, err
		}
		if d.Store == nil {
			return nil, nil, errors.New("content store is not configured")
		}
		courses, err := d.Store.List(ctx, input.Limit)
		if err != nil {
			return nil, nil, err
		}
		return nil, &engine.SavedOutput{Courses: courses, Total: len(courses)}, nil
	}
}
