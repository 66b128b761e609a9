package academyserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_academy/internal/engine"
	"github.com/anatolykoptev/go_academy/internal/engine/sources"
	"github.com/anatolykoptev/go_academy/internal/toolutil"
)

func registerYouTubeTranscript(server *mcp.Server, d Deps) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "youtube_transcript",
		Description: "Fetch the caption transcript of a YouTube video as timed segments (text, start and duration in seconds). Tries the timedtext API first, then the watch page caption tracks. A video without captions returns available=false.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, transcriptHandler(d))
}

func transcriptHandler(d Deps) func(context.Context, *mcp.CallToolRequest, engine.TranscriptInput) (*mcp.CallToolResult, engine.TranscriptOutput, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input engine.TranscriptInput) (*mcp.CallToolResult, engine.TranscriptOutput, error) {
		if err := toolutil.Validate(input); err != nil {
			return nil, engine.TranscriptOutput{}, err
		}
		videoID := sources.NormalizeVideoID(input.VideoID)
		out := engine.TranscriptOutput{VideoID: videoID, Segments: []engine.TranscriptSegment{}}

		segs, err := d.Transcripts.FetchTranscript(ctx, videoID)
		if err != nil {
			return nil, out, toolutil.UserError(err)
		}
		if len(segs) == 0 {
			out.Error = "No transcript available"
			return nil, out, nil
		}
		out.Available = true
		out.Segments = segs
		out.SegmentCount = len(segs)
		return nil, out, nil
	}
}
