package academyserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_academy/internal/engine"
	"github.com/anatolykoptev/go_academy/internal/toolutil"
)

func registerYouTubePlaylist(server *mcp.Server, d Deps) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "youtube_playlist",
		Description: "List the videos of a YouTube playlist in order with title, description, thumbnail, and duration (H:MM:SS). Requires YOUTUBE_API_KEY. Use the returned IDs with course_content to build a course per video.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, playlistHandler(d))
}

func playlistHandler(d Deps) func(context.Context, *mcp.CallToolRequest, engine.PlaylistInput) (*mcp.CallToolResult, *engine.Playlist, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input engine.PlaylistInput) (*mcp.CallToolResult, *engine.Playlist, error) {
		if err := toolutil.Validate(input); err != nil {
			return nil, nil, err
		}
		pl, err := d.Playlists.Fetch(ctx, toolutil.NormalizePlaylistID(input.PlaylistID))
		if err != nil {
			return nil, nil, toolutil.UserError(err)
		}
		return nil, pl, nil
	}
}
