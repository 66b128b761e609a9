package academyserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_academy/internal/engine"
	"github.com/anatolykoptev/go_academy/internal/engine/course"
)

// PlaylistSource lists a playlist's videos. *sources.PlaylistClient implements it.
type PlaylistSource interface {
	Fetch(ctx context.Context, playlistID string) (*engine.Playlist, error)
}

// PlaylistFunc adapts a function such as sources.FetchPlaylist to PlaylistSource.
type PlaylistFunc func(ctx context.Context, playlistID string) (*engine.Playlist, error)

func (f PlaylistFunc) Fetch(ctx context.Context, playlistID string) (*engine.Playlist, error) {
	return f(ctx, playlistID)
}

// Deps are the services behind the tools. Store may be nil: course_saved then
// reports an error and course_content always generates.
type Deps struct {
	Transcripts course.TranscriptSource
	Generator   *course.Generator
	Loader      *course.Loader
	Store       course.Store
	Playlists   PlaylistSource
}

// RegisterTools registers all course tools on the given MCP server and returns
// how many were added: youtube_transcript, course_generate, course_content,
// course_saved, youtube_playlist.
func RegisterTools(server *mcp.Server, d Deps) int {
	registerYouTubeTranscript(server, d)
	registerCourseGenerate(server, d)
	registerCourseContent(server, d)
	registerCourseSaved(server, d)
	registerYouTubePlaylist(server, d)
	return 5
}
