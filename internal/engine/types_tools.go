package engine

// --- MCP tool input/output types ---

type TranscriptInput struct {
	VideoID string `json:"video_id" jsonschema:"YouTube video ID or URL (watch, youtu.be, shorts, embed)" validate:"required"`
}

// TranscriptOutput is the structured output for youtube_transcript.
// A video without captions is Available=false with Error set, not a tool error.
type TranscriptOutput struct {
	VideoID      string              `json:"video_id"`
	Available    bool                `json:"available"`
	SegmentCount int                 `json:"segment_count"`
	Segments     []TranscriptSegment `json:"segments"`
	Error        string              `json:"error,omitempty"`
}

type GenerateInput struct {
	VideoID     string              `json:"video_id,omitempty" jsonschema:"YouTube video ID or URL; its captions are fetched when transcript is empty" validate:"required_without=Transcript"`
	ContentType string              `json:"content_type" jsonschema:"What to generate: summary or questions" validate:"required"`
	Transcript  []TranscriptSegment `json:"transcript,omitempty" jsonschema:"Transcript segments to use instead of fetching captions"`
}

type ContentInput struct {
	VideoID string `json:"video_id" jsonschema:"YouTube video ID or URL" validate:"required"`
	Refresh bool   `json:"refresh,omitempty" jsonschema:"Regenerate even if saved content exists"`
}

type SavedInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"Max records to return (default 20, max 100)" validate:"min=0"`
}

// SavedOutput is the structured output for course_saved.
type SavedOutput struct {
	Courses []CourseContent `json:"courses"`
	Total   int             `json:"total"`
}

type PlaylistInput struct {
	PlaylistID string `json:"playlist_id" jsonschema:"YouTube playlist ID or playlist URL" validate:"required"`
}
