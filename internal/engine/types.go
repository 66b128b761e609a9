package engine

// --- Transcript types ---

// TranscriptSegment is one spoken span of a video.
type TranscriptSegment struct {
	Text     string  `json:"text"`
	Start    float64 `json:"start"`    // seconds from video start
	Duration float64 `json:"duration"` // seconds
}

// --- Generated content types ---

// ContentType selects what the generator asks the model for.
type ContentType string

const (
	ContentSummary   ContentType = "summary"
	ContentQuestions ContentType = "questions"
)

// Valid reports whether t is one of the recognized content types.
func (t ContentType) Valid() bool {
	return t == ContentSummary || t == ContentQuestions
}

// QuestionsPerQuiz is how many questions the generator requests.
const QuestionsPerQuiz = 3

type QuestionOption struct {
	ID   string `json:"id"` // A-D, uppercase
	Text string `json:"text"`
}

type GeneratedQuestion struct {
	Question      string           `json:"question"`
	Options       []QuestionOption `json:"options"`
	CorrectAnswer string           `json:"correctAnswer"`
}

// ContentResult is the output for one generate request. Only the field
// matching Type is populated.
type ContentResult struct {
	Type      ContentType
	Summary   string
	Questions []GeneratedQuestion
}

// CourseContent is the full generated material for one video.
type CourseContent struct {
	VideoID      string              `json:"video_id"`
	Summary      string              `json:"summary"`
	Questions    []GeneratedQuestion `json:"questions"`
	SegmentCount int                 `json:"segment_count"`
	Partial      bool                `json:"partial,omitempty"` // fewer than QuestionsPerQuiz questions survived parsing
	GeneratedAt  string              `json:"generated_at"` // RFC 3339, UTC
}

// --- Playlist types ---

type PlaylistVideo struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Thumbnail   string `json:"thumbnail,omitempty"`
	Duration    string `json:"duration"` // H:MM:SS or M:SS
	Position    int    `json:"position"`
}

type Playlist struct {
	ID          string          `json:"id"`
	Videos      []PlaylistVideo `json:"videos"`
	TotalVideos int             `json:"total_videos"`
}
