package toolutil

import (
	"errors"
	"testing"

	"github.com/anatolykoptev/go_academy/internal/engine"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		input any
		field string
		msg   string
	}{
		{"transcript ok", engine.TranscriptInput{VideoID: "vid123"}, "", ""},
		{"transcript missing id", engine.TranscriptInput{}, "video_id", "invalid video_id: is required"},
		{"generate with id", engine.GenerateInput{VideoID: "vid123", ContentType: "summary"}, "", ""},
		{"generate with segments", engine.GenerateInput{ContentType: "questions", Transcript: []engine.TranscriptSegment{{Text: "x"}}}, "", ""},
		{"generate nothing", engine.GenerateInput{ContentType: "summary"}, "video_id", "invalid video_id: is required when transcript is empty"},
		{"generate no type", engine.GenerateInput{VideoID: "vid123"}, "content_type", "invalid content_type: is required"},
		{"content missing id", engine.ContentInput{Refresh: true}, "video_id", "invalid video_id: is required"},
		{"saved default", engine.SavedInput{}, "", ""},
		{"saved negative", engine.SavedInput{Limit: -1}, "limit", "invalid limit: must be at least 0"},
		{"playlist missing id", engine.PlaylistInput{}, "playlist_id", "invalid playlist_id: is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.input)
			if tt.field == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			var ve *engine.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("Validate() = %v, want *ValidationError", err)
			}
			if ve.Field != tt.field {
				t.Errorf("Field = %q, want %q", ve.Field, tt.field)
			}
			if err.Error() != tt.msg {
				t.Errorf("Error() = %q, want %q", err.Error(), tt.msg)
			}
		})
	}
}

func TestValidateNonStruct(t *testing.T) {
	err := Validate("video")
	if err == nil {
		t.Fatal("Validate(string) = nil, want error")
	}
	if engine.IsValidation(err) {
		t.Errorf("non-struct input is a programming error, got %v", err)
	}
}
