package core

import (
	"errors"
	"time"
)

// Video is one uploaded audio asset. Transcription stays nil until the
// transcription endpoint has processed the stored file.
type Video struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Path          string    `json:"path"`
	Transcription *string   `json:"transcription"`
	CreatedAt     time.Time `json:"createdAt"`
}

// HasTranscription reports whether a transcript has been generated.
func (v *Video) HasTranscription() bool {
	return v.Transcription != nil && *v.Transcription != ""
}

// ErrVideoNotFound is returned by stores when no row matches the given id.
var ErrVideoNotFound = errors.New("video not found")
