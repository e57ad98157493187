package processors

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"uploadAI/config"
)

// Transcriber turns a stored audio file into transcript text. The prompt
// carries keyword hints that steer the speech model.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath, prompt string) (string, error)
}

// NewTranscriber selects the provider from configuration.
func NewTranscriber(cfg *config.Config, cli *openai.Client) Transcriber {
	if cfg.Transcriber == "mock" {
		return MockTranscriber{}
	}
	return WhisperTranscriber{cli: cli, model: cfg.TranscriptionModel}
}

type WhisperTranscriber struct {
	cli   *openai.Client
	model string
}

func (w WhisperTranscriber) Transcribe(ctx context.Context, audioPath, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	resp, err := w.cli.CreateTranscription(ctx, openai.AudioRequest{
		Model:    w.model,
		FilePath: audioPath,
		Prompt:   prompt,
	})
	if err != nil {
		return "", fmt.Errorf("create transcription: %w", err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", fmt.Errorf("empty transcription result")
	}
	return text, nil
}

// MockTranscriber produces a deterministic placeholder, keeping the service
// usable offline and in tests.
type MockTranscriber struct{}

func (MockTranscriber) Transcribe(ctx context.Context, audioPath, prompt string) (string, error) {
	return fmt.Sprintf("Placeholder transcript for %s", filepath.Base(audioPath)), nil
}
