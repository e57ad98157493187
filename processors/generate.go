package processors

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	openai "github.com/sashabaranov/go-openai"

	"uploadAI/config"
)

// TranscriptionMarker is the placeholder users put in prompt templates.
const TranscriptionMarker = "{transcription}"

// ComposePrompt substitutes the stored transcript into the template. Only the
// first occurrence of the marker is replaced.
func ComposePrompt(template, transcription string) string {
	return strings.Replace(template, TranscriptionMarker, transcription, 1)
}

// CompletionStream is a lazy, finite sequence of text chunks. It is consumed
// exactly once and is not restartable; Recv returns io.EOF when drained.
type CompletionStream interface {
	Recv() (string, error)
	Close() error
}

// Completer issues a streaming completion for a composed prompt.
type Completer interface {
	Stream(ctx context.Context, prompt string, temperature float32) (CompletionStream, error)
}

// NewCompleter selects the provider from configuration.
func NewCompleter(cfg *config.Config, cli *openai.Client) Completer {
	if cfg.Completer == "mock" {
		return &MockCompleter{Chunks: []string{"This is a ", "mock completion."}}
	}
	return OpenAICompleter{cli: cli, model: cfg.ChatModel}
}

type OpenAICompleter struct {
	cli   *openai.Client
	model string
}

func (c OpenAICompleter) Stream(ctx context.Context, prompt string, temperature float32) (CompletionStream, error) {
	stream, err := c.cli.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Stream: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create completion stream: %w", err)
	}
	return openAIStream{stream: stream}, nil
}

type openAIStream struct {
	stream *openai.ChatCompletionStream
}

func (s openAIStream) Recv() (string, error) {
	for {
		resp, err := s.stream.Recv()
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			continue
		}
		return resp.Choices[0].Delta.Content, nil
	}
}

func (s openAIStream) Close() error { return s.stream.Close() }

// MockCompleter replays canned chunks and records the last request so tests
// can assert on prompt composition and call counts.
type MockCompleter struct {
	mu              sync.Mutex
	Chunks          []string
	Err             error
	Calls           int
	LastPrompt      string
	LastTemperature float32
}

func (m *MockCompleter) Stream(ctx context.Context, prompt string, temperature float32) (CompletionStream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	m.LastPrompt = prompt
	m.LastTemperature = temperature
	if m.Err != nil {
		return nil, m.Err
	}
	return &sliceStream{chunks: m.Chunks}, nil
}

type sliceStream struct {
	chunks []string
	pos    int
}

func (s *sliceStream) Recv() (string, error) {
	if s.pos >= len(s.chunks) {
		return "", io.EOF
	}
	chunk := s.chunks[s.pos]
	s.pos++
	return chunk, nil
}

func (s *sliceStream) Close() error { return nil }
