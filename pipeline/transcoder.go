package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
)

// Transcoder converts raw video bytes into a compact MP3 by shelling out to
// ffmpeg. The underlying binary is located once per Transcoder; callers own
// the instance and pass it to whoever needs it.
type Transcoder struct {
	initOnce   sync.Once
	initErr    error
	ffmpegPath string

	// The engine is a shared resource; conversions are serialized.
	mu sync.Mutex
}

func NewTranscoder() *Transcoder {
	return &Transcoder{}
}

func (t *Transcoder) init() error {
	t.initOnce.Do(func() {
		path, err := exec.LookPath("ffmpeg")
		if err != nil {
			t.initErr = fmt.Errorf("ffmpeg not found in PATH: %w", err)
			return
		}
		t.ffmpegPath = path
	})
	return t.initErr
}

// transcodeArgs selects the audio stream only and re-encodes it as 20 kbps
// LAME MP3.
func transcodeArgs(input, output string) []string {
	return []string{"-i", input, "-map", "0:a", "-b:a", "20k", "-acodec", "libmp3lame", output}
}

// Convert runs the fixed transcode command over a temp dir and returns the
// MP3 bytes. No partial output is ever returned.
func (t *Transcoder) Convert(ctx context.Context, video []byte) ([]byte, error) {
	if err := t.init(); err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	dir, err := os.MkdirTemp("", "uploadai-transcode-")
	if err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	defer os.RemoveAll(dir)

	input := filepath.Join(dir, "input.mp4")
	output := filepath.Join(dir, "output.mp3")
	if err := os.WriteFile(input, video, 0644); err != nil {
		return nil, fmt.Errorf("write input file: %w", err)
	}

	cmd := exec.CommandContext(ctx, t.ffmpegPath, transcodeArgs(input, output)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg transcode failed: %v: %s", err, lastLine(stderr.String()))
	}

	audio, err := os.ReadFile(output)
	if err != nil {
		return nil, fmt.Errorf("read transcoded output: %w", err)
	}
	return audio, nil
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) == 0 {
		return ""
	}
	return strings.TrimSpace(lines[len(lines)-1])
}
