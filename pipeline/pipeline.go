package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Stage is one discrete phase of a submission. A stage only ever moves
// forward; it is reset solely by starting a new submission.
type Stage string

const (
	StageWaiting    Stage = "waiting"
	StageConverting Stage = "converting"
	StageUploading  Stage = "uploading"
	StageGenerating Stage = "generating"
	StageSuccess    Stage = "success"
)

var stageOrder = map[Stage]int{
	StageWaiting:    0,
	StageConverting: 1,
	StageUploading:  2,
	StageGenerating: 3,
	StageSuccess:    4,
}

// Converter turns video bytes into MP3 bytes. Transcoder is the real
// implementation.
type Converter interface {
	Convert(ctx context.Context, video []byte) ([]byte, error)
}

// Pipeline drives one submission through its stages in strict order:
// waiting, converting, uploading, generating, success. On failure the stage
// freezes where it was and the error is returned.
type Pipeline struct {
	Client    *Client
	Converter Converter

	// OnStage observes every stage transition as it happens.
	OnStage func(Stage)
	// OnUploaded receives the video id once a submission succeeds.
	OnUploaded func(videoID string)

	stage Stage
}

func New(baseURL string, converter Converter) *Pipeline {
	return &Pipeline{
		Client:    NewClient(baseURL),
		Converter: converter,
		stage:     StageWaiting,
	}
}

// Stage returns the stage of the current (or last) submission.
func (p *Pipeline) Stage() Stage {
	return p.stage
}

func (p *Pipeline) reset() {
	p.stage = StageWaiting
	if p.OnStage != nil {
		p.OnStage(p.stage)
	}
}

// advance moves forward only; a transition that would regress or repeat a
// stage is ignored.
func (p *Pipeline) advance(next Stage) {
	if stageOrder[next] <= stageOrder[p.stage] {
		return
	}
	p.stage = next
	if p.OnStage != nil {
		p.OnStage(next)
	}
}

// Submit runs the full flow for one selected video file. An empty path means
// nothing was selected: the call is a silent no-op.
func (p *Pipeline) Submit(ctx context.Context, videoPath, prompt string) error {
	if videoPath == "" {
		return nil
	}

	p.reset()

	video, err := os.ReadFile(videoPath)
	if err != nil {
		return fmt.Errorf("read video file: %w", err)
	}

	p.advance(StageConverting)
	audio, err := p.Converter.Convert(ctx, video)
	if err != nil {
		return fmt.Errorf("convert video to audio: %w", err)
	}

	p.advance(StageUploading)
	videoID, err := p.Client.UploadAudio(ctx, audioFileName(videoPath), audio)
	if err != nil {
		return fmt.Errorf("upload audio: %w", err)
	}

	p.advance(StageGenerating)
	if err := p.Client.RequestTranscription(ctx, videoID, prompt); err != nil {
		return fmt.Errorf("request transcription: %w", err)
	}

	p.advance(StageSuccess)
	if p.OnUploaded != nil {
		p.OnUploaded(videoID)
	}
	return nil
}

// audioFileName derives the uploaded file name from the source video.
func audioFileName(videoPath string) string {
	base := filepath.Base(videoPath)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".mp3"
}
