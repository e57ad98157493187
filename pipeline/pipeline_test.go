package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

type stubConverter struct {
	out []byte
	err error
}

func (c stubConverter) Convert(ctx context.Context, video []byte) ([]byte, error) {
	return c.out, c.err
}

func newBackend(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /videos", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"video": map[string]any{"id": "c56a4180-65aa-42ec-a945-5fd21dec0538"},
		})
	})
	mux.HandleFunc("POST /videos/{id}/transcription", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"transcription": "ok"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func writeTempVideo(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "talk.mp4")
	if err := os.WriteFile(path, []byte("fake video bytes"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSubmitStageSequence(t *testing.T) {
	backend := newBackend(t)

	p := New(backend.URL, stubConverter{out: []byte("mp3 bytes")})
	var stages []Stage
	p.OnStage = func(s Stage) { stages = append(stages, s) }
	var uploadedID string
	p.OnUploaded = func(id string) { uploadedID = id }

	if err := p.Submit(context.Background(), writeTempVideo(t), "keywords"); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	want := []Stage{StageWaiting, StageConverting, StageUploading, StageGenerating, StageSuccess}
	if len(stages) != len(want) {
		t.Fatalf("observed stages %v, want %v", stages, want)
	}
	for i := range want {
		if stages[i] != want[i] {
			t.Fatalf("observed stages %v, want %v", stages, want)
		}
	}
	if uploadedID != "c56a4180-65aa-42ec-a945-5fd21dec0538" {
		t.Errorf("OnUploaded got %q", uploadedID)
	}
	if p.Stage() != StageSuccess {
		t.Errorf("final stage = %s", p.Stage())
	}
}

func TestSubmitNoFileIsSilentNoop(t *testing.T) {
	p := New("http://localhost:0", stubConverter{})
	var stages []Stage
	p.OnStage = func(s Stage) { stages = append(stages, s) }

	if err := p.Submit(context.Background(), "", "prompt"); err != nil {
		t.Fatalf("Submit with no file should be a no-op, got %v", err)
	}
	if len(stages) != 0 {
		t.Errorf("no stage change expected, observed %v", stages)
	}
	if p.Stage() != StageWaiting {
		t.Errorf("stage = %s, want waiting", p.Stage())
	}
}

func TestSubmitFreezesOnConvertFailure(t *testing.T) {
	p := New("http://localhost:0", stubConverter{err: errors.New("codec exploded")})
	var stages []Stage
	p.OnStage = func(s Stage) { stages = append(stages, s) }

	err := p.Submit(context.Background(), writeTempVideo(t), "")
	if err == nil {
		t.Fatal("expected error from failing converter")
	}
	if p.Stage() != StageConverting {
		t.Errorf("stage should freeze at converting, got %s", p.Stage())
	}
	if len(stages) != 2 || stages[1] != StageConverting {
		t.Errorf("observed stages %v", stages)
	}
}

func TestSubmitFreezesOnUploadFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "Invalid input type, please upload a MP3."})
	}))
	defer srv.Close()

	p := New(srv.URL, stubConverter{out: []byte("audio")})
	err := p.Submit(context.Background(), writeTempVideo(t), "")
	if err == nil {
		t.Fatal("expected upload error")
	}
	if p.Stage() != StageUploading {
		t.Errorf("stage should freeze at uploading, got %s", p.Stage())
	}
}

func TestAdvanceNeverRegresses(t *testing.T) {
	p := &Pipeline{stage: StageGenerating}
	p.advance(StageConverting)
	if p.Stage() != StageGenerating {
		t.Errorf("advance regressed to %s", p.Stage())
	}
	p.advance(StageGenerating)
	if p.Stage() != StageGenerating {
		t.Errorf("advance repeated stage, now %s", p.Stage())
	}
	p.advance(StageSuccess)
	if p.Stage() != StageSuccess {
		t.Errorf("advance to success failed, stage %s", p.Stage())
	}
}

func TestGenerateCompletionStreamsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		fmt.Fprint(w, "a summary of the talk")
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	var out bytes.Buffer
	err := c.GenerateCompletion(context.Background(), "c56a4180-65aa-42ec-a945-5fd21dec0538",
		"Summarize: {transcription}", 0.5, &out)
	if err != nil {
		t.Fatalf("GenerateCompletion failed: %v", err)
	}
	if out.String() != "a summary of the talk" {
		t.Errorf("streamed %q", out.String())
	}
}
