package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"uploadAI/core"
	"uploadAI/processors"
)

// uploadVideo receives one streamed .mp3 part, writes it to the upload dir
// under a collision-resistant name and records the video row.
func (s *Server) uploadVideo(w http.ResponseWriter, r *http.Request) {
	reqLog := s.log.WithRequest(r).WithField("handler", "upload")

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	part, err := filePart(r)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			reqLog.WithField("limit", maxErr.Limit).Warn("upload exceeds size limit")
			writeError(w, http.StatusRequestEntityTooLarge, "File exceeds the upload size limit")
			return
		}
		reqLog.WithError(err).Warn("missing file input")
		writeError(w, http.StatusBadRequest, "Missing file input")
		return
	}

	fileName := part.FileName()
	extension := filepath.Ext(fileName)
	if extension != ".mp3" {
		reqLog.WithField("file", fileName).Warn("rejected upload, not an mp3")
		writeError(w, http.StatusBadRequest, "Invalid input type, please upload a MP3.")
		return
	}

	baseName := strings.TrimSuffix(fileName, extension)
	storedName := fmt.Sprintf("%s-%s%s", baseName, uuid.New().String(), extension)
	destination := filepath.Join(s.cfg.UploadDir, storedName)

	if err := streamToFile(part, destination); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			reqLog.WithField("limit", maxErr.Limit).Warn("upload exceeds size limit")
			writeError(w, http.StatusRequestEntityTooLarge, "File exceeds the upload size limit")
			return
		}
		reqLog.WithError(err).Error("failed to store upload")
		writeError(w, http.StatusInternalServerError, "Failed to store uploaded file")
		return
	}

	video := &core.Video{
		ID:        uuid.New().String(),
		Name:      fileName,
		Path:      destination,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.Create(r.Context(), video); err != nil {
		os.Remove(destination)
		reqLog.WithError(err).Error("failed to create video record")
		writeError(w, http.StatusInternalServerError, "Failed to record uploaded file")
		return
	}

	reqLog.WithField("video_id", video.ID).WithField("path", destination).Info("video uploaded")
	writeJSON(w, http.StatusOK, map[string]*core.Video{"video": video})
}

// filePart walks the multipart body until it finds the "file" field.
func filePart(r *http.Request) (*multipart.Part, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, err
	}
	for {
		part, err := mr.NextPart()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, errors.New("no file part in request")
			}
			return nil, err
		}
		if part.FormName() == "file" && part.FileName() != "" {
			return part, nil
		}
	}
}

// streamToFile copies the part to disk without buffering the whole upload,
// removing the partial file on failure.
func streamToFile(part *multipart.Part, destination string) error {
	out, err := os.Create(destination)
	if err != nil {
		return fmt.Errorf("create %s: %w", destination, err)
	}
	if _, err := io.Copy(out, part); err != nil {
		out.Close()
		os.Remove(destination)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(destination)
		return err
	}
	return nil
}

type transcriptionRequest struct {
	Prompt string `json:"prompt"`
}

// createTranscription runs speech-to-text over a stored upload and persists
// the resulting transcript on the video row.
func (s *Server) createTranscription(w http.ResponseWriter, r *http.Request) {
	reqLog := s.log.WithRequest(r).WithField("handler", "transcription")

	id := r.PathValue("id")
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusBadRequest, "videoId must be a valid UUID")
		return
	}

	var req transcriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	video, err := s.store.Get(r.Context(), id)
	if errors.Is(err, core.ErrVideoNotFound) {
		writeError(w, http.StatusNotFound, "Video not found")
		return
	}
	if err != nil {
		reqLog.WithError(err).Error("failed to load video")
		writeError(w, http.StatusInternalServerError, "Failed to load video")
		return
	}

	reqLog = reqLog.WithField("video_id", id)
	start := time.Now()
	text, err := s.transcriber.Transcribe(r.Context(), video.Path, req.Prompt)
	if err != nil {
		reqLog.WithError(err).Error("transcription failed")
		writeError(w, http.StatusInternalServerError, "Transcription failed")
		return
	}
	reqLog.WithField("duration_ms", time.Since(start).Milliseconds()).Info("transcription completed")

	if err := s.store.SetTranscription(r.Context(), id, text); err != nil {
		reqLog.WithError(err).Error("failed to persist transcription")
		writeError(w, http.StatusInternalServerError, "Failed to persist transcription")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"transcription": text})
}

type generateRequest struct {
	VideoID     string   `json:"videoId"`
	Prompt      string   `json:"prompt"`
	Temperature *float32 `json:"temperature"`
}

// generateCompletion composes the prompt from the stored transcript and relays
// the model's token stream to the caller as it arrives.
func (s *Server) generateCompletion(w http.ResponseWriter, r *http.Request) {
	reqLog := s.log.WithRequest(r).WithField("handler", "generate")

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if _, err := uuid.Parse(req.VideoID); err != nil {
		writeError(w, http.StatusBadRequest, "videoId must be a valid UUID")
		return
	}
	if req.Prompt == "" {
		writeError(w, http.StatusBadRequest, "prompt is required")
		return
	}
	temperature := float32(0.5)
	if req.Temperature != nil {
		temperature = *req.Temperature
		if temperature < 0 || temperature > 1 {
			writeError(w, http.StatusBadRequest, "temperature must be between 0 and 1")
			return
		}
	}

	video, err := s.store.Get(r.Context(), req.VideoID)
	if errors.Is(err, core.ErrVideoNotFound) {
		writeError(w, http.StatusNotFound, "Video not found")
		return
	}
	if err != nil {
		reqLog.WithError(err).Error("failed to load video")
		writeError(w, http.StatusInternalServerError, "Failed to load video")
		return
	}
	if !video.HasTranscription() {
		writeError(w, http.StatusBadRequest, "Video transcription was not generated yet")
		return
	}

	prompt := processors.ComposePrompt(req.Prompt, *video.Transcription)

	stream, err := s.completer.Stream(r.Context(), prompt, temperature)
	if err != nil {
		reqLog.WithError(err).Error("failed to start completion stream")
		writeError(w, http.StatusInternalServerError, "Failed to generate completion")
		return
	}
	defer stream.Close()

	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	flusher, _ := w.(http.Flusher)
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			// Headers are already out; the truncated body is all we can signal.
			reqLog.WithError(err).Error("completion stream failed mid-response")
			return
		}
		if chunk == "" {
			continue
		}
		if _, err := io.WriteString(w, chunk); err != nil {
			reqLog.WithError(err).Warn("client went away during stream")
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}
