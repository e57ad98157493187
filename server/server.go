package server

import (
	"encoding/json"
	"net/http"
	"os"

	"uploadAI/config"
	"uploadAI/logger"
	"uploadAI/processors"
	"uploadAI/storage"
)

type Server struct {
	cfg         *config.Config
	store       storage.VideoStore
	transcriber processors.Transcriber
	completer   processors.Completer
	log         *logger.Logger
}

func New(cfg *config.Config, store storage.VideoStore, transcriber processors.Transcriber, completer processors.Completer, log *logger.Logger) *Server {
	return &Server{
		cfg:         cfg,
		store:       store,
		transcriber: transcriber,
		completer:   completer,
		log:         log,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /videos", s.uploadVideo)
	mux.HandleFunc("POST /videos/{id}/transcription", s.createTranscription)
	mux.HandleFunc("POST /ai/generate", s.generateCompletion)
	mux.HandleFunc("GET /health", s.health)
	return mux
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		os.Stderr.WriteString("write json error: " + err.Error() + "\n")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
