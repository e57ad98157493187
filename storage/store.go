package storage

import (
	"context"
	"fmt"
	"sync"

	"uploadAI/config"
	"uploadAI/core"
)

// VideoStore abstracts the persistence backend.
type VideoStore interface {
	Create(ctx context.Context, v *core.Video) error
	Get(ctx context.Context, id string) (*core.Video, error)
	SetTranscription(ctx context.Context, id, text string) error
	Close(ctx context.Context) error
}

// Open picks the backend from configuration. Memory is the default so the
// service runs without a database for local demos and tests.
func Open(ctx context.Context, cfg *config.Config) (VideoStore, error) {
	switch cfg.Store {
	case "", "memory":
		return NewMemoryVideoStore(), nil
	case "postgres":
		return NewPgVideoStore(ctx, cfg.PostgresURL)
	default:
		return nil, fmt.Errorf("unknown store backend: %s", cfg.Store)
	}
}

// ---------------- Memory implementation (kept for fallback) ----------------

type MemoryVideoStore struct {
	mu     sync.RWMutex
	videos map[string]core.Video
}

func NewMemoryVideoStore() *MemoryVideoStore {
	return &MemoryVideoStore{videos: make(map[string]core.Video)}
}

func (s *MemoryVideoStore) Create(ctx context.Context, v *core.Video) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.videos[v.ID]; ok {
		return fmt.Errorf("duplicate video id: %s", v.ID)
	}
	s.videos[v.ID] = *v
	return nil
}

func (s *MemoryVideoStore) Get(ctx context.Context, id string) (*core.Video, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.videos[id]
	if !ok {
		return nil, core.ErrVideoNotFound
	}
	out := v
	if v.Transcription != nil {
		t := *v.Transcription
		out.Transcription = &t
	}
	return &out, nil
}

func (s *MemoryVideoStore) SetTranscription(ctx context.Context, id, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.videos[id]
	if !ok {
		return core.ErrVideoNotFound
	}
	v.Transcription = &text
	s.videos[id] = v
	return nil
}

func (s *MemoryVideoStore) Close(ctx context.Context) error { return nil }
