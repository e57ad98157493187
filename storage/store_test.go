package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"uploadAI/config"
	"uploadAI/core"
)

func TestMemoryStoreCreateAndGet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryVideoStore()

	v := &core.Video{
		ID:        "b9f6a0d2-7e1c-4f7a-9c3e-111111111111",
		Name:      "lecture.mp3",
		Path:      "tmp/lecture-abc.mp3",
		CreatedAt: time.Now().UTC(),
	}
	if err := s.Create(ctx, v); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := s.Get(ctx, v.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Name != v.Name || got.Path != v.Path {
		t.Errorf("Get returned %+v, want %+v", got, v)
	}
	if got.Transcription != nil {
		t.Errorf("new video should have nil transcription, got %q", *got.Transcription)
	}

	if err := s.Create(ctx, v); err == nil {
		t.Error("expected duplicate id error on second Create")
	}
}

func TestMemoryStoreGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryVideoStore()

	v := &core.Video{ID: "id-1", Name: "a.mp3", Path: "tmp/a.mp3"}
	if err := s.Create(ctx, v); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := s.SetTranscription(ctx, "id-1", "hello world"); err != nil {
		t.Fatalf("SetTranscription failed: %v", err)
	}

	got, _ := s.Get(ctx, "id-1")
	*got.Transcription = "mutated"

	again, _ := s.Get(ctx, "id-1")
	if *again.Transcription != "hello world" {
		t.Errorf("store state leaked through Get: %q", *again.Transcription)
	}
}

func TestMemoryStoreNotFound(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryVideoStore()

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, core.ErrVideoNotFound) {
		t.Errorf("Get on missing id: want ErrVideoNotFound, got %v", err)
	}
	if err := s.SetTranscription(ctx, "missing", "text"); !errors.Is(err, core.ErrVideoNotFound) {
		t.Errorf("SetTranscription on missing id: want ErrVideoNotFound, got %v", err)
	}
}

func TestOpenSelectsBackend(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, &config.Config{Store: "memory"})
	if err != nil {
		t.Fatalf("Open(memory) failed: %v", err)
	}
	if _, ok := s.(*MemoryVideoStore); !ok {
		t.Errorf("Open(memory) returned %T", s)
	}

	if _, err := Open(ctx, &config.Config{Store: "redis"}); err == nil {
		t.Error("expected error for unknown backend")
	}
}
