package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/mrshanahan/notes-service/internal/apierr"
	"github.com/mrshanahan/notes-service/pkg/notes"
)

// MemoryStore is a process-local Store used by tests and for running
// the API without external infrastructure. The mutex stands in for
// the backend's per-item atomicity; callers get copies, never
// references into the map.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]*notes.Note
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: map[string]*notes.Note{}}
}

func (s *MemoryStore) InsertIfAbsent(ctx context.Context, note *notes.Note) (*notes.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[note.ID]; ok {
		return nil, apierr.NewConflict(fmt.Sprintf("note already exists with id: %s", note.ID))
	}
	stored := *note
	s.items[note.ID] = &stored
	result := stored
	return &result, nil
}

func (s *MemoryStore) UpdateIfPresent(ctx context.Context, id string, patch Patch) (*notes.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.items[id]
	if !ok {
		return nil, apierr.NewNotFound(fmt.Sprintf("no note with id: %s", id))
	}
	existing.Name = patch.Name
	existing.UpdatedAt = patch.UpdatedAt
	result := *existing
	return &result, nil
}

func (s *MemoryStore) DeleteIfPresent(ctx context.Context, id string) (*notes.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.items[id]
	if !ok {
		return nil, apierr.NewNotFound(fmt.Sprintf("no note with id: %s", id))
	}
	delete(s.items, id)
	result := *existing
	return &result, nil
}

func (s *MemoryStore) GetByID(ctx context.Context, id string) (*notes.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	existing, ok := s.items[id]
	if !ok {
		return nil, nil
	}
	result := *existing
	return &result, nil
}

func (s *MemoryStore) ScanAll(ctx context.Context) (*ScanResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]*notes.Note, 0, len(s.items))
	for _, note := range s.items {
		copied := *note
		items = append(items, &copied)
	}
	return &ScanResult{
		Items:        items,
		Count:        len(items),
		ScannedCount: len(items),
	}, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
