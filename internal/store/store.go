// Package store keeps the in-memory, id-indexed cache of uploads that the live channel updates.
package store

import (
	"sync"

	"github.com/desertthunder/cardx/internal/models"
)

// StatusStore holds the currently listed uploads in listing order.
//
// Events only ever mutate the Status of an upload that is already present. Records are inserted by
// [StatusStore.Replace] alone. Safe for concurrent use.
type StatusStore struct {
	mu    sync.RWMutex
	order []int
	byID  map[int]models.Upload
}

// New creates an empty [StatusStore].
func New() *StatusStore {
	return &StatusStore{byID: make(map[int]models.Upload)}
}

// Apply merges ev into the store and reports whether a record matched.
// Events for unknown ids are ignored.
func (s *StatusStore) Apply(ev models.StatusEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[ev.UploadID]
	if !ok {
		return false
	}
	u.Status = ev.Status
	s.byID[ev.UploadID] = u
	return true
}

// Replace swaps the contents for a fresh listing page. Later duplicates of an id are dropped.
func (s *StatusStore) Replace(uploads []models.Upload) {
	order := make([]int, 0, len(uploads))
	byID := make(map[int]models.Upload, len(uploads))
	for _, u := range uploads {
		if _, dup := byID[u.ID]; dup {
			continue
		}
		order = append(order, u.ID)
		byID[u.ID] = u
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.order, s.byID = order, byID
}

// Remove deletes the upload with id, reporting whether it was present.
func (s *StatusStore) Remove(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[id]; !ok {
		return false
	}
	delete(s.byID, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// Clear empties the store.
func (s *StatusStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = nil
	s.byID = make(map[int]models.Upload)
}

// Get returns the upload with id.
func (s *StatusStore) Get(id int) (models.Upload, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[id]
	return u, ok
}

// Len returns the number of uploads held.
func (s *StatusStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// List returns a copy of the uploads in listing order.
func (s *StatusStore) List() []models.Upload {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Upload, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}
