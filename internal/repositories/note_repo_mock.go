package repositories

import (
	"sort"
	"strings"
	"sync"
	"time"

	"notetaker/internal/models"
)

// MockNoteRepository is an in-memory implementation of NoteRepository.
type MockNoteRepository struct {
	notes  map[uint]models.Note
	nextID uint
	mu     sync.RWMutex
}

// NewMockNoteRepository creates a new instance of MockNoteRepository.
func NewMockNoteRepository() *MockNoteRepository {
	return &MockNoteRepository{
		notes:  make(map[uint]models.Note),
		nextID: 1,
	}
}

// Create adds a new note.
func (r *MockNoteRepository) Create(note *models.Note) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if note.ID == 0 {
		note.ID = r.nextID
		r.nextID++
	}
	if note.CreatedAt.IsZero() {
		now := time.Now().UTC()
		note.CreatedAt = now
		note.UpdatedAt = now
	}
	r.notes[note.ID] = *note
	return nil
}

// Update persists changed title/content and refreshes the update timestamp.
func (r *MockNoteRepository) Update(note *models.Note) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.notes[note.ID]
	if !ok {
		return ErrNotFound
	}
	stored.Title = note.Title
	stored.Content = note.Content
	stored.UpdatedAt = time.Now().UTC()
	r.notes[note.ID] = stored
	note.UpdatedAt = stored.UpdatedAt
	return nil
}

// GetByID returns a note by its ID.
func (r *MockNoteRepository) GetByID(id uint) (*models.Note, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	note, ok := r.notes[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &note, nil
}

// GetByUser returns all notes owned by a user, most recently updated first.
func (r *MockNoteRepository) GetByUser(userID uint) ([]models.Note, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.collect(userID, func(models.Note) bool { return true }), nil
}

// Search returns notes owned by a user matching term in title or content.
func (r *MockNoteRepository) Search(userID uint, term string) ([]models.Note, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	needle := strings.ToLower(term)
	return r.collect(userID, func(n models.Note) bool {
		return strings.Contains(strings.ToLower(n.Title), needle) ||
			strings.Contains(strings.ToLower(n.Content), needle)
	}), nil
}

// CountByUser returns the number of notes owned by a user.
func (r *MockNoteRepository) CountByUser(userID uint) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var count int64
	for _, n := range r.notes {
		if n.UserID == userID {
			count++
		}
	}
	return count, nil
}

// Recent returns the top-limit notes owned by a user by update time.
func (r *MockNoteRepository) Recent(userID uint, limit int) ([]models.Note, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	notes := r.collect(userID, func(models.Note) bool { return true })
	if limit < len(notes) {
		notes = notes[:limit]
	}
	return notes, nil
}

// Delete removes a note by its ID and reports whether it existed.
func (r *MockNoteRepository) Delete(id uint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.notes[id]; !ok {
		return false, nil
	}
	delete(r.notes, id)
	return true, nil
}

// IsOwnedBy reports whether the note exists and belongs to the user.
func (r *MockNoteRepository) IsOwnedBy(noteID, userID uint) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	note, ok := r.notes[noteID]
	return ok && note.UserID == userID, nil
}

// collect gathers the user's notes matching keep, ordered by updatedAt
// descending. Callers must hold the lock.
func (r *MockNoteRepository) collect(userID uint, keep func(models.Note) bool) []models.Note {
	notes := make([]models.Note, 0)
	for _, n := range r.notes {
		if n.UserID == userID && keep(n) {
			notes = append(notes, n)
		}
	}
	sort.Slice(notes, func(i, j int) bool {
		return notes[i].UpdatedAt.After(notes[j].UpdatedAt)
	})
	return notes
}
