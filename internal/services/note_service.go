package services

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"notetaker/internal/models"
	"notetaker/internal/repositories"
	"notetaker/pkg/rabbitmq"
)

// DefaultRecentLimit is used when a caller asks for recent notes without a
// usable limit.
const DefaultRecentLimit = 5

// NoteService handles business logic for notes. Every operation takes the
// acting user's id and enforces ownership: a note that is missing and a
// note owned by someone else are indistinguishable to the caller.
type NoteService struct {
	noteRepo repositories.NoteRepository
	mqClient *rabbitmq.Client
}

// NewNoteService creates a new NoteService.
func NewNoteService(noteRepo repositories.NoteRepository, mqClient *rabbitmq.Client) *NoteService {
	return &NoteService{
		noteRepo: noteRepo,
		mqClient: mqClient,
	}
}

// Create validates and saves a new note owned by the user.
func (s *NoteService) Create(userID uint, title, content string) (*models.Note, error) {
	title = strings.TrimSpace(title)
	content = strings.TrimSpace(content)
	if title == "" {
		return nil, &ValidationError{Message: "Title is required"}
	}
	if content == "" {
		return nil, &ValidationError{Message: "Content is required"}
	}

	note := &models.Note{
		Title:   title,
		Content: content,
		UserID:  userID,
	}
	if err := s.noteRepo.Create(note); err != nil {
		return nil, fmt.Errorf("failed to create note: %w", err)
	}

	s.publishEvent("note.created", note)
	return note, nil
}

// Get returns the note if it exists and belongs to the user.
func (s *NoteService) Get(noteID, userID uint) (*models.Note, error) {
	note, err := s.noteRepo.GetByID(noteID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrNoteNotFound
		}
		return nil, fmt.Errorf("failed to load note %d: %w", noteID, err)
	}
	if note.UserID != userID {
		return nil, ErrNoteNotFound
	}
	return note, nil
}

// List returns all of the user's notes, most recently updated first.
func (s *NoteService) List(userID uint) ([]models.Note, error) {
	return s.noteRepo.GetByUser(userID)
}

// Search returns the user's notes whose title or content contains term,
// case-insensitively. An empty term lists everything.
func (s *NoteService) Search(userID uint, term string) ([]models.Note, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return s.noteRepo.GetByUser(userID)
	}
	return s.noteRepo.Search(userID, term)
}

// Recent returns the user's most recently updated notes.
func (s *NoteService) Recent(userID uint, limit int) ([]models.Note, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	return s.noteRepo.Recent(userID, limit)
}

// Count returns the number of notes the user owns.
func (s *NoteService) Count(userID uint) (int64, error) {
	return s.noteRepo.CountByUser(userID)
}

// Update changes a note's title and content after the ownership check, and
// refreshes its update timestamp.
func (s *NoteService) Update(noteID, userID uint, title, content string) (*models.Note, error) {
	title = strings.TrimSpace(title)
	content = strings.TrimSpace(content)
	if title == "" {
		return nil, &ValidationError{Message: "Title is required"}
	}
	if content == "" {
		return nil, &ValidationError{Message: "Content is required"}
	}

	note, err := s.Get(noteID, userID)
	if err != nil {
		return nil, err
	}
	note.Title = title
	note.Content = content
	if err := s.noteRepo.Update(note); err != nil {
		// The note can vanish between the ownership check and the write.
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrNoteNotFound
		}
		return nil, fmt.Errorf("failed to update note %d: %w", noteID, err)
	}

	s.publishEvent("note.updated", note)
	return note, nil
}

// Delete removes a note after the ownership check.
func (s *NoteService) Delete(noteID, userID uint) error {
	owned, err := s.noteRepo.IsOwnedBy(noteID, userID)
	if err != nil {
		return fmt.Errorf("failed to check ownership of note %d: %w", noteID, err)
	}
	if !owned {
		return ErrNoteNotFound
	}

	deleted, err := s.noteRepo.Delete(noteID)
	if err != nil {
		return fmt.Errorf("failed to delete note %d: %w", noteID, err)
	}
	if !deleted {
		return ErrNoteNotFound
	}

	s.publishEvent("note.deleted", &models.Note{ID: noteID, UserID: userID})
	return nil
}

// publishEvent emits a note lifecycle event. Publishing is best-effort:
// failures are logged and never fail the mutation that triggered them.
func (s *NoteService) publishEvent(event string, note *models.Note) {
	if s.mqClient == nil {
		return
	}
	payload := map[string]interface{}{
		"noteID": note.ID,
		"userID": note.UserID,
		"title":  note.Title,
	}
	if err := s.mqClient.PublishNoteEvent(event, payload); err != nil {
		log.Printf("Warning: failed to publish %s event for note %d: %v", event, note.ID, err)
	}
}
