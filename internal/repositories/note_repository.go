package repositories

import "notetaker/internal/models"

// NoteRepository defines the interface for note data access.
type NoteRepository interface {
	Create(note *models.Note) error
	Update(note *models.Note) error
	GetByID(id uint) (*models.Note, error)
	GetByUser(userID uint) ([]models.Note, error)
	Search(userID uint, term string) ([]models.Note, error)
	CountByUser(userID uint) (int64, error)
	Recent(userID uint, limit int) ([]models.Note, error)
	Delete(id uint) (bool, error)
	IsOwnedBy(noteID, userID uint) (bool, error)
}
