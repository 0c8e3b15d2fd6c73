package repositories

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"notetaker/internal/models"

	"gorm.io/gorm"
)

// GORMNoteRepository is a GORM implementation of NoteRepository.
type GORMNoteRepository struct {
	db *gorm.DB
}

// NewGORMNoteRepository creates a new instance of GORMNoteRepository.
func NewGORMNoteRepository(db *gorm.DB) *GORMNoteRepository {
	return &GORMNoteRepository{
		db: db,
	}
}

// Create inserts a new note. Creation and update timestamps are assigned
// together when absent, so createdAt == updatedAt on a fresh note.
func (r *GORMNoteRepository) Create(note *models.Note) error {
	if note.CreatedAt.IsZero() {
		now := time.Now().UTC()
		note.CreatedAt = now
		note.UpdatedAt = now
	}
	err := r.db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(note).Error
	})
	if err != nil {
		return fmt.Errorf("failed to create note: %w", err)
	}
	return nil
}

// Update persists changed title/content and refreshes the update timestamp.
// The whole mutation commits atomically or not at all.
func (r *GORMNoteRepository) Update(note *models.Note) error {
	note.UpdatedAt = time.Now().UTC()
	err := r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Note{}).Where("id = ?", note.ID).Updates(map[string]interface{}{
			"title":      note.Title,
			"content":    note.Content,
			"updated_at": note.UpdatedAt,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to update note %d: %w", note.ID, err)
	}
	return nil
}

// GetByID retrieves a single note by its ID.
func (r *GORMNoteRepository) GetByID(id uint) (*models.Note, error) {
	var note models.Note
	if err := r.db.First(&note, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get note by ID %d: %w", id, err)
	}
	return &note, nil
}

// GetByUser retrieves all notes owned by a user, most recently updated first.
func (r *GORMNoteRepository) GetByUser(userID uint) ([]models.Note, error) {
	var notes []models.Note
	err := r.db.
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&notes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get notes for user %d: %w", userID, err)
	}
	return notes, nil
}

// Search retrieves notes owned by a user whose title or content contains the
// term, case-insensitively, most recently updated first.
func (r *GORMNoteRepository) Search(userID uint, term string) ([]models.Note, error) {
	pattern := "%" + strings.ToLower(term) + "%"
	var notes []models.Note
	err := r.db.
		Where("user_id = ? AND (LOWER(title) LIKE ? OR LOWER(content) LIKE ?)", userID, pattern, pattern).
		Order("updated_at DESC").
		Find(&notes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search notes for user %d: %w", userID, err)
	}
	return notes, nil
}

// CountByUser returns the number of notes owned by a user.
func (r *GORMNoteRepository) CountByUser(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Note{}).Where("user_id = ?", userID).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count notes for user %d: %w", userID, err)
	}
	return count, nil
}

// Recent retrieves the top-limit notes owned by a user by update time.
func (r *GORMNoteRepository) Recent(userID uint, limit int) ([]models.Note, error) {
	var notes []models.Note
	err := r.db.
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Limit(limit).
		Find(&notes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get recent notes for user %d: %w", userID, err)
	}
	return notes, nil
}

// Delete removes a note by its ID and reports whether a row was deleted.
// Deleting a nonexistent note is a miss, not an error.
func (r *GORMNoteRepository) Delete(id uint) (bool, error) {
	var deleted bool
	err := r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.Note{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete note %d: %w", id, err)
	}
	return deleted, nil
}

// IsOwnedBy reports whether the note exists and belongs to the user, without
// loading the full entity.
func (r *GORMNoteRepository) IsOwnedBy(noteID, userID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.Note{}).
		Where("id = ? AND user_id = ?", noteID, userID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check ownership of note %d: %w", noteID, err)
	}
	return count > 0, nil
}
