package models

import "time"

// Note represents a text note. Every note belongs to exactly one user;
// ownership is fixed at creation and never transferred.
type Note struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Title     string    `json:"title" gorm:"type:varchar(255);not null" validate:"required"`
	Content   string    `json:"content" gorm:"type:text;not null" validate:"required"`
	UserID    uint      `json:"user_id" gorm:"index;not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
