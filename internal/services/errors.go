package services

import "errors"

var (
	// ErrUsernameTaken signals a registration conflict on the username.
	ErrUsernameTaken = errors.New("username already exists")
	// ErrEmailTaken signals a registration conflict on the email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials is the generic login failure. It never reveals
	// whether the username or the password was wrong.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrSessionExpired signals a missing or timed-out session.
	ErrSessionExpired = errors.New("session expired or not found")
	// ErrNoteNotFound covers both a missing note and a note owned by
	// another user; callers cannot distinguish the two.
	ErrNoteNotFound = errors.New("note not found")
)

// ValidationError describes rejected input with a user-facing message.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
