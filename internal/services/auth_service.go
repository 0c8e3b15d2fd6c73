package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"notetaker/internal/models"
	"notetaker/internal/repositories"
	"notetaker/internal/session"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
)

// usernamePattern allows letters, numbers, and underscores, 3-20 chars.
var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{3,20}$`)

// AuthService handles business logic for registration, login, and sessions.
type AuthService struct {
	userRepo repositories.UserRepository
	sessions *session.Store
	validate *validator.Validate
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repositories.UserRepository, sessions *session.Store) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		sessions: sessions,
		validate: validator.New(),
	}
}

// Register validates the input, hashes the password, and persists a new
// user. Every failure path returns a typed error: *ValidationError for bad
// input shape, ErrUsernameTaken/ErrEmailTaken for conflicts.
func (s *AuthService) Register(username, email, password, confirmPassword string) (*models.User, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))

	if username == "" || email == "" || strings.TrimSpace(password) == "" {
		return nil, &ValidationError{Message: "All fields (username, email, password) are required."}
	}
	if !usernamePattern.MatchString(username) {
		return nil, &ValidationError{Message: "Username must be 3-20 characters long and contain only letters, numbers, and underscores."}
	}
	if err := s.validate.Var(email, "required,email"); err != nil {
		return nil, &ValidationError{Message: "Please enter a valid email address."}
	}
	if len(password) < 6 {
		return nil, &ValidationError{Message: "Password must be at least 6 characters long."}
	}
	if password != confirmPassword {
		return nil, &ValidationError{Message: "Passwords do not match. Please re-enter your password."}
	}

	// Pre-check duplicates so the user gets a specific message.
	if _, err := s.userRepo.GetByUsername(username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("failed to check username availability: %w", err)
	}
	if _, err := s.userRepo.GetByEmail(email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("failed to check email availability: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username: username,
		Email:    email,
		Password: string(hashedPassword),
	}
	if err := s.userRepo.Create(user); err != nil {
		// Two concurrent registrations can both pass the pre-checks;
		// the unique index decides, and the loser lands here.
		if errors.Is(err, repositories.ErrDuplicate) {
			if _, lookupErr := s.userRepo.GetByUsername(username); lookupErr == nil {
				return nil, ErrUsernameTaken
			}
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to register user: %w", err)
	}
	return user, nil
}

// Login authenticates a user and establishes a session on success. The
// session's inactivity window is 30 minutes, or 7 days with rememberMe.
func (s *AuthService) Login(ctx context.Context, username, password string, rememberMe bool) (*models.User, string, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, "", ErrInvalidCredentials
	}

	user, err := s.userRepo.GetByUsername(username)
	if err != nil {
		// Do not reveal whether the username exists.
		return nil, "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.sessions.Create(ctx, user.ID, rememberMe)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create session: %w", err)
	}
	return user, token, nil
}

// Logout destroys the session for the given token.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.sessions.Destroy(ctx, token)
}

// CurrentUser resolves a session token to its user. Resolving the token
// refreshes the session's inactivity window.
func (s *AuthService) CurrentUser(ctx context.Context, token string) (*models.User, error) {
	userID, ok, err := s.sessions.Get(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve session: %w", err)
	}
	if !ok {
		return nil, ErrSessionExpired
	}
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrSessionExpired
		}
		return nil, fmt.Errorf("failed to load session user: %w", err)
	}
	return user, nil
}
