package session

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "session:"

// Default inactivity windows. A session dies after this long without a
// request touching it; remember-me stretches the window to a week.
const (
	DefaultTTL  = 30 * time.Minute
	RememberTTL = 7 * 24 * time.Hour
)

// Store maps opaque session tokens to authenticated user identities in
// Redis. Each session carries its own inactivity window, refreshed on
// every lookup (sliding expiry).
type Store struct {
	rdb         *redis.Client
	defaultTTL  time.Duration
	rememberTTL time.Duration
}

// NewStore returns a new session store.
func NewStore(rdb *redis.Client, defaultTTL, rememberTTL time.Duration) *Store {
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	if rememberTTL <= 0 {
		rememberTTL = RememberTTL
	}
	return &Store{rdb: rdb, defaultTTL: defaultTTL, rememberTTL: rememberTTL}
}

// Create stores a new session for the user and returns its token.
func (s *Store) Create(ctx context.Context, userID uint, remember bool) (string, error) {
	token := uuid.NewString()
	ttl := s.defaultTTL
	if remember {
		ttl = s.rememberTTL
	}
	// The per-session window is stored alongside the user id so Get can
	// re-arm exactly the interval this session was created with.
	value := fmt.Sprintf("%d:%d", userID, int(ttl.Seconds()))
	if err := s.rdb.Set(ctx, keyPrefix+token, value, ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}
	return token, nil
}

// Get resolves a token to its user ID. A hit refreshes the session's
// inactivity window. Returns ok=false for a missing or expired session.
func (s *Store) Get(ctx context.Context, token string) (uint, bool, error) {
	key := keyPrefix + token
	value, err := s.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to look up session: %w", err)
	}
	userID, ttl, err := parseSession(value)
	if err != nil {
		return 0, false, err
	}
	if err := s.rdb.Expire(ctx, key, ttl).Err(); err != nil {
		return 0, false, fmt.Errorf("failed to refresh session: %w", err)
	}
	return userID, true, nil
}

// Destroy removes a session by token. Destroying an unknown token is a no-op.
func (s *Store) Destroy(ctx context.Context, token string) error {
	if err := s.rdb.Del(ctx, keyPrefix+token).Err(); err != nil {
		return fmt.Errorf("failed to destroy session: %w", err)
	}
	return nil
}

func parseSession(value string) (uint, time.Duration, error) {
	idPart, ttlPart, ok := strings.Cut(value, ":")
	if !ok {
		return 0, 0, fmt.Errorf("malformed session value %q", value)
	}
	id, err := strconv.ParseUint(idPart, 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed session user id %q: %w", idPart, err)
	}
	seconds, err := strconv.Atoi(ttlPart)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed session ttl %q: %w", ttlPart, err)
	}
	return uint(id), time.Duration(seconds) * time.Second, nil
}
