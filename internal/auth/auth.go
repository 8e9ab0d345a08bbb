// Package auth provides registration, login and server-side sessions.
// The rest of the application never reads ambient session state: the
// HTTP layer resolves a session here and threads the owner id
// explicitly into every core call.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	maxUsernameLength = 30
	maxPasswordLength = 72 // bcrypt input limit
	minPasswordLength = 8
)

var (
	ErrUnknownUser        = errors.New("user not found")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionExpired     = errors.New("session expired")
	ErrInvalidUsername    = errors.New("username must be 1-30 lowercase letters, digits or underscores")
	ErrWeakPassword       = errors.New("password must be 8-72 characters")
)

var usernameRe = regexp.MustCompile(`^[a-z0-9_]{1,30}$`)

type User struct {
	ID           int64
	Username     string
	PasswordHash string
}

type Session struct {
	ID        string
	UserID    int64
	Token     string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Storage is the persistence the auth service needs. Implemented by
// both the SQLite repository and the in-memory store.
type Storage interface {
	CreateUser(ctx context.Context, u *User) error
	GetUserByUsername(ctx context.Context, username string) (User, error)
	CreateSession(ctx context.Context, s Session) error
	GetSessionByToken(ctx context.Context, token string) (Session, error)
	DeleteSession(ctx context.Context, token string) error
}

type Service struct {
	storage    Storage
	sessionTTL time.Duration
}

func NewService(storage Storage, sessionTTL time.Duration) *Service {
	if sessionTTL <= 0 {
		sessionTTL = 30 * 24 * time.Hour
	}
	return &Service{storage: storage, sessionTTL: sessionTTL}
}

// Register creates a user and returns a fresh session token.
func (s *Service) Register(ctx context.Context, username, password string) (string, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if !usernameRe.MatchString(username) {
		return "", ErrInvalidUsername
	}
	if len(password) < minPasswordLength || len(password) > maxPasswordLength {
		return "", ErrWeakPassword
	}

	if _, err := s.storage.GetUserByUsername(ctx, username); err == nil {
		return "", ErrUsernameTaken
	} else if !errors.Is(err, ErrUnknownUser) {
		return "", fmt.Errorf("check username availability: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	user := User{Username: username, PasswordHash: string(hash)}
	if err := s.storage.CreateUser(ctx, &user); err != nil {
		return "", fmt.Errorf("create user: %w", err)
	}

	return s.startSession(ctx, user.ID)
}

// Login validates credentials and returns a fresh session token.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	user, err := s.storage.GetUserByUsername(ctx, username)
	if errors.Is(err, ErrUnknownUser) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", fmt.Errorf("look up user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", ErrInvalidCredentials
	}
	return s.startSession(ctx, user.ID)
}

// Resolve maps a session token to the owning user id.
func (s *Service) Resolve(ctx context.Context, token string) (int64, error) {
	session, err := s.storage.GetSessionByToken(ctx, strings.TrimSpace(token))
	if err != nil {
		return 0, err
	}
	if time.Now().After(session.ExpiresAt) {
		return 0, ErrSessionExpired
	}
	return session.UserID, nil
}

// Logout discards the session behind a token. Unknown tokens are not an
// error.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.storage.DeleteSession(ctx, strings.TrimSpace(token))
}

func (s *Service) startSession(ctx context.Context, userID int64) (string, error) {
	tokenBytes := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, tokenBytes); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	token := hex.EncodeToString(tokenBytes)

	now := time.Now().UTC()
	session := Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		Token:     token,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}
	if err := s.storage.CreateSession(ctx, session); err != nil {
		return "", fmt.Errorf("save session: %w", err)
	}
	return token, nil
}
