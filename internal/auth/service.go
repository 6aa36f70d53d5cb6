package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

var (
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrRateLimited        = errors.New("rate limit exceeded")
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type credential struct {
	passwordHash string
	salt         string
	role         string
}

// Service registers users and exchanges credentials for access tokens.
// Accounts live in memory; durable user storage is out of scope here.
type Service struct {
	tokens  *TokenManager
	limiter *rate.Limiter

	mu    sync.RWMutex
	users map[string]credential
}

func NewService(tokens *TokenManager) *Service {
	return &Service{
		tokens:  tokens,
		limiter: rate.NewLimiter(rate.Every(time.Minute/20), 5), // 20/min, burst 5
		users:   make(map[string]credential),
	}
}

// Register creates a regular account. Self-registration never grants any
// role beyond RoleUser; admins are seeded with RegisterAdmin.
func (s *Service) Register(ctx context.Context, username, password string) error {
	return s.register(username, password, RoleUser)
}

// RegisterAdmin creates an admin account. It is never exposed over HTTP;
// the server seeds admins from bootstrap credentials at startup.
func (s *Service) RegisterAdmin(ctx context.Context, username, password string) error {
	return s.register(username, password, RoleAdmin)
}

func (s *Service) register(username, password, role string) error {
	if len(username) < 3 || len(password) < 8 {
		return fmt.Errorf("%w: username >= 3 chars, password >= 8 chars", ErrInvalidCredentials)
	}

	hash, salt, err := hashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[username]; exists {
		return ErrUserExists
	}
	s.users[username] = credential{passwordHash: hash, salt: salt, role: role}
	return nil
}

// Login verifies the password and returns a signed access token. Attempts
// are rate limited to slow down credential stuffing.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	if !s.limiter.Allow() {
		return "", ErrRateLimited
	}

	s.mu.RLock()
	cred, exists := s.users[username]
	s.mu.RUnlock()

	if !exists {
		return "", ErrInvalidCredentials
	}

	ok, err := verifyPassword(password, cred.salt, cred.passwordHash)
	if err != nil {
		return "", fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return "", ErrInvalidCredentials
	}

	return s.tokens.Issue(username, cred.role)
}
