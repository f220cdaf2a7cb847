package auth

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// tokenLifetime is how long an issued session token stays valid
const tokenLifetime = 30 * 24 * time.Hour

// Service handles registration, login and the current session. When no
// signing secret is configured the service is disabled and the API runs
// open, the same way basic auth is optional elsewhere.
type Service struct {
	users    UserDB
	sessions SessionDB
	secret   []byte

	mu      sync.Mutex
	current *AuthState
}

// NewService creates a Service. An empty secret disables authentication.
func NewService(users UserDB, sessions SessionDB, secret string) *Service {
	return &Service{
		users:    users,
		sessions: sessions,
		secret:   []byte(secret),
		current:  &AuthState{},
	}
}

// Enabled reports whether authentication is configured
func (s *Service) Enabled() bool {
	return len(s.secret) > 0
}

// Load restores the persisted session at startup. A corrupt or expired
// session silently becomes the signed-out state.
func (s *Service) Load() {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.sessions.LoadSession()
	if err != nil {
		slog.Warn("Could not load session, starting signed out", "error", err)
		s.current = &AuthState{}
		return
	}
	if state == nil || state.User == nil {
		s.current = &AuthState{}
		return
	}
	if _, err := s.Verify(state.Token); err != nil {
		slog.Warn("Persisted session token no longer valid, starting signed out", "error", err)
		s.current = &AuthState{}
		return
	}
	s.current = state
}

// Register creates an account, signs the user in and persists the session
func (s *Service) Register(name, email, password string) (*AuthState, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, fmt.Errorf("email and password are required")
	}

	if _, err := s.users.GetUserByEmail(email); err == nil {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := User{
		ID:    uuid.New().String(),
		Name:  strings.TrimSpace(name),
		Email: email,
		Role:  "user",
	}
	if err := s.users.SaveUser(&StoredUser{User: user, PasswordHash: hash}); err != nil {
		return nil, fmt.Errorf("saving user: %w", err)
	}

	return s.signIn(user)
}

// Login verifies credentials, signs the user in and persists the session
func (s *Service) Login(email, password string) (*AuthState, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	stored, err := s.users.GetUserByEmail(email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(stored.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.signIn(stored.User)
}

// Logout clears the current session and its persisted record
func (s *Service) Logout() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = &AuthState{}
	if err := s.sessions.ClearSession(); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	return nil
}

// Current returns the current session state
func (s *Service) Current() *AuthState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Verify parses and validates a session token, returning its user
func (s *Service) Verify(tokenString string) (*User, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("unexpected token claims")
	}

	user := &User{}
	if sub, ok := claims["sub"].(string); ok {
		user.ID = sub
	}
	if name, ok := claims["name"].(string); ok {
		user.Name = name
	}
	if email, ok := claims["email"].(string); ok {
		user.Email = email
	}
	if role, ok := claims["role"].(string); ok {
		user.Role = role
	}
	if user.ID == "" {
		return nil, fmt.Errorf("token missing subject")
	}
	return user, nil
}

func (s *Service) signIn(user User) (*AuthState, error) {
	now := time.Now()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   user.ID,
		"name":  user.Name,
		"email": user.Email,
		"role":  user.Role,
		"iat":   now.Unix(),
		"exp":   now.Add(tokenLifetime).Unix(),
	}).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("signing token: %w", err)
	}

	state := &AuthState{User: &user, Token: token, IsAuthenticated: true}
	if err := s.sessions.SaveSession(state); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}

	s.mu.Lock()
	s.current = state
	s.mu.Unlock()

	return state, nil
}
