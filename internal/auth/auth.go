package auth

import "errors"

// User is an authenticated account
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// AuthState is the persisted session record: who is signed in, if anyone.
// It is rewritten in full on every change and reloaded at startup.
type AuthState struct {
	User            *User  `json:"user"`
	Token           string `json:"token"`
	IsAuthenticated bool   `json:"isAuthenticated"`
}

// StoredUser is a registered account with its password hash. The hash never
// leaves the database layer.
type StoredUser struct {
	User         User   `json:"user"`
	PasswordHash []byte `json:"passwordHash"`
}

var (
	// ErrUserNotFound is returned when no account exists for an email
	ErrUserNotFound = errors.New("user not found")

	// ErrEmailTaken is returned when registering an email that already has
	// an account
	ErrEmailTaken = errors.New("user already exists")

	// ErrInvalidCredentials is returned on a failed login. Wrong email and
	// wrong password are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// UserDB persists registered accounts
type UserDB interface {
	// SaveUser saves a registered account
	SaveUser(user *StoredUser) error

	// GetUserByEmail retrieves an account by email, or ErrUserNotFound
	GetUserByEmail(email string) (*StoredUser, error)
}

// SessionDB persists the single session record
type SessionDB interface {
	// SaveSession replaces the persisted session record
	SaveSession(state *AuthState) error

	// LoadSession returns the persisted session record, or nil when absent
	LoadSession() (*AuthState, error)

	// ClearSession removes the persisted session record
	ClearSession() error
}
