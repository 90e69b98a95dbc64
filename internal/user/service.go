package user

import (
	"context"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Service errors, mapped to HTTP statuses at the handler boundary.
var (
	ErrMissingFields      = errors.New("email, password and role are required")
	ErrDuplicateUser      = errors.New("user already exists")
	ErrNotFound           = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid password")
)

// User is a registered account. Passwords are stored as bcrypt hashes;
// the stored value is never returned to callers.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}

// Summary is the caller-facing view of a user.
type Summary struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Store persists users. Email lookups are case-sensitive exact matches.
type Store interface {
	// Create inserts a user, reporting ErrDuplicateUser when the email is taken.
	Create(ctx context.Context, u User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
}

// Service registers and authenticates users.
type Service struct {
	store      Store
	bcryptCost int
	newID      func() string
}

// NewService creates a service backed by a store. newID assigns user
// identifiers; bcryptCost below bcrypt.MinCost falls back to the default.
func NewService(store Store, bcryptCost int, newID func() string) *Service {
	if bcryptCost < bcrypt.MinCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{store: store, bcryptCost: bcryptCost, newID: newID}
}

// Register creates an account. The password is hashed before storage; the
// login contract stays plain exact-match from the caller's point of view.
func (s *Service) Register(ctx context.Context, email, password, role string) (Summary, error) {
	if email == "" || password == "" || role == "" {
		return Summary{}, ErrMissingFields
	}

	if existing, err := s.store.GetByEmail(ctx, email); err != nil {
		return Summary{}, err
	} else if existing != nil {
		return Summary{}, ErrDuplicateUser
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return Summary{}, err
	}

	u := User{
		ID:           s.newID(),
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := s.store.Create(ctx, u); err != nil {
		return Summary{}, err
	}
	return Summary{ID: u.ID, Email: u.Email, Role: u.Role}, nil
}

// Login checks credentials against the stored hash.
func (s *Service) Login(ctx context.Context, email, password string) (Summary, error) {
	u, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		return Summary{}, err
	}
	if u == nil {
		return Summary{}, ErrNotFound
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return Summary{}, ErrInvalidCredentials
	}
	return Summary{ID: u.ID, Email: u.Email, Role: u.Role}, nil
}

// Get returns the summary for a known user id.
func (s *Service) Get(ctx context.Context, id string) (Summary, error) {
	u, err := s.store.GetByID(ctx, id)
	if err != nil {
		return Summary{}, err
	}
	if u == nil {
		return Summary{}, ErrNotFound
	}
	return Summary{ID: u.ID, Email: u.Email, Role: u.Role}, nil
}
