package user

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"golang.org/x/crypto/bcrypt"
)

// TokenIssuer produces a bearer token for a user ID.
type TokenIssuer interface {
	Issue(userID string) (string, error)
}

// Session is a signed-in user together with its bearer token.
type Session struct {
	User  User
	Token string
}

// RegisterRequest holds the input for creating an account.
type RegisterRequest struct {
	Name     string
	Email    string
	Password string
}

// Option configures a Service.
type Option func(*Service)

// WithBcryptCost overrides the password hashing cost.
func WithBcryptCost(cost int) Option {
	return func(s *Service) {
		s.cost = cost
	}
}

// Service registers and authenticates users.
type Service struct {
	users  Repository
	tokens TokenIssuer
	cost   int
}

// NewService creates a user Service.
func NewService(users Repository, tokens TokenIssuer, opts ...Option) *Service {
	s := &Service{
		users:  users,
		tokens: tokens,
		cost:   bcrypt.DefaultCost,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Register creates a user with a hashed password and signs them in.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*Session, error) {
	if len(req.Password) > MaxPasswordLen {
		return nil, ErrPasswordTooLong
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}

	u := &User{
		Name:         strings.TrimSpace(req.Name),
		Email:        NormalizeEmail(req.Email),
		PasswordHash: string(hash),
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, ErrEmailTaken
		}
		return nil, errors.Wrap(err, "create user")
	}

	return s.session(u)
}

// Login checks the password of the user registered under email.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	u, err := s.users.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, errors.Wrap(err, "get user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.session(u)
}

func (s *Service) session(u *User) (*Session, error) {
	token, err := s.tokens.Issue(u.ID)
	if err != nil {
		return nil, errors.Wrap(err, "issue token")
	}
	return &Session{User: *u, Token: token}, nil
}

// NormalizeEmail lowercases and trims an address so lookups are
// case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
