package user

import (
	"context"
	"strconv"
	"strings"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// --- Mock implementations ---

type mockUserRepo struct {
	byEmail   map[string]*User
	createErr error
	getErr    error
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{byEmail: make(map[string]*User)}
}

func (m *mockUserRepo) Create(_ context.Context, u *User) error {
	if m.createErr != nil {
		return m.createErr
	}
	if _, ok := m.byEmail[u.Email]; ok {
		return ErrEmailTaken
	}
	u.ID = "u" + strconv.Itoa(len(m.byEmail)+1)
	cp := *u
	m.byEmail[u.Email] = &cp
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*User, error) {
	for _, u := range m.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*User, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	u, ok := m.byEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	return u, nil
}

type mockIssuer struct {
	err error
}

func (m *mockIssuer) Issue(userID string) (string, error) {
	return "token-" + userID, m.err
}

func newTestService(repo Repository, issuer TokenIssuer) *Service {
	return NewService(repo, issuer, WithBcryptCost(bcrypt.MinCost))
}

// --- Tests ---

func TestRegister(t *testing.T) {
	repo := newMockUserRepo()
	svc := newTestService(repo, &mockIssuer{})

	s, err := svc.Register(context.Background(), RegisterRequest{
		Name:     " Jester ",
		Email:    "Jester@Example.com",
		Password: "whoopee",
	})
	require.NoError(t, err)
	assert.Equal(t, "u1", s.User.ID)
	assert.Equal(t, "Jester", s.User.Name)
	assert.Equal(t, "jester@example.com", s.User.Email)
	assert.Equal(t, "token-u1", s.Token)

	stored := repo.byEmail["jester@example.com"]
	require.NotNil(t, stored)
	assert.NotEqual(t, "whoopee", stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("whoopee")))
}

func TestRegister_EmailTaken(t *testing.T) {
	svc := newTestService(newMockUserRepo(), &mockIssuer{})
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterRequest{Name: "A", Email: "a@example.com", Password: "pw"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterRequest{Name: "B", Email: "A@example.com", Password: "pw"})
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegister_RepoError(t *testing.T) {
	repo := newMockUserRepo()
	repo.createErr = errors.New("db down")
	svc := newTestService(repo, &mockIssuer{})

	_, err := svc.Register(context.Background(), RegisterRequest{Name: "A", Email: "a@example.com", Password: "pw"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create user")
}

func TestRegister_PasswordTooLong(t *testing.T) {
	repo := newMockUserRepo()
	svc := newTestService(repo, &mockIssuer{})
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterRequest{
		Name: "A", Email: "a@example.com", Password: strings.Repeat("x", MaxPasswordLen+1),
	})
	require.ErrorIs(t, err, ErrPasswordTooLong)
	assert.Empty(t, repo.byEmail)

	// Multi-byte runes count by their encoded length.
	_, err = svc.Register(ctx, RegisterRequest{
		Name: "A", Email: "a@example.com", Password: strings.Repeat("é", MaxPasswordLen/2+1),
	})
	require.ErrorIs(t, err, ErrPasswordTooLong)

	_, err = svc.Register(ctx, RegisterRequest{
		Name: "A", Email: "a@example.com", Password: strings.Repeat("x", MaxPasswordLen),
	})
	require.NoError(t, err)
}

func TestLogin(t *testing.T) {
	svc := newTestService(newMockUserRepo(), &mockIssuer{})
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterRequest{Name: "A", Email: "a@example.com", Password: "secret"})
	require.NoError(t, err)

	t.Run("ok", func(t *testing.T) {
		s, err := svc.Login(ctx, " A@Example.com", "secret")
		require.NoError(t, err)
		assert.Equal(t, "u1", s.User.ID)
		assert.Equal(t, "token-u1", s.Token)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(ctx, "a@example.com", "guess")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := svc.Login(ctx, "nobody@example.com", "secret")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestLogin_TokenError(t *testing.T) {
	repo := newMockUserRepo()
	svc := newTestService(repo, &mockIssuer{})
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterRequest{Name: "A", Email: "a@example.com", Password: "secret"})
	require.NoError(t, err)

	svc = newTestService(repo, &mockIssuer{err: errors.New("no key")})
	_, err = svc.Login(ctx, "a@example.com", "secret")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "issue token")
}
