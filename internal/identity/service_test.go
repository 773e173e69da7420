package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fanline/fanline/internal/domain"
)

// mockRepository implements Repository for testing.
type mockRepository struct {
	users         map[string]*domain.User
	tokens        map[string]*domain.RefreshToken
	createUserErr error
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		users:  make(map[string]*domain.User),
		tokens: make(map[string]*domain.RefreshToken),
	}
}

func (m *mockRepository) CreateUser(_ context.Context, user *domain.User) error {
	if m.createUserErr != nil {
		return m.createUserErr
	}
	user.ID = "test-user-id"
	m.users[user.Email] = user
	return nil
}

func (m *mockRepository) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *mockRepository) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	if u, ok := m.users[email]; ok {
		return u, nil
	}
	return nil, ErrUserNotFound
}

func (m *mockRepository) UpdateUser(_ context.Context, user *domain.User) error {
	m.users[user.Email] = user
	return nil
}

func (m *mockRepository) SaveRefreshToken(_ context.Context, token *domain.RefreshToken) error {
	m.tokens[token.Token] = token
	return nil
}

func (m *mockRepository) GetRefreshToken(_ context.Context, token string) (*domain.RefreshToken, error) {
	if t, ok := m.tokens[token]; ok {
		return t, nil
	}
	return nil, ErrInvalidToken
}

func (m *mockRepository) DeleteRefreshToken(_ context.Context, token string) error {
	delete(m.tokens, token)
	return nil
}

func (m *mockRepository) DeleteUserRefreshTokens(_ context.Context, userID string) error {
	for k, t := range m.tokens {
		if t.UserID == userID {
			delete(m.tokens, k)
		}
	}
	return nil
}

// mockAuthenticator implements Authenticator for testing.
type mockAuthenticator struct{}

func (m *mockAuthenticator) GenerateTokens(_ context.Context, _ *domain.User) (*TokenPair, error) {
	return &TokenPair{AccessToken: "access", RefreshToken: "refresh"}, nil
}

func (m *mockAuthenticator) ValidateAccessToken(_ context.Context, _ string) (string, domain.Role, error) {
	return "", "", nil
}

func (m *mockAuthenticator) RefreshTokens(_ context.Context, _ string) (*TokenPair, error) {
	return &TokenPair{AccessToken: "access", RefreshToken: "refresh"}, nil
}

func (m *mockAuthenticator) RevokeRefreshToken(_ context.Context, _ string) error {
	return nil
}

func (m *mockAuthenticator) Type() string {
	return "mock"
}

func TestRegister_DefaultsToFan(t *testing.T) {
	// Arrange
	repo := newMockRepository()
	service := NewService(repo, &mockAuthenticator{})

	// Act
	user, err := service.Register(context.Background(), RegisterInput{
		Email:    "test@example.com",
		Password: "password123",
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, domain.RoleFan, user.Role)
	assert.NotEqual(t, "password123", user.Password, "password must be hashed")
}

func TestRegister_EmailAlreadyExists(t *testing.T) {
	repo := newMockRepository()
	repo.users["existing@example.com"] = &domain.User{Email: "existing@example.com"}
	service := NewService(repo, &mockAuthenticator{})

	user, err := service.Register(context.Background(), RegisterInput{
		Email:    "existing@example.com",
		Password: "password123",
	})

	assert.Nil(t, user)
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestRegister_CreateUserFails(t *testing.T) {
	repo := newMockRepository()
	repo.createUserErr = errors.New("database error")
	service := NewService(repo, &mockAuthenticator{})

	user, err := service.Register(context.Background(), RegisterInput{
		Email:    "test@example.com",
		Password: "password123",
	})

	assert.Nil(t, user)
	assert.Error(t, err)
}

func TestLogin_Succeeds(t *testing.T) {
	repo := newMockRepository()
	service := NewService(repo, &mockAuthenticator{})
	_, err := service.Register(context.Background(), RegisterInput{
		Email:    "test@example.com",
		Password: "password123",
		Role:     domain.RoleOrganizer,
	})
	require.NoError(t, err)

	user, tokens, err := service.Login(context.Background(), LoginInput{
		Email:    "test@example.com",
		Password: "password123",
	})

	require.NoError(t, err)
	assert.Equal(t, domain.RoleOrganizer, user.Role)
	assert.Equal(t, "access", tokens.AccessToken)
}

func TestLogin_WrongPassword(t *testing.T) {
	repo := newMockRepository()
	service := NewService(repo, &mockAuthenticator{})
	_, err := service.Register(context.Background(), RegisterInput{
		Email:    "test@example.com",
		Password: "password123",
	})
	require.NoError(t, err)

	user, tokens, err := service.Login(context.Background(), LoginInput{
		Email:    "test@example.com",
		Password: "wrong",
	})

	assert.Nil(t, user)
	assert.Nil(t, tokens)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_UnknownEmailSameError(t *testing.T) {
	// Unknown address and wrong password look identical to the caller.
	service := NewService(newMockRepository(), &mockAuthenticator{})

	_, _, err := service.Login(context.Background(), LoginInput{
		Email:    "nobody@example.com",
		Password: "password123",
	})

	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSetPayoutAccount_OrganizerOnly(t *testing.T) {
	repo := newMockRepository()
	service := NewService(repo, &mockAuthenticator{})
	_, err := service.Register(context.Background(), RegisterInput{
		Email:    "fan@example.com",
		Password: "password123",
	})
	require.NoError(t, err)

	_, err = service.SetPayoutAccount(context.Background(), "test-user-id", "acct_123")

	assert.ErrorIs(t, err, ErrNotOrganizer)
}

func TestSetPayoutAccount_Organizer(t *testing.T) {
	repo := newMockRepository()
	service := NewService(repo, &mockAuthenticator{})
	_, err := service.Register(context.Background(), RegisterInput{
		Email:    "org@example.com",
		Password: "password123",
		Role:     domain.RoleOrganizer,
	})
	require.NoError(t, err)

	user, err := service.SetPayoutAccount(context.Background(), "test-user-id", "acct_123")

	require.NoError(t, err)
	require.NotNil(t, user.PayoutAccount)
	assert.Equal(t, "acct_123", *user.PayoutAccount)
}
