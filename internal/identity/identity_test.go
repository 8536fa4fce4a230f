package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/workhive/internal/marketplace"
	"github.com/spigell/workhive/internal/profile"
)

func newService(t *testing.T, provider Provider, store profile.Store, timeout time.Duration) *Service {
	t.Helper()
	tokens, err := NewTokens("test-secret", time.Hour)
	require.NoError(t, err)
	return NewService(provider, store, tokens, timeout, nil)
}

func TestSignUpCreatesProfile(t *testing.T) {
	ctx := context.Background()
	store := profile.NewMemoryStore(nil)
	svc := newService(t, NewLocalProvider(), store, 0)

	session, err := svc.SignUp(ctx, SignUpRequest{
		Email:       "Priya@Example.com",
		Password:    "secret123",
		DisplayName: "Priya Sharma",
		Role:        marketplace.RoleFreelancer,
	})
	require.NoError(t, err)
	assert.Equal(t, "priya@example.com", session.Email)
	assert.Equal(t, marketplace.RoleFreelancer, session.Role)
	assert.NotEmpty(t, session.Token)

	p, err := store.Get(ctx, session.UID)
	require.NoError(t, err)
	assert.Equal(t, "Priya Sharma", p.DisplayName)
	assert.Equal(t, marketplace.RoleFreelancer, p.Role)
	assert.False(t, p.CreatedAt.IsZero())

	claims, err := svc.tokens.Validate(session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.UID, claims.UID())
	assert.Equal(t, marketplace.RoleFreelancer, claims.Role)

	_, err = svc.SignUp(ctx, SignUpRequest{Email: "priya@example.com", Password: "secret123", DisplayName: "P", Role: marketplace.RoleClient})
	assert.ErrorIs(t, err, ErrEmailInUse)
	assert.Equal(t, "Email already in use.", Message(err))
}

func TestSignInUsesStoredRole(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, NewLocalProvider(), profile.NewMemoryStore(nil), 0)

	_, err := svc.SignUp(ctx, SignUpRequest{Email: "a@example.com", Password: "secret123", DisplayName: "A", Role: marketplace.RoleClient})
	require.NoError(t, err)

	session, err := svc.SignIn(ctx, SignInRequest{Email: "a@example.com", Password: "secret123", Role: marketplace.RoleFreelancer})
	require.NoError(t, err)
	assert.Equal(t, marketplace.RoleClient, session.Role)
	require.NotNil(t, session.Profile)
}

func TestSignInFallsBackToRequestedRole(t *testing.T) {
	ctx := context.Background()
	provider := NewLocalProvider()
	_, err := provider.SignUp(ctx, "b@example.com", "secret123")
	require.NoError(t, err)

	svc := newService(t, provider, profile.NewMemoryStore(nil), 0)
	session, err := svc.SignIn(ctx, SignInRequest{Email: "b@example.com", Password: "secret123", Role: marketplace.RoleFreelancer})
	require.NoError(t, err)
	assert.Equal(t, marketplace.RoleFreelancer, session.Role)
	assert.Nil(t, session.Profile)
}

func TestSignInErrors(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, NewLocalProvider(), profile.NewMemoryStore(nil), 0)
	_, err := svc.SignUp(ctx, SignUpRequest{Email: "c@example.com", Password: "secret123", DisplayName: "C", Role: marketplace.RoleClient})
	require.NoError(t, err)

	_, err = svc.SignIn(ctx, SignInRequest{Email: "nobody@example.com", Password: "secret123"})
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.Equal(t, "No account found with this email.", Message(err))

	_, err = svc.SignIn(ctx, SignInRequest{Email: "c@example.com", Password: "wrong-password"})
	assert.ErrorIs(t, err, ErrWrongPassword)
	assert.Equal(t, "Incorrect password.", Message(err))
}

func TestSignUpValidation(t *testing.T) {
	svc := newService(t, NewLocalProvider(), profile.NewMemoryStore(nil), 0)

	_, err := svc.SignUp(context.Background(), SignUpRequest{Email: "d@example.com", Password: "secret123", DisplayName: "D", Role: "boss"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.SignUp(context.Background(), SignUpRequest{Email: "d@example.com", Password: "123", DisplayName: "D", Role: marketplace.RoleClient})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

type stuckProvider struct{}

func (stuckProvider) SignUp(context.Context, string, string) (*Account, error) {
	select {}
}

func (stuckProvider) SignIn(context.Context, string, string) (*Account, error) {
	time.Sleep(time.Second)
	return nil, errors.New("too late")
}

func TestSignInTimeout(t *testing.T) {
	svc := newService(t, stuckProvider{}, profile.NewMemoryStore(nil), 20*time.Millisecond)

	start := time.Now()
	_, err := svc.SignIn(context.Background(), SignInRequest{Email: "x@example.com", Password: "secret123"})
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Contains(t, Message(err), "Connection timeout")
}

func TestTokens(t *testing.T) {
	tokens, err := NewTokens("secret", time.Minute)
	require.NoError(t, err)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tokens.now = func() time.Time { return now }

	token, exp, err := tokens.Issue("u1", "u1@example.com", marketplace.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Minute), exp)

	claims, err := tokens.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UID())
	assert.Equal(t, marketplace.RoleAdmin, claims.Role)

	other, err := NewTokens("other", time.Minute)
	require.NoError(t, err)
	_, err = other.Validate(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	tokens.now = func() time.Time { return now.Add(2 * time.Minute) }
	_, err = tokens.Validate(token)
	assert.ErrorIs(t, err, ErrTokenExpired)

	_, err = NewTokens("", time.Minute)
	assert.Error(t, err)
}
