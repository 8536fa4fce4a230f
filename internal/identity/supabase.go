package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	supabase "github.com/nedpals/supabase-go"
)

// SupabaseProvider authenticates against Supabase Auth.
type SupabaseProvider struct {
	client *supabase.Client
}

func NewSupabaseProvider(url, key string) (*SupabaseProvider, error) {
	url, key = strings.TrimSpace(url), strings.TrimSpace(key)
	if url == "" || key == "" {
		return nil, errors.New("supabase url and key must be provided")
	}
	return &SupabaseProvider{client: supabase.CreateClient(url, key)}, nil
}

func (p *SupabaseProvider) SignUp(ctx context.Context, email, password string) (*Account, error) {
	email = normalizeEmail(email)
	if email == "" || len(password) < minPasswordLength {
		return nil, ErrInvalidInput
	}

	user, err := p.client.Auth.SignUp(ctx, supabase.UserCredentials{Email: email, Password: password})
	if err != nil {
		return nil, translateSupabaseError(err)
	}
	return &Account{UID: user.ID, Email: email}, nil
}

func (p *SupabaseProvider) SignIn(ctx context.Context, email, password string) (*Account, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	details, err := p.client.Auth.SignIn(ctx, supabase.UserCredentials{Email: email, Password: password})
	if err != nil {
		return nil, translateSupabaseError(err)
	}
	return &Account{UID: details.User.ID, Email: email}, nil
}

// translateSupabaseError maps Supabase Auth error messages to package errors.
func translateSupabaseError(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "already registered"), strings.Contains(msg, "already exists"):
		return fmt.Errorf("%w: %v", ErrEmailInUse, err)
	case strings.Contains(msg, "invalid login credentials"), strings.Contains(msg, "invalid grant"):
		return fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	case strings.Contains(msg, "user not found"):
		return fmt.Errorf("%w: %v", ErrUserNotFound, err)
	case strings.Contains(msg, "password should be"):
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	default:
		return err
	}
}
