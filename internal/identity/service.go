package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/workhive/internal/marketplace"
	"github.com/spigell/workhive/internal/profile"
)

// DefaultTimeout bounds every sign-up and sign-in attempt.
const DefaultTimeout = 15 * time.Second

var ErrTimeout = errors.New("authentication timed out")

// Session is the outcome of a successful sign-up or sign-in.
type Session struct {
	UID       string                   `json:"uid"`
	Email     string                   `json:"email"`
	Role      marketplace.Role         `json:"role"`
	Profile   *marketplace.UserProfile `json:"profile,omitempty"`
	Token     string                   `json:"token"`
	ExpiresAt time.Time                `json:"expiresAt"`
}

type SignUpRequest struct {
	Email       string           `json:"email"`
	Password    string           `json:"password"`
	DisplayName string           `json:"displayName"`
	Role        marketplace.Role `json:"role"`
}

type SignInRequest struct {
	Email    string           `json:"email"`
	Password string           `json:"password"`
	Role     marketplace.Role `json:"role"`
}

type Service struct {
	provider Provider
	profiles profile.Store
	tokens   *Tokens
	timeout  time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

func NewService(provider Provider, profiles profile.Store, tokens *Tokens, timeout time.Duration, logger *zap.Logger) *Service {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		provider: provider,
		profiles: profiles,
		tokens:   tokens,
		timeout:  timeout,
		logger:   logger,
		now:      time.Now,
	}
}

// SignUp creates the account and then its profile record.
func (s *Service) SignUp(ctx context.Context, req SignUpRequest) (*Session, error) {
	role, err := marketplace.ParseRole(string(req.Role))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	name := strings.TrimSpace(req.DisplayName)
	if name == "" {
		return nil, fmt.Errorf("%w: display name is required", ErrInvalidInput)
	}

	return withTimeout(ctx, s.timeout, func(ctx context.Context) (*Session, error) {
		acc, err := s.provider.SignUp(ctx, req.Email, req.Password)
		if err != nil {
			return nil, err
		}
		s.logger.Info("account created", zap.String("uid", acc.UID), zap.String("role", string(role)))

		p := &marketplace.UserProfile{
			UID:         acc.UID,
			DisplayName: name,
			Email:       acc.Email,
			Role:        role,
			CreatedAt:   s.now().UTC(),
		}
		if err := s.profiles.Create(ctx, p); err != nil {
			return nil, fmt.Errorf("save profile: %w", err)
		}

		return s.session(acc, role, p)
	})
}

// SignIn authenticates the account. The role comes from the stored profile;
// the requested role is used only while that profile does not exist.
func (s *Service) SignIn(ctx context.Context, req SignInRequest) (*Session, error) {
	return withTimeout(ctx, s.timeout, func(ctx context.Context) (*Session, error) {
		acc, err := s.provider.SignIn(ctx, req.Email, req.Password)
		if err != nil {
			return nil, err
		}

		p, err := s.profiles.Get(ctx, acc.UID)
		switch {
		case err == nil:
			return s.session(acc, p.Role, p)
		case errors.Is(err, profile.ErrNotFound):
			s.logger.Debug("profile not found yet, using requested role", zap.String("uid", acc.UID))
			role, perr := marketplace.ParseRole(string(req.Role))
			if perr != nil {
				role = marketplace.RoleClient
			}
			return s.session(acc, role, nil)
		default:
			return nil, fmt.Errorf("load profile: %w", err)
		}
	})
}

func (s *Service) session(acc *Account, role marketplace.Role, p *marketplace.UserProfile) (*Session, error) {
	token, exp, err := s.tokens.Issue(acc.UID, acc.Email, role)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &Session{
		UID:       acc.UID,
		Email:     acc.Email,
		Role:      role,
		Profile:   p,
		Token:     token,
		ExpiresAt: exp,
	}, nil
}

// withTimeout runs fn and gives up with ErrTimeout after d, even if fn
// does not honour its context.
func withTimeout[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type result struct {
		val T
		err error
	}
	done := make(chan result, 1)
	go func() {
		val, err := fn(ctx)
		done <- result{val: val, err: err}
	}()

	var zero T
	select {
	case res := <-done:
		if res.err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, ErrTimeout
		}
		return res.val, res.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, ErrTimeout
		}
		return zero, ctx.Err()
	}
}

// Message turns an authentication error into the text shown to the user.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTimeout):
		return "Connection timeout. Please check that the identity provider is reachable and try again."
	case errors.Is(err, ErrUserNotFound):
		return "No account found with this email."
	case errors.Is(err, ErrWrongPassword):
		return "Incorrect password."
	case errors.Is(err, ErrEmailInUse):
		return "Email already in use."
	case errors.Is(err, ErrInvalidCredentials):
		return "Invalid credentials. Please check your email and password."
	case errors.Is(err, ErrInvalidInput):
		return "Please provide a valid email, a password of at least 6 characters, a name and a role."
	default:
		return "An error occurred during authentication."
	}
}
