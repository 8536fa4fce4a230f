package identity

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmailInUse         = errors.New("email already in use")
	ErrUserNotFound       = errors.New("user not found")
	ErrWrongPassword      = errors.New("wrong password")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidInput       = errors.New("invalid input")
)

const minPasswordLength = 6

// Account is an authenticated identity.
type Account struct {
	UID   string
	Email string
}

// Provider authenticates email/password accounts.
type Provider interface {
	SignUp(ctx context.Context, email, password string) (*Account, error)
	SignIn(ctx context.Context, email, password string) (*Account, error)
}

type localAccount struct {
	uid  string
	hash []byte
}

// LocalProvider keeps bcrypt-hashed accounts in memory.
type LocalProvider struct {
	cost int

	mu       sync.RWMutex
	accounts map[string]localAccount
}

func NewLocalProvider() *LocalProvider {
	return &LocalProvider{cost: bcrypt.DefaultCost, accounts: make(map[string]localAccount)}
}

func (p *LocalProvider) SignUp(ctx context.Context, email, password string) (*Account, error) {
	email = normalizeEmail(email)
	if email == "" || len(password) < minPasswordLength {
		return nil, ErrInvalidInput
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.accounts[email]; ok {
		return nil, ErrEmailInUse
	}
	acc := localAccount{uid: uuid.NewString(), hash: hash}
	p.accounts[email] = acc

	return &Account{UID: acc.uid, Email: email}, nil
}

func (p *LocalProvider) SignIn(ctx context.Context, email, password string) (*Account, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	p.mu.RLock()
	acc, ok := p.accounts[email]
	p.mu.RUnlock()
	if !ok {
		return nil, ErrUserNotFound
	}

	if err := bcrypt.CompareHashAndPassword(acc.hash, []byte(password)); err != nil {
		return nil, ErrWrongPassword
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Account{UID: acc.uid, Email: email}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
