package identity

import (
	"errors"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"github.com/spigell/workhive/internal/marketplace"
)

const DefaultTokenTTL = 24 * time.Hour

var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
)

type Claims struct {
	Email string           `json:"email,omitempty"`
	Role  marketplace.Role `json:"role"`

	jwtlib.RegisteredClaims
}

// UID is the subject of the token.
func (c Claims) UID() string {
	return c.Subject
}

// Tokens issues and validates HS256 access tokens.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokens(secret string, ttl time.Duration) (*Tokens, error) {
	if secret == "" {
		return nil, errors.New("token secret is required")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

func (t *Tokens) Issue(uid, email string, role marketplace.Role) (string, time.Time, error) {
	now := t.now().UTC()
	exp := now.Add(t.ttl)

	c := Claims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwtlib.RegisteredClaims{
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(exp),
			Subject:   uid,
		},
	}

	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, c).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

func (t *Tokens) Validate(token string) (Claims, error) {
	p := jwtlib.NewParser(
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithTimeFunc(t.now),
	)

	var c Claims
	tok, err := p.ParseWithClaims(token, &c, func(*jwtlib.Token) (any, error) {
		return t.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwtlib.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, ErrTokenInvalid
	}
	if tok == nil || !tok.Valid || c.Subject == "" {
		return Claims{}, ErrTokenInvalid
	}
	if _, err := marketplace.ParseRole(string(c.Role)); err != nil {
		return Claims{}, ErrTokenInvalid
	}

	return c, nil
}
