package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"quizdesk/internal/domain"
)

// Revocations remembers signed-out token ids until they expire (in-memory, Redis, etc).
type Revocations interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type claims struct {
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Provider issues and verifies HS256 bearer tokens.
type Provider struct {
	secret  []byte
	ttl     time.Duration
	revoked Revocations
	now     func() time.Time
}

func NewProvider(secret string, ttl time.Duration, revoked Revocations) *Provider {
	return &Provider{
		secret:  []byte(secret),
		ttl:     ttl,
		revoked: revoked,
		now:     time.Now,
	}
}

// NewProviderWithClock is test-only for deterministic expiry.
func NewProviderWithClock(secret string, ttl time.Duration, revoked Revocations, now func() time.Time) *Provider {
	p := NewProvider(secret, ttl, revoked)
	p.now = now
	return p
}

// Issue signs a token for who.
func (p *Provider) Issue(who domain.Identity) (string, error) {
	if who.IsZero() {
		return "", fmt.Errorf("issue token: %w", domain.ErrUnauthenticated)
	}
	now := p.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Name: who.DisplayName,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   who.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.ttl)),
		},
	})
	return token.SignedString(p.secret)
}

// Authenticate verifies a token and returns the user it was issued for.
func (p *Provider) Authenticate(ctx context.Context, raw string) (domain.Identity, error) {
	c, err := p.parse(raw)
	if err != nil {
		return domain.Identity{}, err
	}
	if p.revoked != nil && c.ID != "" {
		revoked, err := p.revoked.IsRevoked(ctx, c.ID)
		if err != nil {
			return domain.Identity{}, fmt.Errorf("check revocation: %w", err)
		}
		if revoked {
			return domain.Identity{}, fmt.Errorf("%w: token signed out", domain.ErrUnauthenticated)
		}
	}
	return domain.Identity{ID: c.Subject, DisplayName: c.Name}, nil
}

// SignOut revokes the token until its natural expiry.
func (p *Provider) SignOut(ctx context.Context, raw string) error {
	c, err := p.parse(raw)
	if err != nil {
		return err
	}
	if p.revoked == nil || c.ID == "" {
		return nil
	}
	until := p.now().Add(p.ttl)
	if c.ExpiresAt != nil {
		until = c.ExpiresAt.Time
	}
	return p.revoked.Revoke(ctx, c.ID, until)
}

func (p *Provider) parse(raw string) (*claims, error) {
	if raw == "" {
		return nil, domain.ErrUnauthenticated
	}
	c := &claims{}
	_, err := jwt.ParseWithClaims(raw, c, func(*jwt.Token) (interface{}, error) {
		return p.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(p.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: token expired", domain.ErrUnauthenticated)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	}
	if c.Subject == "" {
		return nil, fmt.Errorf("%w: token has no subject", domain.ErrUnauthenticated)
	}
	return c, nil
}
