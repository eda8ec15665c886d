package jwt

import (
	"bytes"
	"errors"
	"fmt"
)

// Purpose selects which key of a [Codec] verifies a token.
type Purpose uint8

const (
	// Access selects the short-lived access-token key.
	Access Purpose = iota
	// Refresh selects the long-lived refresh-token key.
	Refresh
)

func (p Purpose) String() string {
	switch p {
	case Access:
		return "access"
	case Refresh:
		return "refresh"
	default:
		return fmt.Sprintf("purpose(%d)", uint8(p))
	}
}

// Codec pairs an access [Manager] with a refresh [Manager] signed by a
// different key. It holds no mutable state and is safe for concurrent use.
type Codec struct {
	access  *Manager
	refresh *Manager
}

// NewCodec builds both managers and rejects configurations in which the
// access key could verify refresh tokens.
func NewCodec(access, refresh Config) (*Codec, error) {
	if sameKey(access, refresh) {
		return nil, errors.New("access and refresh tokens must use distinct keys")
	}

	am, err := NewManager(access)
	if err != nil {
		return nil, fmt.Errorf("access manager: %w", err)
	}
	rm, err := NewManager(refresh)
	if err != nil {
		return nil, fmt.Errorf("refresh manager: %w", err)
	}

	return &Codec{access: am, refresh: rm}, nil
}

// MintAccess signs an access token for subject.
func (c *Codec) MintAccess(subject, role string) (string, error) {
	token, _, err := c.access.Create(subject, role)
	return token, err
}

// MintRefresh signs a refresh token for subject.
func (c *Codec) MintRefresh(subject, role string) (string, error) {
	token, _, err := c.refresh.Create(subject, role)
	return token, err
}

// Verify checks token against the key selected by p. Expiry is not part of
// verification: expired tokens with a good signature return their claims.
// Failures wrap [ErrMalformed] or [ErrBadSignature].
func (c *Codec) Verify(token string, p Purpose) (*Claims, error) {
	return c.manager(p).Parse(token)
}

// IsExpired reports whether claims are past their expiry on the codec clock.
func (c *Codec) IsExpired(claims *Claims) bool {
	return c.access.Expired(claims)
}

// Check verifies token and then applies the expiry check. For an expired
// token it returns both the claims and [ErrExpired].
func (c *Codec) Check(token string, p Purpose) (*Claims, error) {
	claims, err := c.Verify(token, p)
	if err != nil {
		return nil, err
	}
	if c.manager(p).Expired(claims) {
		return claims, ErrExpired
	}
	return claims, nil
}

// ExtractSubject returns the subject of an access token whether or not it
// has expired, provided the signature holds.
func (c *Codec) ExtractSubject(token string) (string, error) {
	claims, err := c.Verify(token, Access)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// AccessManager exposes the access-token manager.
func (c *Codec) AccessManager() *Manager { return c.access }

// RefreshManager exposes the refresh-token manager.
func (c *Codec) RefreshManager() *Manager { return c.refresh }

func (c *Codec) manager(p Purpose) *Manager {
	if p == Refresh {
		return c.refresh
	}
	return c.access
}

func sameKey(a, b Config) bool {
	am, bm := a.SigningMethod, b.SigningMethod
	if am == "" {
		am = MethodHS256
	}
	if bm == "" {
		bm = MethodHS256
	}
	if am != bm {
		return false
	}
	if bm == MethodEd25519 {
		return len(a.PublicKey) > 0 && bytes.Equal(a.PublicKey, b.PublicKey)
	}
	return len(a.PrivateKey) > 0 && bytes.Equal(a.PrivateKey, b.PrivateKey)
}
