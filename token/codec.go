// Package token manages paired access/refresh JWT issuance and verification.
// The two token classes are fully independent at the crypto layer (distinct
// HS256 secrets and lifetimes) but correlated at the identifier layer: one
// issuance derives both jtis from a single random base.
package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	// AccessPrefix marks the jti of an access token.
	AccessPrefix = "acc_"
	// RefreshPrefix marks the jti of a refresh token.
	RefreshPrefix = "ref_"
)

// ErrTokenInvalid is returned for any verification failure: bad signature,
// malformed claims, or elapsed expiry. An expired-but-well-signed token gets
// no partial trust.
var ErrTokenInvalid = errors.New("token invalid or expired")

// Config holds the per-class secrets and lifetimes. Both secrets are
// required; issuance with a missing secret is a configuration error, not a
// user-facing auth failure.
type Config struct {
	AccessSecret  []byte
	AccessTTL     time.Duration
	RefreshSecret []byte
	RefreshTTL    time.Duration
	Issuer        string
}

// Codec signs and verifies the two token classes.
//
// Codec instances are configured once and treated as immutable afterwards;
// all methods are safe for concurrent use.
type Codec struct {
	config Config
}

// Claims is the signed payload of both token classes:
// {sub, jti, iat, exp}, plus the configured issuer.
type Claims struct {
	jwt.RegisteredClaims
}

// Pair is one issuance. The jtis share the random base after their prefixes
// so the pair can be correlated for debugging (not for security).
type Pair struct {
	AccessToken  string
	RefreshToken string
	AccessID     string
	RefreshID    string
}

// NewCodec validates the configuration and returns a ready codec.
func NewCodec(cfg Config) (*Codec, error) {
	if len(cfg.AccessSecret) == 0 {
		return nil, errors.New("access secret required")
	}
	if len(cfg.RefreshSecret) == 0 {
		return nil, errors.New("refresh secret required")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	return &Codec{config: cfg}, nil
}

// IssuePair generates one random base identifier, derives the acc_/ref_ jtis
// from it, and signs both tokens concurrently. Failure here means the signer
// rejected its input — a fatal configuration problem, never bad credentials.
func (c *Codec) IssuePair(userID string) (Pair, error) {
	base := uuid.NewString()
	pair := Pair{
		AccessID:  AccessPrefix + base,
		RefreshID: RefreshPrefix + base,
	}

	var g errgroup.Group
	g.Go(func() error {
		signed, err := c.sign(userID, pair.AccessID, c.config.AccessSecret, c.config.AccessTTL)
		if err != nil {
			return err
		}
		pair.AccessToken = signed
		return nil
	})
	g.Go(func() error {
		signed, err := c.sign(userID, pair.RefreshID, c.config.RefreshSecret, c.config.RefreshTTL)
		if err != nil {
			return err
		}
		pair.RefreshToken = signed
		return nil
	})
	if err := g.Wait(); err != nil {
		return Pair{}, err
	}

	return pair, nil
}

// IssueAccess signs a standalone access token under a fresh acc_ jti. The
// refresh flow uses it so a refreshed access token never reuses the jti of
// the access token it replaces.
func (c *Codec) IssueAccess(userID string) (signed, jti string, err error) {
	jti = AccessPrefix + uuid.NewString()
	signed, err = c.sign(userID, jti, c.config.AccessSecret, c.config.AccessTTL)
	if err != nil {
		return "", "", err
	}
	return signed, jti, nil
}

// DecodeAccess verifies an access token and returns its claims.
func (c *Codec) DecodeAccess(tokenStr string) (*Claims, error) {
	return c.decode(tokenStr, c.config.AccessSecret)
}

// DecodeRefresh verifies a refresh token and returns its claims.
func (c *Codec) DecodeRefresh(tokenStr string) (*Claims, error) {
	return c.decode(tokenStr, c.config.RefreshSecret)
}

// AccessTTL returns the configured access-token lifetime.
func (c *Codec) AccessTTL() time.Duration { return c.config.AccessTTL }

// RefreshTTL returns the configured refresh-token lifetime.
func (c *Codec) RefreshTTL() time.Duration { return c.config.RefreshTTL }

// IsAccessID classifies a jti by prefix without touching the signature.
func IsAccessID(jti string) bool {
	return strings.HasPrefix(jti, AccessPrefix) && len(jti) > len(AccessPrefix)
}

// IsRefreshID classifies a jti by prefix without touching the signature.
func IsRefreshID(jti string) bool {
	return strings.HasPrefix(jti, RefreshPrefix) && len(jti) > len(RefreshPrefix)
}

// PairedAccessID maps a refresh jti to the access jti it was issued with.
// The pair shares one random base, so a prefix swap is exact.
func PairedAccessID(refreshID string) (string, bool) {
	if !IsRefreshID(refreshID) {
		return "", false
	}
	return AccessPrefix + strings.TrimPrefix(refreshID, RefreshPrefix), true
}

func (c *Codec) sign(userID, jti string, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        jti,
			Issuer:    c.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func (c *Codec) decode(tokenStr string, secret []byte) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
	}
	if c.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(c.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	parsed, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.ID == "" || claims.Subject == "" {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
