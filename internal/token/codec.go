// Package token serializes a Session plus user/organisation claims into a
// signed compact token, and validates/rehydrates it at request entry.
// Decoding never fails loudly: any structural, signature, or expiry problem
// yields absence so authentication fetchers fall through to unauthenticated.
package token

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"tenantcore.io/internal/session"
)

const defaultIssuer = "tenantcore"

// Codec encodes and decodes session credentials with RS256.
type Codec struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	keyID      string
	issuer     string
	now        func() time.Time
}

// Option configures Codec behavior.
type Option func(*Codec) error

// WithRS256Keys configures the RSA key pair used for signing and verifying.
func WithRS256Keys(privatePEM, publicPEM string) Option {
	return func(c *Codec) error {
		privatePEM = strings.TrimSpace(privatePEM)
		publicPEM = strings.TrimSpace(publicPEM)
		if privatePEM == "" || publicPEM == "" {
			return errors.New("token: both private and public keys are required")
		}
		priv, err := parseRSAPrivateKey(privatePEM)
		if err != nil {
			return fmt.Errorf("token: parse private key: %w", err)
		}
		pub, err := parseRSAPublicKey(publicPEM)
		if err != nil {
			return fmt.Errorf("token: parse public key: %w", err)
		}
		c.privateKey = priv
		c.publicKey = pub
		return nil
	}
}

// WithKeyPair configures an already-parsed RSA key pair.
func WithKeyPair(priv *rsa.PrivateKey, pub *rsa.PublicKey) Option {
	return func(c *Codec) error {
		if priv == nil || pub == nil {
			return errors.New("token: both private and public keys are required")
		}
		c.privateKey = priv
		c.publicKey = pub
		return nil
	}
}

// WithKeyID sets the key identifier embedded into token headers.
func WithKeyID(kid string) Option {
	return func(c *Codec) error {
		c.keyID = strings.TrimSpace(kid)
		return nil
	}
}

// WithIssuer overrides the issuer claim.
func WithIssuer(issuer string) Option {
	return func(c *Codec) error {
		if strings.TrimSpace(issuer) != "" {
			c.issuer = strings.TrimSpace(issuer)
		}
		return nil
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(c *Codec) error {
		if fn != nil {
			c.now = fn
		}
		return nil
	}
}

// NewCodec constructs a Codec with the given options. A key pair is
// mandatory.
func NewCodec(opts ...Option) (*Codec, error) {
	c := &Codec{
		issuer: defaultIssuer,
		now:    time.Now,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if c.privateKey == nil || c.publicKey == nil {
		return nil, errors.New("token: signing keys are not configured")
	}
	return c, nil
}

// Encode flattens the authentication into the claim map and signs it.
// The session must be valid and the expiration time set.
func (c *Codec) Encode(auth session.DecoratedAuthentication) (string, error) {
	if auth.Session == nil {
		return "", errors.New("token: authentication carries no session")
	}
	if err := auth.Session.Validate(); err != nil {
		return "", fmt.Errorf("token: %w", err)
	}
	if auth.ExpirationTime.IsZero() {
		return "", errors.New("token: expiration time is required")
	}

	claims := claimsFromAuthentication(auth)
	claims.Issuer = c.issuer
	claims.IssuedAt = jwt.NewNumericDate(c.now().UTC())
	claims.ExpiresAt = jwt.NewNumericDate(auth.ExpirationTime.UTC())

	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if c.keyID != "" {
		tok.Header["kid"] = c.keyID
	}
	signed, err := tok.SignedString(c.privateKey)
	if err != nil {
		return "", fmt.Errorf("token: sign: %w", err)
	}
	return signed, nil
}

// Decode parses and verifies the token and rehydrates the authentication.
// It reports absence — never an error — for malformed, tampered, expired, or
// otherwise invalid input.
func (c *Codec) Decode(tokenStr string) (session.DecoratedAuthentication, bool) {
	tokenStr = strings.TrimSpace(tokenStr)
	if tokenStr == "" {
		return session.DecoratedAuthentication{}, false
	}

	parsed, err := jwt.ParseWithClaims(tokenStr, &sessionClaims{},
		func(t *jwt.Token) (any, error) {
			if t.Method != jwt.SigningMethodRS256 {
				return nil, errors.New("unexpected signing method")
			}
			return c.publicKey, nil
		},
		jwt.WithIssuer(c.issuer),
		jwt.WithTimeFunc(func() time.Time { return c.now().UTC() }),
	)
	if err != nil || !parsed.Valid {
		return session.DecoratedAuthentication{}, false
	}
	claims, ok := parsed.Claims.(*sessionClaims)
	if !ok {
		return session.DecoratedAuthentication{}, false
	}

	auth, err := claims.toAuthentication()
	if err != nil {
		return session.DecoratedAuthentication{}, false
	}
	return auth, true
}

func parseRSAPrivateKey(pemData string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(pemData))
	if block == nil {
		return nil, errors.New("invalid PEM private key")
	}
	switch block.Type {
	case "RSA PRIVATE KEY":
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	case "PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		if rsaKey, ok := key.(*rsa.PrivateKey); ok {
			return rsaKey, nil
		}
		return nil, errors.New("unsupported private key type")
	default:
		return nil, fmt.Errorf("unsupported private key type %s", block.Type)
	}
}

func parseRSAPublicKey(pemData string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(pemData))
	if block == nil {
		return nil, errors.New("invalid PEM public key")
	}
	switch block.Type {
	case "PUBLIC KEY":
		key, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		if rsaKey, ok := key.(*rsa.PublicKey); ok {
			return rsaKey, nil
		}
		return nil, errors.New("unsupported public key type")
	case "RSA PUBLIC KEY":
		return x509.ParsePKCS1PublicKey(block.Bytes)
	default:
		return nil, fmt.Errorf("unsupported public key type %s", block.Type)
	}
}
