// Package session mints and verifies signed session tokens.
//
// Tokens are Ed25519-signed JWTs. The signer holds the private key; the
// verifier needs only issuer, audience, and the public key, so token checks
// never touch storage.
package session

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/saveurhq/tastebook/internal/platform/errors"
	"github.com/saveurhq/tastebook/internal/platform/id"
)

// DefaultTTL is the session lifetime applied when none is configured.
const DefaultTTL = 30 * 24 * time.Hour

var (
	// ErrInvalid indicates a malformed, unsigned, or mismatched token.
	ErrInvalid = apperrors.New(apperrors.CodeSessionInvalid, "session token is invalid")
	// ErrExpired indicates a token outside its validity window.
	ErrExpired = apperrors.New(apperrors.CodeSessionExpired, "session token is expired")
)

// Config defines how session tokens are minted and verified.
type Config struct {
	Issuer     string
	Audience   string
	PrivateKey ed25519.PrivateKey
	PublicKey  ed25519.PublicKey
	TTL        time.Duration
	Now        func() time.Time
}

// Claims captures validated session claims.
type Claims struct {
	UserID    string
	SessionID string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type sessionClaims struct {
	jwt.RegisteredClaims
}

// NewConfig builds a session config from base64-encoded key material.
func NewConfig(issuer, audience, privateKeyB64 string, ttl time.Duration, now func() time.Time) (Config, error) {
	issuer = strings.TrimSpace(issuer)
	audience = strings.TrimSpace(audience)
	if issuer == "" {
		return Config{}, fmt.Errorf("session issuer is required")
	}
	if audience == "" {
		return Config{}, fmt.Errorf("session audience is required")
	}
	keyBytes, err := decodeBase64(strings.TrimSpace(privateKeyB64))
	if err != nil {
		return Config{}, fmt.Errorf("decode session private key: %w", err)
	}
	if len(keyBytes) != ed25519.PrivateKeySize {
		return Config{}, fmt.Errorf("session private key must be %d bytes", ed25519.PrivateKeySize)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}
	privateKey := ed25519.PrivateKey(keyBytes)
	return Config{
		Issuer:     issuer,
		Audience:   audience,
		PrivateKey: privateKey,
		PublicKey:  privateKey.Public().(ed25519.PublicKey),
		TTL:        ttl,
		Now:        now,
	}, nil
}

// Mint issues a signed session token for the given user.
func Mint(userID string, cfg Config) (string, Claims, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", Claims{}, fmt.Errorf("user id is required")
	}
	if len(cfg.PrivateKey) != ed25519.PrivateKeySize {
		return "", Claims{}, errors.New("session signer is not configured")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	sessionID, err := id.NewID()
	if err != nil {
		return "", Claims{}, fmt.Errorf("generate session id: %w", err)
	}

	issuedAt := cfg.Now().UTC()
	expiresAt := issuedAt.Add(ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Audience:  jwt.ClaimStrings{cfg.Audience},
			Subject:   userID,
			ID:        sessionID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})
	signed, err := token.SignedString(cfg.PrivateKey)
	if err != nil {
		return "", Claims{}, fmt.Errorf("sign session token: %w", err)
	}
	return signed, Claims{
		UserID:    userID,
		SessionID: sessionID,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}, nil
}

// Verify validates a session token and returns its claims.
func Verify(token string, cfg Config) (Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, ErrInvalid
	}
	if len(cfg.PublicKey) != ed25519.PublicKeySize {
		return Claims{}, errors.New("session verifier is not configured")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	var parsed sessionClaims
	_, err := jwt.ParseWithClaims(token, &parsed, func(*jwt.Token) (any, error) {
		return cfg.PublicKey, nil
	},
		jwt.WithValidMethods([]string{"EdDSA"}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithAudience(cfg.Audience),
		jwt.WithTimeFunc(cfg.Now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrExpired
		}
		return Claims{}, ErrInvalid
	}

	userID := strings.TrimSpace(parsed.Subject)
	if userID == "" {
		return Claims{}, ErrInvalid
	}

	claims := Claims{
		UserID:    userID,
		SessionID: parsed.ID,
	}
	if parsed.IssuedAt != nil {
		claims.IssuedAt = parsed.IssuedAt.Time.UTC()
	}
	if parsed.ExpiresAt != nil {
		claims.ExpiresAt = parsed.ExpiresAt.Time.UTC()
	}
	return claims, nil
}

func decodeBase64(value string) ([]byte, error) {
	if decoded, err := base64.StdEncoding.DecodeString(value); err == nil {
		return decoded, nil
	}
	return base64.RawStdEncoding.DecodeString(value)
}
