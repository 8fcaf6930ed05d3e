package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"

	zxcvbn "github.com/ccojocar/zxcvbn-go"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrMissingToken = errors.New("missing bearer token")
)

const (
	// TokenMetadataKey is the gRPC metadata key and HTTP header carrying the admin token
	TokenMetadataKey = "authorization"

	bearerPrefix = "Bearer "
)

// TokenAuth checks a single shared admin token. An empty token disables checks.
type TokenAuth struct {
	token []byte
}

func NewTokenAuth(token string) *TokenAuth {
	return &TokenAuth{token: []byte(token)}
}

// Enabled reports whether a token is configured
func (a *TokenAuth) Enabled() bool {
	return a != nil && len(a.token) > 0
}

// Check validates the raw value of an authorization header
func (a *TokenAuth) Check(header string) error {
	if !a.Enabled() {
		return nil
	}
	token, ok := ParseBearer(header)
	if !ok {
		return ErrMissingToken
	}
	if subtle.ConstantTimeCompare([]byte(token), a.token) != 1 {
		return ErrUnauthorized
	}
	return nil
}

// ParseBearer extracts the token from "Bearer <token>"
func ParseBearer(header string) (string, bool) {
	if len(header) <= len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	return token, token != ""
}

// BearerValue formats a token for the authorization header
func BearerValue(token string) string {
	return bearerPrefix + token
}

// GenerateToken returns a random 32-byte hex token
func GenerateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// IsWeakToken flags tokens an attacker could guess
func IsWeakToken(token string, context ...string) bool {
	return zxcvbn.PasswordStrength(token, context).Score < 3
}
