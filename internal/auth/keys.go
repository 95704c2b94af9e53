package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultKeyPrefix marks API keys minted by this project.
	DefaultKeyPrefix = "csk_"
	// KeyBytes is the entropy of a generated key before encoding (256 bits).
	KeyBytes = 32
	// BCryptCost is the bcrypt work factor for hashed credentials.
	BCryptCost = 12
)

// Role is the access level attached to an authenticated request.
type Role string

const (
	// RoleClient may read templates and run evaluations.
	RoleClient Role = "client"
	// RoleAdmin may additionally publish, roll back and inspect versions.
	RoleAdmin Role = "admin"
)

// HasPermission reports whether a role satisfies the required level.
// Admin implies client.
func HasPermission(got, required Role) bool {
	if got == RoleAdmin {
		return true
	}
	return got == RoleClient && required == RoleClient
}

// NewKey mints a random API key: prefix plus KeyBytes of entropy,
// base64url-encoded without padding.
func NewKey(prefix string) (string, error) {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	raw := make([]byte, KeyBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return prefix + base64.RawURLEncoding.EncodeToString(raw), nil
}

// HashKey hashes an API key with bcrypt so the plaintext never has to
// appear in configuration.
func HashKey(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), BCryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash key: %w", err)
	}
	return string(hash), nil
}

// VerifyKey checks a presented token against a configured credential.
// Credentials starting with "$2" are treated as bcrypt hashes; anything
// else is compared as plaintext in constant time. An empty credential
// never matches.
func VerifyKey(token, credential string) bool {
	if credential == "" {
		return false
	}
	if strings.HasPrefix(credential, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(credential), []byte(token)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(credential)) == 1
}

// ExtractBearerToken pulls the token out of an Authorization header,
// tolerating a missing "Bearer" prefix and stray whitespace.
func ExtractBearerToken(authHeader string) string {
	token := strings.TrimSpace(authHeader)
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	return token
}
