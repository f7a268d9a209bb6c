// Package pkce implements the Proof Key for Code Exchange pieces of
// RFC 7636. Only the S256 method is generated: a plain challenge would
// leak the verifier through referrer headers.
package pkce

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// GenerateVerifier returns a cryptographically random code verifier.
// 32 bytes of entropy encode to 43 base64url characters, the RFC minimum.
func GenerateVerifier() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("pkce: failed to generate verifier: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// ChallengeFor computes the S256 code challenge for a verifier:
// base64url(SHA-256(verifier)) without padding.
func ChallengeFor(verifier string) string {
	hash := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(hash[:])
}

// GenerateState returns a random state nonce for CSRF protection of the
// authorization redirect.
func GenerateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("pkce: failed to generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
