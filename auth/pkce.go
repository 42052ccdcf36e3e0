package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
)

const (
	// PKCEMethodS256 is the only challenge method Canva accepts
	PKCEMethodS256 = "S256"

	// MinVerifierLength and MaxVerifierLength bound the code verifier (RFC 7636 section 4.1)
	MinVerifierLength = 43
	MaxVerifierLength = 128

	// DefaultVerifierLength is used by GeneratePKCE
	DefaultVerifierLength = MinVerifierLength
)

// PKCEParams is a one-time verifier/challenge pair for a single authorization attempt
type PKCEParams struct {
	CodeVerifier        string
	CodeChallenge       string
	CodeChallengeMethod string
}

// GeneratePKCE generates a PKCE pair with a 43 character verifier
func GeneratePKCE() (*PKCEParams, error) {
	return GeneratePKCEWithLength(DefaultVerifierLength)
}

// GeneratePKCEWithLength generates a PKCE pair with a verifier of the given
// length, clamped to [43, 128].
func GeneratePKCEWithLength(length int) (*PKCEParams, error) {
	length = min(max(length, MinVerifierLength), MaxVerifierLength)

	// base64 yields 4 characters per 3 bytes
	buf := make([]byte, (length*3+3)/4)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("failed to generate random bytes for PKCE: %w", err)
	}
	verifier := base64.RawURLEncoding.EncodeToString(buf)[:length]

	return &PKCEParams{
		CodeVerifier:        verifier,
		CodeChallenge:       ComputeCodeChallenge(verifier),
		CodeChallengeMethod: PKCEMethodS256,
	}, nil
}

// ComputeCodeChallenge returns base64url(sha256(verifier)) without padding
func ComputeCodeChallenge(verifier string) string {
	hash := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(hash[:])
}

// Verify reports whether the challenge was derived from the verifier
func (p *PKCEParams) Verify() bool {
	if p == nil || p.CodeChallengeMethod != PKCEMethodS256 {
		return false
	}
	if n := len(p.CodeVerifier); n < MinVerifierLength || n > MaxVerifierLength {
		return false
	}
	computed := ComputeCodeChallenge(p.CodeVerifier)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(p.CodeChallenge)) == 1
}
