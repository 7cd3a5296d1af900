package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session is the identity carried by a valid session cookie.
type Session struct {
	StorageID       string
	FingerprintHash string
	IssuedAt        time.Time
	ExpiresAt       time.Time
}

// MatchesFingerprint reports whether fingerprint is the device the session was issued to.
func (s Session) MatchesFingerprint(fingerprint string) bool {
	want := []byte(s.FingerprintHash)
	got := []byte(hashFingerprint(fingerprint))
	return subtle.ConstantTimeCompare(want, got) == 1
}

// Result is returned by Create and Login.
type Result struct {
	StorageID string
	CreatedAt time.Time
	Token     string
	ExpiresAt time.Time
}

type sessionClaims struct {
	Fingerprint string `json:"fp"`
	jwt.RegisteredClaims
}

func hashFingerprint(fingerprint string) string {
	sum := sha256.Sum256([]byte(fingerprint))
	return hex.EncodeToString(sum[:])
}
