package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const transferTokenBytes = 32

// NewTransferToken returns a URL-safe token carrying 256 bits from crypto/rand.
func NewTransferToken() (string, error) {
	buf := make([]byte, transferTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate transfer token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashToken hashes a token with the configured bcrypt cost.
func HashToken(token string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(token), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// TokenMatches verifies a presented token against its stored hash.
func TokenMatches(hashed, token string) bool {
	if token == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(token)) == nil
}
