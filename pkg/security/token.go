package security

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

const bookingTokenBytes = 32

// GenerateBookingToken returns an unguessable URL-safe token used in customer links.
func GenerateBookingToken() (string, error) {
	buf := make([]byte, bookingTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate booking token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
