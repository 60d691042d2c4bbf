package auth

import (
	"errors"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
)

// SessionPayload is what the login flow knows when it mints a session.
type SessionPayload struct {
	AdminID  uint
	Username string
	JTI      string
}

// SessionClaims is the JWT body carried by the admin session cookie.
type SessionClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// AdminID decodes the subject. Zero is never a valid admin.
func (c *SessionClaims) AdminID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil {
		return 0, err
	}
	if id == 0 {
		return 0, errors.New("subject is zero")
	}
	return uint(id), nil
}
