package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/haulbook-backend/pkg/config"
)

// SessionAudience scopes tokens to the admin API.
const SessionAudience = "haulbook-admin"

var (
	signingMethod = jwt.SigningMethodHS256

	errNoSecret   = errors.New("jwt secret is required")
	errUnknownKey = errors.New("session signed with an unknown key")
)

// keyID fingerprints a secret so verification can pick the right one while
// secrets rotate.
func keyID(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:4])
}

// MintSessionToken signs a session with the current secret. The subject is the
// admin id; a random jti is generated when the payload has none.
func MintSessionToken(cfg config.JWTConfig, now time.Time, payload SessionPayload) (string, error) {
	switch {
	case cfg.Secret == "":
		return "", errNoSecret
	case cfg.Issuer == "":
		return "", errors.New("jwt issuer is required")
	case cfg.SessionTTL() <= 0:
		return "", errors.New("jwt expiration minutes must be positive")
	case payload.AdminID == 0:
		return "", errors.New("admin id is required")
	}

	id := strings.TrimSpace(payload.JTI)
	if id == "" {
		id = uuid.NewString()
	}

	token := jwt.NewWithClaims(signingMethod, SessionClaims{
		Username: payload.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			Issuer:    cfg.Issuer,
			Subject:   strconv.FormatUint(uint64(payload.AdminID), 10),
			Audience:  jwt.ClaimStrings{SessionAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.SessionTTL())),
		},
	})
	token.Header["kid"] = keyID(cfg.Secret)

	signed, err := token.SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("signing session: %w", err)
	}
	return signed, nil
}

// ParseSessionToken verifies a session against the current secret, or the
// previous one while a rotation is in progress.
func ParseSessionToken(cfg config.JWTConfig, raw string) (*SessionClaims, error) {
	return parseAt(cfg, raw, time.Now)
}

func parseAt(cfg config.JWTConfig, raw string, clock func() time.Time) (*SessionClaims, error) {
	if cfg.Secret == "" {
		return nil, errNoSecret
	}
	keys := map[string][]byte{keyID(cfg.Secret): []byte(cfg.Secret)}
	if cfg.PreviousSecret != "" {
		keys[keyID(cfg.PreviousSecret)] = []byte(cfg.PreviousSecret)
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithAudience(SessionAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(clock),
	)

	var claims SessionClaims
	if _, err := parser.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		key, ok := keys[kid]
		if !ok {
			return nil, errUnknownKey
		}
		return key, nil
	}); err != nil {
		return nil, err
	}
	if _, err := claims.AdminID(); err != nil {
		return nil, fmt.Errorf("session subject: %w", err)
	}
	return &claims, nil
}
