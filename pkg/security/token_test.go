package security_test

import (
	"encoding/base64"
	"testing"

	"github.com/angelmondragon/haulbook-backend/pkg/security"
)

func TestGenerateBookingToken(t *testing.T) {
	first, err := security.GenerateBookingToken()
	if err != nil {
		t.Fatalf("GenerateBookingToken returned error: %v", err)
	}
	second, err := security.GenerateBookingToken()
	if err != nil {
		t.Fatalf("GenerateBookingToken returned error: %v", err)
	}
	if first == second {
		t.Fatal("expected distinct tokens")
	}
	raw, err := base64.RawURLEncoding.DecodeString(first)
	if err != nil {
		t.Fatalf("token is not url-safe base64: %v", err)
	}
	if len(raw) != 32 {
		t.Fatalf("expected 32 random bytes, got %d", len(raw))
	}
}
