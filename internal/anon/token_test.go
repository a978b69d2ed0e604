package anon

import (
	"strings"
	"testing"
	"time"
)

func TestTokenStableWithinDay(t *testing.T) {
	morning := time.Date(2024, 3, 14, 8, 0, 0, 0, time.UTC)
	evening := time.Date(2024, 3, 14, 23, 59, 59, 0, time.UTC)

	if Token("user-1", morning) != Token("user-1", evening) {
		t.Error("token must be stable for the same identity within a day")
	}
}

func TestTokenChangesAcrossDayBoundary(t *testing.T) {
	before := time.Date(2024, 3, 14, 23, 59, 59, 0, time.UTC)
	after := time.Date(2024, 3, 15, 0, 0, 1, 0, time.UTC)

	if Token("user-1", before) == Token("user-1", after) {
		t.Error("token must rotate at the day boundary")
	}
}

func TestTokenUsesUTCBucket(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	local := time.Date(2024, 3, 15, 2, 0, 0, 0, loc) // still 2024-03-14 in UTC
	utc := time.Date(2024, 3, 14, 21, 0, 0, 0, time.UTC)

	if Token("user-1", local) != Token("user-1", utc) {
		t.Error("bucket must be computed in UTC regardless of input zone")
	}
}

func TestTokenDistinguishesIdentities(t *testing.T) {
	now := time.Date(2024, 3, 14, 12, 0, 0, 0, time.UTC)
	if Token("user-1", now) == Token("user-2", now) {
		t.Error("different identities must not collide")
	}
}

func TestTokenShape(t *testing.T) {
	now := time.Date(2024, 3, 14, 12, 0, 0, 0, time.UTC)
	token := Token("user-1", now)

	if len(token) != tokenLength {
		t.Errorf("token length = %d, want %d", len(token), tokenLength)
	}
	if strings.Contains(token, "user-1") {
		t.Error("token must not embed the identity")
	}
	for _, r := range token {
		if !strings.ContainsRune("0123456789abcdef", r) {
			t.Errorf("token contains non-hex rune %q", r)
		}
	}
}
