package auth

import (
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/campusvoice/feedback-service/internal/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("test-secret", 30)

	token, exp, err := tm.GenerateToken("user-42", domain.RoleWarden)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if time.Until(exp) <= 0 {
		t.Error("expiry must be in the future")
	}

	claims, err := tm.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.UID != "user-42" {
		t.Errorf("uid = %q, want user-42", claims.UID)
	}
	if claims.Role != domain.RoleWarden {
		t.Errorf("role = %s, want WARDEN", claims.Role)
	}
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	token, _, err := NewTokenManager("secret-a", 30).GenerateToken("user-1", domain.RoleStudent)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if _, err := NewTokenManager("secret-b", 30).ParseToken(token); err == nil {
		t.Fatal("expected signature verification failure")
	}
}

func TestParseTokenRejectsWrongMethod(t *testing.T) {
	tm := NewTokenManager("test-secret", 30)

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UID: "user-1", Role: domain.RoleAdmin})
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := tm.ParseToken(token); err == nil {
		t.Fatal("expected rejection of unsigned token")
	}
}

func TestParseTokenRejectsExpired(t *testing.T) {
	tm := NewTokenManager("test-secret", 30)

	claims := &Claims{
		UID:  "user-1",
		Role: domain.RoleStudent,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := tm.ParseToken(token); err == nil {
		t.Fatal("expected expired token rejection")
	}
}
