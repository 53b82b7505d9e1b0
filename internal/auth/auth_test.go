package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

func TestTokensRoundTrip(t *testing.T) {
	tok, err := NewTokens("s3cret", time.Hour)
	if err != nil {
		t.Fatalf("new tokens: %v", err)
	}
	sess, err := tok.Issue("user-1", "a@example.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if sess.ExpiresIn != 3600 || sess.TokenType != "bearer" {
		t.Fatalf("unexpected session %+v", sess)
	}
	u, err := tok.VerifyAccessToken(sess.AccessToken)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if u.ID != "user-1" || u.Email != "a@example.com" {
		t.Fatalf("unexpected user %+v", u)
	}
}

func TestTokensReject(t *testing.T) {
	tok, _ := NewTokens("s3cret", time.Hour)
	other, _ := NewTokens("other", time.Hour)
	sess, _ := other.Issue("user-1", "a@example.com")
	if _, err := tok.VerifyAccessToken(sess.AccessToken); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for foreign secret, got %v", err)
	}

	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	tok.now = func() time.Time { return base }
	sess, _ = tok.Issue("user-1", "a@example.com")
	tok.now = func() time.Time { return base.Add(2 * time.Hour) }
	if _, err := tok.VerifyAccessToken(sess.AccessToken); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1", Issuer: issuer}})
	raw, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := tok.VerifyAccessToken(raw); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for alg none, got %v", err)
	}

	if _, err := NewTokens("  ", time.Hour); err == nil {
		t.Fatalf("expected error for empty secret")
	}
}

func TestBcryptHasher(t *testing.T) {
	h := BcryptHasher{Cost: bcrypt.MinCost}
	hash, err := h.Hash("secret123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := h.Compare(hash, "secret123"); err != nil {
		t.Fatalf("compare: %v", err)
	}
	if err := h.Compare(hash, "secret124"); err == nil {
		t.Fatalf("expected mismatch")
	}
}
