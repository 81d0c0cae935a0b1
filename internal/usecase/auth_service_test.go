package usecase

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestAuthServiceVerify(t *testing.T) {
	svc := &AuthService{JWTSecret: "secret"}

	tok, err := svc.Issue("user-1", "a@b.c", time.Hour)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	uid, email, err := svc.Verify(tok)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if uid != "user-1" || email != "a@b.c" {
		t.Fatalf("identity = %q/%q", uid, email)
	}

	if _, _, err := svc.Verify("not-a-jwt"); err == nil {
		t.Fatal("malformed token must be rejected")
	}

	other := &AuthService{JWTSecret: "different"}
	if _, _, err := other.Verify(tok); err == nil {
		t.Fatal("token signed with another secret must be rejected")
	}

	expired, err := svc.Issue("user-1", "a@b.c", -time.Minute)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	if _, _, err := svc.Verify(expired); err == nil {
		t.Fatal("expired token must be rejected")
	}
}

func TestAuthServiceVerify_RejectsUnexpectedSigningMethod(t *testing.T) {
	svc := &AuthService{JWTSecret: "secret"}

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"user_id": "user-1",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	tok, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none token: %v", err)
	}
	if _, _, err := svc.Verify(tok); err == nil {
		t.Fatal("alg=none token must be rejected")
	}

	hs384 := jwt.NewWithClaims(jwt.SigningMethodHS384, jwt.MapClaims{
		"user_id": "user-1",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	tok, err = hs384.SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign HS384 token: %v", err)
	}
	if _, _, err := svc.Verify(tok); err == nil {
		t.Fatal("HS384 token must be rejected even with the right secret")
	}
}
