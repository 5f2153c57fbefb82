package auth

import (
	"errors"
	"testing"
	"time"
)

var secret = []byte("test-secret")

func TestIssueAndParse(t *testing.T) {
	claims := Claims{
		Sub:   "edi_1",
		Email: "a@memoria.dev",
		Name:  "Editora",
		JTI:   "jti-1",
		Exp:   time.Now().Add(time.Hour).Unix(),
	}
	token, err := IssueToken(secret, claims)
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}
	parsed, err := ParseToken(secret, token)
	if err != nil {
		t.Fatalf("ParseToken failed: %v", err)
	}
	if parsed != claims {
		t.Errorf("claims = %+v, want %+v", parsed, claims)
	}
}

func TestParseRejectsTampering(t *testing.T) {
	token, _ := IssueToken(secret, Claims{Sub: "edi_1", JTI: "j", Exp: time.Now().Add(time.Hour).Unix()})
	if _, err := ParseToken(secret, token+"x"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("tampered signature = %v, want ErrInvalidToken", err)
	}
	if _, err := ParseToken([]byte("other-secret"), token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("wrong secret = %v, want ErrInvalidToken", err)
	}
	if _, err := ParseToken(secret, "not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("malformed token = %v, want ErrInvalidToken", err)
	}
}

func TestParseExpired(t *testing.T) {
	token, _ := IssueToken(secret, Claims{Sub: "edi_1", JTI: "j", Exp: time.Now().Add(-time.Minute).Unix()})
	if _, err := ParseToken(secret, token); !errors.Is(err, ErrExpiredToken) {
		t.Errorf("expired token = %v, want ErrExpiredToken", err)
	}
}

func TestParseMissingClaims(t *testing.T) {
	token, _ := IssueToken(secret, Claims{Exp: time.Now().Add(time.Hour).Unix()})
	if _, err := ParseToken(secret, token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("missing sub/jti = %v, want ErrInvalidToken", err)
	}
}
