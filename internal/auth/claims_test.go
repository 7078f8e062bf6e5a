package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret-key-at-least-32-chars!"

func TestGenerateAndParseToken(t *testing.T) {
	signed, err := GenerateAccessToken("ops-team", RoleAdmin, testSecret, 15*time.Minute)
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}

	claims, err := ParseToken(signed, testSecret)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if claims.Subject != "ops-team" {
		t.Errorf("Subject = %q, want %q", claims.Subject, "ops-team")
	}
	if claims.Role != RoleAdmin {
		t.Errorf("Role = %q, want %q", claims.Role, RoleAdmin)
	}
	if claims.ID == "" {
		t.Error("ID (jti) is empty")
	}
}

func TestGenerateAccessToken_RejectsUnknownRole(t *testing.T) {
	_, err := GenerateAccessToken("someone", Role("owner"), testSecret, time.Minute)
	if !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("GenerateAccessToken() error = %v, want ErrTokenInvalid", err)
	}
}

func TestParseToken_Rejections(t *testing.T) {
	valid, err := GenerateAccessToken("viewer-1", RoleViewer, testSecret, time.Minute)
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}

	sign := func(claims jwt.Claims, method jwt.SigningMethod, key any) string {
		t.Helper()
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		if err != nil {
			t.Fatalf("signing: %v", err)
		}
		return s
	}
	now := time.Now()

	tests := []struct {
		name  string
		token string
	}{
		{"wrong secret", sign(CustomClaims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "x", ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute))},
			Role:             RoleAdmin,
		}, jwt.SigningMethodHS256, []byte("another-secret-key-that-is-long-enough"))},
		{"expired", sign(CustomClaims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "x", ExpiresAt: jwt.NewNumericDate(now.Add(-time.Minute))},
			Role:             RoleAdmin,
		}, jwt.SigningMethodHS256, []byte(testSecret))},
		{"missing subject", sign(CustomClaims{
			RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute))},
			Role:             RoleAdmin,
		}, jwt.SigningMethodHS256, []byte(testSecret))},
		{"unknown role", sign(CustomClaims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "x", ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute))},
			Role:             "root",
		}, jwt.SigningMethodHS256, []byte(testSecret))},
		{"other algorithm", sign(CustomClaims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "x", ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute))},
			Role:             RoleAdmin,
		}, jwt.SigningMethodHS512, []byte(testSecret))},
		{"garbage", "not.a.token"},
		{"tampered", valid + "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseToken(tt.token, testSecret); !errors.Is(err, ErrTokenInvalid) {
				t.Errorf("ParseToken() error = %v, want ErrTokenInvalid", err)
			}
		})
	}
}
