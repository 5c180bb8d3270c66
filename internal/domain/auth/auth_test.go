package auth

import (
	"testing"
	"time"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("super-secret")
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}

	if err := CheckPassword(hash, "super-secret"); err != nil {
		t.Fatalf("expected password to match, got %v", err)
	}

	if err := CheckPassword(hash, "wrong"); err == nil {
		t.Fatal("expected mismatch error")
	}
}

func TestGenerateAndParseToken(t *testing.T) {
	secret := "test-secret"
	claims := Claims{EmployeeID: "EMP002", Username: "john.doe", Name: "John Doe", Role: RoleEmployee}

	token, err := GenerateToken(secret, claims, time.Hour)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}

	parsed, err := ParseToken(secret, token)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	if parsed.EmployeeID != claims.EmployeeID || parsed.Username != claims.Username || parsed.Name != claims.Name || parsed.Role != claims.Role {
		t.Fatalf("claims mismatch: %+v", parsed)
	}
}

func TestParseTokenRejectsExpiredAndForeignSecret(t *testing.T) {
	claims := Claims{EmployeeID: "EMP002", Role: RoleEmployee}

	expired, err := generateTokenAt("test-secret", claims, time.Hour, time.Now().Add(-2*time.Hour))
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	if _, err := ParseToken("test-secret", expired); err == nil {
		t.Fatal("expected expired token to be rejected")
	}

	foreign, err := GenerateToken("other-secret", claims, time.Hour)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	if _, err := ParseToken("test-secret", foreign); err == nil {
		t.Fatal("expected token signed with another secret to be rejected")
	}
}
