package auth

import (
	"errors"
	"testing"
	"time"
)

const secret = "test-secret"

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("testpass123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !CheckPassword(hash, "testpass123") {
		t.Error("correct password rejected")
	}
	if CheckPassword(hash, "wrong") {
		t.Error("wrong password accepted")
	}
}

func TestAccessTokenExpiry(t *testing.T) {
	tok, err := MakeToken("test-uid", true, secret, 15*time.Minute)
	if err != nil {
		t.Fatalf("make token: %v", err)
	}

	claims, err := ParseToken(tok, secret)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.UserID != "test-uid" {
		t.Errorf("uid mismatch: %s", claims.UserID)
	}
	if !claims.IsAdmin {
		t.Error("admin claim lost")
	}

	diff := time.Until(claims.ExpiresAt.Time)
	if diff < 14*time.Minute || diff > 16*time.Minute {
		t.Errorf("expected ~15min expiry, got %v", diff)
	}
}

func TestExpiredToken(t *testing.T) {
	tok, _ := MakeToken("uid", false, secret, -time.Minute)
	_, err := ParseToken(tok, secret)
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestAlgorithmConfusion(t *testing.T) {
	tok, _ := MakeToken("uid", false, secret, time.Minute)
	if _, err := ParseToken(tok, secret); err != nil {
		t.Fatalf("valid token failed: %v", err)
	}

	if _, err := ParseToken(tok, "wrong-secret"); err == nil {
		t.Fatal("expected error for wrong secret")
	}

	if _, err := ParseToken("not.a.token", secret); err == nil {
		t.Fatal("expected error for garbage token")
	}
}

func TestResetTokenIsolation(t *testing.T) {
	reset, err := MakeResetToken("uid-1", secret, time.Hour)
	if err != nil {
		t.Fatalf("make reset: %v", err)
	}

	uid, err := ParseResetToken(reset, secret)
	if err != nil {
		t.Fatalf("parse reset: %v", err)
	}
	if uid != "uid-1" {
		t.Errorf("uid: got %s", uid)
	}

	// a reset token is not an access token and vice versa
	if _, err := ParseToken(reset, secret); err == nil {
		t.Error("reset token accepted as access token")
	}
	access, _ := MakeToken("uid-1", false, secret, time.Minute)
	if _, err := ParseResetToken(access, secret); err == nil {
		t.Error("access token accepted as reset token")
	}
}

func TestRefreshTokenGeneration(t *testing.T) {
	raw, hash, err := GenerateRefreshToken()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(raw) != 64 { // 32 bytes hex
		t.Errorf("expected 64 char raw token, got %d", len(raw))
	}
	if len(hash) != 64 {
		t.Errorf("expected 64 char hash, got %d", len(hash))
	}
	if HashRefreshToken(raw) != hash {
		t.Error("hash mismatch")
	}
}
