package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("APP_TIMEZONE", "UTC")
	t.Setenv("DATABASE_URL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("port: got %s", cfg.Server.Port)
	}
	if cfg.JWT.ResetTokenTTL != time.Hour {
		t.Errorf("reset ttl: got %v", cfg.JWT.ResetTokenTTL)
	}
	if cfg.App.ServiceTitle != "Serviço de Manicure" {
		t.Errorf("service title: got %s", cfg.App.ServiceTitle)
	}
	if cfg.Email.MaxAttempts != 5 {
		t.Errorf("max attempts: got %d", cfg.Email.MaxAttempts)
	}
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error without JWT_SECRET")
	}
}

func TestDSN(t *testing.T) {
	c := &Config{Database: DatabaseConfig{
		User: "u", Password: "p", Host: "db", Port: "5433", Name: "salon", SSLMode: "disable", ConnTimeout: 10 * time.Second,
	}}
	want := "postgres://u:p@db:5433/salon?sslmode=disable&connect_timeout=10"
	if got := c.DSN(); got != want {
		t.Errorf("dsn: got %s", got)
	}

	c.Database.URL = "postgres://override"
	if got := c.DSN(); got != "postgres://override" {
		t.Errorf("url override ignored: %s", got)
	}
}

func TestStringSliceEnv(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	got := getStringSliceEnv("CORS_ALLOWED_ORIGINS", nil)
	if len(got) != 2 || got[0] != "https://a.example" || got[1] != "https://b.example" {
		t.Errorf("got %v", got)
	}
}
