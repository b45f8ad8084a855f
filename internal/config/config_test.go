package config

import (
	"testing"
	"time"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/notes")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("SMTP_USER", "mailer@example.com")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.HTTPPort != "8080" {
		t.Fatalf("expected default port 8080, got %s", cfg.HTTPPort)
	}
	if cfg.JWTTTL != time.Hour {
		t.Fatalf("expected jwt ttl 1h, got %v", cfg.JWTTTL)
	}
	if cfg.OTPTTL != 5*time.Minute {
		t.Fatalf("expected otp ttl 5m, got %v", cfg.OTPTTL)
	}
	if cfg.SMTPFrom != "mailer@example.com" {
		t.Fatalf("expected smtp from to fall back to smtp user, got %q", cfg.SMTPFrom)
	}
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "*" {
		t.Fatalf("unexpected cors origins: %v", cfg.CORSAllowedOrigins)
	}
	if !cfg.DBAutoMigrate || !cfg.OTPSweepOnIssue {
		t.Fatalf("expected migrations and sweep on issue enabled by default")
	}
}

func TestLoadConfig_RequiresSecrets(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/notes")
	t.Setenv("JWT_SECRET", "")

	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error when JWT_SECRET is missing")
	}
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/notes")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("OTP_TTL", "2m")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com,https://b.example.com")
	t.Setenv("SMTP_FROM", "noreply@example.com")
	t.Setenv("APP_ENV", "development")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.OTPTTL != 2*time.Minute {
		t.Fatalf("expected otp ttl 2m, got %v", cfg.OTPTTL)
	}
	if len(cfg.CORSAllowedOrigins) != 2 {
		t.Fatalf("expected two cors origins, got %v", cfg.CORSAllowedOrigins)
	}
	if cfg.SMTPFrom != "noreply@example.com" {
		t.Fatalf("expected explicit smtp from, got %q", cfg.SMTPFrom)
	}
	if !cfg.IsDevelopment() {
		t.Fatalf("expected development mode")
	}
}
