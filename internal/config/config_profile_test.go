package config

import (
	"strings"
	"testing"
	"time"
)

func validBaseConfig(env string) *Config {
	return &Config{
		Env:                        env,
		DatabaseURL:                "postgres://x",
		CORSAllowedOrigins:         []string{"http://localhost:3000"},
		JWTSecret:                  "abcdefghijklmnopqrstuvwxyz123456",
		OperatorTokenTTL:           12 * time.Hour,
		ConfirmationTicketTTL:      2 * time.Minute,
		IssuanceMaxBatch:           500,
		IssuancePersistConcurrency: 4,
		TokenPrefix:                "UID",
		TokenSuffixLength:          6,
		TokenMaxAttempts:           64,
		DocumentFileName:           "CTF_Certification_IDs.pdf",
		VerificationSessionTTL:     15 * time.Minute,
		VerificationMaxSessions:    100,
		VerifyRateLimitPerMin:      60,
		APIRateLimitPerMin:         120,
		VerifyUploadMaxBytes:       1 << 20,
		DocumentMemoryStoreLimit:   8,
		IdempotencyTTL:             24 * time.Hour,
		IdempotencyCleanupInterval: 10 * time.Minute,
		ReadinessProbeTimeout:      time.Second,
		ShutdownTimeout:            20 * time.Second,
		OTELTraceSamplingRatio:     1.0,
		OTELMetricsExportInterval:  10 * time.Second,
		OTELLogLevel:               "info",
	}
}

func TestValidateProdProfileStrictRules(t *testing.T) {
	cfg := validBaseConfig("production")
	cfg.DatabaseURL = "sqlite://file::memory:"
	cfg.CORSAllowedOrigins = []string{"*"}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected strict prod validation errors")
	}
	if !strings.Contains(err.Error(), "sqlite DATABASE_URL") || !strings.Contains(err.Error(), "CORS_ALLOWED_ORIGINS") {
		t.Fatalf("expected sqlite and cors violations, got %v", err)
	}
}

func TestValidateDevelopmentProfileAllowsRelaxedSettings(t *testing.T) {
	cfg := validBaseConfig("development")
	cfg.DatabaseURL = "sqlite://file::memory:"
	cfg.CORSAllowedOrigins = []string{"*"}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected relaxed dev validation to pass: %v", err)
	}
}

func TestValidateJoinsAllViolations(t *testing.T) {
	cfg := validBaseConfig("development")
	cfg.JWTSecret = "short"
	cfg.IssuanceMaxBatch = 0
	cfg.TokenPrefix = "U-ID"
	cfg.DocumentFileName = "ids.txt"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	if got := len(strings.Split(err.Error(), "; ")); got != 4 {
		t.Fatalf("expected 4 violations, got %d: %v", got, err)
	}
}

func TestValidateStorageRequiresCredentials(t *testing.T) {
	cfg := validBaseConfig("development")
	cfg.StorageEnabled = true
	cfg.StorageEndpoint = "localhost:9000"
	cfg.StorageBucket = "docs"

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "STORAGE_ACCESS_KEY") {
		t.Fatalf("expected storage credential violation, got %v", err)
	}
}

func TestLoadReadsIssuanceDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("DATABASE_URL", "sqlite://file::memory:")
	t.Setenv("JWT_SECRET", "abcdefghijklmnopqrstuvwxyz123456")
	t.Setenv("ISSUANCE_MAX_BATCH", "")
	t.Setenv("CONFIRMATION_TICKET_TTL", "90s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.IssuanceMaxBatch != 500 || cfg.TokenPrefix != "UID" || cfg.TokenSuffixLength != 6 {
		t.Fatalf("unexpected issuance defaults: %+v", cfg)
	}
	if cfg.ConfirmationTicketTTL != 90*time.Second {
		t.Fatalf("expected 90s ticket ttl, got %s", cfg.ConfirmationTicketTTL)
	}
	if cfg.DocumentFileName != "CTF_Certification_IDs.pdf" {
		t.Fatalf("unexpected document name %q", cfg.DocumentFileName)
	}
}

func TestLoadRejectsMalformedDuration(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://x")
	t.Setenv("JWT_SECRET", "abcdefghijklmnopqrstuvwxyz123456")
	t.Setenv("OPERATOR_TOKEN_TTL", "forever")

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "OPERATOR_TOKEN_TTL") {
		t.Fatalf("expected duration parse error, got %v", err)
	}
}
