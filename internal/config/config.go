package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env      string
	HTTPPort string

	DatabaseURL        string
	CORSAllowedOrigins []string

	JWTSecret             string
	JWTIssuer             string
	OperatorTokenTTL      time.Duration
	ConfirmationTicketTTL time.Duration

	IssuanceMaxBatch           int
	IssuancePersistConcurrency int
	TokenPrefix                string
	TokenSuffixLength          int
	TokenMaxAttempts           int

	DocumentTitle    string
	DocumentIssuer   string
	DocumentFileName string

	VerificationSessionTTL  time.Duration
	VerificationMaxSessions int
	VerifyRateLimitPerMin   int
	APIRateLimitPerMin      int
	VerifyUploadMaxBytes    int64
	VisionOCREnabled        bool
	VisionCredentialsFile   string

	LookupGuardEnabled     bool
	LookupGuardFreeMisses  int
	LookupGuardBaseDelay   time.Duration
	LookupGuardMaxDelay    time.Duration
	LookupGuardResetWindow time.Duration

	CredentialListCacheTTL time.Duration

	RedisEnabled         bool
	RedisAddr            string
	RedisPassword        string
	RedisDB              int
	RateLimitRedisPrefix string
	RateLimitFailClosed  bool

	StorageEnabled           bool
	StorageEndpoint          string
	StorageAccessKey         string
	StorageSecretKey         string
	StorageBucket            string
	StorageUseSSL            bool
	DocumentMemoryStoreLimit int

	IdempotencyTTL             time.Duration
	IdempotencyCleanupInterval time.Duration

	ReadinessProbeTimeout  time.Duration
	ServerStartGracePeriod time.Duration
	ShutdownTimeout        time.Duration

	OTELServiceName           string
	OTELEnvironment           string
	OTELExporterOTLPEndpoint  string
	OTELExporterOTLPInsecure  bool
	OTELMetricsExportInterval time.Duration
	OTELTraceSamplingRatio    float64
	OTELMetricsEnabled        bool
	OTELTracingEnabled        bool
	OTELLogsEnabled           bool
	OTELLogLevel              string
}

func Load() (*Config, error) {
	env := getEnv("APP_ENV", "development")
	cfg := &Config{
		Env:                env,
		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		CORSAllowedOrigins: splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),

		JWTSecret: os.Getenv("JWT_SECRET"),
		JWTIssuer: getEnv("JWT_ISSUER", "event-credential-service"),

		IssuanceMaxBatch:           getEnvInt("ISSUANCE_MAX_BATCH", 500),
		IssuancePersistConcurrency: getEnvInt("ISSUANCE_PERSIST_CONCURRENCY", 4),
		TokenPrefix:                getEnv("TOKEN_PREFIX", "UID"),
		TokenSuffixLength:          getEnvInt("TOKEN_SUFFIX_LENGTH", 6),
		TokenMaxAttempts:           getEnvInt("TOKEN_MAX_ATTEMPTS", 64),

		DocumentTitle:    getEnv("DOCUMENT_TITLE", "CEG Tech Forum - Generated QR Codes"),
		DocumentIssuer:   getEnv("DOCUMENT_ISSUER", "CEG Tech Forum | College of Engineering, Guindy"),
		DocumentFileName: getEnv("DOCUMENT_FILE_NAME", "CTF_Certification_IDs.pdf"),

		VerificationMaxSessions: getEnvInt("VERIFICATION_MAX_SESSIONS", 1000),
		VerifyRateLimitPerMin:   getEnvInt("VERIFY_RATE_LIMIT_PER_MIN", 60),
		APIRateLimitPerMin:      getEnvInt("API_RATE_LIMIT_PER_MIN", 120),
		VerifyUploadMaxBytes:    int64(getEnvInt("VERIFY_UPLOAD_MAX_BYTES", 5<<20)),
		VisionOCREnabled:        getEnvBool("VISION_OCR_ENABLED", false),
		VisionCredentialsFile:   os.Getenv("VISION_CREDENTIALS_FILE"),
		LookupGuardEnabled:      getEnvBool("LOOKUP_GUARD_ENABLED", true),
		LookupGuardFreeMisses:   getEnvInt("LOOKUP_GUARD_FREE_MISSES", 5),

		RedisEnabled:         getEnvBool("REDIS_ENABLED", false),
		RedisAddr:            getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:        os.Getenv("REDIS_PASSWORD"),
		RedisDB:              getEnvInt("REDIS_DB", 0),
		RateLimitRedisPrefix: getEnv("RATE_LIMIT_REDIS_PREFIX", "rl"),
		RateLimitFailClosed:  getEnvBool("RATE_LIMIT_FAIL_CLOSED", false),

		StorageEnabled:           getEnvBool("STORAGE_ENABLED", false),
		StorageEndpoint:          getEnv("STORAGE_ENDPOINT", "localhost:9000"),
		StorageAccessKey:         os.Getenv("STORAGE_ACCESS_KEY"),
		StorageSecretKey:         os.Getenv("STORAGE_SECRET_KEY"),
		StorageBucket:            getEnv("STORAGE_BUCKET", "credential-documents"),
		StorageUseSSL:            getEnvBool("STORAGE_USE_SSL", false),
		DocumentMemoryStoreLimit: getEnvInt("DOCUMENT_MEMORY_STORE_LIMIT", 32),

		OTELServiceName:          getEnv("OTEL_SERVICE_NAME", "event-credential-service"),
		OTELEnvironment:          getEnv("OTEL_ENVIRONMENT", env),
		OTELExporterOTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTELExporterOTLPInsecure: getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		OTELTraceSamplingRatio:   getEnvFloat("OTEL_TRACE_SAMPLING_RATIO", 1.0),
		OTELMetricsEnabled:       getEnvBool("OTEL_METRICS_ENABLED", true),
		OTELTracingEnabled:       getEnvBool("OTEL_TRACING_ENABLED", true),
		OTELLogsEnabled:          getEnvBool("OTEL_LOGS_ENABLED", true),
		OTELLogLevel:             strings.ToLower(getEnv("OTEL_LOG_LEVEL", "info")),
	}
	durations := []struct {
		key  string
		def  string
		dest *time.Duration
	}{
		{"OPERATOR_TOKEN_TTL", "12h", &cfg.OperatorTokenTTL},
		{"CONFIRMATION_TICKET_TTL", "2m", &cfg.ConfirmationTicketTTL},
		{"VERIFICATION_SESSION_TTL", "15m", &cfg.VerificationSessionTTL},
		{"IDEMPOTENCY_TTL", "24h", &cfg.IdempotencyTTL},
		{"IDEMPOTENCY_CLEANUP_INTERVAL", "10m", &cfg.IdempotencyCleanupInterval},
		{"LOOKUP_GUARD_BASE_DELAY", "2s", &cfg.LookupGuardBaseDelay},
		{"LOOKUP_GUARD_MAX_DELAY", "5m", &cfg.LookupGuardMaxDelay},
		{"LOOKUP_GUARD_RESET_WINDOW", "15m", &cfg.LookupGuardResetWindow},
		{"CREDENTIAL_LIST_CACHE_TTL", "30s", &cfg.CredentialListCacheTTL},
		{"READINESS_PROBE_TIMEOUT", "1s", &cfg.ReadinessProbeTimeout},
		{"SERVER_START_GRACE_PERIOD", "2s", &cfg.ServerStartGracePeriod},
		{"SHUTDOWN_TIMEOUT", "20s", &cfg.ShutdownTimeout},
		{"OTEL_METRICS_EXPORT_INTERVAL", "10s", &cfg.OTELMetricsExportInterval},
	}
	for _, d := range durations {
		v, err := getEnvDuration(d.key, d.def)
		if err != nil {
			return nil, err
		}
		*d.dest = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []string
	if c.DatabaseURL == "" {
		errs = append(errs, "DATABASE_URL is required")
	}
	if len(c.JWTSecret) < 32 {
		errs = append(errs, "JWT_SECRET must be at least 32 chars")
	}
	if c.OperatorTokenTTL <= 0 || c.OperatorTokenTTL > 7*24*time.Hour {
		errs = append(errs, "OPERATOR_TOKEN_TTL must be between 1s and 7d")
	}
	if c.ConfirmationTicketTTL <= 0 || c.ConfirmationTicketTTL > 30*time.Minute {
		errs = append(errs, "CONFIRMATION_TICKET_TTL must be between 1s and 30m")
	}
	if c.IssuanceMaxBatch <= 0 {
		errs = append(errs, "ISSUANCE_MAX_BATCH must be > 0")
	}
	if c.IssuancePersistConcurrency <= 0 || c.IssuancePersistConcurrency > 64 {
		errs = append(errs, "ISSUANCE_PERSIST_CONCURRENCY must be between 1 and 64")
	}
	if strings.TrimSpace(c.TokenPrefix) == "" || strings.Contains(c.TokenPrefix, "-") {
		errs = append(errs, "TOKEN_PREFIX must be non-empty and must not contain '-'")
	}
	if c.TokenSuffixLength < 4 || c.TokenSuffixLength > 16 {
		errs = append(errs, "TOKEN_SUFFIX_LENGTH must be between 4 and 16")
	}
	if c.TokenMaxAttempts <= 0 {
		errs = append(errs, "TOKEN_MAX_ATTEMPTS must be > 0")
	}
	if !strings.HasSuffix(strings.ToLower(c.DocumentFileName), ".pdf") {
		errs = append(errs, "DOCUMENT_FILE_NAME must end with .pdf")
	}
	if c.VerificationSessionTTL <= 0 {
		errs = append(errs, "VERIFICATION_SESSION_TTL must be > 0")
	}
	if c.VerificationMaxSessions <= 0 {
		errs = append(errs, "VERIFICATION_MAX_SESSIONS must be > 0")
	}
	if c.VerifyRateLimitPerMin <= 0 {
		errs = append(errs, "VERIFY_RATE_LIMIT_PER_MIN must be > 0")
	}
	if c.LookupGuardEnabled && (c.LookupGuardFreeMisses < 0 || c.LookupGuardBaseDelay <= 0 || c.LookupGuardMaxDelay < c.LookupGuardBaseDelay) {
		errs = append(errs, "LOOKUP_GUARD_* requires FREE_MISSES >= 0 and 0 < BASE_DELAY <= MAX_DELAY")
	}
	if c.CredentialListCacheTTL < 0 {
		errs = append(errs, "CREDENTIAL_LIST_CACHE_TTL must be >= 0")
	}
	if c.APIRateLimitPerMin <= 0 {
		errs = append(errs, "API_RATE_LIMIT_PER_MIN must be > 0")
	}
	if c.VerifyUploadMaxBytes <= 0 {
		errs = append(errs, "VERIFY_UPLOAD_MAX_BYTES must be > 0")
	}
	if c.RedisEnabled && c.RedisAddr == "" {
		errs = append(errs, "REDIS_ADDR is required when REDIS_ENABLED=true")
	}
	if c.StorageEnabled {
		if c.StorageEndpoint == "" || c.StorageBucket == "" {
			errs = append(errs, "STORAGE_ENDPOINT and STORAGE_BUCKET are required when STORAGE_ENABLED=true")
		}
		if c.StorageAccessKey == "" || c.StorageSecretKey == "" {
			errs = append(errs, "STORAGE_ACCESS_KEY and STORAGE_SECRET_KEY are required when STORAGE_ENABLED=true")
		}
	}
	if c.DocumentMemoryStoreLimit <= 0 {
		errs = append(errs, "DOCUMENT_MEMORY_STORE_LIMIT must be > 0")
	}
	if c.IdempotencyTTL <= 0 {
		errs = append(errs, "IDEMPOTENCY_TTL must be > 0")
	}
	if c.IdempotencyCleanupInterval <= 0 {
		errs = append(errs, "IDEMPOTENCY_CLEANUP_INTERVAL must be > 0")
	}
	if c.ReadinessProbeTimeout <= 0 {
		errs = append(errs, "READINESS_PROBE_TIMEOUT must be > 0")
	}
	if c.ServerStartGracePeriod < 0 {
		errs = append(errs, "SERVER_START_GRACE_PERIOD must be >= 0")
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, "SHUTDOWN_TIMEOUT must be > 0")
	}
	if !isLocalLikeEnv(c.Env) {
		if strings.HasPrefix(c.DatabaseURL, "sqlite://") {
			errs = append(errs, "sqlite DATABASE_URL is only allowed in local environments")
		}
		for _, origin := range c.CORSAllowedOrigins {
			if origin == "*" {
				errs = append(errs, "CORS_ALLOWED_ORIGINS must not contain * outside local environments")
				break
			}
		}
	}
	if (c.OTELMetricsEnabled || c.OTELTracingEnabled || c.OTELLogsEnabled) && c.OTELExporterOTLPEndpoint == "" {
		errs = append(errs, "OTEL_EXPORTER_OTLP_ENDPOINT is required when OTel is enabled")
	}
	if c.OTELTraceSamplingRatio < 0 || c.OTELTraceSamplingRatio > 1 {
		errs = append(errs, "OTEL_TRACE_SAMPLING_RATIO must be between 0 and 1")
	}
	if c.OTELMetricsExportInterval <= 0 {
		errs = append(errs, "OTEL_METRICS_EXPORT_INTERVAL must be > 0")
	}
	if !isValidLogLevel(c.OTELLogLevel) {
		errs = append(errs, "OTEL_LOG_LEVEL must be one of debug, info, warn, error")
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// IsLocalLike reports whether the environment is a developer or test profile.
func (c *Config) IsLocalLike() bool {
	return isLocalLikeEnv(c.Env)
}

func isLocalLikeEnv(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "development", "dev", "local", "test":
		return true
	default:
		return false
	}
}

func isValidLogLevel(v string) bool {
	switch strings.ToLower(v) {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

func getEnv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getEnvFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getEnvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getEnv(key, def))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		trim := strings.TrimSpace(p)
		if trim != "" {
			out = append(out, trim)
		}
	}
	return out
}
