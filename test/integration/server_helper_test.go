package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sandeepkv93/event-credential-service/internal/database"
	"github.com/sandeepkv93/event-credential-service/internal/document"
	"github.com/sandeepkv93/event-credential-service/internal/http/handler"
	"github.com/sandeepkv93/event-credential-service/internal/http/middleware"
	"github.com/sandeepkv93/event-credential-service/internal/http/router"
	"github.com/sandeepkv93/event-credential-service/internal/repository"
	"github.com/sandeepkv93/event-credential-service/internal/scancode"
	"github.com/sandeepkv93/event-credential-service/internal/security"
	"github.com/sandeepkv93/event-credential-service/internal/service"
)

type apiEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type serverOptions struct {
	store            service.DocumentStore
	verifyRPM        int
	maxBatch         int
	uploadLimitBytes int64
	guard            service.LookupGuard
}

type credentialServer struct {
	baseURL string
	client  *http.Client
	db      *gorm.DB
	jwt     *security.JWTManager
	store   service.DocumentStore
}

func newCredentialServer(t *testing.T, opts serverOptions) *credentialServer {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	if opts.store == nil {
		opts.store = service.NewMemoryDocumentStore(8)
	}
	if opts.verifyRPM <= 0 {
		opts.verifyRPM = 1000
	}
	if opts.maxBatch <= 0 {
		opts.maxBatch = 100
	}
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))

	creds := repository.NewCredentialRepository(db)
	batches := repository.NewIssuanceBatchRepository(db)
	jwtMgr := security.NewJWTManager("event-credential-service", "abcdefghijklmnopqrstuvwxyz123456", time.Hour, 5*time.Minute)
	issuance := service.NewIssuanceService(
		creds,
		batches,
		service.NewTokenGenerator(service.TokenGeneratorConfig{}),
		document.NewRenderer(scancode.NewQREncoder(), document.Config{}),
		opts.store,
		service.IssuanceConfig{MaxBatch: opts.maxBatch, PersistConcurrency: 1},
		quiet,
	)
	sessions := service.NewSessionRegistry(creds, scancode.NewQRDecoder(), service.SessionRegistryConfig{}, quiet)
	idem := middleware.NewIdempotencyMiddleware(service.NewDBIdempotencyStore(db), time.Hour)

	h := router.NewRouter(router.Dependencies{
		BatchHandler:        handler.NewBatchHandler(issuance, jwtMgr),
		CredentialHandler:   handler.NewCredentialHandler(service.NewCredentialService(creds)),
		VerificationHandler: handler.NewVerificationHandler(sessions, opts.guard, opts.uploadLimitBytes),
		JWTManager:          jwtMgr,
		CORSOrigins:         []string{"http://localhost:3000"},
		APIRateLimitRPM:     1000,
		VerifyRateLimitRPM:  opts.verifyRPM,
		UploadMaxBytes:      opts.uploadLimitBytes,
		Idempotency:         idem.Middleware,
	})
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	return &credentialServer{baseURL: srv.URL, client: srv.Client(), db: db, jwt: jwtMgr, store: opts.store}
}

func (s *credentialServer) operatorHeaders(t *testing.T, extra map[string]string) map[string]string {
	t.Helper()
	tok, _, err := s.jwt.SignOperatorToken("desk-1")
	if err != nil {
		t.Fatalf("sign operator token: %v", err)
	}
	h := map[string]string{"Authorization": "Bearer " + tok}
	for k, v := range extra {
		h[k] = v
	}
	return h
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, apiEnvelope) {
	t.Helper()
	resp, raw := doRaw(t, client, method, url, body, headers)
	var env apiEnvelope
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &env)
	}
	return resp, env
}

func doRaw(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, raw
}

func decodeData[T any](t *testing.T, env apiEnvelope) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(env.Data, &out); err != nil {
		t.Fatalf("decode data: %v (%s)", err, string(env.Data))
	}
	return out
}
