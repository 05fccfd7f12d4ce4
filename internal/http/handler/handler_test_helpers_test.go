package handler

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sandeepkv93/event-credential-service/internal/security"
)

const testJWTSecret = "abcdefghijklmnopqrstuvwxyz123456"

func newTestJWTManager() *security.JWTManager {
	return security.NewJWTManager("event-credential-service", testJWTSecret, time.Hour, time.Minute)
}

func operatorTokenForTest(t *testing.T, jwtMgr *security.JWTManager, subject string) string {
	t.Helper()
	tok, _, err := jwtMgr.SignOperatorToken(subject)
	if err != nil {
		t.Fatalf("sign operator token: %v", err)
	}
	return tok
}

type envelopeForTest struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) envelopeForTest {
	t.Helper()
	var env envelopeForTest
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("unmarshal envelope: %v body=%s", err, rr.Body.String())
	}
	return env
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	env := decodeEnvelope(t, rr)
	if env.Error == nil {
		t.Fatalf("expected error envelope, got %s", rr.Body.String())
	}
	return env.Error.Code
}
