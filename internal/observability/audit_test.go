package observability

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestBuildAuditEventIncludesRequiredFields(t *testing.T) {
	req := httptest.NewRequest("POST", "/api/v1/batches", nil)
	req.Header.Set("X-Request-Id", "req-test-1")
	req.RemoteAddr = "127.0.0.1:12345"

	ev := BuildAuditEvent(req, AuditInput{
		EventName:   "issuance.batch.create",
		ActorUserID: "operator-1",
		TargetType:  "issuance_batch",
		TargetID:    "7",
		Action:      "create",
		Outcome:     "success",
		Reason:      "confirmed",
	})

	if ev.EventVersion != 1 {
		t.Fatalf("expected event version 1, got %d", ev.EventVersion)
	}
	if ev.ActorIP != "127.0.0.1" {
		t.Fatalf("unexpected actor ip: %s", ev.ActorIP)
	}
	if ev.RequestID != "req-test-1" {
		t.Fatalf("unexpected request id: %s", ev.RequestID)
	}
	if _, err := time.Parse(time.RFC3339, ev.TS); err != nil {
		t.Fatalf("expected RFC3339 ts, got %q err=%v", ev.TS, err)
	}
	if err := ev.Validate(); err != nil {
		t.Fatalf("expected valid event, got %v", err)
	}
}

func TestBuildAuditEventDefaultsOptionalFields(t *testing.T) {
	req := httptest.NewRequest("POST", "/api/v1/verify/sessions/abc/scan", nil)

	ev := BuildAuditEvent(req, AuditInput{
		EventName:  "verification.validate",
		TargetType: "credential",
		Action:     "validate",
		Outcome:    "rejected",
	})

	if ev.ActorUserID != "anonymous" || ev.TargetID != "none" || ev.Reason != "none" {
		t.Fatalf("expected defaults for optional fields: %+v", ev)
	}
	if ev.RequestID != "unknown" {
		t.Fatalf("expected unknown request id, got %q", ev.RequestID)
	}
	if err := ev.Validate(); err != nil {
		t.Fatalf("expected valid event, got %v", err)
	}
}

func TestAuditEventValidateRejectsMissingEventName(t *testing.T) {
	ev := AuditEvent{
		EventVersion: 1,
		ActorUserID:  "operator-1",
		ActorIP:      "127.0.0.1",
		TargetType:   "credential",
		TargetID:     "UID-1-abcdef",
		Action:       "validate",
		Outcome:      "success",
		Reason:       "ok",
		RequestID:    "req-1",
		TS:           time.Now().UTC().Format(time.RFC3339),
	}
	if err := ev.Validate(); err == nil {
		t.Fatal("expected validation error for missing event_name")
	}
}
