package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sandeepkv93/event-credential-service/internal/domain"
	"github.com/sandeepkv93/event-credential-service/internal/http/response"
	"github.com/sandeepkv93/event-credential-service/internal/observability"
	"github.com/sandeepkv93/event-credential-service/internal/service"
)

const defaultUploadMaxBytes int64 = 5 << 20

// VerificationHandler exposes verification sessions. Every pipeline outcome,
// including rejections, is a 200; only malformed requests and unknown
// sessions are errors.
type VerificationHandler struct {
	sessions       service.SessionRegistryInterface
	guard          service.LookupGuard
	uploadMaxBytes int64
}

func NewVerificationHandler(sessions service.SessionRegistryInterface, guard service.LookupGuard, uploadMaxBytes int64) *VerificationHandler {
	if uploadMaxBytes <= 0 {
		uploadMaxBytes = defaultUploadMaxBytes
	}
	if guard == nil {
		guard = service.NoopLookupGuard{}
	}
	return &VerificationHandler{sessions: sessions, guard: guard, uploadMaxBytes: uploadMaxBytes}
}

type validationView struct {
	Outcome          service.Outcome       `json:"outcome"`
	State            service.PipelineState `json:"state"`
	Credential       *domain.Credential    `json:"credential,omitempty"`
	AlreadyValidated bool                  `json:"already_validated,omitempty"`
	Reason           string                `json:"reason,omitempty"`
}

type sessionView struct {
	SessionID   string                `json:"session_id"`
	State       service.PipelineState `json:"state"`
	Credential  *domain.Credential    `json:"credential,omitempty"`
	LastOutcome service.Outcome       `json:"last_outcome,omitempty"`
	LastReason  string                `json:"last_reason,omitempty"`
}

func (h *VerificationHandler) Create(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Create(r.Context())
	if err != nil {
		if errors.Is(err, service.ErrSessionLimitReached) {
			response.Error(w, r, http.StatusServiceUnavailable, "SESSION_LIMIT", "too many active verification sessions", nil)
			return
		}
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to create session", nil)
		return
	}
	response.JSON(w, r, http.StatusCreated, sessionView{SessionID: sess.ID, State: sess.Pipeline.State()})
}

func (h *VerificationHandler) Get(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	snap := sess.Pipeline.Snapshot()
	response.JSON(w, r, http.StatusOK, sessionView{
		SessionID:   sess.ID,
		State:       snap.State,
		Credential:  snap.Credential,
		LastOutcome: snap.LastOutcome,
		LastReason:  snap.LastReason,
	})
}

func (h *VerificationHandler) Scan(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if h.coolingDown(w, r, sess, service.ChannelScan) {
		return
	}
	res, err := sess.Pipeline.SubmitScan(r.Context(), body.Token)
	h.writeResult(w, r, sess, res, err)
}

func (h *VerificationHandler) Manual(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var body struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if h.coolingDown(w, r, sess, service.ChannelManual) {
		return
	}
	res, err := sess.Pipeline.SubmitManual(r.Context(), body.Text)
	h.writeResult(w, r, sess, res, err)
}

// Upload accepts a multipart form with an "image" field or a raw image body.
func (h *VerificationHandler) Upload(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	if h.coolingDown(w, r, sess, service.ChannelUpload) {
		return
	}
	img, err := h.readImage(w, r)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			observability.RecordVerificationOutcome(r.Context(), string(service.ChannelUpload), "too_large")
			response.Error(w, r, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "image exceeds upload limit", nil)
			return
		}
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid image upload", nil)
		return
	}
	res, err := sess.Pipeline.SubmitImage(r.Context(), img)
	h.writeResult(w, r, sess, res, err)
}

func (h *VerificationHandler) Dismiss(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	state := sess.Pipeline.Dismiss()
	response.JSON(w, r, http.StatusOK, map[string]any{"state": state})
}

func (h *VerificationHandler) Close(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if err := h.sessions.Close(r.Context(), id); err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "verification session not found", nil)
			return
		}
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to close session", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]any{"closed": true})
}

func (h *VerificationHandler) session(w http.ResponseWriter, r *http.Request) (*service.VerificationSession, bool) {
	id := chi.URLParam(r, "sessionID")
	sess, err := h.sessions.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "verification session not found", nil)
			return nil, false
		}
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to load session", nil)
		return nil, false
	}
	return sess, true
}

func (h *VerificationHandler) readImage(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.uploadMaxBytes)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if !strings.HasPrefix(mediaType, "multipart/") {
		return io.ReadAll(r.Body)
	}
	if err := r.ParseMultipartForm(h.uploadMaxBytes); err != nil {
		return nil, err
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()
	file, _, err := r.FormFile("image")
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}

// coolingDown answers 429 while the client or session is serving a cooldown
// for looking up identifiers that do not exist. Guard errors fail open.
func (h *VerificationHandler) coolingDown(w http.ResponseWriter, r *http.Request, sess *service.VerificationSession, channel service.Channel) bool {
	retry, err := h.guard.Check(r.Context(), clientAddr(r), sess.ID)
	if err != nil {
		slog.WarnContext(r.Context(), "lookup guard check failed", "error", err)
		return false
	}
	if retry <= 0 {
		return false
	}
	observability.RecordVerificationOutcome(r.Context(), string(channel), "cooldown")
	w.Header().Set("Retry-After", retryAfterSeconds(retry))
	response.Error(w, r, http.StatusTooManyRequests, "LOOKUP_COOLDOWN", "too many unknown credentials, try again later", map[string]any{
		"retry_after_seconds": int(retry.Round(time.Second) / time.Second),
	})
	return true
}

func retryAfterSeconds(d time.Duration) string {
	s := int(d.Round(time.Second) / time.Second)
	if s < 1 {
		s = 1
	}
	return strconv.Itoa(s)
}

func (h *VerificationHandler) writeResult(w http.ResponseWriter, r *http.Request, sess *service.VerificationSession, res service.ValidationResult, err error) {
	if err != nil {
		var emptyErr *service.EmptyInputError
		if errors.As(err, &emptyErr) {
			response.Error(w, r, http.StatusBadRequest, "EMPTY_INPUT", emptyErr.Error(), nil)
			return
		}
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "verification failed", nil)
		return
	}
	if res.Outcome == service.OutcomeRejected && res.Reason() == service.ReasonNotFound {
		if _, gerr := h.guard.RegisterMiss(r.Context(), clientAddr(r), sess.ID); gerr != nil {
			slog.WarnContext(r.Context(), "lookup guard update failed", "error", gerr)
		}
	}
	response.JSON(w, r, http.StatusOK, validationView{
		Outcome:          res.Outcome,
		State:            res.State,
		Credential:       res.Credential,
		AlreadyValidated: res.AlreadyValidated,
		Reason:           res.Reason(),
	})
}
