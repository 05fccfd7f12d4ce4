package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sandeepkv93/event-credential-service/internal/document"
	"github.com/sandeepkv93/event-credential-service/internal/domain"
	"github.com/sandeepkv93/event-credential-service/internal/http/response"
	"github.com/sandeepkv93/event-credential-service/internal/observability"
	"github.com/sandeepkv93/event-credential-service/internal/service"
)

// ConfirmationTickets signs and checks the short-lived ticket that carries an
// operator's confirmation from the prompt request to the issue request.
type ConfirmationTickets interface {
	service.TicketVerifier
	SignConfirmationTicket(subject string, count int) (string, time.Time, error)
}

type BatchHandler struct {
	svc     service.IssuanceServiceInterface
	tickets ConfirmationTickets
}

func NewBatchHandler(svc service.IssuanceServiceInterface, tickets ConfirmationTickets) *BatchHandler {
	return &BatchHandler{svc: svc, tickets: tickets}
}

type failureView struct {
	Index    int    `json:"index"`
	UniqueID string `json:"unique_id"`
	Error    string `json:"error"`
}

type documentView struct {
	Name  string `json:"name"`
	Pages int    `json:"pages"`
	Key   string `json:"key,omitempty"`
}

type issueView struct {
	BatchID     uint                `json:"batch_id,omitempty"`
	Requested   int                 `json:"requested"`
	Persisted   int                 `json:"persisted"`
	Failed      int                 `json:"failed"`
	Failures    []failureView       `json:"failures"`
	Credentials []domain.Credential `json:"credentials"`
	Document    *documentView       `json:"document,omitempty"`
}

func (h *BatchHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Count countField `json:"count"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}

	prompt, err := h.svc.PrepareConfirmation(r.Context(), string(body.Count))
	if err != nil {
		writeIssuanceError(w, r, err)
		return
	}
	ticket, expiresAt, err := h.tickets.SignConfirmationTicket(operatorSubject(r), prompt.Count)
	if err != nil {
		observability.RecordConfirmationTicketEvent(r.Context(), "sign", "error")
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to sign confirmation ticket", nil)
		return
	}
	observability.RecordConfirmationTicketEvent(r.Context(), "sign", "success")

	response.JSON(w, r, http.StatusOK, map[string]any{
		"count":      prompt.Count,
		"message":    prompt.Message,
		"ticket":     ticket,
		"expires_at": expiresAt.UTC(),
	})
}

func (h *BatchHandler) Issue(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Count  countField `json:"count"`
		Ticket string     `json:"ticket"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}

	actor := operatorSubject(r)
	result, err := h.svc.Issue(r.Context(), service.IssueRequest{
		Count:     string(body.Count),
		Confirmer: service.TicketConfirmer{Ticket: body.Ticket, Verifier: h.tickets},
	})
	if err != nil {
		observability.EmitAudit(r, observability.AuditInput{
			EventName:   "batch.issue",
			ActorUserID: actor,
			TargetType:  "batch",
			Action:      "issue",
			Outcome:     "failure",
			Reason:      issuanceFailureReason(err),
		})
		writeIssuanceError(w, r, err)
		return
	}

	observability.EmitAudit(r, observability.AuditInput{
		EventName:   "batch.issue",
		ActorUserID: actor,
		TargetType:  "batch",
		TargetID:    strconv.FormatUint(uint64(result.BatchID), 10),
		Action:      "issue",
		Outcome:     "success",
		Reason:      "batch_issued",
	}, "persisted", result.Persisted, "failed", result.Failed)

	if wantsPDF(r) && result.Document != nil {
		writeBatchPDF(w, result)
		return
	}
	response.JSON(w, r, http.StatusCreated, newIssueView(result))
}

func (h *BatchHandler) List(w http.ResponseWriter, r *http.Request) {
	pageReq, err := parsePageRequest(r)
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	res, err := h.svc.ListBatches(r.Context(), pageReq)
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to list batches", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, paginatedData(res.Items, res.Page, res.PageSize, res.Total, res.TotalPages))
}

func (h *BatchHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parsePathID(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid batch id", nil)
		return
	}
	batch, err := h.svc.GetBatch(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrBatchNotFound) {
			response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "batch not found", nil)
			return
		}
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to load batch", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, batch)
}

// Document streams the archived PDF for a batch.
func (h *BatchHandler) Document(w http.ResponseWriter, r *http.Request) {
	id, err := parsePathID(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid batch id", nil)
		return
	}
	doc, err := h.svc.OpenDocument(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBatchNotFound):
			response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "batch not found", nil)
		case errors.Is(err, service.ErrDocumentUnavailable):
			response.Error(w, r, http.StatusNotFound, "DOCUMENT_UNAVAILABLE", "batch document is not available", nil)
		default:
			response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to load batch document", nil)
		}
		return
	}

	contentType := doc.ContentType
	if contentType == "" {
		contentType = document.ContentType
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", attachment(doc.Name))
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Bytes)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Bytes)
}

func writeBatchPDF(w http.ResponseWriter, result *service.IssueResult) {
	w.Header().Set("Content-Type", document.ContentType)
	w.Header().Set("Content-Disposition", attachment(result.Document.Name))
	w.Header().Set("X-Batch-Id", strconv.FormatUint(uint64(result.BatchID), 10))
	w.Header().Set("X-Batch-Persisted", strconv.Itoa(result.Persisted))
	w.Header().Set("X-Batch-Failed", strconv.Itoa(result.Failed))
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write(result.Document.Bytes)
}

func newIssueView(result *service.IssueResult) issueView {
	view := issueView{
		BatchID:     result.BatchID,
		Requested:   len(result.Credentials),
		Persisted:   result.Persisted,
		Failed:      result.Failed,
		Failures:    make([]failureView, 0, len(result.Failures)),
		Credentials: result.Credentials,
	}
	for _, f := range result.Failures {
		msg := ""
		if f.Err != nil {
			msg = f.Err.Error()
		}
		view.Failures = append(view.Failures, failureView{Index: f.Index, UniqueID: f.UniqueID, Error: msg})
	}
	if result.Document != nil {
		view.Document = &documentView{Name: result.Document.Name, Pages: result.Document.Pages, Key: result.DocumentKey}
	}
	return view
}

func writeIssuanceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		countErr     *service.InvalidCountError
		exhaustedErr *service.GenerationExhaustedError
		aggErr       *service.AggregatePersistenceError
		renderErr    *document.RenderError
	)
	switch {
	case errors.As(err, &countErr):
		response.Error(w, r, http.StatusBadRequest, "INVALID_COUNT", countErr.Error(), map[string]any{"reason": countErr.Reason})
	case errors.Is(err, service.ErrIssuanceNotConfirmed):
		response.Error(w, r, http.StatusPreconditionFailed, "NOT_CONFIRMED", "issuance was not confirmed", nil)
	case errors.As(err, &exhaustedErr):
		response.Error(w, r, http.StatusServiceUnavailable, "GENERATION_EXHAUSTED", exhaustedErr.Error(), nil)
	case errors.As(err, &aggErr):
		response.Error(w, r, http.StatusBadGateway, "PERSIST_FAILED", aggErr.Error(), map[string]any{"attempted": aggErr.Attempted})
	case errors.As(err, &renderErr), errors.Is(err, document.ErrNothingToRender):
		response.Error(w, r, http.StatusInternalServerError, "RENDER_FAILED", "failed to render batch document", nil)
	default:
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to issue batch", nil)
	}
}

func issuanceFailureReason(err error) string {
	var (
		countErr *service.InvalidCountError
		aggErr   *service.AggregatePersistenceError
	)
	switch {
	case errors.As(err, &countErr):
		return "invalid_count"
	case errors.Is(err, service.ErrIssuanceNotConfirmed):
		return "not_confirmed"
	case errors.As(err, &aggErr):
		return "persist_failed"
	default:
		return "internal_error"
	}
}
