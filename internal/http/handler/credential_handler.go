package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sandeepkv93/event-credential-service/internal/http/response"
	"github.com/sandeepkv93/event-credential-service/internal/repository"
	"github.com/sandeepkv93/event-credential-service/internal/service"
)

type CredentialHandler struct {
	svc service.CredentialServiceInterface
}

func NewCredentialHandler(svc service.CredentialServiceInterface) *CredentialHandler {
	return &CredentialHandler{svc: svc}
}

func (h *CredentialHandler) List(w http.ResponseWriter, r *http.Request) {
	pageReq, err := parsePageRequest(r)
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	validated, err := parseOptionalBool(r, "validated")
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	filter := repository.CredentialFilter{PageRequest: pageReq, Validated: validated}
	if raw := strings.TrimSpace(r.URL.Query().Get("batch_id")); raw != "" {
		batchID, err := parsePathID(raw)
		if err != nil {
			response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "batch_id must be a positive integer", nil)
			return
		}
		filter.BatchID = &batchID
	}

	res, err := h.svc.List(r.Context(), filter)
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to list credentials", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, paginatedData(res.Items, res.Page, res.PageSize, res.Total, res.TotalPages))
}

func (h *CredentialHandler) Get(w http.ResponseWriter, r *http.Request) {
	uniqueID := strings.TrimSpace(chi.URLParam(r, "uniqueID"))
	if uniqueID == "" {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "missing credential id", nil)
		return
	}
	cred, err := h.svc.Get(r.Context(), uniqueID)
	if err != nil {
		if errors.Is(err, service.ErrCredentialNotFound) {
			response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "credential not found", nil)
			return
		}
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to load credential", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, cred)
}
