package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/chainledger/internal/adapter/http/dto"
	"github.com/iho/chainledger/internal/adapter/http/middleware"
	"github.com/iho/chainledger/internal/domain"
	"github.com/iho/chainledger/internal/usecase"
)

// EntryService defines the behavior needed by EntryHandler.
type EntryService interface {
	CreateDraft(ctx context.Context, input usecase.CreateEntryInput) (*domain.JournalEntry, error)
	UpdateDraft(ctx context.Context, input usecase.UpdateEntryInput) (*domain.JournalEntry, error)
	Post(ctx context.Context, entryNumber, actor string) (*domain.JournalEntry, error)
	Void(ctx context.Context, entryNumber, actor, reason string) (*domain.JournalEntry, error)
	GetEntry(ctx context.Context, entryNumber string) (*domain.JournalEntry, error)
	ListEntries(ctx context.Context, filter usecase.EntryFilter) ([]*domain.JournalEntry, error)
	GetAuditLog(ctx context.Context, entryNumber string) ([]*domain.AuditLog, error)
}

// EntryHandler handles journal entry HTTP requests.
type EntryHandler struct {
	entryUC EntryService
}

// NewEntryHandler creates a new EntryHandler.
func NewEntryHandler(entryUC EntryService) *EntryHandler {
	return &EntryHandler{entryUC: entryUC}
}

// Create creates a new draft entry.
func (h *EntryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	entry, err := h.entryUC.CreateDraft(r.Context(), req.ToUseCaseInput())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.EntryFromDomain(entry))
}

// Get retrieves an entry by number.
func (h *EntryHandler) Get(w http.ResponseWriter, r *http.Request) {
	entryNumber := chi.URLParam(r, "entryNumber")
	if entryNumber == "" {
		writeError(w, http.StatusBadRequest, "missing entry number", "")
		return
	}

	entry, err := h.entryUC.GetEntry(r.Context(), entryNumber)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.EntryFromDomain(entry))
}

// List lists entries, optionally filtered by status.
func (h *EntryHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := usecase.EntryFilter{
		Status: domain.EntryStatus(r.URL.Query().Get("status")),
		Limit:  parseIntQuery(r, "limit", 20),
		Offset: parseIntQuery(r, "offset", 0),
	}

	entries, err := h.entryUC.ListEntries(r.Context(), filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.EntriesFromDomain(entries))
}

// Update mutates a draft entry.
func (h *EntryHandler) Update(w http.ResponseWriter, r *http.Request) {
	entryNumber := chi.URLParam(r, "entryNumber")
	if entryNumber == "" {
		writeError(w, http.StatusBadRequest, "missing entry number", "")
		return
	}

	var req dto.UpdateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	entry, err := h.entryUC.UpdateDraft(r.Context(), req.ToUseCaseInput(entryNumber))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.EntryFromDomain(entry))
}

// Post transitions a draft entry onto the hash chain. The acting user
// comes from the verified token, never from the request body.
func (h *EntryHandler) Post(w http.ResponseWriter, r *http.Request) {
	entryNumber := chi.URLParam(r, "entryNumber")
	if entryNumber == "" {
		writeError(w, http.StatusBadRequest, "missing entry number", "")
		return
	}

	user, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "")
		return
	}

	entry, err := h.entryUC.Post(r.Context(), entryNumber, user.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.EntryFromDomain(entry))
}

// Void voids a posted entry.
func (h *EntryHandler) Void(w http.ResponseWriter, r *http.Request) {
	entryNumber := chi.URLParam(r, "entryNumber")
	if entryNumber == "" {
		writeError(w, http.StatusBadRequest, "missing entry number", "")
		return
	}

	user, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "")
		return
	}

	var req dto.VoidEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	entry, err := h.entryUC.Void(r.Context(), entryNumber, user.ID, req.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.EntryFromDomain(entry))
}

// AuditLog lists the audit rows recorded for an entry.
func (h *EntryHandler) AuditLog(w http.ResponseWriter, r *http.Request) {
	entryNumber := chi.URLParam(r, "entryNumber")
	if entryNumber == "" {
		writeError(w, http.StatusBadRequest, "missing entry number", "")
		return
	}

	logs, err := h.entryUC.GetAuditLog(r.Context(), entryNumber)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AuditLogsFromDomain(logs))
}
