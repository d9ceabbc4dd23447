package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/chainledger/internal/adapter/http/dto"
	"github.com/iho/chainledger/internal/domain"
)

// VerifyService defines the behavior needed by VerifyHandler.
type VerifyService interface {
	VerifyChain(ctx context.Context) (*domain.ChainVerification, error)
	VerifyEntry(ctx context.Context, entryNumber string) (*domain.ChainVerification, error)
	VerifyBackward(ctx context.Context, entryNumber string, maxHops int) (*domain.ChainVerification, error)
}

// VerifyHandler exposes chain verification.
type VerifyHandler struct {
	verifyUC VerifyService
}

// NewVerifyHandler creates a new VerifyHandler.
func NewVerifyHandler(verifyUC VerifyService) *VerifyHandler {
	return &VerifyHandler{verifyUC: verifyUC}
}

// Chain runs a full-chain verification pass. A chain with
// discrepancies is still a successful verification; the findings are
// the payload, not an error.
func (h *VerifyHandler) Chain(w http.ResponseWriter, r *http.Request) {
	result, err := h.verifyUC.VerifyChain(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "verification aborted", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.VerificationFromDomain(result))
}

// Entry verifies a single posted entry's hashes.
func (h *VerifyHandler) Entry(w http.ResponseWriter, r *http.Request) {
	entryNumber := chi.URLParam(r, "entryNumber")
	if entryNumber == "" {
		writeError(w, http.StatusBadRequest, "missing entry number", "")
		return
	}

	result, err := h.verifyUC.VerifyEntry(r.Context(), entryNumber)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.VerificationFromDomain(result))
}

// Backward walks the chain backwards from an entry.
func (h *VerifyHandler) Backward(w http.ResponseWriter, r *http.Request) {
	entryNumber := chi.URLParam(r, "entryNumber")
	if entryNumber == "" {
		writeError(w, http.StatusBadRequest, "missing entry number", "")
		return
	}

	hops := parseIntQuery(r, "hops", 0)

	result, err := h.verifyUC.VerifyBackward(r.Context(), entryNumber, hops)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.VerificationFromDomain(result))
}
