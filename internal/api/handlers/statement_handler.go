package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/finledger/finledger-be/internal/auth"
	"github.com/finledger/finledger-be/internal/models"
	"github.com/finledger/finledger-be/internal/services"
)

// StatementHandler handles HTTP requests for ledger operations.
type StatementHandler struct {
	service services.LedgerServiceProvider
}

// NewStatementHandler creates a new StatementHandler.
func NewStatementHandler(service services.LedgerServiceProvider) *StatementHandler {
	return &StatementHandler{service: service}
}

// StatementPayload defines the structure for deposit, withdraw and
// transfer requests. Amounts accept JSON numbers or strings.
type StatementPayload struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

// Deposit handles a deposit into the authenticated user's account.
func (h *StatementHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	h.createStatement(w, r, models.OperationDeposit)
}

// Withdraw handles a withdrawal from the authenticated user's account.
func (h *StatementHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	h.createStatement(w, r, models.OperationWithdraw)
}

func (h *StatementHandler) createStatement(w http.ResponseWriter, r *http.Request, opType models.OperationType) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "Could not retrieve user from token", http.StatusInternalServerError)
		return
	}

	var payload StatementPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	statement, err := h.service.CreateStatement(r.Context(), claims.UserID, opType, payload.Amount, payload.Description)
	if err != nil {
		log.Warn().Err(err).Str("user_id", claims.UserID).Str("type", string(opType)).Msg("Failed to create statement")
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, statement)
}

// Transfer moves funds from the authenticated user to the receiver in
// the URL.
func (h *StatementHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "Could not retrieve user from token", http.StatusInternalServerError)
		return
	}

	receiverID := chi.URLParam(r, "receiverID")

	var payload StatementPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	err := h.service.Transfer(r.Context(), claims.UserID, receiverID, payload.Amount, payload.Description)
	if err != nil {
		log.Warn().Err(err).Str("sender_id", claims.UserID).Str("receiver_id", receiverID).Msg("Failed to transfer")
		respondError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetBalance returns the authenticated user's balance and statement
// history.
func (h *StatementHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "Could not retrieve user from token", http.StatusInternalServerError)
		return
	}

	balance, err := h.service.GetBalance(r.Context(), claims.UserID)
	if err != nil {
		log.Warn().Err(err).Str("user_id", claims.UserID).Msg("Failed to get balance")
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, balance)
}

// Get returns a single statement owned by the authenticated user.
func (h *StatementHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "Could not retrieve user from token", http.StatusInternalServerError)
		return
	}

	id := chi.URLParam(r, "id")
	statement, err := h.service.GetStatement(r.Context(), claims.UserID, id)
	if err != nil {
		log.Warn().Err(err).Str("user_id", claims.UserID).Str("statement_id", id).Msg("Failed to get statement")
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, statement)
}
