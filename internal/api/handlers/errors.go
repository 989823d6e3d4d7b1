package handlers

import (
	"errors"
	"net/http"

	"github.com/finledger/finledger-be/internal/ledger"
)

// statusForError maps the ledger error taxonomy onto HTTP status codes.
// Anything outside the taxonomy is a server fault.
func statusForError(err error) int {
	switch {
	case errors.Is(err, ledger.ErrUserNotFound),
		errors.Is(err, ledger.ErrSenderNotFound),
		errors.Is(err, ledger.ErrReceiverNotFound),
		errors.Is(err, ledger.ErrStatementNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrInsufficientFunds):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrEmailTaken):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrInvalidCredentials):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the error as a JSON body with the mapped status.
// Internal errors are masked so their details stay in the logs.
func respondError(w http.ResponseWriter, err error) {
	status := statusForError(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal server error"
	}
	respondJSON(w, status, map[string]string{"message": message})
}
