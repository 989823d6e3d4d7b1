// Package ledger holds the client-facing error taxonomy of the core
// ledger operations. Every failure a caller can act on maps to exactly
// one of these sentinels.
package ledger

import "errors"

var (
	// ErrUserNotFound is returned when the acting user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrSenderNotFound is returned when the transfer sender does not exist.
	ErrSenderNotFound = errors.New("sender user not found")

	// ErrReceiverNotFound is returned when the transfer receiver does not exist.
	ErrReceiverNotFound = errors.New("receiver user not found")

	// ErrStatementNotFound is returned when a statement does not exist or
	// does not belong to the requesting user.
	ErrStatementNotFound = errors.New("statement not found")

	// ErrInsufficientFunds is returned when a withdrawal or transfer would
	// overdraw the account.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInvalidAmount is returned when an operation amount is not positive.
	ErrInvalidAmount = errors.New("amount should be greater than 0")

	// ErrEmailTaken is returned when registering with an email already in use.
	ErrEmailTaken = errors.New("email already in use")

	// ErrInvalidCredentials is returned on a failed authentication attempt.
	ErrInvalidCredentials = errors.New("incorrect email or password")
)
