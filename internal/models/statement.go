package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OperationType is the category of a ledger statement.
type OperationType string

const (
	OperationDeposit  OperationType = "deposit"
	OperationWithdraw OperationType = "withdraw"
	OperationTransfer OperationType = "transfer"
)

// Direction tells whether a statement adds to or subtracts from the
// owner's balance. Amounts are always stored positive; the direction
// carries the sign.
type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

// Statement is an immutable ledger entry. Once written it is never
// updated or deleted.
type Statement struct {
	ID          string          `json:"id"`
	UserID      string          `json:"userId"`
	Type        OperationType   `json:"type"`
	Direction   Direction       `json:"direction"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	SenderID    *string         `json:"senderId,omitempty"` // Set on the credit leg of a transfer
	CreatedAt   time.Time       `json:"createdAt"`
}

// Signed returns the amount with the direction applied.
func (s Statement) Signed() decimal.Decimal {
	if s.Direction == DirectionOut {
		return s.Amount.Neg()
	}
	return s.Amount
}

// Balance is the derived view of an account: the signed sum of all
// statements plus the ordered history it was computed from.
type Balance struct {
	Statements []Statement     `json:"statement"`
	Balance    decimal.Decimal `json:"balance"`
}
