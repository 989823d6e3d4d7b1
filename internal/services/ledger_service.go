package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/finledger/finledger-be/internal/ledger"
	"github.com/finledger/finledger-be/internal/models"
	"github.com/finledger/finledger-be/internal/storage"
)

// LedgerServiceProvider defines the interface for ledger operations.
type LedgerServiceProvider interface {
	CreateStatement(ctx context.Context, userID string, opType models.OperationType, amount decimal.Decimal, description string) (models.Statement, error)
	GetBalance(ctx context.Context, userID string) (models.Balance, error)
	Transfer(ctx context.Context, senderID, receiverID string, amount decimal.Decimal, description string) error
	GetStatement(ctx context.Context, userID, statementID string) (models.Statement, error)
}

// LedgerService implements the statement and balance logic. All
// mutating operations on a user are serialized through a per-user
// mutex, so the read-balance-then-append sequence can never interleave
// with another writer and overdraw the account.
type LedgerService struct {
	store  storage.Store
	events EventServiceProvider

	muMap map[string]*sync.Mutex
	mapMu sync.Mutex
}

// NewLedgerService creates a new LedgerService.
func NewLedgerService(store storage.Store, events EventServiceProvider) *LedgerService {
	return &LedgerService{
		store:  store,
		events: events,
		muMap:  make(map[string]*sync.Mutex),
	}
}

func (s *LedgerService) userLock(userID string) *sync.Mutex {
	s.mapMu.Lock()
	defer s.mapMu.Unlock()

	if _, exists := s.muMap[userID]; !exists {
		s.muMap[userID] = &sync.Mutex{}
	}
	return s.muMap[userID]
}

// CreateStatement validates and appends a single deposit or withdraw
// entry for the user. Withdrawals are funds-checked against the current
// balance; on any failure nothing is written.
func (s *LedgerService) CreateStatement(ctx context.Context, userID string, opType models.OperationType, amount decimal.Decimal, description string) (models.Statement, error) {
	var direction models.Direction
	switch opType {
	case models.OperationDeposit:
		direction = models.DirectionIn
	case models.OperationWithdraw:
		direction = models.DirectionOut
	default:
		// Transfer legs are composed by Transfer, never submitted directly.
		return models.Statement{}, fmt.Errorf("unsupported operation type %q", opType)
	}

	amount = amount.Round(2)
	if !amount.IsPositive() {
		return models.Statement{}, ledger.ErrInvalidAmount
	}

	if _, err := s.store.UserByID(ctx, userID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.Statement{}, ledger.ErrUserNotFound
		}
		return models.Statement{}, err
	}

	mu := s.userLock(userID)
	mu.Lock()
	defer mu.Unlock()

	if direction == models.DirectionOut {
		balance, err := s.balanceOf(ctx, userID)
		if err != nil {
			return models.Statement{}, err
		}
		if balance.LessThan(amount) {
			return models.Statement{}, ledger.ErrInsufficientFunds
		}
	}

	entry := models.Statement{
		ID:          uuid.New().String(),
		UserID:      userID,
		Type:        opType,
		Direction:   direction,
		Amount:      amount,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.store.AppendStatements(ctx, entry); err != nil {
		if errors.Is(err, storage.ErrInsufficientFunds) {
			return models.Statement{}, ledger.ErrInsufficientFunds
		}
		return models.Statement{}, err
	}

	s.recordEvent(ctx, "statement.created", fmt.Sprintf("%s of %s", opType, amount), userID)
	return entry, nil
}

// GetBalance returns the signed sum over the user's statements in
// insertion order, together with the full history.
func (s *LedgerService) GetBalance(ctx context.Context, userID string) (models.Balance, error) {
	if _, err := s.store.UserByID(ctx, userID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.Balance{}, ledger.ErrUserNotFound
		}
		return models.Balance{}, err
	}

	statements, err := s.store.StatementsByOwner(ctx, userID)
	if err != nil {
		return models.Balance{}, err
	}

	balance := decimal.Zero
	for _, entry := range statements {
		balance = balance.Add(entry.Signed())
	}

	if statements == nil {
		statements = []models.Statement{}
	}
	return models.Balance{Statements: statements, Balance: balance}, nil
}

// Transfer debits the sender and credits the receiver with one
// transfer-kind statement each. Both users stay locked for the whole
// check-and-append sequence and both legs are appended atomically.
func (s *LedgerService) Transfer(ctx context.Context, senderID, receiverID string, amount decimal.Decimal, description string) error {
	amount = amount.Round(2)
	if !amount.IsPositive() {
		return ledger.ErrInvalidAmount
	}

	if _, err := s.store.UserByID(ctx, receiverID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ledger.ErrReceiverNotFound
		}
		return err
	}
	if _, err := s.store.UserByID(ctx, senderID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ledger.ErrSenderNotFound
		}
		return err
	}

	// Lock both parties in ID order to avoid deadlocks.
	senderMu := s.userLock(senderID)
	receiverMu := s.userLock(receiverID)
	if senderID != receiverID {
		if senderID < receiverID {
			senderMu.Lock()
			receiverMu.Lock()
		} else {
			receiverMu.Lock()
			senderMu.Lock()
		}
		defer senderMu.Unlock()
		defer receiverMu.Unlock()
	} else {
		senderMu.Lock()
		defer senderMu.Unlock()
	}

	balance, err := s.balanceOf(ctx, senderID)
	if err != nil {
		return err
	}
	if balance.LessThan(amount) {
		return ledger.ErrInsufficientFunds
	}

	now := time.Now().UTC()
	debit := models.Statement{
		ID:          uuid.New().String(),
		UserID:      senderID,
		Type:        models.OperationTransfer,
		Direction:   models.DirectionOut,
		Amount:      amount,
		Description: description,
		CreatedAt:   now,
	}
	credit := models.Statement{
		ID:          uuid.New().String(),
		UserID:      receiverID,
		Type:        models.OperationTransfer,
		Direction:   models.DirectionIn,
		Amount:      amount,
		Description: description,
		SenderID:    &senderID,
		CreatedAt:   now,
	}

	if err := s.store.AppendStatements(ctx, debit, credit); err != nil {
		if errors.Is(err, storage.ErrInsufficientFunds) {
			return ledger.ErrInsufficientFunds
		}
		return err
	}

	s.recordEvent(ctx, "transfer.completed", fmt.Sprintf("transfer of %s to %s", amount, receiverID), senderID)
	return nil
}

// GetStatement returns a single statement, scoped to its owner. A
// statement belonging to another user is reported as not found, never
// leaked.
func (s *LedgerService) GetStatement(ctx context.Context, userID, statementID string) (models.Statement, error) {
	if _, err := s.store.UserByID(ctx, userID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.Statement{}, ledger.ErrUserNotFound
		}
		return models.Statement{}, err
	}

	entry, err := s.store.StatementByOwnerAndID(ctx, userID, statementID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.Statement{}, ledger.ErrStatementNotFound
		}
		return models.Statement{}, err
	}
	return entry, nil
}

func (s *LedgerService) balanceOf(ctx context.Context, userID string) (decimal.Decimal, error) {
	statements, err := s.store.StatementsByOwner(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	balance := decimal.Zero
	for _, entry := range statements {
		balance = balance.Add(entry.Signed())
	}
	return balance, nil
}

// recordEvent writes an audit event; a failure here never fails the
// ledger operation itself.
func (s *LedgerService) recordEvent(ctx context.Context, eventType, message, userID string) {
	if s.events == nil {
		return
	}
	if err := s.events.Record(ctx, eventType, "info", message, &userID); err != nil {
		log.Warn().Err(err).Str("event_type", eventType).Msg("Failed to record ledger event")
	}
}

// Compile-time check: LedgerService implements LedgerServiceProvider.
var _ LedgerServiceProvider = (*LedgerService)(nil)
