package services

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finledger/finledger-be/internal/ledger"
	"github.com/finledger/finledger-be/internal/models"
	"github.com/finledger/finledger-be/internal/storage/memory"
)

func newTestLedger(t *testing.T) (*LedgerService, *UserService) {
	t.Helper()
	store := memory.New()
	events := NewEventService(store, nil)
	return NewLedgerService(store, events), NewUserService(store, events)
}

func registerUser(t *testing.T, users *UserService, name, email string) models.User {
	t.Helper()
	user, err := users.CreateUser(context.Background(), name, email, "secret")
	require.NoError(t, err)
	return user
}

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCreateStatementDeposit(t *testing.T) {
	svc, users := newTestLedger(t)
	user := registerUser(t, users, "User Test", "user@test.com")

	stmt, err := svc.CreateStatement(context.Background(), user.ID, models.OperationDeposit, amount("200"), "Depositing 200")
	require.NoError(t, err)

	assert.NotEmpty(t, stmt.ID)
	assert.Equal(t, user.ID, stmt.UserID)
	assert.Equal(t, models.OperationDeposit, stmt.Type)
	assert.Equal(t, models.DirectionIn, stmt.Direction)
	assert.True(t, stmt.Amount.Equal(amount("200")))
	assert.False(t, stmt.CreatedAt.IsZero())
}

func TestCreateStatementUnknownUser(t *testing.T) {
	svc, _ := newTestLedger(t)

	_, err := svc.CreateStatement(context.Background(), "missing", models.OperationDeposit, amount("100"), "Depositing 100")
	assert.ErrorIs(t, err, ledger.ErrUserNotFound)
}

func TestCreateStatementRejectsNonPositiveAmounts(t *testing.T) {
	svc, users := newTestLedger(t)
	user := registerUser(t, users, "User Test", "user@test.com")

	tests := []struct {
		name   string
		amount string
	}{
		{"zero", "0"},
		{"negative", "-50"},
		{"rounds to zero", "0.004"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateStatement(context.Background(), user.ID, models.OperationDeposit, amount(tt.amount), "bad deposit")
			assert.ErrorIs(t, err, ledger.ErrInvalidAmount)
		})
	}
}

func TestWithdrawRespectsBalance(t *testing.T) {
	svc, users := newTestLedger(t)
	user := registerUser(t, users, "User Test", "user@test.com")
	ctx := context.Background()

	_, err := svc.CreateStatement(ctx, user.ID, models.OperationDeposit, amount("600"), "Depositing 600")
	require.NoError(t, err)

	balance, err := svc.GetBalance(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, balance.Balance.Equal(amount("600")))

	_, err = svc.CreateStatement(ctx, user.ID, models.OperationWithdraw, amount("200"), "Withdrawing 200")
	require.NoError(t, err)

	balance, err = svc.GetBalance(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, balance.Balance.Equal(amount("400")))

	// Overdraw attempt fails and leaves the ledger untouched.
	_, err = svc.CreateStatement(ctx, user.ID, models.OperationWithdraw, amount("900"), "Withdrawing 900")
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	balance, err = svc.GetBalance(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, balance.Balance.Equal(amount("400")))
	assert.Len(t, balance.Statements, 2)
}

func TestWithdrawExactBalanceSucceeds(t *testing.T) {
	svc, users := newTestLedger(t)
	user := registerUser(t, users, "User Test", "user@test.com")
	ctx := context.Background()

	_, err := svc.CreateStatement(ctx, user.ID, models.OperationDeposit, amount("150.25"), "deposit")
	require.NoError(t, err)

	_, err = svc.CreateStatement(ctx, user.ID, models.OperationWithdraw, amount("150.25"), "withdraw all")
	require.NoError(t, err)

	balance, err := svc.GetBalance(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, balance.Balance.IsZero())
}

func TestGetBalanceUnknownUser(t *testing.T) {
	svc, _ := newTestLedger(t)

	_, err := svc.GetBalance(context.Background(), "missing")
	assert.ErrorIs(t, err, ledger.ErrUserNotFound)
}

func TestGetBalanceFoldsInInsertionOrder(t *testing.T) {
	svc, users := newTestLedger(t)
	user := registerUser(t, users, "User Test", "user@test.com")
	ctx := context.Background()

	_, err := svc.CreateStatement(ctx, user.ID, models.OperationDeposit, amount("200"), "Depositing 200")
	require.NoError(t, err)
	_, err = svc.CreateStatement(ctx, user.ID, models.OperationWithdraw, amount("60"), "Withdrawing 60")
	require.NoError(t, err)

	balance, err := svc.GetBalance(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, balance.Balance.Equal(amount("140")))
	require.Len(t, balance.Statements, 2)
	assert.Equal(t, models.OperationDeposit, balance.Statements[0].Type)
	assert.Equal(t, models.OperationWithdraw, balance.Statements[1].Type)

	// The scalar always equals the signed sum of the history.
	sum := decimal.Zero
	for _, stmt := range balance.Statements {
		sum = sum.Add(stmt.Signed())
	}
	assert.True(t, balance.Balance.Equal(sum))
}

func TestTransfer(t *testing.T) {
	svc, users := newTestLedger(t)
	sender := registerUser(t, users, "Sender", "sender@test.com")
	receiver := registerUser(t, users, "Receiver", "receiver@test.com")
	ctx := context.Background()

	_, err := svc.CreateStatement(ctx, sender.ID, models.OperationDeposit, amount("200"), "Depositing 200")
	require.NoError(t, err)

	err = svc.Transfer(ctx, sender.ID, receiver.ID, amount("60"), "rent split")
	require.NoError(t, err)

	senderBalance, err := svc.GetBalance(ctx, sender.ID)
	require.NoError(t, err)
	assert.True(t, senderBalance.Balance.Equal(amount("140")))

	receiverBalance, err := svc.GetBalance(ctx, receiver.ID)
	require.NoError(t, err)
	assert.True(t, receiverBalance.Balance.Equal(amount("60")))

	// Both legs are transfer-kind with positive amounts; the credit leg
	// references the sender.
	require.Len(t, senderBalance.Statements, 2)
	debit := senderBalance.Statements[1]
	assert.Equal(t, models.OperationTransfer, debit.Type)
	assert.Equal(t, models.DirectionOut, debit.Direction)
	assert.True(t, debit.Amount.Equal(amount("60")))
	assert.Nil(t, debit.SenderID)

	require.Len(t, receiverBalance.Statements, 1)
	credit := receiverBalance.Statements[0]
	assert.Equal(t, models.OperationTransfer, credit.Type)
	assert.Equal(t, models.DirectionIn, credit.Direction)
	require.NotNil(t, credit.SenderID)
	assert.Equal(t, sender.ID, *credit.SenderID)
}

func TestTransferFailures(t *testing.T) {
	svc, users := newTestLedger(t)
	sender := registerUser(t, users, "Sender", "sender@test.com")
	receiver := registerUser(t, users, "Receiver", "receiver@test.com")
	ctx := context.Background()

	_, err := svc.CreateStatement(ctx, sender.ID, models.OperationDeposit, amount("50"), "deposit")
	require.NoError(t, err)

	t.Run("non-positive amount", func(t *testing.T) {
		err := svc.Transfer(ctx, sender.ID, receiver.ID, amount("0"), "nothing")
		assert.ErrorIs(t, err, ledger.ErrInvalidAmount)
	})

	t.Run("receiver not found", func(t *testing.T) {
		err := svc.Transfer(ctx, sender.ID, "missing", amount("10"), "to nobody")
		assert.ErrorIs(t, err, ledger.ErrReceiverNotFound)
	})

	t.Run("sender not found", func(t *testing.T) {
		err := svc.Transfer(ctx, "missing", receiver.ID, amount("10"), "from nobody")
		assert.ErrorIs(t, err, ledger.ErrSenderNotFound)
	})

	t.Run("insufficient funds leaves both balances unchanged", func(t *testing.T) {
		err := svc.Transfer(ctx, sender.ID, receiver.ID, amount("80"), "too much")
		assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)

		senderBalance, err := svc.GetBalance(ctx, sender.ID)
		require.NoError(t, err)
		assert.True(t, senderBalance.Balance.Equal(amount("50")))

		receiverBalance, err := svc.GetBalance(ctx, receiver.ID)
		require.NoError(t, err)
		assert.True(t, receiverBalance.Balance.IsZero())
	})
}

func TestTransferPreservesTotal(t *testing.T) {
	svc, users := newTestLedger(t)
	a := registerUser(t, users, "A", "a@test.com")
	b := registerUser(t, users, "B", "b@test.com")
	ctx := context.Background()

	_, err := svc.CreateStatement(ctx, a.ID, models.OperationDeposit, amount("300"), "seed")
	require.NoError(t, err)

	for _, amt := range []string{"25", "40.50", "10"} {
		require.NoError(t, svc.Transfer(ctx, a.ID, b.ID, amount(amt), "move"))
	}

	balanceA, err := svc.GetBalance(ctx, a.ID)
	require.NoError(t, err)
	balanceB, err := svc.GetBalance(ctx, b.ID)
	require.NoError(t, err)

	assert.True(t, balanceA.Balance.Add(balanceB.Balance).Equal(amount("300")))
}

func TestGetStatement(t *testing.T) {
	svc, users := newTestLedger(t)
	owner := registerUser(t, users, "Owner", "owner@test.com")
	other := registerUser(t, users, "Other", "other@test.com")
	ctx := context.Background()

	stmt, err := svc.CreateStatement(ctx, owner.ID, models.OperationDeposit, amount("100"), "Depositing 100")
	require.NoError(t, err)

	t.Run("owner can fetch it", func(t *testing.T) {
		got, err := svc.GetStatement(ctx, owner.ID, stmt.ID)
		require.NoError(t, err)
		assert.Equal(t, stmt.ID, got.ID)
		assert.True(t, got.Amount.Equal(amount("100")))
	})

	t.Run("other users get not found, not the data", func(t *testing.T) {
		_, err := svc.GetStatement(ctx, other.ID, stmt.ID)
		assert.ErrorIs(t, err, ledger.ErrStatementNotFound)
	})

	t.Run("unknown statement", func(t *testing.T) {
		_, err := svc.GetStatement(ctx, owner.ID, "missing")
		assert.ErrorIs(t, err, ledger.ErrStatementNotFound)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := svc.GetStatement(ctx, "missing", stmt.ID)
		assert.ErrorIs(t, err, ledger.ErrUserNotFound)
	})
}

// Concurrent withdrawals must never jointly overdraw the account: the
// per-user lock serializes the funds check with the append.
func TestConcurrentWithdrawalsCannotOverdraw(t *testing.T) {
	svc, users := newTestLedger(t)
	user := registerUser(t, users, "User Test", "user@test.com")
	ctx := context.Background()

	_, err := svc.CreateStatement(ctx, user.ID, models.OperationDeposit, amount("100"), "seed")
	require.NoError(t, err)

	const workers = 20
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			// Each tries to take 60; at most one can succeed.
			_, _ = svc.CreateStatement(ctx, user.ID, models.OperationWithdraw, amount("60"), "grab")
		}()
	}
	wg.Wait()

	balance, err := svc.GetBalance(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, balance.Balance.GreaterThanOrEqual(decimal.Zero), "balance went negative: %s", balance.Balance)
	assert.True(t, balance.Balance.Equal(amount("40")))
}

func TestConcurrentTransfersPreserveTotalAndNonNegativity(t *testing.T) {
	svc, users := newTestLedger(t)
	a := registerUser(t, users, "A", "a@test.com")
	b := registerUser(t, users, "B", "b@test.com")
	ctx := context.Background()

	_, err := svc.CreateStatement(ctx, a.ID, models.OperationDeposit, amount("100"), "seed")
	require.NoError(t, err)
	_, err = svc.CreateStatement(ctx, b.ID, models.OperationDeposit, amount("100"), "seed")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = svc.Transfer(ctx, a.ID, b.ID, amount("30"), "ping")
		}()
		go func() {
			defer wg.Done()
			_ = svc.Transfer(ctx, b.ID, a.ID, amount("30"), "pong")
		}()
	}
	wg.Wait()

	balanceA, err := svc.GetBalance(ctx, a.ID)
	require.NoError(t, err)
	balanceB, err := svc.GetBalance(ctx, b.ID)
	require.NoError(t, err)

	assert.True(t, balanceA.Balance.GreaterThanOrEqual(decimal.Zero))
	assert.True(t, balanceB.Balance.GreaterThanOrEqual(decimal.Zero))
	assert.True(t, balanceA.Balance.Add(balanceB.Balance).Equal(amount("200")))
}
