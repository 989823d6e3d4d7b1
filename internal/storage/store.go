// Package storage defines the persistence contract shared by the
// in-memory and sqlite backends.
package storage

import (
	"context"
	"errors"

	"github.com/finledger/finledger-be/internal/models"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrConflict is returned when a unique constraint is violated.
	ErrConflict = errors.New("record already exists")

	// ErrInsufficientFunds is returned when the backend rejects an append
	// that would drive a balance negative.
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// Store is the persistence capability required by the services.
type Store interface {
	// CreateUser inserts a new user. Returns ErrConflict when the email
	// is already registered.
	CreateUser(ctx context.Context, user models.User) error

	// UserByID returns the user with the given id, without the password hash.
	UserByID(ctx context.Context, id string) (models.User, error)

	// UserByEmail returns the user with the given email, including the
	// password hash for credential checks.
	UserByEmail(ctx context.Context, email string) (models.User, error)

	// AppendStatements persists the given statements atomically: either
	// all of them are written or none. Statements are never updated or
	// deleted afterwards.
	AppendStatements(ctx context.Context, statements ...models.Statement) error

	// StatementsByOwner returns all statements owned by the user, in
	// insertion order.
	StatementsByOwner(ctx context.Context, ownerID string) ([]models.Statement, error)

	// StatementByOwnerAndID returns the statement only when it exists and
	// belongs to the owner.
	StatementByOwnerAndID(ctx context.Context, ownerID, id string) (models.Statement, error)

	// InsertEvent records an activity event.
	InsertEvent(ctx context.Context, event models.Event) error

	// RecentEvents returns the most recent events, newest first.
	RecentEvents(ctx context.Context, limit int) ([]models.Event, error)
}
