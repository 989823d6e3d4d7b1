// Package sqlite implements storage.Store on top of database/sql.
package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/finledger/finledger-be/internal/models"
	"github.com/finledger/finledger-be/internal/storage"
)

// Store persists users, statements and events in SQLite.
type Store struct {
	db *sql.DB
}

// New creates a Store over an already-migrated database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) CreateUser(ctx context.Context, user models.User) error {
	stmt, err := s.db.PrepareContext(ctx, "INSERT INTO users(id, name, email, password_hash) VALUES(?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx, user.ID, user.Name, user.Email, user.PasswordHash)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return storage.ErrConflict
		}
		return err
	}
	return nil
}

func (s *Store) UserByID(ctx context.Context, id string) (models.User, error) {
	var user models.User
	row := s.db.QueryRowContext(ctx, "SELECT id, name, email, created_at FROM users WHERE id = ?", id)
	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.User{}, storage.ErrNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

func (s *Store) UserByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	row := s.db.QueryRowContext(ctx, "SELECT id, name, email, password_hash, created_at FROM users WHERE email = ?", email)
	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.User{}, storage.ErrNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

// AppendStatements writes all statements inside one transaction, so a
// transfer's debit and credit legs commit together or not at all.
func (s *Store) AppendStatements(ctx context.Context, statements ...models.Statement) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO statements(id, user_id, type, direction, amount_cents, description, sender_id, created_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, entry := range statements {
		_, err = stmt.ExecContext(ctx,
			entry.ID, entry.UserID, string(entry.Type), string(entry.Direction),
			toCents(entry.Amount), entry.Description, entry.SenderID, entry.CreatedAt.UTC())
		if err != nil {
			if strings.Contains(err.Error(), "insufficient funds") {
				return storage.ErrInsufficientFunds
			}
			return err
		}
	}

	return tx.Commit()
}

func (s *Store) StatementsByOwner(ctx context.Context, ownerID string) ([]models.Statement, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, type, direction, amount_cents, description, sender_id, created_at
		FROM statements WHERE user_id = ? ORDER BY seq ASC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var owned []models.Statement
	for rows.Next() {
		entry, err := scanStatement(rows)
		if err != nil {
			return nil, err
		}
		owned = append(owned, entry)
	}
	return owned, rows.Err()
}

func (s *Store) StatementByOwnerAndID(ctx context.Context, ownerID, id string) (models.Statement, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, type, direction, amount_cents, description, sender_id, created_at
		FROM statements WHERE id = ? AND user_id = ?`, id, ownerID)
	entry, err := scanStatement(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.Statement{}, storage.ErrNotFound
		}
		return models.Statement{}, err
	}
	return entry, nil
}

func (s *Store) InsertEvent(ctx context.Context, event models.Event) error {
	stmt, err := s.db.PrepareContext(ctx, "INSERT INTO events(id, type, level, message, user_id, created_at) VALUES(?, ?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	// Persist the full timestamp; the column default only has second
	// resolution, which can mis-order same-second events.
	_, err = stmt.ExecContext(ctx, event.ID, event.Type, event.Level, event.Message, event.UserID, event.CreatedAt.UTC())
	return err
}

func (s *Store) RecentEvents(ctx context.Context, limit int) ([]models.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, level, message, user_id, created_at
		FROM events ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		var event models.Event
		if err := rows.Scan(&event.ID, &event.Type, &event.Level, &event.Message, &event.UserID, &event.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStatement(row rowScanner) (models.Statement, error) {
	var (
		entry models.Statement
		cents int64
	)
	err := row.Scan(&entry.ID, &entry.UserID, &entry.Type, &entry.Direction,
		&cents, &entry.Description, &entry.SenderID, &entry.CreatedAt)
	if err != nil {
		return models.Statement{}, err
	}
	entry.Amount = fromCents(cents)
	return entry, nil
}

// Amounts are validated to two decimal places at the service boundary,
// so the cents conversion is lossless.
func toCents(amount decimal.Decimal) int64 {
	return amount.Shift(2).IntPart()
}

func fromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// Compile-time check: Store implements storage.Store.
var _ storage.Store = (*Store)(nil)
