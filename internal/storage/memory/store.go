// Package memory provides an in-memory Store used by tests and local
// development. It is safe for concurrent use and preserves per-owner
// insertion order.
package memory

import (
	"context"
	"sync"

	"github.com/finledger/finledger-be/internal/models"
	"github.com/finledger/finledger-be/internal/storage"
)

// Store keeps users, statements and events in process memory.
type Store struct {
	mu         sync.Mutex
	users      map[string]models.User
	emails     map[string]string // email -> user id
	statements []models.Statement
	events     []models.Event
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		users:  make(map[string]models.User),
		emails: make(map[string]string),
	}
}

func (s *Store) CreateUser(ctx context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.emails[user.Email]; taken {
		return storage.ErrConflict
	}
	s.users[user.ID] = user
	s.emails[user.Email] = user.ID
	return nil
}

func (s *Store) UserByID(ctx context.Context, id string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return models.User{}, storage.ErrNotFound
	}
	user.PasswordHash = ""
	return user, nil
}

func (s *Store) UserByEmail(ctx context.Context, email string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.emails[email]
	if !ok {
		return models.User{}, storage.ErrNotFound
	}
	return s.users[id], nil
}

func (s *Store) AppendStatements(ctx context.Context, statements ...models.Statement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Single append under one lock keeps the batch atomic.
	s.statements = append(s.statements, statements...)
	return nil
}

func (s *Store) StatementsByOwner(ctx context.Context, ownerID string) ([]models.Statement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var owned []models.Statement
	for _, stmt := range s.statements {
		if stmt.UserID == ownerID {
			owned = append(owned, stmt)
		}
	}
	return owned, nil
}

func (s *Store) StatementByOwnerAndID(ctx context.Context, ownerID, id string) (models.Statement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, stmt := range s.statements {
		if stmt.ID == id && stmt.UserID == ownerID {
			return stmt, nil
		}
	}
	return models.Statement{}, storage.ErrNotFound
}

func (s *Store) InsertEvent(ctx context.Context, event models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, event)
	return nil
}

func (s *Store) RecentEvents(ctx context.Context, limit int) ([]models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recent := make([]models.Event, 0, limit)
	for i := len(s.events) - 1; i >= 0 && len(recent) < limit; i-- {
		recent = append(recent, s.events[i])
	}
	return recent, nil
}

// Compile-time check: Store implements storage.Store.
var _ storage.Store = (*Store)(nil)
