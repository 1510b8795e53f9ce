package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"flowsmartly/contexts/identity-access/session-service/domain/entities"
	"flowsmartly/contexts/identity-access/session-service/ports"

	"github.com/google/uuid"
)

// Store is the in-memory session adapter used by tests and local runs. It
// implements the repository, directory, clock, and id generator ports behind
// one mutex.
type Store struct {
	mu       sync.RWMutex
	accounts map[string]entities.Account
	byEmail  map[string]string
	sessions map[string]entities.Session
}

func NewStore() *Store {
	return &Store{
		accounts: make(map[string]entities.Account),
		byEmail:  make(map[string]string),
		sessions: make(map[string]entities.Session),
	}
}

// SeedAccount registers an account for tests. The password hash must already
// be computed by the caller's hasher.
func (s *Store) SeedAccount(account entities.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := strings.ToLower(strings.TrimSpace(account.Email))
	s.accounts[account.AccountID] = account
	s.byEmail[email] = account.AccountID
}

func (s *Store) GetAccountByEmail(_ context.Context, email string) (entities.Account, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	accountID, ok := s.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return entities.Account{}, false, nil
	}
	account, ok := s.accounts[accountID]
	return account, ok, nil
}

func (s *Store) GetAccount(_ context.Context, accountID string) (entities.Account, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[strings.TrimSpace(accountID)]
	return account, ok, nil
}

func (s *Store) CreateSession(_ context.Context, input ports.CreateSessionInput) (entities.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session := entities.Session{
		SessionID:   input.SessionID,
		PrincipalID: input.PrincipalID,
		IssuedAt:    input.IssuedAt.UTC(),
		ExpiresAt:   input.ExpiresAt.UTC(),
		UserAgent:   input.UserAgent,
		IPAddress:   input.IPAddress,
	}
	s.sessions[session.SessionID] = session
	return session, nil
}

func (s *Store) GetSession(_ context.Context, sessionID string) (entities.Session, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[strings.TrimSpace(sessionID)]
	return session, ok, nil
}

func (s *Store) RevokeSession(_ context.Context, sessionID string, revokedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[strings.TrimSpace(sessionID)]
	if !ok || session.RevokedAt != nil {
		return nil
	}
	stamp := revokedAt.UTC()
	session.RevokedAt = &stamp
	s.sessions[session.SessionID] = session
	return nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

var _ ports.SessionRepository = (*Store)(nil)
var _ ports.AccountDirectory = (*Store)(nil)
var _ ports.Clock = (*Store)(nil)
var _ ports.IDGenerator = (*Store)(nil)
