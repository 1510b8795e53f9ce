package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"flowsmartly/contexts/finance-core/wallet-service/ports"

	"github.com/google/uuid"
)

// Store is the in-memory wallet adapter used by tests and local runs.
type Store struct {
	mu      sync.RWMutex
	wallets map[string]ports.Wallet
	payouts map[string][]ports.PayoutRequest
}

func NewStore() *Store {
	return &Store{
		wallets: make(map[string]ports.Wallet),
		payouts: make(map[string][]ports.PayoutRequest),
	}
}

// SeedWallet registers a wallet for tests.
func (s *Store) SeedWallet(wallet ports.Wallet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wallets[wallet.OwnerID] = wallet
}

func (s *Store) GetWallet(_ context.Context, ownerID string) (ports.Wallet, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wallet, ok := s.wallets[strings.TrimSpace(ownerID)]
	return wallet, ok, nil
}

func (s *Store) SaveWallet(_ context.Context, wallet ports.Wallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wallets[wallet.OwnerID] = wallet
	return nil
}

func (s *Store) CreatePayoutRequest(_ context.Context, payout ports.PayoutRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payouts[payout.OwnerID] = append(s.payouts[payout.OwnerID], payout)
	return nil
}

func (s *Store) ListPayoutRequests(_ context.Context, ownerID string) ([]ports.PayoutRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := append([]ports.PayoutRequest(nil), s.payouts[strings.TrimSpace(ownerID)]...)
	sort.Slice(items, func(i, j int) bool {
		return items[i].RequestedAt.After(items[j].RequestedAt)
	})
	return items, nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

var _ ports.Repository = (*Store)(nil)
var _ ports.Clock = (*Store)(nil)
var _ ports.IDGenerator = (*Store)(nil)
