package ledger

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nikepigwin/officialmainnetnplottery/internal/modules/lottery/domain"
)

// MockService implements domain.Ledger in memory
type MockService struct {
	poolWallet     string
	defaultBalance domain.Amount

	balances      map[string]domain.Amount
	disbursements []domain.Disbursement
	byReference   map[string]string // disbursement reference -> tx
	failWith      error
	delay         time.Duration
	mu            sync.RWMutex
}

// NewMockService creates a mock ledger; unknown wallets report defaultBalance
func NewMockService(poolWallet string, defaultBalance domain.Amount) *MockService {
	return &MockService{
		poolWallet:     poolWallet,
		defaultBalance: defaultBalance,
		balances:       make(map[string]domain.Amount),
		byReference:    make(map[string]string),
	}
}

// SetBalance sets the balance of a wallet (for testing)
func (s *MockService) SetBalance(wallet string, balance domain.Amount) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[wallet] = balance
}

// FailWith makes every following disbursement fail with err; nil clears it
func (s *MockService) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWith = err
}

// SetDelay makes disbursements take d, or until the context is done
func (s *MockService) SetDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

// Disbursements returns every accepted batch
func (s *MockService) Disbursements() []domain.Disbursement {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Disbursement, len(s.disbursements))
	copy(out, s.disbursements)
	return out
}

// QueryPoolBalance returns the wallet balance
func (s *MockService) QueryPoolBalance(ctx context.Context, walletRef string) (domain.Amount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balanceLocked(walletRef), nil
}

func (s *MockService) balanceLocked(wallet string) domain.Amount {
	balance, exists := s.balances[wallet]
	if !exists {
		return s.defaultBalance
	}
	return balance
}

// DisburseFunds moves every payout out of the pool wallet in one step.
// A repeated reference returns the first transaction without paying again.
func (s *MockService) DisburseFunds(ctx context.Context, batch domain.Disbursement) (string, error) {
	s.mu.RLock()
	delay := s.delay
	s.mu.RUnlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failWith != nil {
		return "", s.failWith
	}
	if tx, ok := s.byReference[batch.Reference]; ok {
		return tx, nil
	}

	total := batch.Total()
	if s.poolWallet != "" {
		balance := s.balanceLocked(s.poolWallet)
		if balance < total {
			return "", fmt.Errorf("%w: have %d, need %d", domain.ErrInsufficientPoolFund, balance, total)
		}
		s.balances[s.poolWallet] = balance - total
	}
	for _, p := range batch.Payouts {
		s.balances[p.Destination] += p.Amount
	}

	tx := strings.ReplaceAll(uuid.NewString(), "-", "")
	s.byReference[batch.Reference] = tx
	s.disbursements = append(s.disbursements, batch)
	return tx, nil
}
