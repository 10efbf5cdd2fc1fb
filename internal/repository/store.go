package repository

import (
	"io"
	"log/slog"
	"sort"
	"sync"

	"core-ledger/internal/domain"
	"core-ledger/internal/errors"
)

// Store is the account arena. Every account exists once, keyed by account
// number; customers refer to their accounts by number. The store also owns
// the global journal accounts are bound to when opened.
type Store struct {
	mu        sync.RWMutex
	customers map[string]*domain.Customer
	accounts  map[string]*domain.Account
	journal   *Journal
	logger    *slog.Logger
}

// NewStore creates a new Store instance
func NewStore(journal *Journal, logger *slog.Logger) *Store {
	if logger == nil {
		logger = discardLogger()
	}
	return &Store{
		customers: make(map[string]*domain.Customer),
		accounts:  make(map[string]*domain.Account),
		journal:   journal,
		logger:    logger,
	}
}

func (s *Store) Journal() *Journal {
	return s.journal
}

// UpsertCustomer registers the customer or renames an existing one, keeping
// its accounts. It reports whether the customer was new.
func (s *Store) UpsertCustomer(id, name string) (*domain.Customer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.customers[id]; ok {
		c.Rename(name)
		return c, false
	}
	c := domain.NewCustomer(id, name)
	s.customers[id] = c
	s.logger.Info("Customer registered", "customer_id", id)
	return c, true
}

func (s *Store) GetCustomer(id string) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.customers[id]
	if !ok {
		s.logger.Warn("Customer not found", "customer_id", id)
		return nil, errors.ErrUnknownCustomer.WithDetails(id)
	}
	return c, nil
}

// CreateAccount binds the account to the journal, indexes it and attaches it
// to its owner.
func (s *Store) CreateAccount(account *domain.Account, customerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	customer, ok := s.customers[customerID]
	if !ok {
		s.logger.Warn("Account opened for unknown customer",
			"account_number", account.Number(), "customer_id", customerID)
		return errors.ErrUnknownCustomer.WithDetails(customerID)
	}
	if _, ok := s.accounts[account.Number()]; ok {
		s.logger.Warn("Duplicate account creation attempt", "account_number", account.Number())
		return errors.ErrDuplicateAccount.WithDetails(account.Number())
	}
	if err := account.Bind(s.journal); err != nil {
		return err
	}

	s.accounts[account.Number()] = account
	customer.AddAccount(account.Number())

	s.logger.Info("Account created successfully",
		"account_number", account.Number(),
		"customer_id", customerID,
		"kind", account.Kind())
	return nil
}

func (s *Store) GetAccount(number string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[number]
	if !ok {
		s.logger.Warn("Account not found", "account_number", number)
		return nil, errors.ErrAccountNotFound.WithDetails(number)
	}
	return a, nil
}

// ListAccounts returns every account ordered by account number.
func (s *Store) ListAccounts() []*domain.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Number() < out[j].Number()
	})
	return out
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
