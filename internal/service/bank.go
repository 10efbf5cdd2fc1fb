package service

import (
	"log/slog"

	"github.com/shopspring/decimal"

	"core-ledger/internal/domain"
	"core-ledger/internal/errors"
	"core-ledger/internal/repository"
)

// Bank is the account registry and owner of the global transaction log.
// Accounts opened here publish every accepted mutation to the log themselves;
// Bank never re-validates business rules.
type Bank struct {
	store  *repository.Store
	logger *slog.Logger
}

func NewBank(store *repository.Store, logger *slog.Logger) *Bank {
	if logger == nil {
		logger = discardLogger()
	}
	return &Bank{
		store:  store,
		logger: logger,
	}
}

// RegisterCustomer is an idempotent upsert keyed by customer id.
func (b *Bank) RegisterCustomer(id, name string) (*domain.Customer, error) {
	if id == "" {
		return nil, errors.ErrInvalidInput.WithDetails("customer_id is required")
	}
	c, created := b.store.UpsertCustomer(id, name)
	if !created {
		b.logger.Info("Customer updated", "customer_id", id)
	}
	return c, nil
}

func (b *Bank) Customer(id string) (*domain.Customer, error) {
	return b.store.GetCustomer(id)
}

func (b *Bank) OpenAccount(account *domain.Account, customerID string) error {
	if account == nil {
		return errors.ErrInvalidInput.WithDetails("account is required")
	}
	b.logger.Info("Opening account",
		"account_number", account.Number(),
		"customer_id", customerID,
		"opening_balance", account.OpeningBalance())

	return b.store.CreateAccount(account, customerID)
}

func (b *Bank) Account(number string) (*domain.Account, error) {
	return b.store.GetAccount(number)
}

func (b *Bank) Accounts() []*domain.Account {
	return b.store.ListAccounts()
}

// RecordTransaction appends a transaction to the global log as a fact. The
// log assigns the sequence number and timestamp.
func (b *Bank) RecordTransaction(tx domain.Transaction) domain.Transaction {
	recorded := b.store.Journal().Append(tx)
	b.logger.Info("Transaction recorded",
		"transaction_id", recorded.ID,
		"seq", recorded.Seq,
		"kind", recorded.Kind,
		"amount", recorded.Amount)
	return recorded
}

// QueryByAmount returns the log entries with min <= amount <= max in log order.
func (b *Bank) QueryByAmount(min, max decimal.Decimal) []domain.Transaction {
	return b.store.Journal().FindByAmount(min, max)
}

// QueryAtLeast returns the log entries with amount >= min in log order.
func (b *Bank) QueryAtLeast(min decimal.Decimal) []domain.Transaction {
	return b.store.Journal().FindAtLeast(min)
}

// AllTransactions returns the full log in chronological order.
func (b *Bank) AllTransactions() []domain.Transaction {
	return b.store.Journal().Snapshot()
}

// Snapshot is the point-in-time log view consumed by the fraud detector.
func (b *Bank) Snapshot() []domain.Transaction {
	return b.store.Journal().Snapshot()
}

func (b *Bank) Deposit(number string, amount decimal.Decimal) (domain.Transaction, error) {
	account, err := b.store.GetAccount(number)
	if err != nil {
		return domain.Transaction{}, err
	}
	tx, err := account.Deposit(amount)
	if err != nil {
		b.logger.Warn("Deposit rejected", "account_number", number, "amount", amount, "error", err)
		return domain.Transaction{}, err
	}
	b.logger.Info("Deposit completed", "account_number", number, "transaction_id", tx.ID, "amount", amount)
	return tx, nil
}

func (b *Bank) Withdraw(number string, amount decimal.Decimal) (domain.Transaction, error) {
	account, err := b.store.GetAccount(number)
	if err != nil {
		return domain.Transaction{}, err
	}
	tx, err := account.Withdraw(amount)
	if err != nil {
		b.logger.Warn("Withdrawal rejected", "account_number", number, "amount", amount, "error", err)
		return domain.Transaction{}, err
	}
	b.logger.Info("Withdrawal completed", "account_number", number, "transaction_id", tx.ID, "amount", amount)
	return tx, nil
}

func (b *Bank) Transfer(source, destination string, amount decimal.Decimal) (domain.Transaction, error) {
	b.logger.Info("Processing transfer",
		"source_account", source,
		"destination_account", destination,
		"amount", amount)

	if source == destination {
		return domain.Transaction{}, errors.ErrSameAccountTransfer
	}
	src, err := b.store.GetAccount(source)
	if err != nil {
		return domain.Transaction{}, err
	}
	dst, err := b.store.GetAccount(destination)
	if err != nil {
		return domain.Transaction{}, err
	}

	tx, err := src.Transfer(amount, dst)
	if err != nil {
		b.logger.Warn("Transfer failed", "source_account", source, "destination_account", destination, "error", err)
		return domain.Transaction{}, err
	}

	b.logger.Info("Transfer completed successfully", "transaction_id", tx.ID)
	return tx, nil
}

// ApplyInterest credits interest on one account. The bool is false when the
// account earns nothing (not savings, zero rate or zero balance).
func (b *Bank) ApplyInterest(number string) (domain.Transaction, bool, error) {
	account, err := b.store.GetAccount(number)
	if err != nil {
		return domain.Transaction{}, false, err
	}
	tx, ok := account.ApplyInterest()
	if ok {
		b.logger.Info("Interest credited", "account_number", number, "transaction_id", tx.ID, "amount", tx.Amount)
	}
	return tx, ok, nil
}

// ApplyInterestAll runs the interest credit over every account in
// account-number order and returns the credits made.
func (b *Bank) ApplyInterestAll() []domain.Transaction {
	var credits []domain.Transaction
	for _, account := range b.store.ListAccounts() {
		if tx, ok := account.ApplyInterest(); ok {
			credits = append(credits, tx)
		}
	}
	b.logger.Info("Interest run completed", "credited_accounts", len(credits))
	return credits
}
