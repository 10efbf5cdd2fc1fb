package domain

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"core-ledger/internal/errors"
)

type AccountKind string

const (
	KindStandard AccountKind = "standard"
	KindSavings  AccountKind = "savings"
	KindChecking AccountKind = "checking"
)

// ParseAccountKind accepts the lowercase kind names used on the wire.
func ParseAccountKind(s string) (AccountKind, error) {
	switch k := AccountKind(s); k {
	case KindStandard, KindSavings, KindChecking:
		return k, nil
	case "":
		return KindStandard, nil
	}
	return "", errors.NewAppErrorf(errors.InvalidInput, "unknown account kind %q", s)
}

// Account is a single ledger account. The kind selects the withdrawal
// feasibility rule and whether interest accrues; parameters that do not apply
// to the kind are zero.
//
// All mutations hold mu for the whole of validate, journal, apply, so a reader
// of either the account history or the journal never sees one without the
// other.
type Account struct {
	number         string
	kind           AccountKind
	interestRate   decimal.Decimal
	overdraftLimit decimal.Decimal
	opening        decimal.Decimal
	clock          func() time.Time

	mu      sync.Mutex
	balance decimal.Decimal
	history []Transaction
	journal Journal
}

type AccountOption func(*Account)

// WithClock sets the time source used to stamp transactions while the account
// is not bound to a journal.
func WithClock(clock func() time.Time) AccountOption {
	return func(a *Account) {
		a.clock = clock
	}
}

func NewStandardAccount(number string, opening decimal.Decimal, opts ...AccountOption) (*Account, error) {
	return newAccount(number, KindStandard, opening, decimal.Zero, decimal.Zero, opts)
}

// NewSavingsAccount creates a savings account; rate must lie in [0, 1).
func NewSavingsAccount(number string, opening, rate decimal.Decimal, opts ...AccountOption) (*Account, error) {
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, errors.NewAppErrorf(errors.InvalidInput, "interest rate %s outside [0, 1)", rate)
	}
	return newAccount(number, KindSavings, opening, rate, decimal.Zero, opts)
}

func NewCheckingAccount(number string, opening, overdraft decimal.Decimal, opts ...AccountOption) (*Account, error) {
	if overdraft.IsNegative() {
		return nil, errors.ErrInvalidAmount.WithDetails("overdraft limit must not be negative")
	}
	return newAccount(number, KindChecking, opening, decimal.Zero, overdraft, opts)
}

func newAccount(number string, kind AccountKind, opening, rate, overdraft decimal.Decimal, opts []AccountOption) (*Account, error) {
	if number == "" {
		return nil, errors.ErrInvalidInput.WithDetails("account number is required")
	}
	if number == InterestAccount {
		return nil, errors.ErrInvalidInput.WithDetails(number + " is reserved")
	}
	if opening.IsNegative() {
		return nil, errors.ErrInvalidAmount.WithDetails("opening balance must not be negative")
	}

	a := &Account{
		number:         number,
		kind:           kind,
		interestRate:   rate,
		overdraftLimit: overdraft,
		opening:        opening,
		balance:        opening,
		clock:          time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

func (a *Account) Number() string                  { return a.number }
func (a *Account) Kind() AccountKind               { return a.kind }
func (a *Account) InterestRate() decimal.Decimal   { return a.interestRate }
func (a *Account) OverdraftLimit() decimal.Decimal { return a.overdraftLimit }
func (a *Account) OpeningBalance() decimal.Decimal { return a.opening }

func (a *Account) Balance() decimal.Decimal {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.balance
}

// History returns a copy of the account's transactions in chronological order.
func (a *Account) History() []Transaction {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Transaction, len(a.history))
	copy(out, a.history)
	return out
}

// AccountSummary is a consistent point-in-time view of an account.
type AccountSummary struct {
	Number           string          `json:"account_number"`
	Kind             AccountKind     `json:"kind"`
	Balance          decimal.Decimal `json:"balance"`
	OpeningBalance   decimal.Decimal `json:"opening_balance"`
	InterestRate     decimal.Decimal `json:"interest_rate"`
	OverdraftLimit   decimal.Decimal `json:"overdraft_limit"`
	TransactionCount int             `json:"transaction_count"`
}

func (a *Account) Summary() AccountSummary {
	a.mu.Lock()
	defer a.mu.Unlock()
	return AccountSummary{
		Number:           a.number,
		Kind:             a.kind,
		Balance:          a.balance,
		OpeningBalance:   a.opening,
		InterestRate:     a.interestRate,
		OverdraftLimit:   a.overdraftLimit,
		TransactionCount: len(a.history),
	}
}

// Bind attaches the account to a journal. An account can be bound once, and
// only before it has recorded any transaction, so the journal always holds
// every entry of the account history.
func (a *Account) Bind(j Journal) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.journal != nil {
		return errors.ErrInvalidInput.WithDetails("account " + a.number + " is already bound to a ledger")
	}
	if len(a.history) > 0 {
		return errors.ErrInvalidInput.WithDetails("account " + a.number + " has unjournaled transactions")
	}
	a.journal = j
	return nil
}

func (a *Account) Deposit(amount decimal.Decimal) (Transaction, error) {
	if err := validateAmount(amount); err != nil {
		return Transaction{}, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	tx := a.record(Transaction{
		DestinationAccount: a.number,
		Amount:             amount,
		Kind:               KindDeposit,
	})
	a.apply(tx)
	return tx, nil
}

func (a *Account) Withdraw(amount decimal.Decimal) (Transaction, error) {
	if err := validateAmount(amount); err != nil {
		return Transaction{}, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.canWithdraw(amount) {
		return Transaction{}, a.insufficient(amount)
	}
	tx := a.record(Transaction{
		SourceAccount: a.number,
		Amount:        amount,
		Kind:          KindWithdrawal,
	})
	a.apply(tx)
	return tx, nil
}

// Transfer moves amount from a to dest under the source account's feasibility
// rule. Both accounts are locked in account-number order; debit, credit and
// the single Transfer entry happen together or not at all.
func (a *Account) Transfer(amount decimal.Decimal, dest *Account) (Transaction, error) {
	if dest == nil {
		return Transaction{}, errors.ErrInvalidInput.WithDetails("destination account is required")
	}
	if dest == a || dest.number == a.number {
		return Transaction{}, errors.ErrSameAccountTransfer
	}
	if err := validateAmount(amount); err != nil {
		return Transaction{}, err
	}

	first, second := a, dest
	if second.number < first.number {
		first, second = second, first
	}
	first.mu.Lock()
	defer first.mu.Unlock()
	second.mu.Lock()
	defer second.mu.Unlock()

	if a.journal != dest.journal {
		return Transaction{}, errors.ErrInvalidInput.WithDetails("accounts belong to different ledgers")
	}
	if !a.canWithdraw(amount) {
		return Transaction{}, a.insufficient(amount)
	}

	tx := a.record(Transaction{
		SourceAccount:      a.number,
		DestinationAccount: dest.number,
		Amount:             amount,
		Kind:               KindTransfer,
	})
	a.apply(tx)
	dest.apply(tx)
	return tx, nil
}

// ApplyInterest credits balance*rate, rounded half away from zero to cents, on
// savings accounts. It reports false when nothing was credited: other kinds,
// or interest that rounds below one cent (a zero rate, a non-positive balance,
// or a balance too small to earn a cent, such as 0.01 at 0.10).
func (a *Account) ApplyInterest() (Transaction, bool) {
	if a.kind != KindSavings {
		return Transaction{}, false
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	interest := a.balance.Mul(a.interestRate).Round(2)
	if !interest.IsPositive() {
		return Transaction{}, false
	}
	tx := a.record(Transaction{
		SourceAccount:      InterestAccount,
		DestinationAccount: a.number,
		Amount:             interest,
		Kind:               KindInterestCredit,
	})
	a.apply(tx)
	return tx, true
}

// Reconcile re-derives the balance from the opening balance and history. A
// mismatch means the ledger is corrupt and panics.
func (a *Account) Reconcile() {
	a.mu.Lock()
	defer a.mu.Unlock()

	sum := a.opening
	for _, tx := range a.history {
		sum = sum.Add(tx.SignedAmountFor(a.number))
	}
	if !sum.Equal(a.balance) {
		panic(fmt.Sprintf("account %s: balance %s diverges from history sum %s", a.number, a.balance, sum))
	}
	a.checkFloor()
}

// canWithdraw is the feasibility predicate. Callers hold mu.
func (a *Account) canWithdraw(amount decimal.Decimal) bool {
	switch a.kind {
	case KindChecking:
		return a.balance.Add(a.overdraftLimit).GreaterThanOrEqual(amount)
	case KindStandard, KindSavings:
		return a.balance.GreaterThanOrEqual(amount)
	default:
		panic("unknown account kind " + string(a.kind))
	}
}

func (a *Account) floor() decimal.Decimal {
	if a.kind == KindChecking {
		return a.overdraftLimit.Neg()
	}
	return decimal.Zero
}

func (a *Account) checkFloor() {
	if a.balance.LessThan(a.floor()) {
		panic(fmt.Sprintf("account %s: balance %s below floor %s", a.number, a.balance, a.floor()))
	}
}

func (a *Account) insufficient(amount decimal.Decimal) error {
	return errors.ErrInsufficientFunds.WithDetails(
		fmt.Sprintf("account %s: balance %s, requested %s", a.number, a.balance, amount))
}

// record assigns identity and time to the draft, publishing it to the journal
// when the account is bound. Callers hold mu.
func (a *Account) record(draft Transaction) Transaction {
	draft.ID = uuid.New()
	if a.journal != nil {
		return a.journal.Record(draft)
	}
	draft.Timestamp = a.clock()
	return draft
}

// apply books tx against this account. Callers hold mu.
func (a *Account) apply(tx Transaction) {
	a.balance = a.balance.Add(tx.SignedAmountFor(a.number))
	a.history = append(a.history, tx)
	a.checkFloor()
}

func validateAmount(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return errors.ErrInvalidAmount.WithDetails("got " + amount.String())
	}
	return nil
}
