package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionKind string

const (
	KindDeposit        TransactionKind = "deposit"
	KindWithdrawal     TransactionKind = "withdrawal"
	KindTransfer       TransactionKind = "transfer"
	KindInterestCredit TransactionKind = "interest_credit"
)

// InterestAccount is the synthetic source of interest credits.
const InterestAccount = "SYSTEM-INTEREST"

// Transaction is an immutable ledger entry. It is passed by value; the same
// entry is held by the account history and the global journal.
type Transaction struct {
	ID                 uuid.UUID       `json:"id"`
	Seq                uint64          `json:"seq"`
	SourceAccount      string          `json:"source_account,omitempty"`
	DestinationAccount string          `json:"destination_account,omitempty"`
	Amount             decimal.Decimal `json:"amount"`
	Kind               TransactionKind `json:"kind"`
	Timestamp          time.Time       `json:"timestamp"`
}

// SignedAmountFor returns the effect of the transaction on the given account:
// positive when it is the destination, negative when it is the source, zero
// when the account is not involved.
func (t Transaction) SignedAmountFor(accountNumber string) decimal.Decimal {
	switch accountNumber {
	case t.DestinationAccount:
		return t.Amount
	case t.SourceAccount:
		return t.Amount.Neg()
	default:
		return decimal.Zero
	}
}

// Journal is the global, append-only transaction log accounts publish to.
// Record stamps the draft with the next sequence number and a timestamp,
// appends it and returns the stored entry.
type Journal interface {
	Record(draft Transaction) Transaction
}
