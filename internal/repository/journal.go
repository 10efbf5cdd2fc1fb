package repository

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"core-ledger/internal/domain"
)

// Journal is the in-memory global transaction log. Entries are only ever
// appended; each gets the next sequence number and a timestamp that never
// goes backwards, so sequence order is chronological order.
type Journal struct {
	mu      sync.RWMutex
	entries []domain.Transaction
	clock   func() time.Time
	logger  *slog.Logger
}

var _ domain.Journal = (*Journal)(nil)

func NewJournal(clock func() time.Time, logger *slog.Logger) *Journal {
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = discardLogger()
	}
	return &Journal{
		clock:  clock,
		logger: logger,
	}
}

// Record stamps the draft with sequence number and time and appends it.
func (j *Journal) Record(draft domain.Transaction) domain.Transaction {
	j.mu.Lock()
	defer j.mu.Unlock()

	draft.Timestamp = j.nextTimestamp(j.clock())
	return j.appendLocked(draft)
}

// Append stores a transaction produced elsewhere. The journal is a ledger of
// facts: nothing is validated. A missing id is filled in; the timestamp is
// always the journal's own, so the log stays in chronological order.
func (j *Journal) Append(tx domain.Transaction) domain.Transaction {
	j.mu.Lock()
	defer j.mu.Unlock()

	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	tx.Timestamp = j.nextTimestamp(j.clock())
	return j.appendLocked(tx)
}

func (j *Journal) appendLocked(tx domain.Transaction) domain.Transaction {
	tx.Seq = uint64(len(j.entries)) + 1
	j.entries = append(j.entries, tx)

	j.logger.Debug("Transaction journaled",
		"transaction_id", tx.ID,
		"seq", tx.Seq,
		"kind", tx.Kind,
		"amount", tx.Amount)
	return tx
}

func (j *Journal) nextTimestamp(now time.Time) time.Time {
	if n := len(j.entries); n > 0 {
		if last := j.entries[n-1].Timestamp; now.Before(last) {
			return last
		}
	}
	return now
}

// Snapshot returns a copy of every entry up to the latest sequence number at
// call time.
func (j *Journal) Snapshot() []domain.Transaction {
	j.mu.RLock()
	defer j.mu.RUnlock()
	out := make([]domain.Transaction, len(j.entries))
	copy(out, j.entries)
	return out
}

// Since returns the entries with a sequence number greater than seq.
func (j *Journal) Since(seq uint64) []domain.Transaction {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if seq >= uint64(len(j.entries)) {
		return nil
	}
	out := make([]domain.Transaction, uint64(len(j.entries))-seq)
	copy(out, j.entries[seq:])
	return out
}

// FindAtLeast scans the log for entries with amount >= min, preserving order.
func (j *Journal) FindAtLeast(min decimal.Decimal) []domain.Transaction {
	j.mu.RLock()
	defer j.mu.RUnlock()
	var out []domain.Transaction
	for _, tx := range j.entries {
		if tx.Amount.GreaterThanOrEqual(min) {
			out = append(out, tx)
		}
	}
	return out
}

// FindByAmount scans the log for entries with min <= amount <= max,
// preserving order.
func (j *Journal) FindByAmount(min, max decimal.Decimal) []domain.Transaction {
	j.mu.RLock()
	defer j.mu.RUnlock()
	var out []domain.Transaction
	for _, tx := range j.entries {
		if tx.Amount.GreaterThanOrEqual(min) && tx.Amount.LessThanOrEqual(max) {
			out = append(out, tx)
		}
	}
	return out
}

func (j *Journal) LastSeq() uint64 {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return uint64(len(j.entries))
}
