package service

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"core-ledger/internal/domain"
	"core-ledger/internal/errors"
)

// DedupPolicy controls whether a transaction already flagged by a rule is
// flagged again on later monitor runs.
type DedupPolicy string

const (
	// DedupNone re-flags matching transactions on every run.
	DedupNone DedupPolicy = "none"
	// DedupByID flags a transaction at most once per rule.
	DedupByID DedupPolicy = "by_id"
)

func ParseDedupPolicy(s string) (DedupPolicy, error) {
	switch p := DedupPolicy(s); p {
	case DedupNone, DedupByID:
		return p, nil
	case "":
		return DedupNone, nil
	}
	return "", errors.NewAppErrorf(errors.InvalidInput, "unknown dedup policy %q", s)
}

type Rule string

const (
	RuleAmountThreshold    Rule = "amount_threshold"
	RuleBlacklistedAccount Rule = "blacklisted_account"
	RuleManual             Rule = "manual"
)

type FraudRules struct {
	// AmountThreshold flags transactions strictly above it.
	AmountThreshold decimal.Decimal
	// RateWindow is the trailing window, ending at the monitor run, in which
	// more than RateLimit transactions raise a rate alert.
	RateWindow time.Duration
	RateLimit  int
	Dedup      DedupPolicy
}

func DefaultFraudRules() FraudRules {
	return FraudRules{
		AmountThreshold: decimal.NewFromInt(10000),
		RateWindow:      time.Minute,
		RateLimit:       3,
		Dedup:           DedupNone,
	}
}

type Flag struct {
	Transaction domain.Transaction `json:"transaction"`
	Rule        Rule               `json:"rule"`
	FlaggedAt   time.Time          `json:"flagged_at"`
}

// RateAlert is the aggregate signal raised when the trailing window holds too
// many transactions. It is not tied to any single transaction.
type RateAlert struct {
	ID          uuid.UUID `json:"id"`
	Count       int       `json:"count"`
	Limit       int       `json:"limit"`
	WindowStart time.Time `json:"window_start"`
	WindowEnd   time.Time `json:"window_end"`
}

// MonitorReport describes one monitor run.
type MonitorReport struct {
	Seq       uint64     `json:"seq"`
	Scanned   int        `json:"scanned"`
	Flags     []Flag     `json:"flags"`
	RateAlert *RateAlert `json:"rate_alert,omitempty"`
}

// LogSource yields a point-in-time copy of the global log.
type LogSource interface {
	Snapshot() []domain.Transaction
}

// FraudDetector reviews the global log after the fact. It keeps no ledger
// state of its own and never blocks or reverses a transaction.
type FraudDetector struct {
	rules  FraudRules
	clock  func() time.Time
	logger *slog.Logger

	mu        sync.Mutex
	blacklist map[string]struct{}
	flags     []Flag
	alerts    []RateAlert
	seen      map[Rule]map[uuid.UUID]struct{}
}

func NewFraudDetector(rules FraudRules, clock func() time.Time, logger *slog.Logger) *FraudDetector {
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = discardLogger()
	}
	return &FraudDetector{
		rules:     rules,
		clock:     clock,
		logger:    logger,
		blacklist: make(map[string]struct{}),
		seen:      make(map[Rule]map[uuid.UUID]struct{}),
	}
}

func (d *FraudDetector) Rules() FraudRules {
	return d.rules
}

// Monitor runs the threshold, blacklist and rate rules over a snapshot of the
// log taken at call time.
func (d *FraudDetector) Monitor(source LogSource) MonitorReport {
	snapshot := source.Snapshot()
	now := d.clock()

	d.mu.Lock()
	defer d.mu.Unlock()

	report := MonitorReport{Scanned: len(snapshot)}
	if n := len(snapshot); n > 0 {
		report.Seq = snapshot[n-1].Seq
	}

	for _, tx := range snapshot {
		if tx.Amount.GreaterThan(d.rules.AmountThreshold) {
			if f, ok := d.flagOnce(tx, RuleAmountThreshold, now); ok {
				report.Flags = append(report.Flags, f)
			}
		}
		if d.touchesBlacklist(tx) {
			if f, ok := d.flagOnce(tx, RuleBlacklistedAccount, now); ok {
				report.Flags = append(report.Flags, f)
			}
		}
	}

	report.RateAlert = d.detectRapidTransactions(snapshot, now)

	d.logger.Info("Fraud monitor completed",
		"seq", report.Seq,
		"scanned", report.Scanned,
		"flagged", len(report.Flags),
		"rate_alert", report.RateAlert != nil)
	return report
}

func (d *FraudDetector) detectRapidTransactions(snapshot []domain.Transaction, now time.Time) *RateAlert {
	cutoff := now.Add(-d.rules.RateWindow)
	count := 0
	for _, tx := range snapshot {
		if !tx.Timestamp.Before(cutoff) && !tx.Timestamp.After(now) {
			count++
		}
	}
	if count <= d.rules.RateLimit {
		return nil
	}

	alert := RateAlert{
		ID:          uuid.New(),
		Count:       count,
		Limit:       d.rules.RateLimit,
		WindowStart: cutoff,
		WindowEnd:   now,
	}
	d.alerts = append(d.alerts, alert)
	d.logger.Warn("Rapid transactions detected",
		"count", count,
		"limit", d.rules.RateLimit,
		"window", d.rules.RateWindow)
	return &alert
}

// Flag records tx as flagged by rule regardless of the dedup policy.
func (d *FraudDetector) Flag(tx domain.Transaction, rule Rule) Flag {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.appendFlag(tx, rule, d.clock())
}

func (d *FraudDetector) flagOnce(tx domain.Transaction, rule Rule, now time.Time) (Flag, bool) {
	if d.rules.Dedup == DedupByID {
		ids, ok := d.seen[rule]
		if !ok {
			ids = make(map[uuid.UUID]struct{})
			d.seen[rule] = ids
		}
		if _, dup := ids[tx.ID]; dup {
			return Flag{}, false
		}
		ids[tx.ID] = struct{}{}
	}
	return d.appendFlag(tx, rule, now), true
}

// appendFlag is the only writer of the flag list. Callers hold mu.
func (d *FraudDetector) appendFlag(tx domain.Transaction, rule Rule, now time.Time) Flag {
	f := Flag{Transaction: tx, Rule: rule, FlaggedAt: now}
	d.flags = append(d.flags, f)
	d.logger.Warn("Transaction flagged",
		"transaction_id", tx.ID,
		"rule", rule,
		"amount", tx.Amount)
	return f
}

// Flagged returns the flagged transactions in flagging order.
func (d *FraudDetector) Flagged() []domain.Transaction {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]domain.Transaction, len(d.flags))
	for i, f := range d.flags {
		out[i] = f.Transaction
	}
	return out
}

func (d *FraudDetector) Flags() []Flag {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Flag, len(d.flags))
	copy(out, d.flags)
	return out
}

func (d *FraudDetector) Alerts() []RateAlert {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]RateAlert, len(d.alerts))
	copy(out, d.alerts)
	return out
}

func (d *FraudDetector) Blacklist(number string) {
	if number == "" {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.blacklist[number] = struct{}{}
	d.logger.Info("Account blacklisted", "account_number", number)
}

func (d *FraudDetector) Unblacklist(number string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.blacklist, number)
}

func (d *FraudDetector) IsBlacklisted(number string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.blacklist[number]
	return ok
}

func (d *FraudDetector) BlacklistedAccounts() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, 0, len(d.blacklist))
	for n := range d.blacklist {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func (d *FraudDetector) touchesBlacklist(tx domain.Transaction) bool {
	_, src := d.blacklist[tx.SourceAccount]
	_, dst := d.blacklist[tx.DestinationAccount]
	return src || dst
}

// Run monitors source every interval until ctx is done.
func (d *FraudDetector) Run(ctx context.Context, source LogSource, interval time.Duration) error {
	if interval <= 0 {
		return errors.NewAppErrorf(errors.InvalidInput, "review interval must be positive, got %s", interval)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	d.logger.Info("Periodic fraud review started", "interval", interval)
	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Periodic fraud review stopped")
			return ctx.Err()
		case <-ticker.C:
			d.Monitor(source)
		}
	}
}
