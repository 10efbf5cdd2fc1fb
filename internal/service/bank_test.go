package service

import (
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"core-ledger/internal/domain"
	"core-ledger/internal/errors"
	"core-ledger/internal/repository"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestBank(clock func() time.Time) *Bank {
	return NewBank(repository.NewStore(repository.NewJournal(clock, nil), nil), nil)
}

type BankTestSuite struct {
	suite.Suite
	bank *Bank
}

func (s *BankTestSuite) SetupTest() {
	s.bank = newTestBank(nil)

	_, err := s.bank.RegisterCustomer("CUST1001", "Alice Smith")
	s.Require().NoError(err)
	_, err = s.bank.RegisterCustomer("CUST1002", "Bob Johnson")
	s.Require().NoError(err)

	savings, err := domain.NewSavingsAccount("SA123", dec("10000.00"), dec("0.02"))
	s.Require().NoError(err)
	checking, err := domain.NewCheckingAccount("CA456", dec("5000.00"), dec("1000.00"))
	s.Require().NoError(err)
	s.Require().NoError(s.bank.OpenAccount(savings, "CUST1001"))
	s.Require().NoError(s.bank.OpenAccount(checking, "CUST1002"))
}

func (s *BankTestSuite) assertBalance(number, expected string) {
	account, err := s.bank.Account(number)
	s.Require().NoError(err)
	s.True(dec(expected).Equal(account.Balance()),
		"Decimal values not equal for %s: expected %s, got %s", number, expected, account.Balance())
}

func (s *BankTestSuite) TestReferenceScenario() {
	_, err := s.bank.Deposit("SA123", dec("2000.00"))
	s.Require().NoError(err)
	s.assertBalance("SA123", "12000.00")

	_, err = s.bank.Withdraw("CA456", dec("6000.00"))
	s.Require().NoError(err)
	s.assertBalance("CA456", "-1000.00")

	_, err = s.bank.Transfer("SA123", "CA456", dec("3000.00"))
	s.Require().NoError(err)
	s.assertBalance("SA123", "9000.00")
	s.assertBalance("CA456", "2000.00")

	spare, err := domain.NewCheckingAccount("CA789", decimal.Zero, decimal.Zero)
	s.Require().NoError(err)
	s.Require().NoError(s.bank.OpenAccount(spare, "CUST1002"))

	before := len(s.bank.AllTransactions())
	_, err = s.bank.Transfer("CA456", "CA789", dec("15000.00"))
	s.True(stderrors.Is(err, errors.ErrInsufficientFunds))
	s.assertBalance("CA456", "2000.00")
	s.assertBalance("CA789", "0")
	s.Len(s.bank.AllTransactions(), before)

	tx, ok, err := s.bank.ApplyInterest("SA123")
	s.Require().NoError(err)
	s.True(ok)
	s.Equal(domain.KindInterestCredit, tx.Kind)
	s.assertBalance("SA123", "9180.00")

	log := s.bank.AllTransactions()
	s.Require().Len(log, 4)
	kinds := []domain.TransactionKind{log[0].Kind, log[1].Kind, log[2].Kind, log[3].Kind}
	s.Equal([]domain.TransactionKind{
		domain.KindDeposit, domain.KindWithdrawal, domain.KindTransfer, domain.KindInterestCredit,
	}, kinds)
}

func (s *BankTestSuite) TestLocalHistoriesAreSubsetsOfLog() {
	_, err := s.bank.Deposit("SA123", dec("10"))
	s.Require().NoError(err)
	_, err = s.bank.Transfer("CA456", "SA123", dec("20"))
	s.Require().NoError(err)
	_, err = s.bank.Withdraw("SA123", dec("5"))
	s.Require().NoError(err)

	log := s.bank.AllTransactions()
	for _, account := range s.bank.Accounts() {
		for _, tx := range account.History() {
			s.Contains(log, tx)
		}
		s.NotPanics(account.Reconcile)
	}
}

func (s *BankTestSuite) TestOpenAccountErrors() {
	account, err := domain.NewStandardAccount("ST9", decimal.Zero)
	s.Require().NoError(err)

	err = s.bank.OpenAccount(account, "CUST404")
	s.True(stderrors.Is(err, errors.ErrUnknownCustomer))

	duplicate, err := domain.NewStandardAccount("SA123", decimal.Zero)
	s.Require().NoError(err)
	err = s.bank.OpenAccount(duplicate, "CUST1001")
	s.True(stderrors.Is(err, errors.ErrDuplicateAccount))

	s.True(stderrors.Is(s.bank.OpenAccount(nil, "CUST1001"), errors.ErrInvalidInput))
}

func (s *BankTestSuite) TestRegisterCustomerUpsert() {
	c, err := s.bank.RegisterCustomer("CUST1001", "Alice J. Smith")
	s.Require().NoError(err)
	s.Equal("Alice J. Smith", c.Name())
	s.Equal([]string{"SA123"}, c.Accounts())

	_, err = s.bank.RegisterCustomer("", "nobody")
	s.True(stderrors.Is(err, errors.ErrInvalidInput))
}

func (s *BankTestSuite) TestUnknownAccounts() {
	_, err := s.bank.Deposit("XX", dec("1"))
	s.True(stderrors.Is(err, errors.ErrAccountNotFound))
	_, err = s.bank.Withdraw("XX", dec("1"))
	s.True(stderrors.Is(err, errors.ErrAccountNotFound))
	_, err = s.bank.Transfer("SA123", "XX", dec("1"))
	s.True(stderrors.Is(err, errors.ErrAccountNotFound))
	_, _, err = s.bank.ApplyInterest("XX")
	s.True(stderrors.Is(err, errors.ErrAccountNotFound))

	_, err = s.bank.Transfer("SA123", "SA123", dec("1"))
	s.True(stderrors.Is(err, errors.ErrSameAccountTransfer))
	s.Empty(s.bank.AllTransactions())
}

func (s *BankTestSuite) TestRecordTransactionIsUnconditional() {
	recorded := s.bank.RecordTransaction(domain.Transaction{
		SourceAccount: "EXTERNAL",
		Amount:        dec("99999"),
		Kind:          domain.KindWithdrawal,
	})
	s.Equal(uint64(1), recorded.Seq)
	s.Equal([]domain.Transaction{recorded}, s.bank.AllTransactions())
}

func (s *BankTestSuite) TestQueryByAmount() {
	for _, a := range []string{"50", "150", "250", "100"} {
		_, err := s.bank.Deposit("SA123", dec(a))
		s.Require().NoError(err)
	}

	found := s.bank.QueryByAmount(dec("100"), dec("200"))
	s.Require().Len(found, 2)
	s.True(found[0].Amount.Equal(dec("150")))
	s.True(found[1].Amount.Equal(dec("100")))
}

func (s *BankTestSuite) TestQueryAtLeastHasNoUpperBound() {
	for _, a := range []string{"50", "1e20", "250"} {
		_, err := s.bank.Deposit("SA123", dec(a))
		s.Require().NoError(err)
	}

	found := s.bank.QueryAtLeast(dec("100"))
	s.Require().Len(found, 2)
	s.True(found[0].Amount.Equal(dec("1e20")))
	s.True(found[1].Amount.Equal(dec("250")))
}

func (s *BankTestSuite) TestApplyInterestAll() {
	credits := s.bank.ApplyInterestAll()
	s.Require().Len(credits, 1)
	s.Equal("SA123", credits[0].DestinationAccount)
	s.assertBalance("SA123", "10200.00")
	s.assertBalance("CA456", "5000.00")
}

func TestBankTestSuite(t *testing.T) {
	suite.Run(t, new(BankTestSuite))
}

func TestConcurrentTransfersConserveMoney(t *testing.T) {
	bank := newTestBank(nil)
	_, err := bank.RegisterCustomer("C", "Concurrent")
	require.NoError(t, err)

	numbers := []string{"A", "B", "C", "D"}
	for _, n := range numbers {
		a, err := domain.NewCheckingAccount(n, dec("1000"), dec("100"))
		require.NoError(t, err)
		require.NoError(t, bank.OpenAccount(a, "C"))
	}

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for k := 0; k < 25; k++ {
				src := numbers[(i+k)%len(numbers)]
				dst := numbers[(i+k+1+i%3)%len(numbers)]
				_, _ = bank.Transfer(src, dst, dec("7.25"))
				_ = bank.Snapshot()
			}
		}(i)
	}
	wg.Wait()

	total := decimal.Zero
	for _, a := range bank.Accounts() {
		total = total.Add(a.Balance())
		assert.NotPanics(t, a.Reconcile)
	}
	assert.True(t, dec("4000").Equal(total), "total %s", total)

	log := bank.AllTransactions()
	for i, tx := range log {
		assert.Equal(t, uint64(i+1), tx.Seq)
	}
}

func TestRecordedFactsKeepTheLogChronological(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	bank := newTestBank(func() time.Time { return now })
	_, err := bank.RegisterCustomer("CUST1001", "Alice Smith")
	require.NoError(t, err)
	savings, err := domain.NewSavingsAccount("SA123", dec("0"), dec("0.02"))
	require.NoError(t, err)
	require.NoError(t, bank.OpenAccount(savings, "CUST1001"))

	bank.RecordTransaction(domain.Transaction{SourceAccount: "EXTERNAL", Amount: dec("1"), Kind: domain.KindWithdrawal, Timestamp: now.Add(-24 * time.Hour)})
	bank.RecordTransaction(domain.Transaction{SourceAccount: "EXTERNAL", Amount: dec("1"), Kind: domain.KindWithdrawal, Timestamp: now.Add(24 * time.Hour)})
	for i := 0; i < 4; i++ {
		tx, err := bank.Deposit("SA123", dec("10"))
		require.NoError(t, err)
		assert.Equal(t, now, tx.Timestamp)
	}

	log := bank.AllTransactions()
	require.Len(t, log, 6)
	for i := 1; i < len(log); i++ {
		assert.False(t, log[i].Timestamp.Before(log[i-1].Timestamp), "entry %d out of order", log[i].Seq)
	}

	later := now.Add(2 * time.Hour)
	d := NewFraudDetector(DefaultFraudRules(), func() time.Time { return later }, nil)
	assert.Nil(t, d.Monitor(bank).RateAlert)
}
