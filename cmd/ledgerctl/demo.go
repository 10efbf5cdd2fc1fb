package main

import (
	stderrors "errors"
	"io"
	"log/slog"
	"time"

	"github.com/pterm/pterm"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"core-ledger/internal/config"
	"core-ledger/internal/domain"
	"core-ledger/internal/errors"
	"core-ledger/internal/repository"
	"core-ledger/internal/service"
)

func newDemoCmd(loadConfig func() (*config.Config, error)) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Replay the reference scenario and print balances, history and flags",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			rules, err := cfg.FraudRules()
			if err != nil {
				return err
			}

			logger := slog.New(slog.NewTextHandler(io.Discard, nil))
			if verbose {
				logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: cfg.SlogLevel()}))
			}

			bank := service.NewBank(repository.NewStore(repository.NewJournal(time.Now, logger), logger), logger)
			detector := service.NewFraudDetector(rules, time.Now, logger)

			if err := runScenario(bank); err != nil {
				return err
			}
			report := detector.Monitor(bank)

			return renderDemo(bank, detector, report)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log ledger activity to stderr")
	return cmd
}

func runScenario(bank *service.Bank) error {
	if _, err := bank.RegisterCustomer("CUST1001", "Alice Smith"); err != nil {
		return err
	}
	if _, err := bank.RegisterCustomer("CUST1002", "Bob Johnson"); err != nil {
		return err
	}

	savings, err := domain.NewSavingsAccount("SA123", decimal.RequireFromString("10000.00"), decimal.RequireFromString("0.02"))
	if err != nil {
		return err
	}
	checking, err := domain.NewCheckingAccount("CA456", decimal.RequireFromString("5000.00"), decimal.RequireFromString("1000.00"))
	if err != nil {
		return err
	}
	spare, err := domain.NewCheckingAccount("CA789", decimal.Zero, decimal.Zero)
	if err != nil {
		return err
	}

	for _, open := range []struct {
		account  *domain.Account
		customer string
	}{
		{savings, "CUST1001"},
		{checking, "CUST1002"},
		{spare, "CUST1002"},
	} {
		if err := bank.OpenAccount(open.account, open.customer); err != nil {
			return err
		}
	}

	if _, err := bank.Deposit("SA123", decimal.RequireFromString("2000.00")); err != nil {
		return err
	}
	if _, err := bank.Withdraw("CA456", decimal.RequireFromString("6000.00")); err != nil {
		return err
	}
	if _, err := bank.Transfer("SA123", "CA456", decimal.RequireFromString("3000.00")); err != nil {
		return err
	}

	_, err = bank.Transfer("CA456", "CA789", decimal.RequireFromString("15000.00"))
	switch {
	case stderrors.Is(err, errors.ErrInsufficientFunds):
		pterm.Warning.Println("Transfer CA456 -> CA789 of 15000.00 rejected: insufficient funds")
	case err != nil:
		return err
	}

	for i := 0; i < 5; i++ {
		if _, err := bank.Transfer("SA123", "CA456", decimal.RequireFromString("500.00")); err != nil {
			return err
		}
	}

	bank.ApplyInterestAll()
	return nil
}
