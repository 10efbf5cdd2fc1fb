package main

import (
	"fmt"

	"github.com/pterm/pterm"

	"core-ledger/internal/domain"
	"core-ledger/internal/service"
)

func renderDemo(bank *service.Bank, detector *service.FraudDetector, report service.MonitorReport) error {
	if err := renderBalances(bank.Accounts()); err != nil {
		return err
	}

	savings, err := bank.Account("SA123")
	if err != nil {
		return err
	}
	if err := renderHistory("Alice's Transaction History", savings.History()); err != nil {
		return err
	}

	if err := renderFlags(detector.Flags()); err != nil {
		return err
	}

	if report.RateAlert != nil {
		pterm.Warning.Printf("Rapid transactions detected: %d within %s (limit %d)\n",
			report.RateAlert.Count, detector.Rules().RateWindow, report.RateAlert.Limit)
	}
	return nil
}

func renderBalances(accounts []*domain.Account) error {
	tableData := pterm.TableData{{"Account", "Kind", "Opening", "Balance"}}
	for _, a := range accounts {
		s := a.Summary()
		balance := s.Balance.StringFixed(2)
		if s.Balance.IsNegative() {
			balance = pterm.Red(balance)
		}
		tableData = append(tableData, []string{s.Number, string(s.Kind), s.OpeningBalance.StringFixed(2), balance})
	}

	pterm.DefaultSection.Println("Balances")
	return pterm.DefaultTable.WithHasHeader().WithData(tableData).Render()
}

func renderHistory(title string, history []domain.Transaction) error {
	tableData := pterm.TableData{{"Seq", "Transaction ID", "Kind", "From", "To", "Amount"}}
	for _, tx := range history {
		tableData = append(tableData, []string{
			fmt.Sprint(tx.Seq),
			tx.ID.String(),
			string(tx.Kind),
			tx.SourceAccount,
			tx.DestinationAccount,
			tx.Amount.StringFixed(2),
		})
	}

	pterm.DefaultSection.Println(title)
	return pterm.DefaultTable.WithHasHeader().WithData(tableData).Render()
}

func renderFlags(flags []service.Flag) error {
	pterm.DefaultSection.Println("Flagged Transactions")
	if len(flags) == 0 {
		pterm.Info.Println("No transactions flagged")
		return nil
	}

	tableData := pterm.TableData{{"Transaction ID", "Rule", "Amount"}}
	for _, f := range flags {
		tableData = append(tableData, []string{f.Transaction.ID.String(), string(f.Rule), f.Transaction.Amount.StringFixed(2)})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(tableData).Render()
}
