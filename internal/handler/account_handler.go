package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"core-ledger/internal/domain"
	"core-ledger/internal/errors"
	"core-ledger/internal/service"
)

type AccountHandler struct {
	bank *service.Bank
}

func NewAccountHandler(bank *service.Bank) *AccountHandler {
	return &AccountHandler{
		bank: bank,
	}
}

type RegisterCustomerRequest struct {
	CustomerID string `json:"customer_id"`
	Name       string `json:"name"`
}

type CustomerResponse struct {
	CustomerID string   `json:"customer_id"`
	Name       string   `json:"name"`
	Accounts   []string `json:"accounts"`
}

type OpenAccountRequest struct {
	CustomerID     string `json:"customer_id"`
	AccountNumber  string `json:"account_number"`
	Kind           string `json:"kind"`
	OpeningBalance string `json:"opening_balance"`
	InterestRate   string `json:"interest_rate,omitempty"`
	OverdraftLimit string `json:"overdraft_limit,omitempty"`
}

func (h *AccountHandler) RegisterCustomer(w http.ResponseWriter, r *http.Request) {
	var req RegisterCustomerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	customer, err := h.bank.RegisterCustomer(req.CustomerID, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, customerResponse(customer))
}

func (h *AccountHandler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	customer, err := h.bank.Customer(mux.Vars(r)["customer_id"])
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, customerResponse(customer))
}

func (h *AccountHandler) OpenAccount(w http.ResponseWriter, r *http.Request) {
	var req OpenAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	account, err := newAccount(req)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.bank.OpenAccount(account, req.CustomerID); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, account.Summary())
}

func newAccount(req OpenAccountRequest) (*domain.Account, error) {
	kind, err := domain.ParseAccountKind(req.Kind)
	if err != nil {
		return nil, err
	}
	opening, err := parseAmount("opening_balance", req.OpeningBalance, true)
	if err != nil {
		return nil, err
	}

	switch kind {
	case domain.KindSavings:
		rate, err := parseAmount("interest_rate", req.InterestRate, true)
		if err != nil {
			return nil, err
		}
		return domain.NewSavingsAccount(req.AccountNumber, opening, rate)
	case domain.KindChecking:
		overdraft, err := parseAmount("overdraft_limit", req.OverdraftLimit, true)
		if err != nil {
			return nil, err
		}
		return domain.NewCheckingAccount(req.AccountNumber, opening, overdraft)
	case domain.KindStandard:
		return domain.NewStandardAccount(req.AccountNumber, opening)
	}
	return nil, errors.ErrInvalidInput.WithDetails("unsupported account kind")
}

func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	account, err := h.bank.Account(mux.Vars(r)["account_number"])
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, account.Summary())
}

func (h *AccountHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	account, err := h.bank.Account(mux.Vars(r)["account_number"])
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, account.History())
}

func customerResponse(c *domain.Customer) CustomerResponse {
	return CustomerResponse{
		CustomerID: c.ID(),
		Name:       c.Name(),
		Accounts:   c.Accounts(),
	}
}
