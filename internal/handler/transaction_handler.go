package handler

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"core-ledger/internal/service"
)

type TransactionHandler struct {
	bank *service.Bank
}

func NewTransactionHandler(bank *service.Bank) *TransactionHandler {
	return &TransactionHandler{
		bank: bank,
	}
}

type TransferRequest struct {
	SourceAccount      string `json:"source_account"`
	DestinationAccount string `json:"destination_account"`
	Amount             string `json:"amount"`
}

type InterestResponse struct {
	Credited    bool        `json:"credited"`
	Transaction interface{} `json:"transaction,omitempty"`
}

func (h *TransactionHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	amount, ok := readAmount(w, r)
	if !ok {
		return
	}

	tx, err := h.bank.Deposit(mux.Vars(r)["account_number"], amount)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, tx)
}

func (h *TransactionHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	amount, ok := readAmount(w, r)
	if !ok {
		return
	}

	tx, err := h.bank.Withdraw(mux.Vars(r)["account_number"], amount)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, tx)
}

func (h *TransactionHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	amount, err := parseAmount("amount", req.Amount, false)
	if err != nil {
		writeError(w, err)
		return
	}

	tx, err := h.bank.Transfer(req.SourceAccount, req.DestinationAccount, amount)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, tx)
}

func (h *TransactionHandler) ApplyInterest(w http.ResponseWriter, r *http.Request) {
	tx, credited, err := h.bank.ApplyInterest(mux.Vars(r)["account_number"])
	if err != nil {
		writeError(w, err)
		return
	}

	response := InterestResponse{Credited: credited}
	if credited {
		response.Transaction = tx
	}
	writeJSON(w, http.StatusOK, response)
}

// List returns the global log, optionally restricted to an amount range.
func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("min") == "" && q.Get("max") == "" {
		writeJSON(w, http.StatusOK, h.bank.AllTransactions())
		return
	}

	min, err := parseAmount("min", q.Get("min"), true)
	if err != nil {
		writeError(w, err)
		return
	}
	if q.Get("max") == "" {
		writeJSON(w, http.StatusOK, h.bank.QueryAtLeast(min))
		return
	}
	max, err := parseAmount("max", q.Get("max"), false)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, h.bank.QueryByAmount(min, max))
}

func readAmount(w http.ResponseWriter, r *http.Request) (decimal.Decimal, bool) {
	var req AmountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return decimal.Zero, false
	}
	amount, err := parseAmount("amount", req.Amount, false)
	if err != nil {
		writeError(w, err)
		return decimal.Zero, false
	}
	return amount, true
}
