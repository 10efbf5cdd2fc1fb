package handler

import (
	"net/http"

	"core-ledger/internal/errors"
	"core-ledger/internal/service"
)

type FraudHandler struct {
	detector *service.FraudDetector
	bank     *service.Bank
}

func NewFraudHandler(detector *service.FraudDetector, bank *service.Bank) *FraudHandler {
	return &FraudHandler{
		detector: detector,
		bank:     bank,
	}
}

type BlacklistRequest struct {
	AccountNumber string `json:"account_number"`
}

func (h *FraudHandler) Monitor(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.detector.Monitor(h.bank))
}

func (h *FraudHandler) Flagged(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.detector.Flags())
}

func (h *FraudHandler) Alerts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.detector.Alerts())
}

func (h *FraudHandler) Blacklist(w http.ResponseWriter, r *http.Request) {
	var req BlacklistRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.AccountNumber == "" {
		writeError(w, errors.ErrInvalidInput.WithDetails("account_number is required"))
		return
	}

	h.detector.Blacklist(req.AccountNumber)
	writeJSON(w, http.StatusOK, h.detector.BlacklistedAccounts())
}
