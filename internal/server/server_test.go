package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"core-ledger/internal/config"
)

type ServerTestSuite struct {
	suite.Suite
	serverInstance *Server
	baseURL        string
	client         *http.Client
}

func (suite *ServerTestSuite) SetupSuite() {
	cfg := config.NewDefault()
	cfg.ServerPort = "0" // Let OS choose a free port

	serverInstance, port, err := StartServer(cfg)
	if err != nil {
		suite.T().Fatalf("Failed to start application server: %s", err)
	}

	suite.serverInstance = serverInstance
	suite.baseURL = "http://localhost:" + port
	suite.client = &http.Client{Timeout: 10 * time.Second}

	if err := suite.waitForServerReady(); err != nil {
		suite.T().Fatal(err)
	}
}

func (suite *ServerTestSuite) waitForServerReady() error {
	timeout := 10 * time.Second
	start := time.Now()

	for time.Since(start) < timeout {
		resp, err := http.Get(suite.baseURL + "/health")
		if err == nil && resp.StatusCode == http.StatusOK {
			resp.Body.Close()
			return nil
		}
		if resp != nil {
			resp.Body.Close()
		}
		time.Sleep(50 * time.Millisecond)
	}
	return fmt.Errorf("server not ready after %v", timeout)
}

func (suite *ServerTestSuite) TearDownSuite() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if suite.serverInstance != nil {
		suite.serverInstance.Stop(ctx)
	}
}

// do sends a JSON request and decodes the response envelope.
func (suite *ServerTestSuite) do(method, path string, body interface{}) (int, map[string]interface{}) {
	var reader io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, suite.baseURL+path, reader)
	suite.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := suite.client.Do(req)
	suite.Require().NoError(err)
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	var envelope map[string]interface{}
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		suite.T().Logf("Failed to parse response: %s", respBody)
	}
	return resp.StatusCode, envelope
}

func (suite *ServerTestSuite) data(envelope map[string]interface{}) map[string]interface{} {
	d, ok := envelope["data"].(map[string]interface{})
	suite.Require().True(ok, "response has no data object: %v", envelope)
	return d
}

func (suite *ServerTestSuite) list(envelope map[string]interface{}) []interface{} {
	d, ok := envelope["data"].([]interface{})
	if !ok && envelope["data"] == nil {
		return nil
	}
	suite.Require().True(ok, "response has no data list: %v", envelope)
	return d
}

func (suite *ServerTestSuite) errorCode(envelope map[string]interface{}) string {
	e, ok := envelope["error"].(map[string]interface{})
	suite.Require().True(ok, "response has no error object: %v", envelope)
	return e["code"].(string)
}

// Helper to compare decimal values properly
func (suite *ServerTestSuite) assertDecimalEqual(expected string, actual interface{}) {
	actualStr, ok := actual.(string)
	suite.Require().True(ok, "decimal field is not a string: %v", actual)

	actualDec, err := decimal.NewFromString(actualStr)
	suite.Require().NoError(err)

	assert.True(suite.T(), decimal.RequireFromString(expected).Equal(actualDec),
		"Decimal values not equal: expected %s, got %s", expected, actualStr)
}

func (suite *ServerTestSuite) balance(number string) interface{} {
	status, resp := suite.do("GET", "/accounts/"+number, nil)
	suite.Require().Equal(http.StatusOK, status)
	return suite.data(resp)["balance"]
}

// ------------------------------------------------------------------
// Steps run in order from TestFlow; they share server state.
// ------------------------------------------------------------------

func (suite *ServerTestSuite) stepHealthCheck() {
	resp, err := suite.client.Get(suite.baseURL + "/health")
	suite.Require().NoError(err)
	defer resp.Body.Close()
	suite.Equal(http.StatusOK, resp.StatusCode)

	var health map[string]interface{}
	suite.NoError(json.NewDecoder(resp.Body).Decode(&health))
	suite.Equal("healthy", health["status"])
}

func (suite *ServerTestSuite) stepRegisterCustomers() {
	status, resp := suite.do("POST", "/customers", map[string]string{"customer_id": "CUST1001", "name": "Alice Smith"})
	suite.Equal(http.StatusCreated, status)
	suite.Equal("Alice Smith", suite.data(resp)["name"])

	status, _ = suite.do("POST", "/customers", map[string]string{"customer_id": "CUST1002", "name": "Bob Johnson"})
	suite.Equal(http.StatusCreated, status)

	status, resp = suite.do("POST", "/customers", map[string]string{"name": "nameless"})
	suite.Equal(http.StatusBadRequest, status)
	suite.Equal("invalid_input", suite.errorCode(resp))
}

func (suite *ServerTestSuite) stepOpenAccounts() {
	status, resp := suite.do("POST", "/accounts", map[string]string{
		"customer_id": "CUST1001", "account_number": "SA123", "kind": "savings",
		"opening_balance": "10000.00", "interest_rate": "0.02",
	})
	suite.Equal(http.StatusCreated, status)
	suite.assertDecimalEqual("10000.00", suite.data(resp)["balance"])

	status, _ = suite.do("POST", "/accounts", map[string]string{
		"customer_id": "CUST1002", "account_number": "CA456", "kind": "checking",
		"opening_balance": "5000.00", "overdraft_limit": "1000.00",
	})
	suite.Equal(http.StatusCreated, status)

	status, _ = suite.do("POST", "/accounts", map[string]string{
		"customer_id": "CUST1002", "account_number": "CA789", "kind": "checking",
	})
	suite.Equal(http.StatusCreated, status)

	status, resp = suite.do("POST", "/accounts", map[string]string{
		"customer_id": "CUST1002", "account_number": "CA456", "kind": "standard",
	})
	suite.Equal(http.StatusConflict, status)
	suite.Equal("duplicate_account", suite.errorCode(resp))

	status, resp = suite.do("POST", "/accounts", map[string]string{
		"customer_id": "CUST9999", "account_number": "ZZ1",
	})
	suite.Equal(http.StatusNotFound, status)
	suite.Equal("unknown_customer", suite.errorCode(resp))

	status, resp = suite.do("GET", "/customers/CUST1002", nil)
	suite.Equal(http.StatusOK, status)
	suite.Equal([]interface{}{"CA456", "CA789"}, suite.data(resp)["accounts"])
}

func (suite *ServerTestSuite) stepMoveMoney() {
	status, resp := suite.do("POST", "/accounts/SA123/deposits", map[string]string{"amount": "2000.00"})
	suite.Equal(http.StatusCreated, status)
	suite.Equal("deposit", suite.data(resp)["kind"])
	suite.assertDecimalEqual("12000.00", suite.balance("SA123"))

	status, _ = suite.do("POST", "/accounts/CA456/withdrawals", map[string]string{"amount": "6000.00"})
	suite.Equal(http.StatusCreated, status)
	suite.assertDecimalEqual("-1000.00", suite.balance("CA456"))

	status, resp = suite.do("POST", "/transactions", map[string]string{
		"source_account": "SA123", "destination_account": "CA456", "amount": "3000.00",
	})
	suite.Equal(http.StatusCreated, status)
	suite.Equal("transfer", suite.data(resp)["kind"])
	suite.assertDecimalEqual("9000.00", suite.balance("SA123"))
	suite.assertDecimalEqual("2000.00", suite.balance("CA456"))

	status, resp = suite.do("POST", "/transactions", map[string]string{
		"source_account": "CA456", "destination_account": "CA789", "amount": "15000.00",
	})
	suite.Equal(http.StatusUnprocessableEntity, status)
	suite.Equal("insufficient_funds", suite.errorCode(resp))
	suite.assertDecimalEqual("2000.00", suite.balance("CA456"))
	suite.assertDecimalEqual("0", suite.balance("CA789"))

	status, resp = suite.do("POST", "/accounts/SA123/withdrawals", map[string]string{"amount": "-5"})
	suite.Equal(http.StatusBadRequest, status)
	suite.Equal("invalid_amount", suite.errorCode(resp))

	status, resp = suite.do("POST", "/accounts/SA123/deposits", map[string]string{"amount": "a lot"})
	suite.Equal(http.StatusBadRequest, status)
	suite.Equal("invalid_amount", suite.errorCode(resp))

	status, resp = suite.do("POST", "/accounts/NOPE/deposits", map[string]string{"amount": "1"})
	suite.Equal(http.StatusNotFound, status)
	suite.Equal("account_not_found", suite.errorCode(resp))
}

func (suite *ServerTestSuite) stepInterest() {
	status, resp := suite.do("POST", "/accounts/SA123/interest", nil)
	suite.Equal(http.StatusOK, status)
	suite.Equal(true, suite.data(resp)["credited"])
	suite.assertDecimalEqual("9180.00", suite.balance("SA123"))

	status, resp = suite.do("POST", "/accounts/CA456/interest", nil)
	suite.Equal(http.StatusOK, status)
	suite.Equal(false, suite.data(resp)["credited"])

	status, resp = suite.do("GET", "/accounts/SA123/history", nil)
	suite.Equal(http.StatusOK, status)
	history := suite.list(resp)
	suite.Len(history, 3)
	suite.Equal("interest_credit", history[2].(map[string]interface{})["kind"])
}

func (suite *ServerTestSuite) stepQueryTransactions() {
	status, resp := suite.do("GET", "/transactions", nil)
	suite.Equal(http.StatusOK, status)
	suite.Len(suite.list(resp), 4)

	status, resp = suite.do("GET", "/transactions?min=2500&max=6000", nil)
	suite.Equal(http.StatusOK, status)
	found := suite.list(resp)
	suite.Len(found, 2)

	status, resp = suite.do("GET", "/transactions?min=5000", nil)
	suite.Equal(http.StatusOK, status)
	suite.Len(suite.list(resp), 1, "omitted max leaves the range open above")

	status, _ = suite.do("GET", "/transactions?min=abc", nil)
	suite.Equal(http.StatusBadRequest, status)
}

func (suite *ServerTestSuite) stepFraudReview() {
	status, _ := suite.do("POST", "/accounts/CA789/deposits", map[string]string{"amount": "10001"})
	suite.Equal(http.StatusCreated, status)

	status, resp := suite.do("POST", "/fraud/blacklist", map[string]string{"account_number": "CA456"})
	suite.Equal(http.StatusOK, status)
	suite.Equal([]interface{}{"CA456"}, suite.list(resp))

	status, resp = suite.do("POST", "/fraud/monitor", nil)
	suite.Equal(http.StatusOK, status)
	report := suite.data(resp)
	suite.EqualValues(5, report["scanned"])
	suite.NotNil(report["rate_alert"], "five transactions within the last minute")

	// One threshold flag (10001) and two blacklist flags (withdrawal and transfer touching CA456).
	status, resp = suite.do("GET", "/fraud/flagged", nil)
	suite.Equal(http.StatusOK, status)
	flags := suite.list(resp)
	suite.Len(flags, 3)

	rules := map[string]int{}
	for _, f := range flags {
		rules[f.(map[string]interface{})["rule"].(string)]++
	}
	suite.Equal(map[string]int{"amount_threshold": 1, "blacklisted_account": 2}, rules)

	status, resp = suite.do("GET", "/fraud/alerts", nil)
	suite.Equal(http.StatusOK, status)
	suite.Len(suite.list(resp), 1)

	status, _ = suite.do("POST", "/fraud/blacklist", map[string]string{})
	suite.Equal(http.StatusBadRequest, status)
}

func (suite *ServerTestSuite) TestFlow() {
	suite.stepHealthCheck()
	suite.stepRegisterCustomers()
	suite.stepOpenAccounts()
	suite.stepMoveMoney()
	suite.stepInterest()
	suite.stepQueryTransactions()
	suite.stepFraudReview()
}

func TestServerTestSuite(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}
