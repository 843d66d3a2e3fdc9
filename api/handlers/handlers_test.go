package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/priyankishorems/rampgate/internal/data"
	"github.com/priyankishorems/rampgate/internal/events"
	"github.com/priyankishorems/rampgate/internal/moonpay"
	"github.com/priyankishorems/rampgate/internal/ramp"
	"github.com/priyankishorems/rampgate/utils"
)

// stubProcessor is an in-process MoonPay stand-in.
type stubProcessor struct {
	mu         sync.Mutex
	createCode int
	createBody string
	getBodies  map[string]string
	getCode    int
	creates    []map[string]any
	gets       []string
}

func (s *stubProcessor) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/v1/transactions":
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		s.creates = append(s.creates, body)
		w.WriteHeader(s.createCode)
		io.WriteString(w, s.createBody)
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/v1/transactions/"):
		id := strings.TrimPrefix(r.URL.Path, "/v1/transactions/")
		s.gets = append(s.gets, id)
		if s.getCode != 0 {
			w.WriteHeader(s.getCode)
			io.WriteString(w, `{"message":"upstream unavailable"}`)
			return
		}
		body, ok := s.getBodies[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		io.WriteString(w, body)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type testEnv struct {
	h     *Handlers
	e     *echo.Echo
	stub  *stubProcessor
	model data.Models
	user  *data.User
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := data.DB{Driver: data.DriverSQLite, Database: filepath.Join(t.TempDir(), "api.db")}.Open()
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := data.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	models := data.NewModel(db)

	user := &data.User{FirstName: "Wanjiru", LastName: "Kamau", Email: "w@example.com", PhoneNumber: "+254700000000", IDNumber: "12345678"}
	if err := models.Users.Insert(context.Background(), user); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	stub := &stubProcessor{
		createCode: http.StatusOK,
		createBody: `{"id":"ext_1","status":"waitingPayment","redirectUrl":"https://pay/ext_1"}`,
		getBodies:  map[string]string{},
	}
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)

	client, err := moonpay.NewClient(moonpay.Config{BaseURL: srv.URL, APIKey: "sk_test", HTTPClient: srv.Client()})
	if err != nil {
		t.Fatalf("moonpay client: %v", err)
	}

	h := &Handlers{
		Validate: utils.NewValidator(),
		Utils:    utils.NewUtils(),
		Data:     models,
		Ramp:     ramp.NewService(models.Users, models.Transactions, client, events.Noop{}),
	}

	return &testEnv{h: h, e: echo.New(), stub: stub, model: models, user: user}
}

func (env *testEnv) do(handler echo.HandlerFunc, method, target, body string, params ...string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	c := env.e.NewContext(req, rec)
	if len(params) == 2 {
		c.SetParamNames(params[0])
		c.SetParamValues(params[1])
	}
	if err := handler(c); err != nil {
		env.e.HTTPErrorHandler(err, c)
	}
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

const mobileMoneyBody = `{"userId":1,"amount":5000,"currency":"KES","cryptoCurrency":"btc","paymentMethod":"mobile_money","userDetails":{"walletAddress":"3FZbgi29cpjq2GjdwV8eyHuJJnkLtktZc5"}}`

func TestCreateTransactionHandler(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(env.h.CreateTransactionHandler, http.MethodPost, "/api/transactions", mobileMoneyBody)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	payload := decode(t, rec)
	if payload["moonpayUrl"] != "https://pay/ext_1" {
		t.Errorf("moonpayUrl = %v", payload["moonpayUrl"])
	}
	txn, _ := payload["transaction"].(map[string]any)
	if txn["status"] != "waitingPayment" || txn["moonpayTransactionId"] != "ext_1" {
		t.Errorf("unexpected transaction %v", txn)
	}
	if txn["cryptoAmount"] != nil {
		t.Errorf("cryptoAmount = %v, want null", txn["cryptoAmount"])
	}

	if len(env.stub.creates) != 1 {
		t.Fatalf("expected one processor call, got %d", len(env.stub.creates))
	}
	if _, ok := env.stub.creates[0]["card"]; ok {
		t.Error("mobile money must not send card details")
	}
}

func TestCreateTransactionHandlerCard(t *testing.T) {
	env := newTestEnv(t)
	body := `{"userId":1,"amount":"25.50","currency":"usd","cryptoCurrency":"ETH","paymentMethod":"card",
		"cardDetails":{"number":"4111111111111111","expiryMonth":"12","expiryYear":"2030","cvv":"123","holderName":"W KAMAU"},
		"userDetails":{"walletAddress":"0xabc"}}`

	rec := env.do(env.h.CreateTransactionHandler, http.MethodPost, "/api/transactions", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	sent := env.stub.creates[0]
	if sent["paymentMethod"] != "credit_debit_card" || sent["currencyCode"] != "eth" || sent["baseCurrencyCode"] != "usd" {
		t.Errorf("unexpected processor request %v", sent)
	}
	card, _ := sent["card"].(map[string]any)
	if card["number"] != "4111111111111111" || card["cvc"] != "123" {
		t.Errorf("unexpected card payload %v", card)
	}

	txn := decode(t, rec)["transaction"].(map[string]any)
	if txn["paymentMethod"] != "card" || txn["currency"] != "USD" || txn["amount"] != "25.5" {
		t.Errorf("unexpected transaction %v", txn)
	}
}

func TestCreateTransactionHandlerValidation(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"missing amount", `{"userId":1,"currency":"KES","cryptoCurrency":"btc","paymentMethod":"mobile_money","userDetails":{"walletAddress":"x"}}`, "amount"},
		{"negative amount", `{"userId":1,"amount":-5,"currency":"KES","cryptoCurrency":"btc","paymentMethod":"mobile_money","userDetails":{"walletAddress":"x"}}`, "amount"},
		{"bad currency", `{"userId":1,"amount":5,"currency":"XYZ1","cryptoCurrency":"btc","paymentMethod":"mobile_money","userDetails":{"walletAddress":"x"}}`, "currency"},
		{"bad payment method", `{"userId":1,"amount":5,"currency":"KES","cryptoCurrency":"btc","paymentMethod":"cash","userDetails":{"walletAddress":"x"}}`, "paymentMethod"},
		{"card without details", `{"userId":1,"amount":5,"currency":"KES","cryptoCurrency":"btc","paymentMethod":"card","userDetails":{"walletAddress":"x"}}`, "cardDetails"},
		{"bad card number", `{"userId":1,"amount":5,"currency":"KES","cryptoCurrency":"btc","paymentMethod":"card","cardDetails":{"number":"1234","expiryMonth":"12","expiryYear":"2030","cvv":"123","holderName":"A"},"userDetails":{"walletAddress":"x"}}`, "number"},
		{"missing wallet", `{"userId":1,"amount":5,"currency":"KES","cryptoCurrency":"btc","paymentMethod":"mobile_money","userDetails":{}}`, "walletAddress"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			rec := env.do(env.h.CreateTransactionHandler, http.MethodPost, "/api/transactions", tt.body)
			if rec.Code != http.StatusUnprocessableEntity {
				t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
			}
			errs, _ := decode(t, rec)["error"].(map[string]any)
			if _, ok := errs[tt.field]; !ok {
				t.Errorf("expected error for %q, got %v", tt.field, errs)
			}
			if len(env.stub.creates) != 0 {
				t.Error("processor must not be called for invalid input")
			}
		})
	}
}

func TestCreateTransactionHandlerMalformedJSON(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(env.h.CreateTransactionHandler, http.MethodPost, "/api/transactions", `{"userId":`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCreateTransactionHandlerUnknownUser(t *testing.T) {
	env := newTestEnv(t)
	body := strings.Replace(mobileMoneyBody, `"userId":1`, `"userId":99`, 1)

	rec := env.do(env.h.CreateTransactionHandler, http.MethodPost, "/api/transactions", body)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if msg := decode(t, rec)["error"]; msg != "user not found" {
		t.Errorf("error = %v", msg)
	}

	txns, _, _ := env.model.Transactions.ListByUser(context.Background(), 99, data.Filters{Page: 1, PageSize: 10})
	if len(txns) != 0 {
		t.Errorf("expected no records, got %d", len(txns))
	}
}

func TestCreateTransactionHandlerProcessorFailure(t *testing.T) {
	env := newTestEnv(t)
	env.stub.createCode = http.StatusUnprocessableEntity
	env.stub.createBody = `{"message":"Invalid wallet address"}`

	rec := env.do(env.h.CreateTransactionHandler, http.MethodPost, "/api/transactions", mobileMoneyBody)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	payload := decode(t, rec)
	if payload["details"] != `{"message":"Invalid wallet address"}` || payload["error"] == nil {
		t.Errorf("unexpected body %v", payload)
	}

	txns, _, _ := env.model.Transactions.ListByUser(context.Background(), env.user.ID, data.Filters{Page: 1, PageSize: 10})
	if len(txns) != 1 || txns[0].Status != data.StatusPending || txns[0].HasExternalID() {
		t.Errorf("expected one orphaned pending record, got %+v", txns)
	}
}

func TestGetTransactionHandler(t *testing.T) {
	env := newTestEnv(t)
	env.do(env.h.CreateTransactionHandler, http.MethodPost, "/api/transactions", mobileMoneyBody)
	env.stub.getBodies["ext_1"] = `{"id":"ext_1","status":"completed","cryptoAmount":0.0042}`

	rec := env.do(env.h.GetTransactionHandler, http.MethodGet, "/api/transactions/1", "", "id", "1")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	txn := decode(t, rec)
	if txn["status"] != "completed" || txn["cryptoAmount"] != "0.0042" {
		t.Errorf("not reconciled: %v", txn)
	}
	if len(env.stub.gets) != 1 {
		t.Errorf("expected 1 processor lookup, got %d", len(env.stub.gets))
	}
}

func TestGetTransactionHandlerNotFound(t *testing.T) {
	env := newTestEnv(t)

	for _, id := range []string{"42", "abc"} {
		rec := env.do(env.h.GetTransactionHandler, http.MethodGet, "/api/transactions/"+id, "", "id", id)
		if rec.Code != http.StatusNotFound {
			t.Errorf("id %s: expected 404, got %d", id, rec.Code)
		}
	}
}

func TestGetTransactionHandlerProcessorFailure(t *testing.T) {
	env := newTestEnv(t)
	env.do(env.h.CreateTransactionHandler, http.MethodPost, "/api/transactions", mobileMoneyBody)
	env.stub.getCode = http.StatusBadGateway

	rec := env.do(env.h.GetTransactionHandler, http.MethodGet, "/api/transactions/1", "", "id", "1")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if details := decode(t, rec)["details"]; details != `{"message":"upstream unavailable"}` {
		t.Errorf("details = %v", details)
	}
}

func TestMoonpayWebhookHandler(t *testing.T) {
	env := newTestEnv(t)
	env.do(env.h.CreateTransactionHandler, http.MethodPost, "/api/transactions", mobileMoneyBody)

	body := `{"type":"transaction_updated","data":{"id":"ext_1","status":"completed","cryptoAmount":0.01,"baseCurrencyAmount":5000}}`
	rec := env.do(env.h.MoonpayWebhookHandler, http.MethodPost, "/api/webhook/moonpay", body)
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Fatalf("expected 200 OK, got %d %q", rec.Code, rec.Body.String())
	}

	txn, err := env.model.Transactions.GetByExternalID(context.Background(), "ext_1")
	if err != nil {
		t.Fatalf("GetByExternalID: %v", err)
	}
	if txn.Status != "completed" || txn.CryptoAmount.Decimal.String() != "0.01" {
		t.Errorf("webhook not applied: %+v", txn)
	}
}

func TestMoonpayWebhookHandlerUnknownID(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(env.h.MoonpayWebhookHandler, http.MethodPost, "/api/webhook/moonpay", `{"data":{"id":"ghost","status":"completed"}}`)
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Fatalf("expected 200 OK, got %d %q", rec.Code, rec.Body.String())
	}
}

func TestMoonpayWebhookHandlerMalformed(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(env.h.MoonpayWebhookHandler, http.MethodPost, "/api/webhook/moonpay", `not json`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestListUserTransactionsHandler(t *testing.T) {
	env := newTestEnv(t)
	env.do(env.h.CreateTransactionHandler, http.MethodPost, "/api/transactions", mobileMoneyBody)

	rec := env.do(env.h.ListUserTransactionsHandler, http.MethodGet, "/api/users/1/transactions?page=1&page_size=10", "", "userId", "1")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	payload := decode(t, rec)
	txns, _ := payload["transactions"].([]any)
	if len(txns) != 1 {
		t.Errorf("expected 1 transaction, got %v", payload["transactions"])
	}

	rec = env.do(env.h.ListUserTransactionsHandler, http.MethodGet, "/api/users/1/transactions?page_size=1000", "", "userId", "1")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 for oversized page, got %d", rec.Code)
	}

	rec = env.do(env.h.ListUserTransactionsHandler, http.MethodGet, "/api/users/9/transactions", "", "userId", "9")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown user, got %d", rec.Code)
	}
}
