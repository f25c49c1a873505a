package api

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	stripeapi "github.com/stripe/stripe-go/v82"
	stripewebhook "github.com/stripe/stripe-go/v82/webhook"
	"github.com/vocdoni/payments-backend/db"
	"github.com/vocdoni/payments-backend/payments"
	"github.com/vocdoni/payments-backend/test"
)

const (
	testHost          = "0.0.0.0"
	testPort          = 7788
	testWebhookSecret = "whsec_api_test_secret"
)

// testDB is the MongoDB storage for the tests. Make it global so it can be
// accessed by the tests directly.
var testDB *db.MongoStorage

// testURL helper function returns the full URL for the given path using the
// test host and port.
func testURL(path string) string {
	return fmt.Sprintf("http://%s:%d%s", testHost, testPort, path)
}

// pingAPI helper function pings the API endpoint and retries the request
// if it fails until the retries limit is reached. It returns an error if the
// request fails or the status code is not 200 as many times as the retries
// limit.
func pingAPI(endpoint string, retries int) error {
	req, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	var pingErr error
	for i := 0; i < retries; i++ {
		var resp *http.Response
		if resp, pingErr = http.DefaultClient.Do(req); pingErr == nil {
			if resp.StatusCode == http.StatusOK {
				return nil
			}
			pingErr = fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		}
		time.Sleep(time.Second)
	}
	return pingErr
}

// stubProcessor implements payments.Processor in-memory so the HTTP surface
// can be tested without remote processor credentials. Webhook signatures are
// verified for real against the test secret.
type stubProcessor struct {
	mtx     sync.Mutex
	intents map[string]*stripeapi.PaymentIntent // by idempotency key
}

func (f *stubProcessor) CreatePaymentIntent(_ context.Context, req *payments.IntentRequest) (*stripeapi.PaymentIntent, error) {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	if intent, ok := f.intents[req.ClientKey]; ok {
		return intent, nil
	}
	intent := &stripeapi.PaymentIntent{
		ID:           fmt.Sprintf("pi_stub_%d", len(f.intents)+1),
		Amount:       req.AmountCents,
		Currency:     stripeapi.Currency(req.Currency),
		Status:       stripeapi.PaymentIntentStatusRequiresPaymentMethod,
		ClientSecret: fmt.Sprintf("pi_stub_%d_secret", len(f.intents)+1),
	}
	f.intents[req.ClientKey] = intent
	return intent, nil
}

func (f *stubProcessor) GetPaymentIntent(_ context.Context, providerID string) (*stripeapi.PaymentIntent, error) {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	for _, intent := range f.intents {
		if intent.ID == providerID {
			return intent, nil
		}
	}
	return nil, payments.NewProcessorError("api_call_failed", "no such payment intent", nil)
}

func (*stubProcessor) CreateRefund(_ context.Context, providerID string) (*stripeapi.Refund, error) {
	return &stripeapi.Refund{
		ID:     "re_stub_1",
		Status: stripeapi.RefundStatusSucceeded,
		PaymentIntent: &stripeapi.PaymentIntent{
			ID: providerID,
		},
	}, nil
}

func (*stubProcessor) ValidateWebhookEvent(payload []byte, signatureHeader string) (*stripeapi.Event, error) {
	event, err := stripewebhook.ConstructEvent(payload, signatureHeader, testWebhookSecret)
	if err != nil {
		return nil, payments.NewProcessorError("webhook_validation", "webhook signature validation failed", err)
	}
	return &event, nil
}

// TestMain starts the MongoDB container and the API server before running
// the tests, wiring the payments service with the stub processor.
func TestMain(m *testing.M) {
	ctx := context.Background()
	// start a MongoDB container for testing
	dbContainer, err := test.StartMongoContainer(ctx)
	if err != nil {
		panic(err)
	}
	// ensure the container is stopped when the test finishes
	defer func() { _ = dbContainer.Terminate(ctx) }()
	// get the MongoDB connection string
	mongoURI, err := dbContainer.ConnectionString(ctx)
	if err != nil {
		panic(err)
	}
	// create a new MongoDB connection with the test database
	if testDB, err = db.New(mongoURI, test.RandomDatabaseName()); err != nil {
		panic(err)
	}
	defer testDB.Close()
	// create the payments service backed by the stub processor
	paymentsConfig := &payments.Config{
		APIKey:        "sk_test_stub",
		WebhookSecret: testWebhookSecret,
	}
	processor := &stubProcessor{intents: map[string]*stripeapi.PaymentIntent{}}
	paymentsService, err := payments.NewService(paymentsConfig, testDB, processor)
	if err != nil {
		panic(err)
	}
	// start the API server
	New(&Config{
		Host:     testHost,
		Port:     testPort,
		DB:       testDB,
		Payments: paymentsService,
	}).Start()
	// wait for the API server to start
	if err := pingAPI(testURL(pingEndpoint), 5); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// doRequest helper performs an HTTP request against the test server and
// returns the status code and response body.
func doRequest(c *qt.C, method, path string, body []byte, headers map[string]string) (int, []byte) {
	req, err := http.NewRequest(method, testURL(path), bytes.NewReader(body))
	c.Assert(err, qt.IsNil)
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	resp, err := http.DefaultClient.Do(req)
	c.Assert(err, qt.IsNil)
	defer func() {
		c.Assert(resp.Body.Close(), qt.IsNil)
	}()
	respBody, err := io.ReadAll(resp.Body)
	c.Assert(err, qt.IsNil)
	return resp.StatusCode, respBody
}

func signTestPayload(payload []byte) string {
	now := time.Now()
	signature := stripewebhook.ComputeSignature(now, payload, testWebhookSecret)
	return fmt.Sprintf("t=%d,v1=%s", now.Unix(), hex.EncodeToString(signature))
}

func TestCreateIntentEndpoint(t *testing.T) {
	c := qt.New(t)

	body := []byte(`{"amount":2500,"currency":"usd"}`)
	status, response := doRequest(c, http.MethodPost, "/payments/intents", body,
		map[string]string{"Idempotency-Key": "api-k1"})
	c.Assert(status, qt.Equals, http.StatusOK)

	var intent struct {
		ID           string `json:"id"`
		ClientSecret string `json:"clientSecret"`
		Status       string `json:"status"`
	}
	c.Assert(json.Unmarshal(response, &intent), qt.IsNil)
	c.Assert(intent.ID, qt.Not(qt.Equals), "")
	c.Assert(intent.ClientSecret, qt.Not(qt.Equals), "")

	// the retry receives the byte-identical response
	status, replay := doRequest(c, http.MethodPost, "/payments/intents", body,
		map[string]string{"Idempotency-Key": "api-k1"})
	c.Assert(status, qt.Equals, http.StatusOK)
	c.Assert(replay, qt.DeepEquals, response)

	// the mirror is served without the client secret
	status, mirror := doRequest(c, http.MethodGet, "/payments/intents/"+intent.ID, nil, nil)
	c.Assert(status, qt.Equals, http.StatusOK)
	c.Assert(string(mirror), qt.Contains, intent.ID)
	c.Assert(string(mirror), qt.Not(qt.Contains), intent.ClientSecret)

	status, _ = doRequest(c, http.MethodGet, "/payments/intents/pi_missing", nil, nil)
	c.Assert(status, qt.Equals, http.StatusNotFound)

	// missing idempotency key and invalid amount are rejected up front
	status, response = doRequest(c, http.MethodPost, "/payments/intents", body, nil)
	c.Assert(status, qt.Equals, http.StatusBadRequest)
	c.Assert(string(response), qt.Contains, "idempotency key is required")

	status, _ = doRequest(c, http.MethodPost, "/payments/intents", []byte(`{"amount":0,"currency":"usd"}`),
		map[string]string{"Idempotency-Key": "api-k2"})
	c.Assert(status, qt.Equals, http.StatusBadRequest)
}

func TestRefundEndpoint(t *testing.T) {
	c := qt.New(t)

	status, response := doRequest(c, http.MethodPost, "/payments/intents/pi_stub_1/refund", nil, nil)
	c.Assert(status, qt.Equals, http.StatusOK)
	c.Assert(string(response), qt.Contains, "re_stub_1")
}

func TestWebhookEndpoint(t *testing.T) {
	c := qt.New(t)

	// the api_version must match the release train stripe-go pins, or
	// ConstructEvent rejects the event after verifying its signature
	payload := []byte(`{"id":"evt_api_1","object":"event","api_version":"2025-04-30.basil",` +
		`"type":"payment_intent.succeeded",` +
		`"data":{"object":{"id":"pi_api_1","object":"payment_intent","amount":2500,"currency":"usd",` +
		`"status":"succeeded","customer":"cus_api_1"}}}`)

	// a delivery without a signature header never reaches the service
	status, _ := doRequest(c, http.MethodPost, "/payments/webhook", payload, nil)
	c.Assert(status, qt.Equals, http.StatusUnauthorized)

	status, _ = doRequest(c, http.MethodPost, "/payments/webhook", payload,
		map[string]string{"Stripe-Signature": "t=0,v1=deadbeef"})
	c.Assert(status, qt.Equals, http.StatusUnauthorized)

	status, response := doRequest(c, http.MethodPost, "/payments/webhook", payload,
		map[string]string{"Stripe-Signature": signTestPayload(payload)})
	c.Assert(status, qt.Equals, http.StatusOK)
	var ack struct {
		Received bool `json:"received"`
		Deduped  bool `json:"deduped"`
	}
	c.Assert(json.Unmarshal(response, &ack), qt.IsNil)
	c.Assert(ack.Received, qt.IsTrue)
	c.Assert(ack.Deduped, qt.IsFalse)

	// the redelivery acknowledges as deduped
	status, response = doRequest(c, http.MethodPost, "/payments/webhook", payload,
		map[string]string{"Stripe-Signature": signTestPayload(payload)})
	c.Assert(status, qt.Equals, http.StatusOK)
	c.Assert(json.Unmarshal(response, &ack), qt.IsNil)
	c.Assert(ack.Deduped, qt.IsTrue)

	// the posting is visible through the ledger read endpoint
	status, response = doRequest(c, http.MethodGet, "/accounts/cust_cus_api_1/transactions", nil, nil)
	c.Assert(status, qt.Equals, http.StatusOK)
	var transactions []db.Transaction
	c.Assert(json.Unmarshal(response, &transactions), qt.IsNil)
	c.Assert(transactions, qt.HasLen, 1)
	c.Assert(transactions[0].CreditAccount, qt.Equals, "platform_escrow")
	c.Assert(transactions[0].Amount, qt.Equals, int64(2500))

	status, _ = doRequest(c, http.MethodGet, "/accounts/unknown/transactions", nil, nil)
	c.Assert(status, qt.Equals, http.StatusNotFound)
}
