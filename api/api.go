// Package api provides the HTTP API for the payments ledger backend: the
// idempotent payment intent operations, the webhook ingestion endpoint and
// the ledger audit reads.
package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/vocdoni/payments-backend/db"
	"github.com/vocdoni/payments-backend/payments"
	"go.vocdoni.io/dvote/log"
)

// Config groups the dependencies of the API server.
type Config struct {
	Host     string
	Port     int
	DB       *db.MongoStorage
	Payments *payments.Service
}

// API type represents the API HTTP server.
type API struct {
	db       *db.MongoStorage
	payments *payments.Service
	host     string
	port     int
	router   *chi.Mux
}

// New creates a new API HTTP server. It does not start the server. Use Start() for that.
func New(conf *Config) *API {
	if conf == nil {
		return nil
	}
	return &API{
		db:       conf.DB,
		payments: conf.Payments,
		host:     conf.Host,
		port:     conf.Port,
	}
}

// Start starts the API HTTP server (non blocking).
func (a *API) Start() {
	go func() {
		if err := http.ListenAndServe(fmt.Sprintf("%s:%d", a.host, a.port), a.initRouter()); err != nil {
			log.Fatalf("failed to start the API server: %v", err)
		}
	}()
}

// Router returns the HTTP router, initializing it on first use. Exposed for
// tests that mount the API on an httptest server.
func (a *API) Router() http.Handler {
	if a.router == nil {
		return a.initRouter()
	}
	return a.router
}

// initRouter creates the router with all the routes and middleware.
func (a *API) initRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "Stripe-Signature"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}).Handler)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Throttle(100))
	r.Use(middleware.ThrottleBacklog(5000, 40000, 60*time.Second))
	r.Use(middleware.Timeout(45 * time.Second))

	// create a payment intent, idempotent on the client-supplied key
	log.Infow("new route", "method", "POST", "path", paymentIntentsEndpoint)
	r.Post(paymentIntentsEndpoint, a.createIntentHandler)
	// get a payment intent mirror by its processor-assigned ID
	log.Infow("new route", "method", "GET", "path", paymentIntentEndpoint)
	r.Get(paymentIntentEndpoint, a.paymentIntentHandler)
	// refund a payment intent on the processor
	log.Infow("new route", "method", "POST", "path", paymentRefundEndpoint)
	r.Post(paymentRefundEndpoint, a.refundHandler)
	// ingest a processor webhook delivery
	log.Infow("new route", "method", "POST", "path", paymentWebhookEndpoint)
	r.Post(paymentWebhookEndpoint, a.webhookHandler)
	// list the ledger transactions of an account
	log.Infow("new route", "method", "GET", "path", accountTransactionsEndpoint)
	r.Get(accountTransactionsEndpoint, a.accountTransactionsHandler)
	// ping route
	log.Infow("new route", "method", "GET", "path", pingEndpoint)
	r.Get(pingEndpoint, func(w http.ResponseWriter, _ *http.Request) {
		if _, err := w.Write([]byte(".")); err != nil {
			log.Warnw("failed to write ping response", "error", err)
		}
	})

	a.router = r
	return r
}
