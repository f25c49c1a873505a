package api

const (
	// ping route GET /ping
	pingEndpoint = "/ping"

	// payment intent routes
	// POST /payments/intents
	paymentIntentsEndpoint = "/payments/intents"
	// GET /payments/intents/{intentID}
	paymentIntentEndpoint = "/payments/intents/{intentID}"
	// POST /payments/intents/{intentID}/refund
	paymentRefundEndpoint = "/payments/intents/{intentID}/refund"
	// POST /payments/webhook
	paymentWebhookEndpoint = "/payments/webhook"

	// ledger routes
	// GET /accounts/{accountID}/transactions
	accountTransactionsEndpoint = "/accounts/{accountID}/transactions"
)
