package db

import "time"

// AccountType enumerates the kinds of ledger accounts. New kinds can be
// added without a migration, the type is stored as a plain string.
type AccountType string

const (
	AccountTypeCustomer       AccountType = "customer"
	AccountTypePlatformEscrow AccountType = "platform_escrow"
)

// Account is a ledger account. Accounts are created on first reference and
// never deleted while referenced by a transaction.
type Account struct {
	ID        string      `json:"id" bson:"_id"`
	Name      string      `json:"name" bson:"name"`
	Type      AccountType `json:"type" bson:"type"`
	CreatedAt time.Time   `json:"createdAt" bson:"createdAt"`
}

// Transaction is a double-entry ledger posting. It always debits one account
// and credits another for the same amount of minor currency units. A posted
// transaction is immutable, corrections are new reversing transactions.
type Transaction struct {
	ID            string    `json:"id" bson:"_id"`
	DebitAccount  string    `json:"debitAccount" bson:"debitAccount"`
	CreditAccount string    `json:"creditAccount" bson:"creditAccount"`
	Amount        int64     `json:"amount" bson:"amount"`
	Currency      string    `json:"currency" bson:"currency"`
	ExternalRef   string    `json:"externalRef" bson:"externalRef,omitempty"`
	CreatedAt     time.Time `json:"createdAt" bson:"createdAt"`
}

// PaymentIntent mirrors the remote processor's payment intent resource. It is
// keyed by the processor-assigned identifier, which is globally unique per
// processor. Status is last-write-wins, guarded by the webhook dedup gate.
type PaymentIntent struct {
	ProviderID   string    `json:"providerID" bson:"_id"`
	Provider     string    `json:"provider" bson:"provider"`
	Amount       int64     `json:"amount" bson:"amount"`
	Currency     string    `json:"currency" bson:"currency"`
	Status       string    `json:"status" bson:"status"`
	ClientSecret string    `json:"-" bson:"clientSecret"`
	CustomerRef  string    `json:"customerRef,omitempty" bson:"customerRef,omitempty"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt" bson:"updatedAt"`
}

// IdempotencyRecord caches the exact response bytes previously returned for
// a (key, operation) pair, so client retries receive byte-identical output.
type IdempotencyRecord struct {
	Key       string    `json:"key" bson:"key"`
	Operation string    `json:"operation" bson:"operation"`
	Response  []byte    `json:"response" bson:"response"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// ProcessedEvent records an already-ingested webhook event identifier. Its
// uniqueness is the single source of truth for "this external event already
// produced ledger effects". The fingerprint is kept for audit only.
type ProcessedEvent struct {
	EventID     string    `json:"eventID" bson:"_id"`
	EventType   string    `json:"eventType" bson:"eventType"`
	Fingerprint string    `json:"fingerprint" bson:"fingerprint"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
}
