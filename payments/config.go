package payments

import (
	"fmt"
	"os"
)

// ProviderStripe is the processor name recorded on payment intent mirrors.
const ProviderStripe = "stripe"

// Config holds the payment processor configuration.
type Config struct {
	APIKey        string `yaml:"api_key" json:"api_key"`
	WebhookSecret string `yaml:"webhook_secret" json:"webhook_secret"`
}

// NewConfig creates a new processor configuration from environment variables.
func NewConfig() (*Config, error) {
	apiKey := os.Getenv("PAYMENTS_STRIPEAPISECRET")
	if apiKey == "" {
		return nil, fmt.Errorf("PAYMENTS_STRIPEAPISECRET environment variable is required")
	}

	webhookSecret := os.Getenv("PAYMENTS_STRIPEWEBHOOKSECRET")
	if webhookSecret == "" {
		return nil, fmt.Errorf("PAYMENTS_STRIPEWEBHOOKSECRET environment variable is required")
	}

	return &Config{
		APIKey:        apiKey,
		WebhookSecret: webhookSecret,
	}, nil
}
