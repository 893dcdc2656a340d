package service

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/fieldbook-id/fieldbook/internal/infrastructure/ipaymu"
	"github.com/oklog/ulid/v2"
)

// QRResponse represents a refund QR issued by a payment provider
type QRResponse struct {
	QRURL     string
	SessionID string
	ExpiresAt time.Time
}

// PaymentProvider defines the interface for payment gateway integrations
type PaymentProvider interface {
	// CreateRefundQR creates a QRIS payout QR the customer scans to collect
	// a refund of the given amount.
	CreateRefundQR(ctx context.Context, referenceID string, amount int64, customerID string) (*QRResponse, error)
}

// MockIPaymuClient is a mock implementation of PaymentProvider for development
type MockIPaymuClient struct{}

// IPaymuClientAdapter adapts the ipaymu.Client to PaymentProvider interface
type IPaymuClientAdapter struct {
	client *ipaymu.Client
}

// NewPaymentProvider returns the appropriate PaymentProvider based on environment config
// If IPAYMU_API_KEY is empty, returns a mock client for development
func NewPaymentProvider() PaymentProvider {
	apiKey := os.Getenv("IPAYMU_API_KEY")
	va := os.Getenv("IPAYMU_VA")
	baseURL := os.Getenv("IPAYMU_BASE_URL")
	notifyURL := os.Getenv("PAYMENT_NOTIFY_URL")

	if apiKey == "" || va == "" {
		log.Println("[Payment] Using mock iPaymu client (no credentials configured)")
		return &MockIPaymuClient{}
	}

	if baseURL == "" {
		baseURL = "https://sandbox.ipaymu.com" // Default to sandbox
	}

	webhookURL := ""
	if notifyURL != "" {
		webhookURL = notifyURL + "/api/payments/webhook/ipaymu"
	}

	log.Printf("[Payment] Using real iPaymu client (base: %s, notify: %s)", baseURL, webhookURL)
	client := ipaymu.NewClient(ipaymu.Config{
		VA:        va,
		APIKey:    apiKey,
		BaseURL:   baseURL,
		NotifyURL: webhookURL,
	})

	return &IPaymuClientAdapter{client: client}
}

// CreateRefundQR generates a mock QR link
func (m *MockIPaymuClient) CreateRefundQR(ctx context.Context, referenceID string, amount int64, customerID string) (*QRResponse, error) {
	sessionID := ulid.Make().String()
	return &QRResponse{
		QRURL:     fmt.Sprintf("https://sandbox.ipaymu.com/qr/mock/%s", referenceID),
		SessionID: sessionID,
		ExpiresAt: time.Now().UTC().Add(24 * time.Hour),
	}, nil
}

// CreateRefundQR creates a real QRIS payout via iPaymu API
func (a *IPaymuClientAdapter) CreateRefundQR(ctx context.Context, referenceID string, amount int64, customerID string) (*QRResponse, error) {
	resp, err := a.client.CreateQRIS(
		ctx,
		referenceID,
		amount,
		"Customer",               // Default name
		"customer@fieldbook.app", // Default email
		"081234567890",           // Default phone
	)
	if err != nil {
		log.Printf("[Payment] iPaymu API error: %v", err)
		return nil, fmt.Errorf("payment provider error: %w", err)
	}

	return &QRResponse{
		QRURL:     resp.QRURL,
		SessionID: resp.SessionID,
		ExpiresAt: resp.ExpiresAt,
	}, nil
}
