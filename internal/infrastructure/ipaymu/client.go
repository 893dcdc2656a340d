package ipaymu

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// Config holds iPaymu API configuration
type Config struct {
	VA        string // Merchant VA number issued by iPaymu
	APIKey    string // API Key from iPaymu
	BaseURL   string // Base URL (sandbox or production)
	NotifyURL string // Webhook URL for payment notifications
}

// Client is the iPaymu API client
type Client struct {
	config     Config
	httpClient *http.Client
}

// QRISResponse represents the response from QRIS creation
type QRISResponse struct {
	QRURL     string
	QRString  string
	SessionID string
	ExpiresAt time.Time
}

// DirectPaymentRequest represents the request body for a direct payment
type DirectPaymentRequest struct {
	Name           string `json:"name"`
	Phone          string `json:"phone"`
	Email          string `json:"email"`
	Amount         int64  `json:"amount"`
	NotifyURL      string `json:"notifyUrl"`
	Expired        int    `json:"expired"` // Expiry in hours
	Comments       string `json:"comments"`
	ReferenceID    string `json:"referenceId"`
	PaymentMethod  string `json:"paymentMethod"`
	PaymentChannel string `json:"paymentChannel"`
}

// DirectPaymentResponse represents the iPaymu API response
type DirectPaymentResponse struct {
	Status  int    `json:"Status"`
	Message string `json:"Message"`
	Data    struct {
		SessionID     string `json:"SessionId"`
		TransactionID int64  `json:"TransactionId"`
		ReferenceID   string `json:"ReferenceId"`
		Via           string `json:"Via"`
		Channel       string `json:"Channel"`
		PaymentNo     string `json:"PaymentNo"` // QR string for QRIS
		PaymentName   string `json:"PaymentName"`
		QRImage       string `json:"QrImage"` // Hosted QR image URL
		Total         int64  `json:"Total"`
		Fee           int64  `json:"Fee"`
		Expired       string `json:"Expired"` // ISO date string
	} `json:"Data"`
}

// NewClient creates a new iPaymu client
func NewClient(cfg Config) *Client {
	return &Client{
		config: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// generateSignature creates the HMAC-SHA256 signature for iPaymu API
// Step 1: bodyHash = lowercase(sha256(jsonBody))
// Step 2: stringToSign = METHOD + ":" + va + ":" + bodyHash + ":" + apiKey
// Step 3: signature = lowercase(hmacSha256(apiKey, stringToSign))
func (c *Client) generateSignature(jsonBody []byte, method string) string {
	bodyHashBytes := sha256.Sum256(jsonBody)
	bodyHash := strings.ToLower(hex.EncodeToString(bodyHashBytes[:]))

	stringToSign := fmt.Sprintf("%s:%s:%s:%s", method, c.config.VA, bodyHash, c.config.APIKey)

	h := hmac.New(sha256.New, []byte(c.config.APIKey))
	h.Write([]byte(stringToSign))
	return strings.ToLower(hex.EncodeToString(h.Sum(nil)))
}

// CreateQRIS creates a QRIS payment QR for the given reference and amount.
// iPaymu models merchant-initiated payouts as QRIS disbursement payments,
// so refunds go through the same endpoint with the refund reference id.
func (c *Client) CreateQRIS(ctx context.Context, referenceID string, amount int64, userName, userEmail, userPhone string) (*QRISResponse, error) {
	endpoint := "/api/v2/payment/direct"
	url := c.config.BaseURL + endpoint

	reqBody := DirectPaymentRequest{
		Name:           userName,
		Phone:          userPhone,
		Email:          userEmail,
		Amount:         amount,
		NotifyURL:      c.config.NotifyURL,
		Expired:        24, // 24 hours
		Comments:       fmt.Sprintf("Ref: %s", referenceID),
		ReferenceID:    referenceID,
		PaymentMethod:  "qris",
		PaymentChannel: "qris",
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	signature := c.generateSignature(jsonBody, "POST")

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("va", c.config.VA)
	req.Header.Set("signature", signature)
	req.Header.Set("timestamp", fmt.Sprintf("%d", time.Now().Unix()))

	log.Printf("[iPaymu] Calling %s with QRIS, amount: %d, ref: %s", url, amount, referenceID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	log.Printf("[iPaymu] Response status: %d, body: %s", resp.StatusCode, string(respBody))

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("iPaymu API error: status %d, body: %s", resp.StatusCode, string(respBody))
	}

	var apiResp DirectPaymentResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if apiResp.Status != 200 {
		return nil, fmt.Errorf("iPaymu API error: %s", apiResp.Message)
	}

	expiresAt, _ := time.Parse(time.RFC3339, apiResp.Data.Expired)
	if expiresAt.IsZero() {
		// Fallback to 24 hours from now
		expiresAt = time.Now().UTC().Add(24 * time.Hour)
	}

	qrURL := apiResp.Data.QRImage
	if qrURL == "" {
		qrURL = apiResp.Data.PaymentNo
	}

	return &QRISResponse{
		QRURL:     qrURL,
		QRString:  apiResp.Data.PaymentNo,
		SessionID: apiResp.Data.SessionID,
		ExpiresAt: expiresAt,
	}, nil
}
