package paystack

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bundlehubgh/bundlehub-backend/pkg/config"
	"github.com/bundlehubgh/bundlehub-backend/pkg/logger"
)

// SignatureHeader carries the HMAC-SHA512 digest Paystack attaches to webhooks.
const SignatureHeader = "x-paystack-signature"

var (
	errSecretKeyRequired = errors.New("paystack secret key is required")
	errBaseURLRequired   = errors.New("paystack base url is required")
)

// Client talks to the Paystack REST API for transaction initialization
// and verifies inbound webhook signatures.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	secretKey   string
	callbackURL string
	currency    string
}

// InitializeRequest is the payload for creating a hosted checkout session.
type InitializeRequest struct {
	Email    string         `json:"email"`
	Amount   int64          `json:"amount"`
	Currency string         `json:"currency"`
	Callback string         `json:"callback_url,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// InitializeResponse holds the hosted payment page details returned by Paystack.
type InitializeResponse struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type apiEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// NewClient validates the configuration and returns a ready Paystack client.
func NewClient(ctx context.Context, cfg config.PaystackConfig, logg *logger.Logger) (*Client, error) {
	secretKey := strings.TrimSpace(cfg.SecretKey)
	if secretKey == "" {
		return nil, errSecretKeyRequired
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errBaseURLRequired
	}
	currency := strings.TrimSpace(cfg.Currency)
	if currency == "" {
		currency = "GHS"
	}

	if logg != nil {
		logg.Info(ctx, "paystack client initialized")
	}

	return &Client{
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		baseURL:     baseURL,
		secretKey:   secretKey,
		callbackURL: strings.TrimSpace(cfg.CallbackURL),
		currency:    currency,
	}, nil
}

// InitializeTransaction creates a hosted checkout session. The amount is in
// pesewas (GHS x 100); callers convert from decimal before reaching this boundary.
func (c *Client) InitializeTransaction(ctx context.Context, req InitializeRequest) (*InitializeResponse, error) {
	if req.Email == "" {
		return nil, fmt.Errorf("paystack initialize: email is required")
	}
	if req.Amount <= 0 {
		return nil, fmt.Errorf("paystack initialize: amount must be positive, got %d", req.Amount)
	}
	if req.Currency == "" {
		req.Currency = c.currency
	}
	if req.Callback == "" {
		req.Callback = c.callbackURL
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("paystack initialize: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transaction/initialize", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("paystack initialize: build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.secretKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("paystack initialize: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("paystack initialize: read response: %w", err)
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("paystack initialize: decode response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !envelope.Status {
		return nil, fmt.Errorf("paystack initialize failed (status %d): %s", resp.StatusCode, envelope.Message)
	}

	var data InitializeResponse
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		return nil, fmt.Errorf("paystack initialize: decode data: %w", err)
	}
	if data.AuthorizationURL == "" {
		return nil, fmt.Errorf("paystack initialize: missing authorization url")
	}
	return &data, nil
}

// VerifySignature reports whether the signature header matches the
// HMAC-SHA512 digest of the raw webhook body under the secret key.
func (c *Client) VerifySignature(body []byte, signature string) bool {
	return VerifySignature(c.secretKey, body, signature)
}

// VerifySignature checks an x-paystack-signature value against the raw body.
func VerifySignature(secretKey string, body []byte, signature string) bool {
	if secretKey == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha512.New, []byte(secretKey))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(signature))))
}
