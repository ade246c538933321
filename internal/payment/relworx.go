// Package payment integrates the Relworx mobile money API for VIP access
// purchases and handles currency conversion across East African markets.
package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/odd2/internal/config"
)

const (
	errMarshalPayload    = "failed to marshal payment payload: %w"
	errCreateRequest     = "failed to create payment request: %w"
	errExecuteRequest    = "payment request failed: %w"
	errDecodeResponse    = "failed to decode payment response: %w"
	errUnexpectedStatus  = "payment provider returned status %d"
	defaultPaymentMethod = "mtn_ug"
)

// paymentMethods maps a currency to the Relworx mobile money channel
var paymentMethods = map[string]string{
	"UGX": "mtn_ug",      // MTN Mobile Money Uganda
	"KES": "mpesa_ke",    // M-Pesa Kenya
	"TZS": "tigopesa_tz", // Tigo Pesa Tanzania
	"RWF": "mtn_rw",      // MTN Mobile Money Rwanda
}

// RelworxClient is an authenticated client for the Relworx collections API
type RelworxClient struct {
	cfg        *config.RelworxConfig
	httpClient *retryablehttp.Client
	logger     *logrus.Logger
}

// InitiateRequest describes a mobile money collection to start
type InitiateRequest struct {
	Amount      int64  `json:"amount" validate:"required,gt=0"`
	Currency    string `json:"currency" validate:"required,len=3"`
	PhoneNumber string `json:"phone_number" validate:"required"`
	Reference   string `json:"reference" validate:"required"`
}

// InitiateResponse is the provider's answer to a collection request
type InitiateResponse struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
	Message       string `json:"message"`
}

// statusResponse is the provider's answer to a status query
type statusResponse struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
}

// collectPayload is the wire format for POST /payments/collect
type collectPayload struct {
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
	PhoneNumber   string `json:"phone_number"`
	PaymentMethod string `json:"payment_method"`
	Reference     string `json:"reference"`
	CallbackURL   string `json:"callback_url"`
	Description   string `json:"description"`
}

// NewRelworxClient creates a Relworx API client with retry support
func NewRelworxClient(cfg *config.RelworxConfig, logger *logrus.Logger) *RelworxClient {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 3
	retryClient.RetryWaitMin = 1 * time.Second
	retryClient.RetryWaitMax = 10 * time.Second
	retryClient.HTTPClient.Timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	retryClient.Logger = nil

	return &RelworxClient{
		cfg:        cfg,
		httpClient: retryClient,
		logger:     logger,
	}
}

// InitiatePayment starts a mobile money collection and returns the provider
// transaction reference. The customer confirms the charge on their phone, so
// the returned status is almost always pending.
func (c *RelworxClient) InitiatePayment(ctx context.Context, req *InitiateRequest) (*InitiateResponse, error) {
	method, ok := paymentMethods[req.Currency]
	if !ok {
		method = defaultPaymentMethod
	}

	payload := collectPayload{
		Amount:        req.Amount,
		Currency:      req.Currency,
		PhoneNumber:   req.PhoneNumber,
		PaymentMethod: method,
		Reference:     req.Reference,
		CallbackURL:   c.cfg.CallbackURL,
		Description:   "Odd 2 VIP Prediction Access",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf(errMarshalPayload, err)
	}

	var resp InitiateResponse
	if err := c.doRequest(ctx, http.MethodPost, "/payments/collect", body, &resp); err != nil {
		return nil, err
	}

	if resp.Status == "" {
		resp.Status = "pending"
	}

	c.logger.WithFields(logrus.Fields{
		"transaction_id": resp.TransactionID,
		"currency":       req.Currency,
		"method":         method,
	}).Info("Payment initiated")

	return &resp, nil
}

// CheckStatus queries the provider for the current state of a transaction
func (c *RelworxClient) CheckStatus(ctx context.Context, transactionID string) (string, error) {
	var resp statusResponse
	endpoint := fmt.Sprintf("/payments/%s", transactionID)
	if err := c.doRequest(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return "", err
	}

	if resp.Status == "" {
		return "pending", nil
	}
	return resp.Status, nil
}

// VerifyWebhook checks the X-Signature header against the raw webhook body.
// An empty webhook secret disables verification, which is only acceptable
// outside production and is enforced by config validation.
func (c *RelworxClient) VerifyWebhook(signature string, body []byte) bool {
	if c.cfg.WebhookSecret == "" {
		return true
	}

	mac := hmac.New(sha256.New, []byte(c.cfg.WebhookSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(signature), []byte(expected))
}

// signPayload generates the HMAC-SHA256 request signature over the JSON body
func (c *RelworxClient) signPayload(body []byte) string {
	mac := hmac.New(sha256.New, []byte(c.cfg.APISecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// doRequest executes an authenticated API call and decodes the response
func (c *RelworxClient) doRequest(ctx context.Context, method, endpoint string, body []byte, out interface{}) error {
	url := c.cfg.BaseURL + endpoint

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf(errCreateRequest, err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	if body != nil {
		req.Header.Set("X-Signature", c.signPayload(body))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf(errExecuteRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		c.logger.WithFields(logrus.Fields{
			"status":   resp.StatusCode,
			"endpoint": endpoint,
		}).Warn("Payment provider returned non-success status")
		return fmt.Errorf(errUnexpectedStatus, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf(errDecodeResponse, err)
		}
	}

	return nil
}
