package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/odd2/internal/config"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestClient(baseURL string) *RelworxClient {
	return NewRelworxClient(&config.RelworxConfig{
		BaseURL:        baseURL,
		APIKey:         "test-api-key",
		APISecret:      "test-api-secret",
		WebhookSecret:  "test-webhook-secret",
		CallbackURL:    "https://example.com/webhook/payment",
		TimeoutSeconds: 5,
	}, testLogger())
}

func hmacHex(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestInitiatePaymentSendsSignedCollectRequest(t *testing.T) {
	var captured struct {
		method    string
		path      string
		auth      string
		signature string
		payload   collectPayload
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		captured.method = r.Method
		captured.path = r.URL.Path
		captured.auth = r.Header.Get("Authorization")
		captured.signature = r.Header.Get("X-Signature")
		require.NoError(t, json.Unmarshal(body, &captured.payload))

		assert.Equal(t, hmacHex("test-api-secret", body), captured.signature)

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(InitiateResponse{TransactionID: "RLW-123"})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	resp, err := client.InitiatePayment(context.Background(), &InitiateRequest{
		Amount:      5000,
		Currency:    "UGX",
		PhoneNumber: "+256700000001",
		Reference:   "order-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "RLW-123", resp.TransactionID)
	assert.Equal(t, "pending", resp.Status)
	assert.Equal(t, http.MethodPost, captured.method)
	assert.Equal(t, "/payments/collect", captured.path)
	assert.Equal(t, "Bearer test-api-key", captured.auth)
	assert.Equal(t, "mtn_ug", captured.payload.PaymentMethod)
	assert.Equal(t, "order-1", captured.payload.Reference)
	assert.Equal(t, "https://example.com/webhook/payment", captured.payload.CallbackURL)
}

func TestInitiatePaymentSelectsChannelByCurrency(t *testing.T) {
	cases := []struct {
		currency string
		method   string
	}{
		{"UGX", "mtn_ug"},
		{"KES", "mpesa_ke"},
		{"TZS", "tigopesa_tz"},
		{"RWF", "mtn_rw"},
		{"BIF", "mtn_ug"}, // unsupported channel falls back to the default
	}

	for _, tc := range cases {
		t.Run(tc.currency, func(t *testing.T) {
			var gotMethod string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				var payload collectPayload
				require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
				gotMethod = payload.PaymentMethod
				json.NewEncoder(w).Encode(InitiateResponse{TransactionID: "RLW-1"})
			}))
			defer server.Close()

			client := newTestClient(server.URL)
			_, err := client.InitiatePayment(context.Background(), &InitiateRequest{
				Amount:      100,
				Currency:    tc.currency,
				PhoneNumber: "+256700000001",
				Reference:   "order-1",
			})
			require.NoError(t, err)
			assert.Equal(t, tc.method, gotMethod)
		})
	}
}

func TestInitiatePaymentRejectsServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.InitiatePayment(context.Background(), &InitiateRequest{
		Amount:      100,
		Currency:    "UGX",
		PhoneNumber: "+256700000001",
		Reference:   "order-1",
	})
	assert.Error(t, err)
}

func TestCheckStatusDefaultsToPending(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/payments/RLW-9", r.URL.Path)
		assert.Equal(t, http.MethodGet, r.Method)
		json.NewEncoder(w).Encode(map[string]string{"transaction_id": "RLW-9"})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	status, err := client.CheckStatus(context.Background(), "RLW-9")
	require.NoError(t, err)
	assert.Equal(t, "pending", status)
}

func TestCheckStatusReturnsProviderStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"transaction_id": "RLW-9", "status": "completed"})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	status, err := client.CheckStatus(context.Background(), "RLW-9")
	require.NoError(t, err)
	assert.Equal(t, "completed", status)
}

func TestVerifyWebhook(t *testing.T) {
	client := newTestClient("http://localhost")
	body := []byte(`{"transaction_id":"RLW-5","status":"completed"}`)

	assert.True(t, client.VerifyWebhook(hmacHex("test-webhook-secret", body), body))
	assert.False(t, client.VerifyWebhook(hmacHex("wrong-secret", body), body))
	assert.False(t, client.VerifyWebhook("", body))
}

func TestVerifyWebhookSkippedWithoutSecret(t *testing.T) {
	client := NewRelworxClient(&config.RelworxConfig{
		BaseURL:        "http://localhost",
		TimeoutSeconds: 5,
	}, testLogger())

	assert.True(t, client.VerifyWebhook("anything", []byte("body")))
}
