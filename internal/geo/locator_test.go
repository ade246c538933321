package geo

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestLocator(baseURL string) *Locator {
	return &Locator{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: time.Second},
		cache:      cache.New(lookupCacheTTL, 30*time.Minute),
		logger:     testLogger(),
	}
}

func TestLocateResolvesSupportedCountry(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/41.210.140.1", r.URL.Path)
		json.NewEncoder(w).Encode(ipAPIResponse{Status: "success", Country: "Kenya", CountryCode: "KE"})
	}))
	defer server.Close()

	loc := newTestLocator(server.URL).Locate(context.Background(), "41.210.140.1")

	assert.Equal(t, "KE", loc.CountryCode)
	assert.Equal(t, "Kenya", loc.CountryName)
	assert.Equal(t, "KES", loc.Currency)
}

func TestLocateCachesLookups(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		json.NewEncoder(w).Encode(ipAPIResponse{Status: "success", Country: "Tanzania", CountryCode: "TZ"})
	}))
	defer server.Close()

	locator := newTestLocator(server.URL)
	first := locator.Locate(context.Background(), "196.44.240.1")
	second := locator.Locate(context.Background(), "196.44.240.1")

	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)
}

func TestLocatePrivateAddressSkipsLookup(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("external lookup should not run for private addresses")
	}))
	defer server.Close()

	locator := newTestLocator(server.URL)
	for _, ip := range []string{"127.0.0.1", "10.0.0.5", "192.168.1.20", "::1", "localhost", ""} {
		loc := locator.Locate(context.Background(), ip)
		assert.Equal(t, "UG", loc.CountryCode, "ip %q", ip)
		assert.Equal(t, "UGX", loc.Currency, "ip %q", ip)
	}
}

func TestLocateFailureFallsBackToDefault(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ipAPIResponse{Status: "fail"})
	}))
	defer server.Close()

	loc := newTestLocator(server.URL).Locate(context.Background(), "203.0.113.9")

	assert.Equal(t, "UG", loc.CountryCode)
	assert.Equal(t, "Uganda", loc.CountryName)
	assert.Equal(t, "UGX", loc.Currency)
}

func TestCurrencyForCountry(t *testing.T) {
	cases := map[string]string{
		"UG": "UGX",
		"KE": "KES",
		"TZ": "TZS",
		"RW": "RWF",
		"BI": "BIF",
		"US": "UGX",
		"":   "UGX",
	}

	for code, want := range cases {
		assert.Equal(t, want, CurrencyForCountry(code), "country %q", code)
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.5:41234"
	assert.Equal(t, "203.0.113.5", ClientIP(req))

	req.Header.Set("X-Real-IP", "198.51.100.7")
	assert.Equal(t, "198.51.100.7", ClientIP(req))

	req.Header.Set("X-Forwarded-For", "192.0.2.10, 198.51.100.7, 10.0.0.1")
	assert.Equal(t, "192.0.2.10", ClientIP(req))
}

func TestIsPrivateOrLocal(t *testing.T) {
	assert.True(t, isPrivateOrLocal("127.0.0.1"))
	assert.True(t, isPrivateOrLocal("172.16.4.2"))
	assert.True(t, isPrivateOrLocal("0.0.0.0"))
	assert.True(t, isPrivateOrLocal("not-an-ip"))
	assert.False(t, isPrivateOrLocal("41.210.140.1"))
	assert.False(t, isPrivateOrLocal("8.8.8.8"))
}
