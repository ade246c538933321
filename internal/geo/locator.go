// Package geo detects a visitor's country and billing currency from their
// IP address, with a cached free-tier lookup and a Uganda default.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/odd2/internal/metrics"
)

const (
	defaultCountryCode = "UG"
	defaultCountryName = "Uganda"
	defaultCurrency    = "UGX"

	// ip-api.com free tier allows 45 requests per minute; cache hard
	lookupCacheTTL = 6 * time.Hour
)

// countryCurrencies maps supported country codes to their billing currency
var countryCurrencies = map[string]string{
	"UG": "UGX",
	"KE": "KES",
	"TZ": "TZS",
	"RW": "RWF",
	"BI": "BIF",
}

// Location is a resolved visitor location
type Location struct {
	CountryCode string `json:"country_code"`
	CountryName string `json:"country_name"`
	Currency    string `json:"currency"`
}

// ipAPIResponse is the wire format of the ip-api.com json endpoint
type ipAPIResponse struct {
	Status      string `json:"status"`
	Country     string `json:"country"`
	CountryCode string `json:"countryCode"`
}

// Locator resolves client IPs to countries via ip-api.com
type Locator struct {
	baseURL    string
	httpClient *http.Client
	cache      *cache.Cache
	logger     *logrus.Logger
}

// NewLocator creates a locator with an in-memory lookup cache
func NewLocator(logger *logrus.Logger) *Locator {
	return &Locator{
		baseURL:    "http://ip-api.com/json",
		httpClient: &http.Client{Timeout: 5 * time.Second},
		cache:      cache.New(lookupCacheTTL, 30*time.Minute),
		logger:     logger,
	}
}

// defaultLocation is returned whenever detection cannot run or fails
func defaultLocation() Location {
	return Location{
		CountryCode: defaultCountryCode,
		CountryName: defaultCountryName,
		Currency:    defaultCurrency,
	}
}

// Locate resolves an IP address to a location. Private and loopback
// addresses short-circuit to the default without a network call.
func (l *Locator) Locate(ctx context.Context, ipAddress string) Location {
	if isPrivateOrLocal(ipAddress) {
		metrics.RecordGeoLookup("default")
		return defaultLocation()
	}

	if cached, found := l.cache.Get(ipAddress); found {
		metrics.RecordGeoLookup("cached")
		return cached.(Location)
	}

	loc, err := l.lookup(ctx, ipAddress)
	if err != nil {
		l.logger.WithError(err).WithField("ip", ipAddress).Debug("Geolocation lookup failed")
		metrics.RecordGeoLookup("failed")
		return defaultLocation()
	}

	metrics.RecordGeoLookup("resolved")
	l.cache.Set(ipAddress, loc, cache.DefaultExpiration)
	return loc
}

// lookup performs the external ip-api.com query
func (l *Locator) lookup(ctx context.Context, ipAddress string) (Location, error) {
	url := fmt.Sprintf("%s/%s", l.baseURL, ipAddress)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Location{}, fmt.Errorf("failed to create geolocation request: %w", err)
	}

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return Location{}, fmt.Errorf("geolocation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Location{}, fmt.Errorf("geolocation API returned status %d", resp.StatusCode)
	}

	var parsed ipAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Location{}, fmt.Errorf("failed to decode geolocation response: %w", err)
	}

	if parsed.Status != "success" {
		return Location{}, fmt.Errorf("geolocation lookup unsuccessful for %s", ipAddress)
	}

	return Location{
		CountryCode: parsed.CountryCode,
		CountryName: parsed.Country,
		Currency:    CurrencyForCountry(parsed.CountryCode),
	}, nil
}

// CurrencyForCountry returns the billing currency for a country code,
// defaulting to UGX for unsupported markets
func CurrencyForCountry(countryCode string) string {
	if currency, ok := countryCurrencies[countryCode]; ok {
		return currency
	}
	return defaultCurrency
}

// ClientIP extracts the real client address from a request, honoring
// proxy headers set by the load balancer
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		// first entry is the originating client
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}

	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// isPrivateOrLocal reports whether the address should skip external lookup
func isPrivateOrLocal(ipAddress string) bool {
	if ipAddress == "" || ipAddress == "localhost" {
		return true
	}

	ip := net.ParseIP(ipAddress)
	if ip == nil {
		return true
	}

	return ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified()
}
