package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/odd2/internal/models"
)

// supportedCurrencies are the markets priced by the VIP product
var supportedCurrencies = []string{"UGX", "KES", "TZS", "RWF", "BIF"}

// fallbackRates cover the supported corridors when the database has no
// fresher figure. They are deliberately conservative approximations.
var fallbackRates = map[string]decimal.Decimal{
	"KES": decimal.NewFromFloat(0.035),
	"TZS": decimal.NewFromFloat(0.68),
	"RWF": decimal.NewFromFloat(0.33),
	"BIF": decimal.NewFromFloat(0.76),
}

// currencySymbols maps ISO codes to local display symbols
var currencySymbols = map[string]string{
	"UGX": "USh",
	"KES": "KSh",
	"TZS": "TSh",
	"RWF": "FRw",
	"BIF": "FBu",
}

// RateStore is the persistence surface the converter needs
type RateStore interface {
	GetRate(ctx context.Context, base, target string) (*models.ExchangeRate, error)
	Upsert(ctx context.Context, rate *models.ExchangeRate) error
}

// Price is a localized VIP price ready for display
type Price struct {
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Formatted string `json:"formatted"`
}

// CurrencyConverter localizes the UGX base price into East African currencies
type CurrencyConverter struct {
	store        RateStore
	baseCurrency string
	logger       *logrus.Logger
}

// NewCurrencyConverter creates a converter backed by the stored rates
func NewCurrencyConverter(store RateStore, baseCurrency string, logger *logrus.Logger) *CurrencyConverter {
	return &CurrencyConverter{
		store:        store,
		baseCurrency: baseCurrency,
		logger:       logger,
	}
}

// GetRate returns the base->target multiplier, consulting stored rates first
// and falling back to the static table when the database has no row
func (c *CurrencyConverter) GetRate(ctx context.Context, target string) decimal.Decimal {
	if target == c.baseCurrency {
		return decimal.NewFromInt(1)
	}

	stored, err := c.store.GetRate(ctx, c.baseCurrency, target)
	if err == nil {
		return decimal.NewFromFloat(stored.Rate)
	}

	if rate, ok := fallbackRates[target]; ok {
		return rate
	}
	return decimal.NewFromInt(1)
}

// Convert converts a base-currency amount into the target currency.
// Mobile money amounts are whole numbers, rounded to the nearest 10
// for the non-base East African currencies.
func (c *CurrencyConverter) Convert(ctx context.Context, amount int64, target string) int64 {
	if target == c.baseCurrency {
		return amount
	}

	rate := c.GetRate(ctx, target)
	converted := decimal.NewFromInt(amount).Mul(rate)

	ten := decimal.NewFromInt(10)
	return converted.Div(ten).Round(0).Mul(ten).IntPart()
}

// VIPPrice returns the localized VIP price for a currency
func (c *CurrencyConverter) VIPPrice(ctx context.Context, basePrice int64, currency string) Price {
	amount := c.Convert(ctx, basePrice, currency)
	return Price{
		Amount:    amount,
		Currency:  currency,
		Formatted: fmt.Sprintf("%s %s", currency, formatThousands(amount)),
	}
}

// Symbol returns the local display symbol for a currency code
func Symbol(code string) string {
	if symbol, ok := currencySymbols[code]; ok {
		return symbol
	}
	return code
}

// formatThousands renders an amount with comma grouping
func formatThousands(n int64) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}

	var out []byte
	for i, digit := range []byte(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, digit)
	}
	return string(out)
}

// RatesRefresher pulls live rates from exchangerate-api.com and stores them
type RatesRefresher struct {
	baseURL      string
	apiKey       string
	baseCurrency string
	store        RateStore
	httpClient   *http.Client
	logger       *logrus.Logger
}

// ratesResponse is the wire format of the exchangerate-api.com latest endpoint
type ratesResponse struct {
	Result          string             `json:"result"`
	ConversionRates map[string]float64 `json:"conversion_rates"`
}

// NewRatesRefresher creates a refresher for the supported currencies
func NewRatesRefresher(baseURL, apiKey, baseCurrency string, store RateStore, logger *logrus.Logger) *RatesRefresher {
	return &RatesRefresher{
		baseURL:      baseURL,
		apiKey:       apiKey,
		baseCurrency: baseCurrency,
		store:        store,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		logger:       logger,
	}
}

// Refresh fetches the latest rates and upserts the supported corridors.
// Without an API key the stored rates are left alone and the static
// fallback table keeps serving conversions.
func (r *RatesRefresher) Refresh(ctx context.Context) error {
	if r.apiKey == "" {
		r.logger.Info("No exchange rate API key configured, keeping fallback rates")
		return nil
	}

	url := fmt.Sprintf("%s/%s/latest/%s", r.baseURL, r.apiKey, r.baseCurrency)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create exchange rate request: %w", err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("exchange rate request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("exchange rate API returned status %d", resp.StatusCode)
	}

	var parsed ratesResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return fmt.Errorf("failed to decode exchange rate response: %w", err)
	}

	updated := 0
	for _, currency := range supportedCurrencies {
		rate, ok := parsed.ConversionRates[currency]
		if !ok {
			continue
		}

		record := &models.ExchangeRate{
			BaseCurrency:   r.baseCurrency,
			TargetCurrency: currency,
			Rate:           rate,
			UpdatedAt:      time.Now().UTC(),
		}
		if err := r.store.Upsert(ctx, record); err != nil {
			r.logger.WithError(err).WithField("currency", currency).Warn("Failed to store exchange rate")
			continue
		}
		updated++
	}

	r.logger.WithField("updated", updated).Info("Exchange rates refreshed")
	return nil
}
