package services

import (
	"fmt"
	"strings"
)

// CurrencyConverter converts display amounts between currencies using a
// USD-based rate table (units of currency per 1 USD).
type CurrencyConverter struct {
	rates map[string]float64
}

// DefaultRates is the table used when no rates are configured.
func DefaultRates() map[string]float64 {
	return map[string]float64{
		"USD": 1,
		"EUR": 0.92,
		"GBP": 0.79,
		"INR": 83.2,
		"JPY": 149.5,
	}
}

func NewCurrencyConverter(rates map[string]float64) *CurrencyConverter {
	if len(rates) == 0 {
		rates = DefaultRates()
	}
	normalized := make(map[string]float64, len(rates))
	for code, rate := range rates {
		if rate > 0 {
			normalized[strings.ToUpper(code)] = rate
		}
	}
	normalized["USD"] = 1
	return &CurrencyConverter{rates: normalized}
}

// Convert applies the linear exchange-rate multiplication the dashboard
// uses for display amounts.
func (c *CurrencyConverter) Convert(amount float64, from, to string) (float64, error) {
	fromRate, ok := c.rates[strings.ToUpper(from)]
	if !ok {
		return 0, fmt.Errorf("unknown currency %q", from)
	}
	toRate, ok := c.rates[strings.ToUpper(to)]
	if !ok {
		return 0, fmt.Errorf("unknown currency %q", to)
	}
	return amount / fromRate * toRate, nil
}

// Codes lists the currencies the converter knows about.
func (c *CurrencyConverter) Codes() []string {
	codes := make([]string, 0, len(c.rates))
	for code := range c.rates {
		codes = append(codes, code)
	}
	return codes
}
