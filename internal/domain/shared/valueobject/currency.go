package valueobject

import (
	"fmt"
	"strings"
)

// Currency represents a currency code (ISO 4217)
type Currency string

const (
	USD Currency = "USD"
	EUR Currency = "EUR"
	GBP Currency = "GBP"
	BRL Currency = "BRL"
	MXN Currency = "MXN"
	CNY Currency = "CNY"
)

// DefaultCurrency is used when a request omits the currency
const DefaultCurrency = USD

// ParseCurrency normalizes and validates a three-letter currency code
func ParseCurrency(code string) (Currency, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return DefaultCurrency, nil
	}
	if len(code) != 3 {
		return "", fmt.Errorf("invalid currency code %q: must be 3 letters", code)
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return "", fmt.Errorf("invalid currency code %q: must be 3 letters", code)
		}
	}
	return Currency(code), nil
}

// String returns the currency code
func (c Currency) String() string {
	return string(c)
}
