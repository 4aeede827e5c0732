package inventory

import (
	"fmt"
	"strconv"
	"strings"
)

// Currency is one of the two supported price currencies.
type Currency string

const (
	USD Currency = "USD"
	CNY Currency = "CNY"
)

// DefaultUSDToCNYRate is the exchange rate used until the user sets one.
// The rate is always expressed as "1 USD = rate CNY".
const DefaultUSDToCNYRate = 7.0

// Symbol returns the display symbol for the currency.
func (c Currency) Symbol() string {
	if c == CNY {
		return "¥"
	}
	return "$"
}

// Valid reports whether c is one of the supported currencies.
func (c Currency) Valid() bool {
	return c == USD || c == CNY
}

// Convert converts amount between USD and CNY at the given rate. It is
// total over its domain: a nil amount converts to 0, identical currencies
// pass the amount through, and an unrecognized pair is returned unchanged.
func Convert(amount *float64, from, to Currency, rate float64) float64 {
	if amount == nil {
		return 0
	}
	if from == to {
		return *amount
	}
	if from == USD && to == CNY {
		return *amount * rate
	}
	if from == CNY && to == USD {
		return *amount / rate
	}
	return *amount
}

// FormatAmount renders an amount as its currency symbol followed by the
// value fixed to two decimal places, e.g. "$12.50" or "¥87.50".
func FormatAmount(amount float64, currency Currency) string {
	return fmt.Sprintf("%s%.2f", currency.Symbol(), amount)
}

// ParseAmount parses a free-text price. Malformed or empty input yields
// nil rather than an error.
func ParseAmount(s string) *float64 {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, "$¥")
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

// FormatQuantity renders a quantity with at most two fractional digits,
// no grouping separators, and no trailing zeros: 2 -> "2", 1.5 -> "1.5",
// 0.125 -> "0.13".
func FormatQuantity(q float64) string {
	s := strconv.FormatFloat(q, 'f', 2, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	if s == "" || s == "-" {
		return "0"
	}
	return s
}
