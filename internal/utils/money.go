package utils

import (
	"fmt"
	"math"
)

// CentsToAmount converts minor units into a decimal amount for JSON output.
func CentsToAmount(cents int64) float64 {
	return float64(cents) / 100
}

// AmountToCents converts a decimal amount from a request into minor units,
// rounding half away from zero.
func AmountToCents(amount float64) (int64, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, fmt.Errorf("invalid amount")
	}
	return int64(math.Round(amount * 100)), nil
}

// FormatMoney keeps consistent decimal formatting for currency fields.
func FormatMoney(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
