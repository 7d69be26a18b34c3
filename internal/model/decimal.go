package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseDecimal parses a decimal string that may use ',' as the decimal separator.
// Grouping spaces (including no-break spaces) are ignored.
// "90,1234" -> 90.1234, " 100.00 " -> 100.00
func ParseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "\u00a0", "")
	return decimal.NewFromString(strings.Replace(s, ",", ".", 1))
}
