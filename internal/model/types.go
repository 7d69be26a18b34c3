package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// RawRow is an ordered sequence of spreadsheet cells.
// Valid rows carry exactly RawRowWidth cells: identifier, order reference, amount, date.
type RawRow []string

// RawRowWidth is the cell count of a valid RawRow.
const RawRowWidth = 4

// Cell positions within a RawRow.
const (
	ColID = iota
	ColOrderReference
	ColAmount
	ColSupplyDate
)

// Record is the unit persisted in the stock table.
type Record struct {
	ID              string          // Short business identifier (number, unique)
	OrderReference  string          // Primary key (order_number)
	AmountSource    decimal.Decimal // Amount in source currency (cost_usd)
	SupplyDate      time.Time       // Calendar date, UTC midnight
	AmountConverted decimal.Decimal // AmountSource * rate on SupplyDate (cost_rub)
	Retain          bool            // Liveness marker used during reconciliation (keep_it)
}

// ChangeToken is an opaque cursor issued by the change feed. Only equality is meaningful.
type ChangeToken string

// ResourceID identifies a file in the change feed.
type ResourceID string

// DateLayout is the layout of supply dates in the spreadsheet (dd.mm.yyyy).
const DateLayout = "02.01.2006"

// ParseSupplyDate parses a dd.mm.yyyy date into a UTC calendar date.
func ParseSupplyDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}
