// Package model defines shared data types used across the stock sync service.
//
// All types mirror the stock table schema:
//   - Record: one row of the stock table (order_number is the primary key)
//   - RawRow: one spreadsheet row as returned by the row source
//   - ChangeToken / ResourceID: opaque values from the Drive change feed
//
// Conventions:
//   - Money: decimal.Decimal, never float64
//   - Dates: time.Time truncated to the calendar day, UTC
package model
