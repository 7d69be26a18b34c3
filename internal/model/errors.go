package model

import "errors"

// Error taxonomy shared by all sync components. Wrap with %w, match with errors.Is.
var (
	// ErrSourceUnavailable reports a network or HTTP failure reaching the row, rate or change source.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrRateNotFound reports a currency missing from a fetched rate table.
	ErrRateNotFound = errors.New("rate not found")

	// ErrInvalidDate reports a supply date that is not dd.mm.yyyy.
	ErrInvalidDate = errors.New("invalid date")

	// ErrInvalidRow reports a malformed spreadsheet row.
	ErrInvalidRow = errors.New("invalid row")

	// ErrPersistence reports a failed store transaction. Prior state is untouched.
	ErrPersistence = errors.New("persistence error")
)
