// Package syncer keeps the stock table in step with the spreadsheet.
//
// The Orchestrator runs a baseline sync on startup and then a refresh every
// time the change poller reports that the spreadsheet changed. Refreshes are
// single-flight: a refresh requested while another is running fails fast with
// ErrRefreshInFlight instead of queueing.
package syncer
