// Package rates resolves daily currency rates from the Central Bank of Russia.
//
// Endpoint:
//   - GET {base}/scripts/XML_daily.asp[?date_req=dd/mm/yyyy]
//
// Without date_req the source answers with the most recent published table.
// Documents are windows-1251 encoded XML; values use ',' as decimal separator.
//
// Resolved (date, code) pairs are cached in a bounded LRU owned by the Resolver.
package rates
