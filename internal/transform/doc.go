// Package transform converts raw spreadsheet rows into stock records.
//
// Rows are processed lazily: Transform returns an iter.Seq2 that parses,
// converts and yields one record per valid row each time it is ranged over.
// Conversion looks up the currency rate for the row's supply date through a
// RateResolver, so repeated iteration is cheap once the rate cache is warm.
package transform
