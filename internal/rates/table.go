package rates

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/ianaindex"

	"github.com/rickgao/stocksync/internal/model"
)

// Date layouts used by the rate source.
const (
	RequestDateLayout  = "02/01/2006" // date_req query parameter
	DocumentDateLayout = "02.01.2006" // ValCurs Date attribute
)

// Table is one day's rate table.
type Table struct {
	Date    time.Time // Publication date reported by the source (zero if absent)
	Entries []Entry
}

// Entry is one currency line of a Table.
type Entry struct {
	ID        string // Source-specific id, e.g. R01235
	NumCode   string // ISO 4217 numeric code, e.g. 840
	CharCode  string // ISO 4217 alpha code, e.g. USD
	Nominal   int64  // Units of currency the Value is quoted for
	Name      string
	Value     string // Raw value text, ',' decimal separator
	UnitValue string // Raw per-unit value text (VunitRate), may be empty
}

type valCurs struct {
	XMLName xml.Name `xml:"ValCurs"`
	Date    string   `xml:"Date,attr"`
	Valutes []valute `xml:"Valute"`
}

type valute struct {
	ID        string `xml:"ID,attr"`
	NumCode   string `xml:"NumCode"`
	CharCode  string `xml:"CharCode"`
	Nominal   int64  `xml:"Nominal"`
	Name      string `xml:"Name"`
	Value     string `xml:"Value"`
	VunitRate string `xml:"VunitRate"`
}

// ParseTable decodes a rate table document. The declared charset
// (windows-1251 in practice) is honoured.
func ParseTable(data []byte) (*Table, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = charsetReader

	var doc valCurs
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode rate table: %w", err)
	}

	table := &Table{Entries: make([]Entry, 0, len(doc.Valutes))}
	if doc.Date != "" {
		// Some historical tables use dd/mm/yyyy.
		d, err := time.ParseInLocation(DocumentDateLayout, doc.Date, time.UTC)
		if err != nil {
			d, _ = time.ParseInLocation(RequestDateLayout, doc.Date, time.UTC)
		}
		table.Date = d
	}

	for _, v := range doc.Valutes {
		table.Entries = append(table.Entries, Entry{
			ID:        strings.TrimSpace(v.ID),
			NumCode:   strings.TrimSpace(v.NumCode),
			CharCode:  strings.TrimSpace(v.CharCode),
			Nominal:   v.Nominal,
			Name:      strings.TrimSpace(v.Name),
			Value:     strings.TrimSpace(v.Value),
			UnitValue: strings.TrimSpace(v.VunitRate),
		})
	}

	return table, nil
}

// Lookup returns the per-unit value of the currency whose ID or char code equals code.
func (t *Table) Lookup(code string) (decimal.Decimal, error) {
	for _, e := range t.Entries {
		if e.ID == code || strings.EqualFold(e.CharCode, code) {
			return e.Rate()
		}
	}
	return decimal.Zero, fmt.Errorf("currency %s: %w", code, model.ErrRateNotFound)
}

// Rate returns the value of one unit of the currency.
// VunitRate is used when present; otherwise Value is divided by Nominal.
func (e Entry) Rate() (decimal.Decimal, error) {
	if e.UnitValue != "" {
		r, err := model.ParseDecimal(e.UnitValue)
		if err != nil {
			return decimal.Zero, fmt.Errorf("parse unit rate %q for %s: %w", e.UnitValue, e.ID, err)
		}
		return r, nil
	}

	v, err := model.ParseDecimal(e.Value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse rate %q for %s: %w", e.Value, e.ID, err)
	}
	if e.Nominal > 1 {
		v = v.Div(decimal.NewFromInt(e.Nominal))
	}
	return v, nil
}

func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := ianaindex.IANA.Encoding(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q: %w", label, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported charset %q", label)
	}
	return enc.NewDecoder().Reader(input), nil
}
