package rates

import (
	"fmt"
	"strings"
	"testing"

	"golang.org/x/text/encoding/charmap"
)

// entryXML describes one Valute element in a generated document.
type entryXML struct {
	ID, NumCode, CharCode, Nominal, Name, Value, UnitValue string
}

// tableXML renders a windows-1251 encoded rate table document.
func tableXML(t *testing.T, date string, entries ...entryXML) []byte {
	t.Helper()

	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="windows-1251"?>`)
	fmt.Fprintf(&b, `<ValCurs Date="%s" name="Foreign Currency Market">`, date)
	for _, e := range entries {
		fmt.Fprintf(&b, `<Valute ID="%s"><NumCode>%s</NumCode><CharCode>%s</CharCode><Nominal>%s</Nominal><Name>%s</Name><Value>%s</Value>`,
			e.ID, e.NumCode, e.CharCode, e.Nominal, e.Name, e.Value)
		if e.UnitValue != "" {
			fmt.Fprintf(&b, `<VunitRate>%s</VunitRate>`, e.UnitValue)
		}
		b.WriteString(`</Valute>`)
	}
	b.WriteString(`</ValCurs>`)

	encoded, err := charmap.Windows1251.NewEncoder().String(b.String())
	if err != nil {
		t.Fatalf("encode windows-1251: %v", err)
	}
	return []byte(encoded)
}

func usd(value string) entryXML {
	return entryXML{ID: "R01235", NumCode: "840", CharCode: "USD", Nominal: "1", Name: "Доллар США", Value: value}
}

func eur(value string) entryXML {
	return entryXML{ID: "R01239", NumCode: "978", CharCode: "EUR", Nominal: "1", Name: "Евро", Value: value}
}
