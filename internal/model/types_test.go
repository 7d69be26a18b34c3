package model

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParseDecimal(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "90,1234", want: "90.1234"},
		{in: "90.1234", want: "90.1234"},
		{in: " 100.00 ", want: "100"},
		{in: "1 234,50", want: "1234.5"},
		{in: "0", want: "0"},
		{in: "abc", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDecimal(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseDecimal(%q) = %s, want error", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDecimal(%q) failed: %v", tt.in, err)
			}
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("ParseDecimal(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseSupplyDate(t *testing.T) {
	got, err := ParseSupplyDate("02.01.2024")
	if err != nil {
		t.Fatalf("ParseSupplyDate failed: %v", err)
	}
	want := time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("ParseSupplyDate = %v, want %v", got, want)
	}

	for _, bad := range []string{"2024-01-02", "32.01.2024", "02/01/2024", ""} {
		if _, err := ParseSupplyDate(bad); err == nil {
			t.Errorf("ParseSupplyDate(%q) expected error", bad)
		}
	}
}

func TestErrorTaxonomy(t *testing.T) {
	wrapped := fmt.Errorf("row 3: %w", ErrInvalidDate)
	if !errors.Is(wrapped, ErrInvalidDate) {
		t.Error("wrapped error should match ErrInvalidDate")
	}
	if errors.Is(wrapped, ErrInvalidRow) {
		t.Error("wrapped error should not match ErrInvalidRow")
	}
}
