package sheets

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"google.golang.org/api/option"

	"github.com/rickgao/stocksync/internal/model"
)

func newTestSource(t *testing.T, handler http.HandlerFunc) *Source {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	src, err := NewSource(context.Background(), "sheet-1", "Sheet1!A:D", nil,
		option.WithEndpoint(server.URL+"/"),
		option.WithoutAuthentication(),
	)
	if err != nil {
		t.Fatalf("NewSource failed: %v", err)
	}
	return src
}

func TestSource_Rows(t *testing.T) {
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "/spreadsheets/sheet-1/values/") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("valueRenderOption"); got != "FORMATTED_VALUE" {
			t.Errorf("valueRenderOption = %q, want FORMATTED_VALUE", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"range": "Sheet1!A1:D4",
			"majorDimension": "ROWS",
			"values": [
				["№", "заказ №", "стоимость,$", "срок поставки"],
				["A1", "ORD-1", "100.00", "01.01.2024"],
				["A2", "ORD-2"],
				["A3", "ORD-3", 42, "02.01.2024"]
			]
		}`))
	})

	rows, err := src.Rows(context.Background())
	if err != nil {
		t.Fatalf("Rows failed: %v", err)
	}

	if len(rows) != 3 {
		t.Fatalf("len(rows) = %d, want 3 (header dropped)", len(rows))
	}
	if rows[0][0] != "A1" || rows[0][3] != "01.01.2024" {
		t.Errorf("rows[0] = %v", rows[0])
	}
	if len(rows[1]) != 2 {
		t.Errorf("len(rows[1]) = %d, want 2", len(rows[1]))
	}
	if rows[2][2] != "42" {
		t.Errorf("numeric cell = %q, want %q", rows[2][2], "42")
	}
}

func TestSource_RowsEmptyRange(t *testing.T) {
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"range": "Sheet1!A1:D1", "majorDimension": "ROWS"}`))
	})

	rows, err := src.Rows(context.Background())
	if err != nil {
		t.Fatalf("Rows failed: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("len(rows) = %d, want 0", len(rows))
	}
}

func TestSource_RowsHeaderOnly(t *testing.T) {
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"values": [["№", "заказ №", "стоимость,$", "срок поставки"]]}`))
	})

	rows, err := src.Rows(context.Background())
	if err != nil {
		t.Fatalf("Rows failed: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("len(rows) = %d, want 0", len(rows))
	}
}

func TestSource_RowsUnavailable(t *testing.T) {
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error": {"code": 403, "message": "The caller does not have permission"}}`))
	})

	_, err := src.Rows(context.Background())
	if !errors.Is(err, model.ErrSourceUnavailable) {
		t.Errorf("error = %v, want ErrSourceUnavailable", err)
	}
}
