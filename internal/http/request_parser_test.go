package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"fincontrol/internal/core"
)

func TestSanitizeText(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"  hello world  ", "hello world"},
		{"<b>Salary</b>", "Salary"},
		{"Rent <script>alert(1)</script>", "Rent"},
		{"Salt & Pepper", "Salt & Pepper"},
		{"tab\there", "tab\there"},
		{"bell\x07char", "bellchar"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := SanitizeText(tt.input); got != tt.expected {
				t.Errorf("SanitizeText(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{`"12.50"`, "12.5", false},
		{`"12,50"`, "12.5", false},
		{`7`, "7", false},
		{`0`, "0", false},
		{`"-1"`, "", true},
		{`"12.5 EUR"`, "", true},
		{`""`, "", true},
		{`true`, "", true},
		{``, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := parseAmount(json.RawMessage(tt.raw))
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseAmount(%s) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if !tt.wantErr && got.String() != tt.want {
				t.Errorf("parseAmount(%s) = %s, want %s", tt.raw, got, tt.want)
			}
		})
	}
}

func TestTransactionRequestFields(t *testing.T) {
	req := TransactionRequest{
		Description: " Coffee ",
		Amount:      json.RawMessage(`"3.20"`),
		Date:        "2024-05-06",
		Category:    "Food",
	}
	fields, problems := req.Fields()
	if problems != nil {
		t.Fatalf("unexpected problems: %v", problems)
	}
	if fields.Description != "Coffee" || !fields.Date.Equal(core.NewDate(2024, 5, 6).Time) || fields.Amount.String() != "3.2" {
		t.Errorf("fields = %+v", fields)
	}

	_, problems = TransactionRequest{Description: strings.Repeat("d", 201), Date: "2024-02-30"}.Fields()
	for _, field := range []string{"description", "date", "category", "amount"} {
		if _, ok := problems[field]; !ok {
			t.Errorf("expected a problem for %s, got %v", field, problems)
		}
	}
}

func TestPatchRequestPatch(t *testing.T) {
	desc := "  New  "
	date := "2024-07-01"
	patch, problems := PatchRequest{Description: &desc, Date: &date}.Patch()
	if problems != nil {
		t.Fatalf("unexpected problems: %v", problems)
	}
	if *patch.Description != "New" || !patch.Date.Equal(core.NewDate(2024, 7, 1).Time) {
		t.Errorf("patch = %+v", patch)
	}
	if patch.Amount != nil || patch.Category != nil {
		t.Errorf("absent fields must stay nil")
	}

	empty := " "
	bad := "tomorrow"
	_, problems = PatchRequest{Category: &empty, Date: &bad, Amount: json.RawMessage(`"-3"`)}.Patch()
	if len(problems) != 3 {
		t.Errorf("problems = %v, want category, date and amount", problems)
	}

	patch, problems = PatchRequest{}.Patch()
	if problems != nil || !patch.IsEmpty() {
		t.Errorf("empty request should yield an empty patch")
	}
}

func TestParseDateRange(t *testing.T) {
	tests := []struct {
		query    string
		wantFrom string
		wantTo   string
		wantErr  error
	}{
		{"", "", "", nil},
		{"from=2024-01-01", "2024-01-01", "", nil},
		{"to=2024-01-31", "", "2024-01-31", nil},
		{"from=2024-01-01&to=2024-01-01", "2024-01-01", "2024-01-01", nil},
		{"from=2024-02-01&to=2024-01-01", "", "", core.ErrInvalidRange},
		{"from=01-01-2024", "", "", core.ErrInvalidDate},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/totals?"+tt.query, nil)
			rng, err := ParseDateRange(r)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ParseDateRange() error = %v, want %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if got := dateString(rng.From); got != tt.wantFrom {
				t.Errorf("From = %q, want %q", got, tt.wantFrom)
			}
			if got := dateString(rng.To); got != tt.wantTo {
				t.Errorf("To = %q, want %q", got, tt.wantTo)
			}
		})
	}
}

func TestParseYearMonth(t *testing.T) {
	tests := []struct {
		year, month string
		wantErr     bool
	}{
		{"2024", "1", false},
		{"2024", "12", false},
		{"2024", "13", true},
		{"2024", "0", true},
		{"0", "5", true},
		{"twenty", "5", true},
	}
	for _, tt := range tests {
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("year", tt.year)
		rctx.URLParams.Add("month", tt.month)
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))

		_, _, err := parseYearMonth(r)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseYearMonth(%s, %s) error = %v, wantErr %v", tt.year, tt.month, err, tt.wantErr)
		}
	}
}

func dateString(d *core.Date) string {
	if d == nil {
		return ""
	}
	return d.String()
}
