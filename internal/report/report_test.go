package report

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"fincontrol/internal/core"
)

type staticSource struct {
	incomes, expenses []core.Transaction
}

func (s staticSource) Snapshot(context.Context) ([]core.Transaction, []core.Transaction) {
	return s.incomes, s.expenses
}

var reportTime = time.Date(2024, 5, 6, 15, 0, 0, 0, time.UTC)

func testSource() staticSource {
	return staticSource{
		incomes: []core.Transaction{
			{ID: "1", Kind: core.Income, Description: "Salary", Amount: core.AmountFromString("1000"), Date: core.MustParseDate("2024-01-15"), Category: "Job"},
			{ID: "2", Kind: core.Income, Description: "Gift, from \"mom\"", Amount: core.AmountFromString("50.5"), Date: core.MustParseDate("2024-02-01"), Category: "Other"},
		},
		expenses: []core.Transaction{
			{ID: "3", Kind: core.Expense, Description: "Rent", Amount: core.AmountFromFloat(400), Date: core.MustParseDate("2024-01-01"), Category: "Housing"},
		},
	}
}

func newTestReporter(t *testing.T, src staticSource) *Reporter {
	t.Helper()
	f, err := NewFormatter("en")
	if err != nil {
		t.Fatalf("formatter: %v", err)
	}
	return New(src, f, nil, WithClock(func() time.Time { return reportTime }))
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := newTestReporter(t, testSource()).WriteCSV(context.Background(), &buf); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	want := strings.Join([]string{
		"FINANCIAL REPORT",
		"Generated: 6 May 2024",
		"",
		"FINANCIAL SUMMARY",
		"Concept,Amount",
		"Total Income,1050.50",
		"Total Expense,400.00",
		"Balance,650.50",
		"",
		"INCOME",
		"Date,Description,Category,Amount",
		"2024-01-15,Salary,Job,1000.00",
		`2024-02-01,"Gift, from ""mom""",Other,50.50`,
		"",
		"EXPENSES",
		"Date,Description,Category,Amount",
		"2024-01-01,Rent,Housing,400.00",
		"",
	}, "\n")
	if got := buf.String(); got != want {
		t.Fatalf("csv mismatch\n--- got ---\n%s\n--- want ---\n%s", got, want)
	}
}

func TestWriteCSVEmptyLedger(t *testing.T) {
	var buf bytes.Buffer
	if err := newTestReporter(t, staticSource{}).WriteCSV(context.Background(), &buf); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	if !strings.Contains(buf.String(), "Balance,0.00\n") {
		t.Fatalf("unexpected output:\n%s", buf.String())
	}
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	if err := newTestReporter(t, testSource()).WriteXLSX(context.Background(), &buf); err != nil {
		t.Fatalf("WriteXLSX: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	wantSheets := []string{"Summary", "Income by category", "Expense by category", "Income", "Expenses"}
	if got := f.GetSheetList(); strings.Join(got, "|") != strings.Join(wantSheets, "|") {
		t.Fatalf("sheets = %v", got)
	}

	cells := []struct {
		sheet, cell, want string
	}{
		{"Summary", "B1", "6 May 2024"},
		{"Summary", "B3", "1050.50"},
		{"Summary", "B4", "400.00"},
		{"Summary", "B5", "650.50"},
		{"Income by category", "A2", "Job"},
		{"Income by category", "B2", "1000.00"},
		{"Income by category", "B3", "50.50"},
		{"Income", "D3", "50.50"},
		{"Expenses", "B2", "Rent"},
		{"Expenses", "A2", "1 Jan 2024"},
		{"Expenses", "D2", "400.00"},
	}
	for _, c := range cells {
		// GetCellValue applies the cell's number format.
		got, err := f.GetCellValue(c.sheet, c.cell)
		if err != nil {
			t.Fatalf("%s!%s: %v", c.sheet, c.cell, err)
		}
		if got != c.want {
			t.Errorf("%s!%s = %q, want %q", c.sheet, c.cell, got, c.want)
		}
	}

	// Amounts stay numeric underneath the display format.
	raw, err := f.GetCellValue("Summary", "B3", excelize.Options{RawCellValue: true})
	if err != nil || raw != "1050.5" {
		t.Errorf("raw Summary!B3 = %q, %v", raw, err)
	}
}

func TestFormatterCurrency(t *testing.T) {
	tests := []struct {
		locale string
		amount string
		want   string
	}{
		{"en", "1234.5", "1,234.50"},
		{"en", "0", "0.00"},
		{"en", "-1234567.891", "-1,234,567.89"},
		{"de", "1234.5", "1.234,50"},
	}
	for _, tt := range tests {
		t.Run(tt.locale+" "+tt.amount, func(t *testing.T) {
			f, err := NewFormatter(tt.locale)
			if err != nil {
				t.Fatalf("formatter: %v", err)
			}
			if got := f.Currency(decimal.RequireFromString(tt.amount)); got != tt.want {
				t.Fatalf("Currency = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewFormatterRejectsBadLocale(t *testing.T) {
	if _, err := NewFormatter("not a locale!"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestFormatterDate(t *testing.T) {
	tests := []struct {
		locale string
		date   string
		want   string
	}{
		{"en", "2024-01-15", "15 Jan 2024"},
		{"en-GB", "2024-05-06", "6 May 2024"},
		{"es-PE", "2024-01-15", "15 ene 2024"},
		{"es", "2024-09-03", "3 sept 2024"},
		{"pt-BR", "2024-02-29", "29 fev 2024"},
		{"de", "2024-03-01", "1. März 2024"},
		{"ja", "2024-12-24", "24 Dec 2024"},
	}
	for _, tt := range tests {
		t.Run(tt.locale, func(t *testing.T) {
			f, err := NewFormatter(tt.locale)
			if err != nil {
				t.Fatalf("formatter: %v", err)
			}
			if got := f.Date(core.MustParseDate(tt.date)); got != tt.want {
				t.Fatalf("Date = %q, want %q", got, tt.want)
			}
		})
	}

	f, _ := NewFormatter("en")
	if got := f.Date(core.Date{}); got != "" {
		t.Fatalf("zero date = %q", got)
	}
	var odd core.Date
	if err := json.Unmarshal([]byte(`"15/01/2024"`), &odd); err != nil {
		t.Fatal(err)
	}
	if got := f.Date(odd); got != "15/01/2024" {
		t.Fatalf("unrecognized date = %q", got)
	}
}

func TestFileName(t *testing.T) {
	if got := FileName(FilePrefix, "csv", reportTime); got != "Reporte_Financiero_2024-05-06.csv" {
		t.Fatalf("FileName = %q", got)
	}
}
