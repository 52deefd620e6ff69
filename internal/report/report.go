// Package report renders the ledger as downloadable CSV and XLSX files.
package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"fincontrol/internal/aggregate"
	"fincontrol/internal/core"
	"fincontrol/internal/log"
)

// FilePrefix names every generated report file.
const FilePrefix = "Reporte_Financiero"

const (
	sheetSummary         = "Summary"
	sheetIncomeCategory  = "Income by category"
	sheetExpenseCategory = "Expense by category"
	sheetIncome          = "Income"
	sheetExpenses        = "Expenses"
)

var recordHeader = []string{"Date", "Description", "Category", "Amount"}

type Reporter struct {
	src    aggregate.Source
	format *Formatter
	logger *log.Logger
	now    func() time.Time
}

type Option func(*Reporter)

func WithClock(now func() time.Time) Option {
	return func(r *Reporter) { r.now = now }
}

func New(src aggregate.Source, format *Formatter, logger *log.Logger, opts ...Option) *Reporter {
	if logger == nil {
		logger = log.Discard()
	}
	r := &Reporter{
		src:    src,
		format: format,
		logger: logger.WithComponent(log.ComponentReport),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// WriteCSV writes the sectioned report: title, summary, incomes, expenses.
// Records appear in insertion order.
func (r *Reporter) WriteCSV(ctx context.Context, w io.Writer) error {
	incomes, expenses := r.src.Snapshot(ctx)
	totals := aggregate.ComputeTotals(incomes, expenses, core.DateRange{})

	cw := csv.NewWriter(w)
	rows := [][]string{
		{"FINANCIAL REPORT"},
		{"Generated: " + r.format.Date(r.today())},
		nil,
		{"FINANCIAL SUMMARY"},
		{"Concept", "Amount"},
		{"Total Income", Fixed(totals.TotalIncome)},
		{"Total Expense", Fixed(totals.TotalExpense)},
		{"Balance", Fixed(totals.Balance)},
		nil,
		{"INCOME"},
		recordHeader,
	}
	rows = append(rows, recordRows(incomes)...)
	rows = append(rows, nil, []string{"EXPENSES"}, recordHeader)
	rows = append(rows, recordRows(expenses)...)

	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write csv report: %w", err)
	}
	r.logger.InfoContext(ctx, "CSV report generated",
		log.FieldCount, len(incomes)+len(expenses))
	return nil
}

// WriteXLSX writes a workbook with a summary, per-category totals and the
// raw records of each kind.
func (r *Reporter) WriteXLSX(ctx context.Context, w io.Writer) error {
	incomes, expenses := r.src.Snapshot(ctx)
	totals := aggregate.ComputeTotals(incomes, expenses, core.DateRange{})

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetSummary); err != nil {
		return fmt.Errorf("rename summary sheet: %w", err)
	}
	// Built-in format 2 is "0.00", matching the CSV amounts.
	amountStyle, err := f.NewStyle(&excelize.Style{NumFmt: 2})
	if err != nil {
		return fmt.Errorf("create amount style: %w", err)
	}
	summary := [][]any{
		{"Generated", r.format.Date(r.today())},
		{"Concept", "Amount"},
		{"Total Income", totals.TotalIncome.InexactFloat64()},
		{"Total Expense", totals.TotalExpense.InexactFloat64()},
		{"Balance", totals.Balance.InexactFloat64()},
	}
	if err := writeRows(f, sheetSummary, summary); err != nil {
		return err
	}
	if err := styleColumn(f, sheetSummary, "B", 3, len(summary), amountStyle); err != nil {
		return err
	}

	sheets := []struct {
		name      string
		rows      [][]any
		amountCol string
	}{
		{sheetIncomeCategory, categoryRows(aggregate.ComputeByCategory(incomes)), "B"},
		{sheetExpenseCategory, categoryRows(aggregate.ComputeByCategory(expenses)), "B"},
		{sheetIncome, r.recordCells(incomes), "D"},
		{sheetExpenses, r.recordCells(expenses), "D"},
	}
	for _, s := range sheets {
		if _, err := f.NewSheet(s.name); err != nil {
			return fmt.Errorf("create sheet %q: %w", s.name, err)
		}
		if err := writeRows(f, s.name, s.rows); err != nil {
			return err
		}
		if err := styleColumn(f, s.name, s.amountCol, 2, len(s.rows), amountStyle); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx report: %w", err)
	}
	r.logger.InfoContext(ctx, "XLSX report generated",
		log.FieldCount, len(incomes)+len(expenses))
	return nil
}

func (r *Reporter) today() core.Date {
	now := r.now()
	return core.NewDate(now.Year(), int(now.Month()), now.Day())
}

func (r *Reporter) recordCells(list []core.Transaction) [][]any {
	rows := [][]any{{"Date", "Description", "Category", "Amount"}}
	for _, t := range list {
		rows = append(rows, []any{
			r.format.Date(t.Date),
			t.Description,
			t.Category,
			core.AmountOrZero(t.Amount).InexactFloat64(),
		})
	}
	return rows
}

func recordRows(list []core.Transaction) [][]string {
	rows := make([][]string, 0, len(list))
	for _, t := range list {
		rows = append(rows, []string{
			t.Date.String(),
			t.Description,
			t.Category,
			Fixed(core.AmountOrZero(t.Amount)),
		})
	}
	return rows
}

func categoryRows(totals map[string]decimal.Decimal) [][]any {
	rows := [][]any{{"Category", "Amount"}}
	for _, c := range aggregate.SortedCategories(totals) {
		rows = append(rows, []any{c.Name, c.Amount.InexactFloat64()})
	}
	return rows
}

// styleColumn applies style to col from row first through last inclusive.
func styleColumn(f *excelize.File, sheet, col string, first, last, style int) error {
	if last < first {
		return nil
	}
	from, to := fmt.Sprintf("%s%d", col, first), fmt.Sprintf("%s%d", col, last)
	if err := f.SetCellStyle(sheet, from, to, style); err != nil {
		return fmt.Errorf("style %s!%s:%s: %w", sheet, from, to, err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
