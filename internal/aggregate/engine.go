// Package aggregate derives totals and breakdowns from the current ledger.
// Nothing here is stored; every call reads a fresh snapshot.
package aggregate

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"fincontrol/internal/core"
	"fincontrol/internal/log"
)

// Source yields both collections read at the same point in time.
type Source interface {
	Snapshot(ctx context.Context) (incomes, expenses []core.Transaction)
}

type Engine struct {
	src    Source
	logger *log.Logger
}

func New(src Source, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.Discard()
	}
	return &Engine{src: src, logger: logger.WithComponent(log.ComponentAggregate)}
}

// Totals sums both collections over the inclusive range r.
func (e *Engine) Totals(ctx context.Context, r core.DateRange) core.Totals {
	incomes, expenses := e.src.Snapshot(ctx)
	return ComputeTotals(incomes, expenses, r)
}

// ByCategory sums each collection per exact category label.
func (e *Engine) ByCategory(ctx context.Context) core.CategoryBreakdown {
	incomes, expenses := e.src.Snapshot(ctx)
	return core.CategoryBreakdown{
		IncomeTotals:  ComputeByCategory(incomes),
		ExpenseTotals: ComputeByCategory(expenses),
	}
}

// ByMonth returns the raw records dated in the given month.
func (e *Engine) ByMonth(ctx context.Context, year int, month time.Month) core.MonthSlice {
	incomes, expenses := e.src.Snapshot(ctx)
	inMonth := func(t core.Transaction) bool { return t.Date.InMonth(year, month) }
	return core.MonthSlice{
		Year:     year,
		Month:    month,
		Incomes:  filter(incomes, inMonth),
		Expenses: filter(expenses, inMonth),
	}
}

// Monthly returns twelve per-month totals for year, January first.
func (e *Engine) Monthly(ctx context.Context, year int) []core.MonthTotals {
	incomes, expenses := e.src.Snapshot(ctx)

	out := make([]core.MonthTotals, 12)
	for i := range out {
		out[i] = core.MonthTotals{
			Year:    year,
			Month:   time.Month(i + 1),
			Income:  decimal.Zero,
			Expense: decimal.Zero,
		}
	}
	for _, t := range incomes {
		if !t.Date.IsZero() && t.Date.Year() == year {
			m := &out[t.Date.Month()-1]
			m.Income = m.Income.Add(core.AmountOrZero(t.Amount))
		}
	}
	for _, t := range expenses {
		if !t.Date.IsZero() && t.Date.Year() == year {
			m := &out[t.Date.Month()-1]
			m.Expense = m.Expense.Add(core.AmountOrZero(t.Amount))
		}
	}
	for i := range out {
		out[i].Balance = out[i].Income.Sub(out[i].Expense)
	}

	e.logger.DebugContext(ctx, "Computed monthly series", log.FieldYear, year)
	return out
}

// ComputeTotals is the pure form of Engine.Totals.
func ComputeTotals(incomes, expenses []core.Transaction, r core.DateRange) core.Totals {
	income := sumInRange(incomes, r)
	expense := sumInRange(expenses, r)
	return core.Totals{
		TotalIncome:  income,
		TotalExpense: expense,
		Balance:      income.Sub(expense),
	}
}

// SortedCategories orders a category map by descending amount, then name.
func SortedCategories(totals map[string]decimal.Decimal) []core.CategoryAmount {
	out := make([]core.CategoryAmount, 0, len(totals))
	for name, amount := range totals {
		out = append(out, core.CategoryAmount{Name: name, Amount: amount})
	}
	slices.SortFunc(out, func(a, b core.CategoryAmount) int {
		if c := b.Amount.Cmp(a.Amount); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
	return out
}

func sumInRange(list []core.Transaction, r core.DateRange) decimal.Decimal {
	sum := decimal.Zero
	for _, t := range list {
		if !r.Contains(t.Date) {
			continue
		}
		// Amounts that are not numbers count as zero rather than failing the sum.
		sum = sum.Add(core.AmountOrZero(t.Amount))
	}
	return sum
}

// ComputeByCategory sums one collection per exact category label.
func ComputeByCategory(list []core.Transaction) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	for _, t := range list {
		// Same zero fallback as sumInRange.
		out[t.Category] = out[t.Category].Add(core.AmountOrZero(t.Amount))
	}
	return out
}

func filter(list []core.Transaction, keep func(core.Transaction) bool) []core.Transaction {
	out := []core.Transaction{}
	for _, t := range list {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}
