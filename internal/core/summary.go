package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Totals is the income/expense/balance summary for a date range.
type Totals struct {
	TotalIncome  decimal.Decimal `json:"totalIncome"`
	TotalExpense decimal.Decimal `json:"totalExpense"`
	Balance      decimal.Decimal `json:"balance"`
}

// CategoryBreakdown sums amounts per category for each kind. Categories
// without records are absent.
type CategoryBreakdown struct {
	IncomeTotals  map[string]decimal.Decimal `json:"incomeTotals"`
	ExpenseTotals map[string]decimal.Decimal `json:"expenseTotals"`
}

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// MonthSlice holds the raw records dated in a specific year+month.
type MonthSlice struct {
	Year     int           `json:"year"`
	Month    time.Month    `json:"month"`
	Incomes  []Transaction `json:"incomes"`
	Expenses []Transaction `json:"expenses"`
}

// MonthTotals is a compact summary for a specific year+month.
type MonthTotals struct {
	Year    int             `json:"year"`
	Month   time.Month      `json:"month"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Balance decimal.Decimal `json:"balance"`
}

// Change operations reported to a ledger notifier.
const (
	OpCreated  = "created"
	OpUpdated  = "updated"
	OpDeleted  = "deleted"
	OpReplaced = "replaced"
	OpCleared  = "cleared"
)

// ChangeEvent describes a successful ledger mutation. ID is empty for bulk
// operations; Kind is empty when both collections changed.
type ChangeEvent struct {
	Op   string    `json:"op"`
	Kind Kind      `json:"kind,omitempty"`
	ID   string    `json:"id,omitempty"`
	At   time.Time `json:"at"`
}
