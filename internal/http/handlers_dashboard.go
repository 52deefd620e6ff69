package http

import (
	"fmt"
	"net/http"

	"fincontrol/internal/aggregate"
	"fincontrol/internal/core"
)

// TotalsResponse adds display strings to the totals when the server has a
// Display configured.
type TotalsResponse struct {
	core.Totals
	Formatted *FormattedTotals `json:"formatted,omitempty"`
}

// FormattedTotals are the totals rendered for the configured locale.
type FormattedTotals struct {
	TotalIncome  string `json:"totalIncome"`
	TotalExpense string `json:"totalExpense"`
	Balance      string `json:"balance"`
}

// CategoriesResponse carries the raw per-category sums and the same data as
// lists ordered for charts.
type CategoriesResponse struct {
	core.CategoryBreakdown
	Income  []core.CategoryAmount `json:"income"`
	Expense []core.CategoryAmount `json:"expense"`
}

func (s *Server) handleTotals(w http.ResponseWriter, r *http.Request) {
	rng, err := ParseDateRange(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	totals := s.deps.Aggregator.Totals(r.Context(), rng)
	resp := TotalsResponse{Totals: totals}
	if d := s.deps.Display; d != nil {
		resp.Formatted = &FormattedTotals{
			TotalIncome:  d.Currency(totals.TotalIncome),
			TotalExpense: d.Currency(totals.TotalExpense),
			Balance:      d.Currency(totals.Balance),
		}
	}
	writeJSON(w, r, http.StatusOK, resp)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	breakdown := s.deps.Aggregator.ByCategory(r.Context())
	writeJSON(w, r, http.StatusOK, CategoriesResponse{
		CategoryBreakdown: breakdown,
		Income:            aggregate.SortedCategories(breakdown.IncomeTotals),
		Expense:           aggregate.SortedCategories(breakdown.ExpenseTotals),
	})
}

// handleMonth serves a month's records from the revision-keyed cache.
func (s *Server) handleMonth(w http.ResponseWriter, r *http.Request) {
	year, month, err := parseYearMonth(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w, r)
		return
	}

	key := fmt.Sprintf("%04d-%02d", year, int(month))
	slice, hit := s.monthCache.GetOrLoad(key, func() core.MonthSlice {
		return s.deps.Aggregator.ByMonth(r.Context(), year, month)
	})

	status := "MISS"
	if hit {
		status = "HIT"
	}
	NewJSONResponse().Header("X-Cache", status).Body(slice).Write(w, r)
}

func (s *Server) handleYear(w http.ResponseWriter, r *http.Request) {
	year, err := parseYear(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w, r)
		return
	}
	writeJSON(w, r, http.StatusOK, s.deps.Aggregator.Monthly(r.Context(), year))
}
