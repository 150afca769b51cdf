package http

import (
	"net/http"

	"finboard/internal/budget"
	"finboard/internal/core"
	"finboard/internal/metrics"
	"finboard/internal/services"
)

type indexPage struct {
	Today      string
	Categories []string
	Snapshot   metrics.Snapshot
	Warning    string
	HistoryLen int
}

// handleIndex renders the dashboard: metrics, recent and top rows, and the
// add form. A failed read still renders, with a warning banner.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}

	snap, err := s.ledger.RequestMetrics(r.Context())
	if err != nil {
		s.logger.WarnContext(r.Context(), "Dashboard rendered from failed read", "error", err)
	}

	s.render(w, r, "index.html", indexPage{
		Today:      snap.AsOf.String(),
		Categories: s.ledger.Policy().Categories(),
		Snapshot:   snap,
		Warning:    loadWarning(err),
		HistoryLen: len(s.ledger.History()),
	})
}

type transactionJSON struct {
	ID          int64   `json:"id"`
	Date        string  `json:"date"`
	Amount      float64 `json:"amount"`
	AmountCents int64   `json:"amount_cents"`
	Category    string  `json:"category"`
	HasReceipt  bool    `json:"has_receipt"`
}

func toTransactionsJSON(l core.Ledger) []transactionJSON {
	out := make([]transactionJSON, 0, len(l))
	for _, t := range l {
		out = append(out, transactionJSON{
			ID:          t.ID,
			Date:        t.Date.String(),
			Amount:      t.Amount.Float64(),
			AmountCents: t.Amount.Cents,
			Category:    t.Category,
			HasReceipt:  t.HasReceipt(),
		})
	}
	return out
}

type metricsJSON struct {
	AsOf             string            `json:"as_of"`
	Currency         string            `json:"currency"`
	Count            int               `json:"count"`
	TotalBalance     float64           `json:"total_balance"`
	MonthlySpend     float64           `json:"monthly_spend"`
	BudgetTotal      float64           `json:"budget_total"`
	BudgetUsedPct    float64           `json:"budget_used_pct"`
	BudgetUsedRawPct float64           `json:"budget_used_raw_pct"`
	OverBudget       bool              `json:"over_budget"`
	Recent           []transactionJSON `json:"recent_activities"`
	Top              []transactionJSON `json:"top_expenses"`
	Warning          string            `json:"warning,omitempty"`
}

// handleAPIMetrics serves the dashboard snapshot as JSON.
func (s *Server) handleAPIMetrics(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}

	snap, err := s.ledger.RequestMetrics(r.Context())
	writeJSON(w, http.StatusOK, metricsJSON{
		AsOf:             snap.AsOf.String(),
		Currency:         s.ledger.Currency(),
		Count:            snap.Count,
		TotalBalance:     snap.TotalBalance.Float64(),
		MonthlySpend:     snap.MonthlySpend.Float64(),
		BudgetTotal:      snap.BudgetTotal.Float64(),
		BudgetUsedPct:    snap.BudgetUsedPct,
		BudgetUsedRawPct: snap.BudgetUsedRawPct,
		OverBudget:       snap.OverBudget(),
		Recent:           toTransactionsJSON(snap.RecentActivities),
		Top:              toTransactionsJSON(snap.TopExpenses),
		Warning:          loadWarning(err),
	})
}

type pointJSON struct {
	Key    string  `json:"key"`
	Amount float64 `json:"amount"`
}

type budgetJSON struct {
	Category string  `json:"category"`
	Budget   float64 `json:"budget"`
	Actual   float64 `json:"actual"`
	Variance float64 `json:"variance"`
	Over     bool    `json:"over"`
}

type analyticsJSON struct {
	ByCategory []pointJSON  `json:"by_category"`
	ByMonth    []pointJSON  `json:"by_month"`
	ByYear     []pointJSON  `json:"by_year"`
	Budget     []budgetJSON `json:"budget_vs_actual"`
	Warnings   []string     `json:"warnings,omitempty"`
}

func toPointsJSON(points []metrics.Point) []pointJSON {
	out := make([]pointJSON, 0, len(points))
	for _, p := range points {
		out = append(out, pointJSON{Key: p.Key, Amount: p.Amount.Float64()})
	}
	return out
}

func toBudgetJSON(rows []budget.CategoryBudget) []budgetJSON {
	out := make([]budgetJSON, 0, len(rows))
	for _, b := range rows {
		out = append(out, budgetJSON{
			Category: b.Category,
			Budget:   b.Budget.Float64(),
			Actual:   b.Actual.Float64(),
			Variance: b.Variance.Float64(),
			Over:     b.Over(),
		})
	}
	return out
}

// handleAPIAnalytics serves the grouped series for charts, honoring the
// same filters as the transaction list.
func (s *Server) handleAPIAnalytics(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}

	f, warnings := ParseFilter(r.URL.Query())
	view, err := s.ledger.Analytics(r.Context(), f)
	if msg := loadWarning(err); msg != "" {
		warnings = append(warnings, msg)
	}
	writeJSON(w, http.StatusOK, analyticsView(view, warnings))
}

func analyticsView(view services.AnalyticsView, warnings []string) analyticsJSON {
	return analyticsJSON{
		ByCategory: toPointsJSON(view.ByCategory),
		ByMonth:    toPointsJSON(view.ByMonth),
		ByYear:     toPointsJSON(view.ByYear),
		Budget:     toBudgetJSON(view.Budget),
		Warnings:   warnings,
	}
}
