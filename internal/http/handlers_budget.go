package http

import (
	"fmt"
	"net/http"

	"finboard/internal/budget"
	"finboard/internal/core"
	applog "finboard/internal/log"
	"finboard/internal/metrics"
)

type budgetPage struct {
	Rows       []budget.CategoryBudget
	Total      budgetTotals
	Persistent bool
	Warning    string
}

type budgetTotals struct {
	Budget, Actual, Variance string
	UsedPct                  float64
}

// handleBudget shows budget against this month's spend per category.
func (s *Server) handleBudget(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}

	view, err := s.ledger.Analytics(r.Context(), metrics.Filter{})
	symbol := s.ledger.Symbol()

	var page budgetPage
	page.Rows = view.Budget
	page.Warning = loadWarning(err)
	page.Persistent = s.ledger.HasBudgetFile()

	var b, a, v core.Money
	for _, row := range view.Budget {
		b = b.Add(row.Budget)
		a = a.Add(row.Actual)
		v = v.Add(row.Variance)
	}
	page.Total = budgetTotals{
		Budget:   b.Format(symbol),
		Actual:   a.Format(symbol),
		Variance: v.Format(symbol),
		UsedPct:  metrics.UsedPercent(a, b),
	}
	s.render(w, r, "budget.html", page)
}

// handleBudgetLimit sets a category's monthly limit.
func (s *Server) handleBudgetLimit(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if err := r.ParseForm(); err != nil {
		s.writeError(w, r, applog.OpEdit, fmt.Errorf("%w: %v", ErrBadForm, err))
		return
	}

	category := sanitizeInput(r.PostFormValue("category"))
	if err := s.ledger.SetBudgetLimit(r.Context(), category, r.PostFormValue("limit")); err != nil {
		s.writeError(w, r, applog.OpEdit, err)
		return
	}

	limit, _ := s.ledger.Policy().Limit(category)
	msg := fmt.Sprintf("%s budget set to %s", category, limit.Format(s.ledger.Symbol()))
	SuccessResponse(msg).
		TriggerBudgetChanged().
		TriggerSuccessNotification(msg).
		Write(w)
}

// handleBudgetCategory registers a new category with a zero limit.
func (s *Server) handleBudgetCategory(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if err := r.ParseForm(); err != nil {
		s.writeError(w, r, applog.OpEdit, fmt.Errorf("%w: %v", ErrBadForm, err))
		return
	}

	name := sanitizeInput(r.PostFormValue("name"))
	added, err := s.ledger.AddCategory(r.Context(), name)
	if err != nil {
		s.writeError(w, r, applog.OpEdit, err)
		return
	}

	b := NewHTMXResponse()
	if added {
		msg := fmt.Sprintf("Category %s added", name)
		b = SuccessResponse(msg).TriggerBudgetChanged().TriggerSuccessNotification(msg)
	} else {
		b.TriggerNotification(NotificationInfo, fmt.Sprintf("Category %s already exists", name), 3000)
	}
	b.Write(w)
}

// handleBudgetSave writes the policy to the budget file.
func (s *Server) handleBudgetSave(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}

	if err := s.ledger.SaveBudget(r.Context()); err != nil {
		s.writeError(w, r, applog.OpEdit, err)
		return
	}

	SuccessResponse("Budget saved").
		TriggerSuccessNotification("Budget saved").
		Write(w)
}
