// Package metrics derives the dashboard figures and analytics groupings
// from a ledger. Every function here is pure.
package metrics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"finboard/internal/budget"
	"finboard/internal/core"
)

const (
	// RecentCount is the number of rows shown as recent activity.
	RecentCount = 5
	// TopCount is the number of rows shown as top expenses.
	TopCount = 5
)

var hundred = decimal.NewFromInt(100)

// Snapshot is the computed dashboard state. It is never persisted.
type Snapshot struct {
	AsOf             core.Date
	Count            int
	TotalBalance     core.Money
	MonthlySpend     core.Money
	BudgetTotal      core.Money
	BudgetUsedPct    float64 // clamped to [0, 100] for display
	BudgetUsedRawPct float64 // unclamped, may exceed 100
	RecentActivities core.Ledger
	TopExpenses      core.Ledger
}

// OverBudget reports whether this month's spend exceeds the total budget.
func (s Snapshot) OverBudget() bool {
	return s.BudgetUsedRawPct > 100
}

// Compute builds the snapshot of ledger as of now.
func Compute(ledger core.Ledger, policy *budget.Policy, now time.Time) Snapshot {
	today := core.Today(now)

	var monthly core.Money
	for _, t := range ledger {
		if t.Date.SameMonth(today) {
			monthly = monthly.Add(t.Amount)
		}
	}

	var budgetTotal core.Money
	if policy != nil {
		budgetTotal = policy.Total()
	}
	raw := UsedPercent(monthly, budgetTotal)

	return Snapshot{
		AsOf:             today,
		Count:            len(ledger),
		TotalBalance:     ledger.Total(),
		MonthlySpend:     monthly,
		BudgetTotal:      budgetTotal,
		BudgetUsedPct:    clamp(raw, 0, 100),
		BudgetUsedRawPct: raw,
		RecentActivities: Recent(ledger, RecentCount),
		TopExpenses:      TopExpenses(ledger, TopCount),
	}
}

// UsedPercent returns spent / budget * 100, or 0 when budget is not positive.
func UsedPercent(spent, budget core.Money) float64 {
	if budget.Cents <= 0 {
		return 0
	}
	pct := spent.Decimal().Mul(hundred).Div(budget.Decimal()).Round(2)
	f, _ := pct.Float64()
	return f
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Recent returns the last n rows in stored order.
func Recent(ledger core.Ledger, n int) core.Ledger {
	if n <= 0 {
		return core.Ledger{}
	}
	start := len(ledger) - n
	if start < 0 {
		start = 0
	}
	return ledger[start:].Clone()
}

// TopExpenses returns the n largest rows, ties kept in ledger order.
func TopExpenses(ledger core.Ledger, n int) core.Ledger {
	sorted := ledger.Clone()
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Amount.Cents > sorted[j].Amount.Cents
	})
	if n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}
