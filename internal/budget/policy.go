// Package budget holds the per-category monthly spending limits and the
// over-budget alert rule.
package budget

import (
	"errors"
	"fmt"
	"strings"

	"finboard/internal/core"
)

// ErrEmptyCategory is returned when a category name is blank.
var ErrEmptyCategory = errors.New("empty category name")

// defaultLimits are the monthly limits in whole dollars, in display order.
var defaultLimits = []struct {
	Category string
	Dollars  int64
}{
	{"Food", 500},
	{"Transport", 200},
	{"Utilities", 300},
	{"Entertainment", 150},
	{"Shopping", 300},
	{"Healthcare", 200},
	{"Education", 250},
	{"Housing", 1000},
	{"Savings", 400},
	{"Insurance", 200},
	{"Subscriptions", 100},
	{"Personal Care", 150},
	{"Gifts", 100},
	{"Travel", 300},
	{"Other", 200},
}

// Policy maps categories to monthly limits. The zero value is an empty policy.
// A Policy is not safe for concurrent use; the ledger service serializes access.
type Policy struct {
	order  []string
	limits map[string]core.Money
}

// Alert signals that an expense would push a category over its limit.
type Alert struct {
	Category string
	Limit    core.Money
	Spent    core.Money // this month's spend before the new expense
	Amount   core.Money
}

// Message renders the user-facing warning.
func (a Alert) Message(symbol string) string {
	return fmt.Sprintf("This expense will exceed your %s budget limit of %s", a.Category, a.Limit.Format(symbol))
}

// CategoryBudget compares a category's limit with its current month spend.
type CategoryBudget struct {
	Category string
	Budget   core.Money
	Actual   core.Money
	Variance core.Money // Budget - Actual; negative when over budget
}

// Over reports whether the category is over its limit.
func (c CategoryBudget) Over() bool {
	return c.Actual.Cents > c.Budget.Cents
}

// New creates an empty policy.
func New() *Policy {
	return &Policy{limits: make(map[string]core.Money)}
}

// Default returns the built-in policy with fifteen categories.
func Default() *Policy {
	p := New()
	for _, d := range defaultLimits {
		p.set(d.Category, core.Money{Cents: d.Dollars * 100})
	}
	return p
}

func (p *Policy) set(category string, limit core.Money) {
	if p.limits == nil {
		p.limits = make(map[string]core.Money)
	}
	if _, ok := p.limits[category]; !ok {
		p.order = append(p.order, category)
	}
	p.limits[category] = limit
}

// Categories returns the category names in display order.
func (p *Policy) Categories() []string {
	return append([]string(nil), p.order...)
}

// Len returns the number of categories.
func (p *Policy) Len() int {
	return len(p.order)
}

// Limit returns the monthly limit of a category.
func (p *Policy) Limit(category string) (core.Money, bool) {
	m, ok := p.limits[category]
	return m, ok
}

// Total sums every limit.
func (p *Policy) Total() core.Money {
	var total core.Money
	for _, c := range p.order {
		total = total.Add(p.limits[c])
	}
	return total
}

// SetLimit changes (or creates) a category limit. Limits must be non-negative.
func (p *Policy) SetLimit(category string, limit core.Money) error {
	category = strings.TrimSpace(category)
	if category == "" {
		return ErrEmptyCategory
	}
	if limit.Cents < 0 {
		return fmt.Errorf("%w: limit for %s must not be negative", core.ErrInvalidAmount, category)
	}
	p.set(category, limit)
	return nil
}

// AddCategory registers a new category. Existing categories keep their limit.
// It reports whether the category was added.
func (p *Policy) AddCategory(name string, initial core.Money) (bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return false, ErrEmptyCategory
	}
	if _, ok := p.limits[name]; ok {
		return false, nil
	}
	if err := p.SetLimit(name, initial); err != nil {
		return false, err
	}
	return true, nil
}

// Clone returns an independent copy.
func (p *Policy) Clone() *Policy {
	c := New()
	for _, cat := range p.order {
		c.set(cat, p.limits[cat])
	}
	return c
}

// MonthSpend sums the ledger amounts of category in today's calendar month.
func MonthSpend(ledger core.Ledger, category string, today core.Date) core.Money {
	var spent core.Money
	for _, t := range ledger {
		if t.Category == category && t.Date.SameMonth(today) {
			spent = spent.Add(t.Amount)
		}
	}
	return spent
}

// CheckAlert returns an alert when this month's spend in category plus amount
// exceeds the category limit. Categories without a limit never alert. It
// never blocks the insertion; the caller decides what to do with the alert.
func (p *Policy) CheckAlert(amount core.Money, category string, ledger core.Ledger, today core.Date) *Alert {
	limit, ok := p.limits[category]
	if !ok {
		return nil
	}
	spent := MonthSpend(ledger, category, today)
	if spent.Add(amount).Cents <= limit.Cents {
		return nil
	}
	return &Alert{
		Category: category,
		Limit:    limit,
		Spent:    spent,
		Amount:   amount,
	}
}

// Comparison returns budget vs actual for every category in the policy,
// followed by ledger categories that have spend this month but no limit.
func (p *Policy) Comparison(ledger core.Ledger, today core.Date) []CategoryBudget {
	actual := make(map[string]core.Money)
	var extra []string
	for _, t := range ledger {
		if !t.Date.SameMonth(today) {
			continue
		}
		if _, seen := actual[t.Category]; !seen {
			if _, known := p.limits[t.Category]; !known {
				extra = append(extra, t.Category)
			}
		}
		actual[t.Category] = actual[t.Category].Add(t.Amount)
	}

	out := make([]CategoryBudget, 0, len(p.order)+len(extra))
	for _, c := range append(p.Categories(), extra...) {
		b := p.limits[c]
		a := actual[c]
		out = append(out, CategoryBudget{
			Category: c,
			Budget:   b,
			Actual:   a,
			Variance: core.Money{Cents: b.Cents - a.Cents},
		})
	}
	return out
}
