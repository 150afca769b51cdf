package metrics

import (
	"sort"
	"strconv"

	"finboard/internal/core"
)

// KeyFunc extracts a grouping key from a transaction.
type KeyFunc func(core.Transaction) string

// Point is one bucket of an ordered series.
type Point struct {
	Key    string
	Amount core.Money
}

// Filter narrows the transaction view. Zero fields do not filter.
type Filter struct {
	From       core.Date
	To         core.Date
	Categories []string
}

// Analytics bundles the grouped series shown on the analytics page.
type Analytics struct {
	ByCategory []Point
	ByMonth    []Point
	ByYear     []Point
}

// GroupBy sums amounts per key.
func GroupBy(ledger core.Ledger, key KeyFunc) map[string]core.Money {
	out := make(map[string]core.Money)
	for _, t := range ledger {
		k := key(t)
		out[k] = out[k].Add(t.Amount)
	}
	return out
}

func category(t core.Transaction) string { return t.Category }
func month(t core.Transaction) string    { return t.Date.YearMonth() }
func year(t core.Transaction) string     { return strconv.Itoa(t.Date.Year()) }

// ByCategory sums amounts per category.
func ByCategory(ledger core.Ledger) map[string]core.Money { return GroupBy(ledger, category) }

// ByMonth sums amounts per YYYY-MM.
func ByMonth(ledger core.Ledger) map[string]core.Money { return GroupBy(ledger, month) }

// ByYear sums amounts per year.
func ByYear(ledger core.Ledger) map[string]core.Money { return GroupBy(ledger, year) }

// Series orders a grouping by key.
func Series(groups map[string]core.Money) []Point {
	out := make([]Point, 0, len(groups))
	for k, v := range groups {
		out = append(out, Point{Key: k, Amount: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Analyze computes every grouping of ledger.
func Analyze(ledger core.Ledger) Analytics {
	return Analytics{
		ByCategory: Series(ByCategory(ledger)),
		ByMonth:    Series(ByMonth(ledger)),
		ByYear:     Series(ByYear(ledger)),
	}
}

// Match reports whether t passes the filter. Date bounds are inclusive.
func (f Filter) Match(t core.Transaction) bool {
	if !f.From.IsZero() && f.From.After(t.Date) {
		return false
	}
	if !f.To.IsZero() && t.Date.After(f.To) {
		return false
	}
	if len(f.Categories) == 0 {
		return true
	}
	for _, c := range f.Categories {
		if c == t.Category {
			return true
		}
	}
	return false
}

// Apply returns the rows of ledger matching f, in stored order.
func (f Filter) Apply(ledger core.Ledger) core.Ledger {
	out := core.Ledger{}
	for _, t := range ledger {
		if f.Match(t) {
			out = append(out, t)
		}
	}
	return out
}
