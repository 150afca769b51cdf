package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finboard/internal/core"
)

func analyticsLedger() core.Ledger {
	return core.Ledger{
		row(1, "2023-12-30", 1000, "Food"),
		row(2, "2024-01-05", 250, "Transport"),
		row(3, "2024-01-20", 750, "Food"),
		row(4, "2024-02-01", 125, "Gifts"),
	}
}

func TestGroupings(t *testing.T) {
	ledger := analyticsLedger()

	assert.Equal(t, map[string]core.Money{
		"Food":      {Cents: 1750},
		"Transport": {Cents: 250},
		"Gifts":     {Cents: 125},
	}, ByCategory(ledger))

	assert.Equal(t, map[string]core.Money{
		"2023-12": {Cents: 1000},
		"2024-01": {Cents: 1000},
		"2024-02": {Cents: 125},
	}, ByMonth(ledger))

	assert.Equal(t, map[string]core.Money{
		"2023": {Cents: 1000},
		"2024": {Cents: 1125},
	}, ByYear(ledger))

	custom := GroupBy(ledger, func(t core.Transaction) string {
		if t.Amount.Cents >= 500 {
			return "large"
		}
		return "small"
	})
	assert.Equal(t, int64(1750), custom["large"].Cents)
	assert.Equal(t, int64(375), custom["small"].Cents)
}

func TestSeriesSorted(t *testing.T) {
	a := Analyze(analyticsLedger())

	require.Len(t, a.ByMonth, 3)
	assert.Equal(t, "2023-12", a.ByMonth[0].Key)
	assert.Equal(t, "2024-02", a.ByMonth[2].Key)

	require.Len(t, a.ByCategory, 3)
	assert.Equal(t, []string{"Food", "Gifts", "Transport"},
		[]string{a.ByCategory[0].Key, a.ByCategory[1].Key, a.ByCategory[2].Key})

	assert.Empty(t, Analyze(nil).ByYear)
}

func TestFilter(t *testing.T) {
	ledger := analyticsLedger()

	tests := []struct {
		name   string
		filter Filter
		want   []int64
	}{
		{"zero filter", Filter{}, []int64{1, 2, 3, 4}},
		{"from inclusive", Filter{From: core.NewDate(2024, 1, 5)}, []int64{2, 3, 4}},
		{"to inclusive", Filter{To: core.NewDate(2024, 1, 20)}, []int64{1, 2, 3}},
		{"range", Filter{From: core.NewDate(2024, 1, 1), To: core.NewDate(2024, 1, 31)}, []int64{2, 3}},
		{"categories", Filter{Categories: []string{"Food", "Gifts"}}, []int64{1, 3, 4}},
		{"range and category", Filter{From: core.NewDate(2024, 1, 1), Categories: []string{"Food"}}, []int64{3}},
		{"empty result", Filter{Categories: []string{"Travel"}}, []int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.filter.Apply(ledger)
			ids := make([]int64, len(got))
			for i, r := range got {
				ids[i] = r.ID
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}
