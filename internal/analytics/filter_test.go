package analytics

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lojadash/backend/internal/domain"
)

func dateOf(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 10, 30, 0, 0, time.UTC)
	return &t
}

// hundredOrders spreads 100 orders over 2023 and 2024; exactly 8 fall in
// March 2024 and 4 are undated.
func hundredOrders() []domain.Order {
	orders := make([]domain.Order, 0, 100)
	for i := 0; i < 8; i++ {
		orders = append(orders, domain.Order{Total: decimal.NewFromInt(10), Date: dateOf(2024, time.March, 1+i%3)})
	}
	for i := 0; i < 40; i++ {
		orders = append(orders, domain.Order{Total: decimal.NewFromInt(5), Date: dateOf(2024, time.Month(4+i%9), 10)})
	}
	for i := 0; i < 48; i++ {
		orders = append(orders, domain.Order{Total: decimal.NewFromInt(7), Date: dateOf(2023, time.Month(1+i%12), 20)})
	}
	for i := 0; i < 4; i++ {
		orders = append(orders, domain.Order{Total: decimal.NewFromInt(1)})
	}
	return orders
}

func TestApplyFilterYearAndMonth(t *testing.T) {
	all := hundredOrders()
	require.Len(t, all, 100)

	sel := domain.FilterSelection{Year: "2024", Month: "03"}
	filtered := ApplyFilter(all, sel)
	assert.Len(t, filtered, 8)

	metrics, err := Compute(Input{Orders: all, Selection: sel})
	require.NoError(t, err)
	assert.True(t, metrics.IsFiltered)
	assert.Len(t, metrics.FilteredOrders, 8)
	assert.Equal(t, 8, metrics.OrderCount)
	assert.True(t, decimal.NewFromInt(80).Equal(metrics.TotalRevenue))
}

func TestApplyFilterInactiveReturnsEverything(t *testing.T) {
	all := hundredOrders()
	filtered := ApplyFilter(all, domain.FilterSelection{})
	assert.Len(t, filtered, 100)

	metrics, err := Compute(Input{Orders: all})
	require.NoError(t, err)
	assert.False(t, metrics.IsFiltered)
	assert.Equal(t, 100, metrics.OrderCount)
}

func TestApplyFilterIsMonotonic(t *testing.T) {
	all := hundredOrders()
	selections := []domain.FilterSelection{
		{},
		{Year: "2024"},
		{Year: "2024", Month: "03"},
		{Year: "2024", Month: "03", Days: []string{"01", "02"}},
		{Year: "2024", Month: "03", Days: []string{"01"}},
	}

	previous := len(all)
	for _, sel := range selections {
		got := len(ApplyFilter(all, sel))
		assert.LessOrEqual(t, got, previous, "selection %+v", sel)
		previous = got
	}
	assert.Equal(t, 3, previous)
}

func TestApplyFilterDaysOnlyExcludesUndated(t *testing.T) {
	all := hundredOrders()
	filtered := ApplyFilter(all, domain.FilterSelection{Days: []string{"20"}})
	assert.Len(t, filtered, 48)
	for _, o := range filtered {
		assert.True(t, o.HasDate())
	}
}

func TestBuildFilterContext(t *testing.T) {
	all := hundredOrders()

	t.Run("no selection", func(t *testing.T) {
		fc := BuildFilterContext(all, domain.FilterSelection{})
		assert.False(t, fc.IsFiltered)
		assert.Equal(t, []string{"2024", "2023"}, fc.Available.Years)
		assert.Equal(t, 48, fc.Counts.Years["2024"])
		assert.Equal(t, 48, fc.Counts.Years["2023"])
		assert.Empty(t, fc.Available.Months)
		assert.Empty(t, fc.Available.Days)
	})

	t.Run("year selected", func(t *testing.T) {
		fc := BuildFilterContext(all, domain.FilterSelection{Year: "2024"})
		assert.True(t, fc.IsFiltered)
		assert.Equal(t, []string{"03", "04", "05", "06", "07", "08", "09", "10", "11", "12"}, fc.Available.Months)
		assert.Equal(t, 8, fc.Counts.Months["03"])
		assert.Empty(t, fc.Available.Days)
	})

	t.Run("year and month selected", func(t *testing.T) {
		fc := BuildFilterContext(all, domain.FilterSelection{Year: "2024", Month: "03", Days: []string{"01"}})
		assert.Equal(t, []string{"01", "02", "03"}, fc.Available.Days)
		assert.Equal(t, 3, fc.Counts.Days["01"])
		assert.Equal(t, 3, fc.Counts.Days["02"])
		assert.Equal(t, 2, fc.Counts.Days["03"])
		assert.Equal(t, []string{"2024", "2023"}, fc.Available.Years, "years ignore the selection")
	})

	t.Run("month without year", func(t *testing.T) {
		fc := BuildFilterContext(all, domain.FilterSelection{Month: "03"})
		assert.Empty(t, fc.Available.Months)
		assert.Empty(t, fc.Available.Days)
	})
}

func TestValidateSelection(t *testing.T) {
	tests := []struct {
		name  string
		sel   domain.FilterSelection
		valid bool
	}{
		{name: "empty", sel: domain.FilterSelection{}, valid: true},
		{name: "full", sel: domain.FilterSelection{Year: "2024", Month: "12", Days: []string{"01", "31"}}, valid: true},
		{name: "short year", sel: domain.FilterSelection{Year: "24"}, valid: false},
		{name: "single digit month", sel: domain.FilterSelection{Month: "3"}, valid: false},
		{name: "month out of range", sel: domain.FilterSelection{Month: "13"}, valid: false},
		{name: "day zero", sel: domain.FilterSelection{Days: []string{"00"}}, valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSelection(tt.sel)
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidSelection)
		})
	}
}

func TestComputeRejectsInvalidSelection(t *testing.T) {
	_, err := Compute(Input{Orders: hundredOrders(), Selection: domain.FilterSelection{Month: "3"}})
	assert.ErrorIs(t, err, ErrInvalidSelection)
}
