package analytics

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"lojadash/backend/internal/domain"
)

var ErrInvalidSelection = errors.New("invalid filter selection")

// FilterContext describes which filter values are still selectable given the
// current selection, and how many orders each would match.
type FilterContext struct {
	IsFiltered bool
	Available  domain.AvailableFilters
	Counts     domain.FilterCounts
}

type dateParts struct {
	year  string
	month string
	day   string
}

func partsOf(o domain.Order) (dateParts, bool) {
	if !o.HasDate() {
		return dateParts{}, false
	}
	t := o.Date.UTC()
	return dateParts{
		year:  fmt.Sprintf("%04d", t.Year()),
		month: fmt.Sprintf("%02d", int(t.Month())),
		day:   fmt.Sprintf("%02d", t.Day()),
	}, true
}

// ValidateSelection rejects selections that can never match a date: the year
// must have four digits, month and days two digits within range.
func ValidateSelection(sel domain.FilterSelection) error {
	if sel.Year != "" && !isDigits(sel.Year, 4) {
		return fmt.Errorf("%w: year %q", ErrInvalidSelection, sel.Year)
	}
	if sel.Month != "" && !isTwoDigitInRange(sel.Month, 1, 12) {
		return fmt.Errorf("%w: month %q", ErrInvalidSelection, sel.Month)
	}
	for _, day := range sel.Days {
		if !isTwoDigitInRange(day, 1, 31) {
			return fmt.Errorf("%w: day %q", ErrInvalidSelection, day)
		}
	}
	return nil
}

// Matches reports whether an order passes the selection. Any active filter
// excludes undated orders.
func Matches(o domain.Order, sel domain.FilterSelection) bool {
	if !sel.Active() {
		return true
	}
	p, ok := partsOf(o)
	if !ok {
		return false
	}
	if sel.Year != "" && p.year != sel.Year {
		return false
	}
	if sel.Month != "" && p.month != sel.Month {
		return false
	}
	if len(sel.Days) > 0 && !contains(sel.Days, p.day) {
		return false
	}
	return true
}

// ApplyFilter returns the orders matching sel, in their original order. An
// inactive selection returns the input as is.
func ApplyFilter(orders []domain.Order, sel domain.FilterSelection) []domain.Order {
	if !sel.Active() {
		return orders
	}
	out := make([]domain.Order, 0, len(orders))
	for _, o := range orders {
		if Matches(o, sel) {
			out = append(out, o)
		}
	}
	return out
}

// BuildFilterContext always works on the unfiltered order set. Years come
// from every dated order, months only from the selected year and days only
// from the selected year and month.
func BuildFilterContext(all []domain.Order, sel domain.FilterSelection) FilterContext {
	years := map[string]int{}
	months := map[string]int{}
	days := map[string]int{}

	for _, o := range all {
		p, ok := partsOf(o)
		if !ok {
			continue
		}
		years[p.year]++
		if sel.Year == "" || p.year != sel.Year {
			continue
		}
		months[p.month]++
		if sel.Month != "" && p.month == sel.Month {
			days[p.day]++
		}
	}

	yearList := keysOf(years)
	sort.Sort(sort.Reverse(sort.StringSlice(yearList)))
	monthList := keysOf(months)
	sort.Strings(monthList)
	dayList := keysOf(days)
	sort.Strings(dayList)

	return FilterContext{
		IsFiltered: sel.Active(),
		Available: domain.AvailableFilters{
			Years:  yearList,
			Months: monthList,
			Days:   dayList,
		},
		Counts: domain.FilterCounts{
			Years:  years,
			Months: months,
			Days:   days,
		},
	}
}

func keysOf(m map[string]int) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}

func isDigits(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isTwoDigitInRange(s string, lo int, hi int) bool {
	if !isDigits(s, 2) {
		return false
	}
	n, _ := strconv.Atoi(s)
	return n >= lo && n <= hi
}
