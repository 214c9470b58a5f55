// Package analytics folds orders and the customer directory into dashboard
// metrics. Every call is an independent pass over its inputs; nothing is
// cached or shared between calls.
package analytics

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"lojadash/backend/internal/domain"
	"lojadash/backend/internal/identity"
	"lojadash/backend/internal/textnorm"
)

const (
	unknownLocation = "Outros"
	unknownProduct  = "Unknown Product"
	unnamedCustomer = "Sem Nome"
	missingValue    = "N/A"
	noContact       = "-"
	mbWayLabel      = "MB Way"

	topCustomersLimit = 5
	topProductsLimit  = 10
	topLocationsLimit = 10
	regionalLimit     = 8
)

const (
	shippingContinental = "CONTINENTAL"
	shippingIslands     = "ILHAS"
)

var shippingRefs = map[string]struct{}{
	shippingContinental: {},
	shippingIslands:     {},
	"PORTES":            {},
	"ESTRANGEIRO":       {},
}

var weekdayOrder = []string{
	"SEGUNDA-FEIRA",
	"TERÇA-FEIRA",
	"QUARTA-FEIRA",
	"QUINTA-FEIRA",
	"SEXTA-FEIRA",
	"SÁBADO",
	"DOMINGO",
}

var weekdayByKey = func() map[string]string {
	m := make(map[string]string, len(weekdayOrder))
	for _, day := range weekdayOrder {
		m[textnorm.Key(day)] = day
	}
	return m
}()

var hundred = decimal.NewFromInt(100)

// Input is everything one metrics computation needs. Orders is the full,
// unfiltered order set.
type Input struct {
	Orders    []domain.Order
	Directory []domain.DirectoryCustomer
	Catalog   []domain.CatalogItem
	Selection domain.FilterSelection
}

// Compute filters the orders, aggregates the remainder and attaches the
// filter context derived from the full set.
func Compute(in Input) (domain.Metrics, error) {
	if err := ValidateSelection(in.Selection); err != nil {
		return domain.Metrics{}, err
	}

	filtered := ApplyFilter(in.Orders, in.Selection)
	metrics := Aggregate(filtered, in.Directory, in.Catalog)

	fc := BuildFilterContext(in.Orders, in.Selection)
	metrics.IsFiltered = fc.IsFiltered
	metrics.AvailableFilters = fc.Available
	metrics.FilterCounts = fc.Counts
	metrics.FilteredOrders = filtered
	if metrics.FilteredOrders == nil {
		metrics.FilteredOrders = []domain.Order{}
	}
	return metrics, nil
}

type bucket struct {
	revenue decimal.Decimal
	count   int
}

// orderedBuckets keeps group-by totals in first-seen order.
type orderedBuckets struct {
	keys []string
	data map[string]*bucket
}

func newOrderedBuckets() *orderedBuckets {
	return &orderedBuckets{data: make(map[string]*bucket)}
}

func (b *orderedBuckets) add(key string, revenue decimal.Decimal) {
	entry, ok := b.data[key]
	if !ok {
		entry = &bucket{}
		b.data[key] = entry
		b.keys = append(b.keys, key)
	}
	entry.revenue = entry.revenue.Add(revenue)
	entry.count++
}

type customerAcc struct {
	key     identity.Key
	revenue decimal.Decimal
	orders  int
	history []domain.Order
}

type productAcc struct {
	ref      string
	name     string
	quantity int
	revenue  decimal.Decimal
}

// fold carries the accumulators of one aggregation pass.
type fold struct {
	totalRevenue decimal.Decimal
	totalProfit  decimal.Decimal

	customers     map[identity.Key]*customerAcc
	customerOrder []identity.Key
	salesCount    map[string]int

	locations *orderedBuckets
	weekdays  *orderedBuckets
	dates     *orderedBuckets
	payments  *orderedBuckets
	months    *orderedBuckets

	products     map[string]*productAcc
	productOrder []string

	shipping domain.ShippingMetrics
}

func newFold() *fold {
	return &fold{
		customers:  make(map[identity.Key]*customerAcc),
		salesCount: make(map[string]int),
		locations:  newOrderedBuckets(),
		weekdays:   newOrderedBuckets(),
		dates:      newOrderedBuckets(),
		payments:   newOrderedBuckets(),
		months:     newOrderedBuckets(),
		products:   make(map[string]*productAcc),
		shipping: domain.ShippingMetrics{
			MonthlyShipping: make(map[string]decimal.Decimal),
		},
	}
}

// Aggregate computes every breakdown over orders in a single pass, then
// builds the customer roster including directory customers without sales.
func Aggregate(orders []domain.Order, directory []domain.DirectoryCustomer, catalog []domain.CatalogItem) domain.Metrics {
	dir := identity.NewDirectory(directory)
	f := newFold()
	for _, o := range orders {
		f.addOrder(o)
	}

	metrics := domain.Metrics{
		TotalRevenue:       f.totalRevenue,
		TotalProfit:        f.totalProfit,
		OrderCount:         len(orders),
		AvgTicket:          decimal.Zero,
		SalesByLocation:    f.locationSales(topLocationsLimit),
		SalesByDayOfWeek:   f.weekdaySales(),
		SalesByDate:        f.dateSales(),
		PaymentMethodData:  f.paymentSales(),
		ShippingMetrics:    f.shipping,
		RevenueByMonth:     f.monthRevenue(),
		RegionalData:       f.regional(regionalLimit),
		TopProducts:        f.topProducts(catalog, topProductsLimit),
		CustomerSalesCount: f.salesCount,
	}
	if len(orders) > 0 {
		metrics.AvgTicket = f.totalRevenue.Div(decimal.NewFromInt(int64(len(orders))))
	}

	roster := f.roster(dir)
	metrics.AllCustomers = roster
	metrics.TopCustomers = append([]domain.CustomerSummary(nil), roster[:min(topCustomersLimit, len(roster))]...)
	return metrics
}

func (f *fold) addOrder(o domain.Order) {
	pvp := o.Total
	f.totalRevenue = f.totalRevenue.Add(pvp)
	f.totalProfit = f.totalProfit.Add(o.Profit)

	key := identity.Resolve(o.CustomerName, o.SocialHandle)
	acc, ok := f.customers[key]
	if !ok {
		acc = &customerAcc{key: key}
		f.customers[key] = acc
		f.customerOrder = append(f.customerOrder, key)
	}
	acc.revenue = acc.revenue.Add(pvp)
	acc.orders++
	acc.history = append(acc.history, o)
	f.salesCount[string(key)]++

	f.locations.add(orDefault(o.Location, unknownLocation), pvp)
	f.weekdays.add(canonicalWeekday(o.Weekday), pvp)
	f.months.add(orDefault(o.MonthYear, missingValue), pvp)
	if o.HasDate() {
		f.dates.add(o.Date.UTC().Format("2006-01-02"), pvp)
	}
	if method := PaymentLabel(o.PaymentMethod); method != missingValue {
		f.payments.add(method, pvp)
	}

	shippingMonth := missingValue
	if o.HasDate() {
		shippingMonth = o.Date.UTC().Format("2006-01")
	}
	for _, item := range o.Items {
		f.addItem(item, shippingMonth)
	}
}

func (f *fold) addItem(item domain.LineItem, shippingMonth string) {
	ref := strings.ToUpper(item.Reference)
	if _, isShipping := shippingRefs[ref]; isShipping {
		s := &f.shipping
		s.TotalShippingRevenue = s.TotalShippingRevenue.Add(item.UnitPrice)
		s.ShippingCount++
		s.MonthlyShipping[shippingMonth] = s.MonthlyShipping[shippingMonth].Add(item.UnitPrice)
		switch ref {
		case shippingContinental:
			s.ContinentalCount++
			s.ContinentalRevenue = s.ContinentalRevenue.Add(item.UnitPrice)
		case shippingIslands:
			s.IlhasCount++
			s.IlhasRevenue = s.IlhasRevenue.Add(item.UnitPrice)
		}
		return
	}

	if item.Reference == "" {
		return
	}
	p, ok := f.products[item.Reference]
	if !ok {
		p = &productAcc{ref: item.Reference, name: orDefault(item.Description, unknownProduct)}
		f.products[item.Reference] = p
		f.productOrder = append(f.productOrder, item.Reference)
	}
	qty := item.Quantity
	if qty == 0 {
		qty = 1
	}
	p.quantity += qty
	p.revenue = p.revenue.Add(item.UnitPrice)
}

// roster lists customers with sales in first-seen order followed by
// directory customers whose key no order produced, sorted by revenue.
func (f *fold) roster(dir identity.Directory) []domain.CustomerSummary {
	out := make([]domain.CustomerSummary, 0, len(f.customerOrder)+dir.Len())
	seen := make(map[identity.Key]struct{}, len(f.customerOrder)+dir.Len())

	for _, key := range f.customerOrder {
		acc := f.customers[key]
		seen[key] = struct{}{}

		first := acc.history[0]
		entry, found := dir.Lookup(key)

		instagram := missingValue
		if key.IsHandle() {
			instagram = first.SocialHandle
		}
		if found && entry.SocialHandle != "" {
			instagram = entry.SocialHandle
		}

		out = append(out, domain.CustomerSummary{
			Key:        string(key),
			Name:       firstNonEmpty(entry.Name, first.CustomerName, unnamedCustomer),
			Instagram:  orDefault(instagram, noContact),
			Address:    firstNonEmpty(entry.Address, first.Location),
			Email:      orDefault(entry.Email, noContact),
			Phone:      orDefault(entry.Phone, noContact),
			Orders:     acc.orders,
			Revenue:    acc.revenue,
			Percentage: percentage(acc.revenue, f.totalRevenue),
			Active:     true,
			History:    acc.history,
		})
	}

	for _, e := range dir.Entries() {
		if _, ok := seen[e.Key]; ok {
			continue
		}
		seen[e.Key] = struct{}{}
		out = append(out, domain.CustomerSummary{
			Key:       string(e.Key),
			Name:      orDefault(e.Customer.Name, unnamedCustomer),
			Instagram: orDefault(e.Customer.SocialHandle, noContact),
			Address:   e.Customer.Address,
			Email:     orDefault(e.Customer.Email, noContact),
			Phone:     orDefault(e.Customer.Phone, noContact),
			Revenue:   decimal.Zero,
			History:   []domain.Order{},
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Revenue.GreaterThan(out[j].Revenue)
	})
	return out
}

func (f *fold) topProducts(catalog []domain.CatalogItem, limit int) []domain.ProductSummary {
	stock := make(map[string]int, len(catalog))
	for _, item := range catalog {
		if _, ok := stock[item.Reference]; !ok {
			stock[item.Reference] = item.StockHint
		}
	}

	out := make([]domain.ProductSummary, 0, len(f.productOrder))
	for _, ref := range f.productOrder {
		p := f.products[ref]
		avg := decimal.Zero
		if p.quantity != 0 {
			avg = p.revenue.Div(decimal.NewFromInt(int64(p.quantity)))
		}
		out = append(out, domain.ProductSummary{
			Reference: p.ref,
			Name:      p.name,
			Quantity:  p.quantity,
			Revenue:   p.revenue,
			AvgPrice:  avg,
			Stock:     stock[p.ref],
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Quantity > out[j].Quantity
	})
	return out[:min(limit, len(out))]
}

func (f *fold) locationSales(limit int) []domain.LocationSales {
	out := make([]domain.LocationSales, 0, len(f.locations.keys))
	for _, key := range f.locations.keys {
		b := f.locations.data[key]
		out = append(out, domain.LocationSales{Location: key, Revenue: b.revenue, Orders: b.count})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Revenue.GreaterThan(out[j].Revenue)
	})
	return out[:min(limit, len(out))]
}

func (f *fold) regional(limit int) []domain.NamedValue {
	out := make([]domain.NamedValue, 0, len(f.locations.keys))
	for _, key := range f.locations.keys {
		out = append(out, domain.NamedValue{Name: key, Value: f.locations.data[key].revenue})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Value.GreaterThan(out[j].Value)
	})
	return out[:min(limit, len(out))]
}

func (f *fold) weekdaySales() []domain.WeekdaySales {
	out := make([]domain.WeekdaySales, 0, len(weekdayOrder))
	for _, day := range weekdayOrder {
		b, ok := f.weekdays.data[day]
		if !ok || b.revenue.IsZero() {
			continue
		}
		out = append(out, domain.WeekdaySales{
			Day:        day,
			Revenue:    b.revenue,
			Orders:     b.count,
			Percentage: percentage(b.revenue, f.totalRevenue),
		})
	}
	return out
}

func (f *fold) dateSales() []domain.DateSales {
	out := make([]domain.DateSales, 0, len(f.dates.keys))
	for _, key := range f.dates.keys {
		b := f.dates.data[key]
		out = append(out, domain.DateSales{Date: key, Count: b.count, Revenue: b.revenue})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date < out[j].Date
	})
	return out
}

func (f *fold) paymentSales() []domain.PaymentSales {
	out := make([]domain.PaymentSales, 0, len(f.payments.keys))
	for _, key := range f.payments.keys {
		b := f.payments.data[key]
		out = append(out, domain.PaymentSales{
			Method:     key,
			Count:      b.count,
			Revenue:    b.revenue,
			Percentage: percentage(b.revenue, f.totalRevenue),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Revenue.GreaterThan(out[j].Revenue)
	})
	return out
}

func (f *fold) monthRevenue() []domain.MonthRevenue {
	out := make([]domain.MonthRevenue, 0, len(f.months.keys))
	for _, key := range f.months.keys {
		out = append(out, domain.MonthRevenue{Month: key, Value: f.months.data[key].revenue})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Month < out[j].Month
	})
	return out
}

// PaymentLabel trims a payment method and maps every spelling of MB WAY to
// one label. Blank methods become "N/A".
func PaymentLabel(raw string) string {
	method := strings.TrimSpace(raw)
	if method == "" {
		return missingValue
	}
	if textnorm.Key(method) == "MBWAY" {
		return mbWayLabel
	}
	return method
}

// canonicalWeekday maps a weekday label onto the canonical spelling,
// ignoring case and accents. Unknown labels are kept upper-cased.
func canonicalWeekday(raw string) string {
	label := strings.TrimSpace(raw)
	if label == "" {
		return missingValue
	}
	if day, ok := weekdayByKey[textnorm.Key(label)]; ok {
		return day
	}
	return strings.ToUpper(label)
}

func percentage(part decimal.Decimal, total decimal.Decimal) float64 {
	if total.IsZero() {
		return 0
	}
	return part.Div(total).Mul(hundred).InexactFloat64()
}

func orDefault(value string, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
