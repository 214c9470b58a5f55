package domain

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Money fields are emitted as JSON numbers, matching the dashboard contract.
	decimal.MarshalJSONWithoutQuotes = true
}

type LineItem struct {
	Reference   string          `json:"ref"`
	UnitPrice   decimal.Decimal `json:"pvp"`
	Profit      decimal.Decimal `json:"lucro"`
	BasePrice   decimal.Decimal `json:"base"`
	Quantity    int             `json:"quantidade"`
	Description string          `json:"designacao,omitempty"`
}

// Order is one sale closed by a TOTAL row. Fields mirror the sheet's
// normalized headers so snapshots round-trip through the external contract.
type Order struct {
	SaleID        string          `json:"id_venda,omitempty"`
	Date          *time.Time      `json:"data_venda,omitempty"`
	PaymentMethod string          `json:"forma_de_pagamento,omitempty"`
	Total         decimal.Decimal `json:"pvp"`
	Profit        decimal.Decimal `json:"lucro"`
	CustomerName  string          `json:"nome_cliente,omitempty"`
	SocialHandle  string          `json:"instagram,omitempty"`
	Location      string          `json:"localidade,omitempty"`
	Weekday       string          `json:"dia_da_semana,omitempty"`
	MonthYear     string          `json:"msano,omitempty"`
	Items         []LineItem      `json:"items"`
	ItemCount     int             `json:"item_count"`
}

func (o Order) HasDate() bool {
	return o.Date != nil && !o.Date.IsZero()
}

type DirectoryCustomer struct {
	Name         string `json:"nome_cliente"`
	SocialHandle string `json:"instagram,omitempty"`
	Address      string `json:"morada,omitempty"`
	Email        string `json:"email_cliente,omitempty"`
	Phone        string `json:"telefone_cliente,omitempty"`
}

type CatalogItem struct {
	Reference   string          `json:"ref"`
	Name        string          `json:"nome_artigo"`
	RetailPrice decimal.Decimal `json:"pvp_civa"`
	Category    string          `json:"categoria,omitempty"`
	StockHint   int             `json:"stock_atual"`
	VATRate     decimal.Decimal `json:"iva"`
	Profit      decimal.Decimal `json:"lucro_meu_faturado"`
	BasePrice   decimal.Decimal `json:"base_price"`
	Supplier    string          `json:"fornecedor,omitempty"`
}

// StatRow is one flat row of the optional stats sheet, keyed by normalized header.
type StatRow map[string]string

type Snapshot struct {
	ID        string              `json:"id"`
	Version   int64               `json:"version"`
	Source    string              `json:"source,omitempty"`
	Customers []DirectoryCustomer `json:"customers"`
	Orders    []Order             `json:"orders"`
	Catalog   []CatalogItem       `json:"products_catalog"`
	Stats     []StatRow           `json:"stats"`
	Timestamp time.Time           `json:"timestamp"`
}

type SnapshotInfo struct {
	ID         string    `json:"id"`
	Version    int64     `json:"version"`
	Source     string    `json:"source,omitempty"`
	OrderCount int       `json:"order_count"`
	Timestamp  time.Time `json:"timestamp"`
}

func (s Snapshot) Info() SnapshotInfo {
	return SnapshotInfo{
		ID:         s.ID,
		Version:    s.Version,
		Source:     s.Source,
		OrderCount: len(s.Orders),
		Timestamp:  s.Timestamp,
	}
}

// FilterSelection is the year/month/day selection of the dashboard. Empty
// fields select everything.
type FilterSelection struct {
	Year  string   `json:"year,omitempty"`
	Month string   `json:"month,omitempty"`
	Days  []string `json:"days,omitempty"`
}

func (f FilterSelection) Active() bool {
	return f.Year != "" || f.Month != "" || len(f.Days) > 0
}

// Key is a canonical representation used for memoization; day order and
// duplicates do not matter.
func (f FilterSelection) Key() string {
	days := make([]string, 0, len(f.Days))
	seen := make(map[string]struct{}, len(f.Days))
	for _, d := range f.Days {
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		days = append(days, d)
	}
	sort.Strings(days)
	return "y=" + f.Year + ";m=" + f.Month + ";d=" + strings.Join(days, ",")
}

type CustomerSummary struct {
	Key        string          `json:"key"`
	Name       string          `json:"name"`
	Instagram  string          `json:"instagram"`
	Address    string          `json:"address"`
	Email      string          `json:"email"`
	Phone      string          `json:"phone"`
	Orders     int             `json:"orders"`
	Revenue    decimal.Decimal `json:"revenue"`
	Percentage float64         `json:"percentage"`
	Active     bool            `json:"active"`
	History    []Order         `json:"history"`
}

type ProductSummary struct {
	Reference string          `json:"ref"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Revenue   decimal.Decimal `json:"revenue"`
	AvgPrice  decimal.Decimal `json:"avgPrice"`
	Stock     int             `json:"stock"`
}

type LocationSales struct {
	Location string          `json:"location"`
	Revenue  decimal.Decimal `json:"revenue"`
	Orders   int             `json:"orders"`
}

type WeekdaySales struct {
	Day        string          `json:"day"`
	Revenue    decimal.Decimal `json:"revenue"`
	Orders     int             `json:"orders"`
	Percentage float64         `json:"percentage"`
}

type DateSales struct {
	Date    string          `json:"date"`
	Count   int             `json:"count"`
	Revenue decimal.Decimal `json:"revenue"`
}

type PaymentSales struct {
	Method     string          `json:"method"`
	Count      int             `json:"count"`
	Revenue    decimal.Decimal `json:"revenue"`
	Percentage float64         `json:"percentage"`
}

type ShippingMetrics struct {
	TotalShippingRevenue decimal.Decimal            `json:"totalShippingRevenue"`
	ShippingCount        int                        `json:"shippingCount"`
	ContinentalCount     int                        `json:"continentalCount"`
	ContinentalRevenue   decimal.Decimal            `json:"continentalRevenue"`
	IlhasCount           int                        `json:"ilhasCount"`
	IlhasRevenue         decimal.Decimal            `json:"ilhasRevenue"`
	MonthlyShipping      map[string]decimal.Decimal `json:"monthlyShipping"`
}

type MonthRevenue struct {
	Month string          `json:"month"`
	Value decimal.Decimal `json:"value"`
}

type NamedValue struct {
	Name  string          `json:"name"`
	Value decimal.Decimal `json:"value"`
}

type AvailableFilters struct {
	Years  []string `json:"years"`
	Months []string `json:"months"`
	Days   []string `json:"days"`
}

type FilterCounts struct {
	Years  map[string]int `json:"years"`
	Months map[string]int `json:"months"`
	Days   map[string]int `json:"days"`
}

type Metrics struct {
	SnapshotVersion    int64             `json:"snapshotVersion"`
	TotalRevenue       decimal.Decimal   `json:"totalRevenue"`
	TotalProfit        decimal.Decimal   `json:"totalProfit"`
	OrderCount         int               `json:"orderCount"`
	AvgTicket          decimal.Decimal   `json:"avgTicket"`
	TopCustomers       []CustomerSummary `json:"topCustomers"`
	AllCustomers       []CustomerSummary `json:"allCustomers"`
	TopProducts        []ProductSummary  `json:"topProducts"`
	SalesByLocation    []LocationSales   `json:"salesByLocation"`
	SalesByDayOfWeek   []WeekdaySales    `json:"salesByDayOfWeek"`
	SalesByDate        []DateSales       `json:"salesByDate"`
	PaymentMethodData  []PaymentSales    `json:"paymentMethodData"`
	ShippingMetrics    ShippingMetrics   `json:"shippingMetrics"`
	RevenueByMonth     []MonthRevenue    `json:"revenueByMonth"`
	RegionalData       []NamedValue      `json:"regionalData"`
	CustomerSalesCount map[string]int    `json:"customerSalesCount"`
	IsFiltered         bool              `json:"isFiltered"`
	AvailableFilters   AvailableFilters  `json:"availableFilters"`
	FilterCounts       FilterCounts      `json:"filterCounts"`
	FilteredOrders     []Order           `json:"filteredOrders"`
}

type ImportReport struct {
	Snapshot      SnapshotInfo `json:"snapshot"`
	Customers     int          `json:"customers"`
	Orders        int          `json:"orders"`
	CatalogItems  int          `json:"catalog_items"`
	StatRows      int          `json:"stat_rows"`
	DroppedItems  int          `json:"dropped_items"`
	MissingSheets []string     `json:"missing_sheets,omitempty"`
}

type Actor struct {
	Subject string `json:"subject"`
	Role    string `json:"role"`
}
