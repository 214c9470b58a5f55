package ingest

import (
	"slices"
	"strings"

	"lojadash/backend/internal/domain"
	"lojadash/backend/internal/sheet"
)

// closingRef marks the row that closes a sale in the orders sheet.
const closingRef = "TOTAL"

// Accumulating is the single state of the grouping machine: the line items
// read since the last closing row.
type Accumulating struct {
	Items []domain.LineItem
}

// Step consumes one record and returns the next state. A closing row yields
// the order it completes; any other row with a reference becomes a line item
// and rows without a reference are ignored.
func (s Accumulating) Step(rec sheet.Record) (Accumulating, *domain.Order) {
	ref := rec.Text("ref")
	if strings.ToUpper(ref) == closingRef {
		order := orderFromRecord(rec, s.Items)
		return Accumulating{}, &order
	}
	if ref == "" {
		return s, nil
	}
	items := append(slices.Clip(s.Items), lineItemFromRecord(rec))
	return Accumulating{Items: items}, nil
}

// Finish ends the stream. Items still pending were never closed by a TOTAL
// row; they are not turned into an order and are returned so callers can
// report them.
func (s Accumulating) Finish() []domain.LineItem {
	return s.Items
}

type GroupResult struct {
	Orders  []domain.Order
	Dropped []domain.LineItem
}

// GroupOrders folds the orders sheet into sales, in sheet row order.
func GroupOrders(t *sheet.Table) GroupResult {
	if t == nil {
		return GroupResult{Orders: []domain.Order{}}
	}

	orders := make([]domain.Order, 0, len(t.Rows)/2)
	state := Accumulating{}
	for _, rec := range t.Records() {
		var order *domain.Order
		state, order = state.Step(rec)
		if order != nil {
			orders = append(orders, *order)
		}
	}

	return GroupResult{Orders: orders, Dropped: state.Finish()}
}

func orderFromRecord(rec sheet.Record, items []domain.LineItem) domain.Order {
	if items == nil {
		items = []domain.LineItem{}
	}
	order := domain.Order{
		SaleID:        rec.TrimmedText("id_venda"),
		PaymentMethod: rec.TrimmedText("forma_de_pagamento"),
		Total:         sheet.Decimal(rec["pvp"]),
		Profit:        sheet.Decimal(rec["lucro"]),
		CustomerName:  rec.TrimmedText("nome_cliente"),
		SocialHandle:  rec.TrimmedText("instagram"),
		Location:      rec.TrimmedText("localidade"),
		Weekday:       rec.TrimmedText("dia_da_semana"),
		MonthYear:     rec.TrimmedText("msano"),
		Items:         items,
		ItemCount:     len(items),
	}
	if date, ok := sheet.Date(rec["data_venda"]); ok {
		order.Date = &date
	}
	return order
}

func lineItemFromRecord(rec sheet.Record) domain.LineItem {
	qty, ok := sheet.Int(rec["quantidade"])
	if !ok || qty == 0 {
		qty = 1
	}
	return domain.LineItem{
		Reference:   strings.TrimSpace(rec.Text("ref")),
		UnitPrice:   sheet.Decimal(rec["pvp"]),
		Profit:      sheet.Decimal(rec["lucro"]),
		BasePrice:   sheet.Decimal(rec["base"]),
		Quantity:    qty,
		Description: rec.TrimmedText("designacao"),
	}
}
