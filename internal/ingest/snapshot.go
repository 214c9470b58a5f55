package ingest

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"lojadash/backend/internal/domain"
	"lojadash/backend/internal/sheet"
)

// snapshotDocument is the JSON snapshot contract with every object kept as a
// record, so cells go through the same coercions as workbook cells.
type snapshotDocument struct {
	ID        any            `json:"id"`
	Source    any            `json:"source"`
	Timestamp any            `json:"timestamp"`
	Customers []sheet.Record `json:"customers"`
	Orders    []sheet.Record `json:"orders"`
	Catalog   []sheet.Record `json:"products_catalog"`
	Stats     []sheet.Record `json:"stats"`
}

// DecodeSnapshot reads a snapshot document. Unknown keys are ignored,
// unparsable money reads as zero and an unreadable data_venda leaves the
// order undated. The version is never taken from the document.
func DecodeSnapshot(r io.Reader) (domain.Snapshot, error) {
	var doc snapshotDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return domain.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}

	snapshot := domain.Snapshot{
		ID:        strings.TrimSpace(sheet.Text(doc.ID)),
		Source:    strings.TrimSpace(sheet.Text(doc.Source)),
		Customers: make([]domain.DirectoryCustomer, 0, len(doc.Customers)),
		Orders:    make([]domain.Order, 0, len(doc.Orders)),
		Catalog:   make([]domain.CatalogItem, 0, len(doc.Catalog)),
		Stats:     make([]domain.StatRow, 0, len(doc.Stats)),
	}
	if ts, ok := sheet.Date(doc.Timestamp); ok {
		snapshot.Timestamp = ts
	}

	for _, rec := range doc.Customers {
		snapshot.Customers = append(snapshot.Customers, directoryCustomerFromRecord(rec))
	}
	for _, rec := range doc.Orders {
		snapshot.Orders = append(snapshot.Orders, orderFromDocument(rec))
	}
	for _, rec := range doc.Catalog {
		snapshot.Catalog = append(snapshot.Catalog, catalogItemFromRecord(rec))
	}
	for _, rec := range doc.Stats {
		snapshot.Stats = append(snapshot.Stats, statRowFromRecord(rec))
	}
	return snapshot, nil
}

func orderFromDocument(rec sheet.Record) domain.Order {
	raw, _ := rec["items"].([]any)
	items := make([]domain.LineItem, 0, len(raw))
	for _, v := range raw {
		if fields, ok := v.(map[string]any); ok {
			items = append(items, lineItemFromRecord(sheet.Record(fields)))
		}
	}

	order := orderFromRecord(rec, items)
	if len(items) == 0 {
		if n, ok := sheet.Int(rec["item_count"]); ok && n > 0 {
			order.ItemCount = n
		}
	}
	return order
}

func catalogItemFromRecord(rec sheet.Record) domain.CatalogItem {
	stock, _ := sheet.Int(rec["stock_atual"])
	return domain.CatalogItem{
		Reference:   rec.TrimmedText("ref"),
		Name:        rec.TrimmedText("nome_artigo"),
		RetailPrice: sheet.LooseDecimal(rec["pvp_civa"]),
		Category:    rec.TrimmedText("categoria"),
		StockHint:   stock,
		VATRate:     sheet.LooseDecimal(rec["iva"]),
		Profit:      sheet.LooseDecimal(rec["lucro_meu_faturado"]),
		BasePrice:   sheet.LooseDecimal(rec["base_price"]),
		Supplier:    rec.TrimmedText("fornecedor"),
	}
}
