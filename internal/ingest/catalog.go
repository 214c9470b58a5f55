package ingest

import (
	"strings"

	"github.com/shopspring/decimal"

	"lojadash/backend/internal/domain"
	"lojadash/backend/internal/sheet"
)

const headerEchoRef = "REF"

// ParseCatalog reads the pricing sheet by column position. Rows without a
// reference, and repeated header rows, are skipped.
func ParseCatalog(t *sheet.Table, cols CatalogColumns) []domain.CatalogItem {
	if t == nil {
		return []domain.CatalogItem{}
	}

	items := make([]domain.CatalogItem, 0, len(t.Rows))
	for i := range t.Rows {
		ref := strings.TrimSpace(sheet.Text(t.Cell(i, cols.Reference)))
		if ref == "" || strings.ToUpper(ref) == headerEchoRef {
			continue
		}

		stock, _ := sheet.Int(t.Cell(i, cols.Stock))
		items = append(items, domain.CatalogItem{
			Reference:   ref,
			Name:        strings.TrimSpace(sheet.Text(t.Cell(i, cols.Name))),
			RetailPrice: retailPrice(ref, t.Cell(i, cols.Price), t.Cell(i, cols.PriceSuffixS)),
			Category:    strings.TrimSpace(sheet.Text(t.Cell(i, cols.Category))),
			StockHint:   stock,
			VATRate:     sheet.LooseDecimal(t.Cell(i, cols.VAT)),
			Profit:      sheet.LooseDecimal(t.Cell(i, cols.Profit)),
			BasePrice:   sheet.LooseDecimal(t.Cell(i, cols.BasePrice)),
			Supplier:    strings.TrimSpace(sheet.Text(t.Cell(i, cols.Supplier))),
		})
	}
	return items
}

// retailPrice picks the price column by reference suffix: references ending
// in "S" are priced in the suffix column. An empty or zero preferred cell
// falls back to the other column.
func retailPrice(ref string, standard any, suffixS any) decimal.Decimal {
	preferred, fallback := standard, suffixS
	if strings.HasSuffix(strings.ToUpper(ref), "S") {
		preferred, fallback = suffixS, standard
	}
	if price := sheet.LooseDecimal(preferred); !price.IsZero() {
		return price
	}
	return sheet.LooseDecimal(fallback)
}
