package ingest

import (
	"strings"

	"lojadash/backend/internal/textnorm"
)

// CatalogColumns holds the zero-based column positions of the pricing sheet.
// Its header row cannot be trusted, so fields are read by position.
type CatalogColumns struct {
	Reference    int `yaml:"reference"`
	Name         int `yaml:"name"`
	Category     int `yaml:"category"`
	Stock        int `yaml:"stock"`
	BasePrice    int `yaml:"base_price"`
	Price        int `yaml:"price"`
	PriceSuffixS int `yaml:"price_suffix_s"`
	VAT          int `yaml:"vat"`
	Profit       int `yaml:"profit"`
	Supplier     int `yaml:"supplier"`
}

func DefaultCatalogColumns() CatalogColumns {
	return CatalogColumns{
		Reference:    1,
		Name:         2,
		Category:     3,
		Stock:        4,
		BasePrice:    5,
		Price:        6,
		PriceSuffixS: 7,
		VAT:          8,
		Profit:       9,
		Supplier:     10,
	}
}

// Layout names the sheets of a workbook export. For each list the first
// sheet present in the workbook is used.
type Layout struct {
	OrderSheets     []string       `yaml:"order_sheets"`
	DirectorySheets []string       `yaml:"directory_sheets"`
	CatalogSheets   []string       `yaml:"catalog_sheets"`
	StatsSheets     []string       `yaml:"stats_sheets"`
	Catalog         CatalogColumns `yaml:"catalog_columns"`
}

func DefaultLayout() Layout {
	return Layout{
		OrderSheets:     []string{"Encomendas", "Orders"},
		DirectorySheets: []string{"BD Clientes"},
		CatalogSheets:   []string{"VALORES ORIGINAL (4)", "VALORES ORIGINAL", "Valores Original", "STOCK MASTER"},
		StatsSheets:     []string{"Estatisticas"},
		Catalog:         DefaultCatalogColumns(),
	}
}

// pickSheet returns the first candidate present in available. Names are
// compared case-insensitively and ignoring accents, exact matches first.
func pickSheet(available []string, candidates []string) (string, bool) {
	for _, candidate := range candidates {
		for _, name := range available {
			if name == candidate {
				return name, true
			}
		}
	}
	for _, candidate := range candidates {
		want := foldName(candidate)
		for _, name := range available {
			if foldName(name) == want {
				return name, true
			}
		}
	}
	return "", false
}

func foldName(name string) string {
	return strings.ToUpper(strings.TrimSpace(textnorm.StripAccents(name)))
}
