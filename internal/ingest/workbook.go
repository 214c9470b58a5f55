package ingest

import (
	"errors"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"lojadash/backend/internal/domain"
	"lojadash/backend/internal/sheet"
)

// ErrNoOrderSheet reports a workbook without any orders sheet, i.e. no data
// to aggregate.
var ErrNoOrderSheet = errors.New("no data: orders sheet not found")

var ErrInvalidWorkbook = errors.New("invalid workbook")

const (
	KindOrders    = "orders"
	KindCustomers = "customers"
	KindCatalog   = "catalog"
	KindStats     = "stats"
)

// SheetSource is anything that can list sheets and hand out their raw rows.
type SheetSource interface {
	SheetNames() []string
	Rows(name string) ([][]any, error)
}

// ProgressFunc is called once per sheet kind processed.
type ProgressFunc func(kind string, done int, total int)

type Option func(*Reader)

func WithProgress(fn ProgressFunc) Option {
	return func(r *Reader) {
		r.progress = fn
	}
}

// Workbook is the typed content of one export.
type Workbook struct {
	Customers []domain.DirectoryCustomer
	Orders    []domain.Order
	Catalog   []domain.CatalogItem
	Stats     []domain.StatRow
	// Dropped holds line items after the last TOTAL row.
	Dropped []domain.LineItem
	// Missing lists optional sheet kinds absent from the workbook.
	Missing []string
	// Sheets maps each kind to the sheet name it was read from.
	Sheets map[string]string
}

type Reader struct {
	layout   Layout
	progress ProgressFunc
}

func NewReader(layout Layout, opts ...Option) *Reader {
	r := &Reader{layout: layout}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Read parses an .xlsx stream.
func (r *Reader) Read(src io.Reader) (*Workbook, error) {
	f, err := excelize.OpenReader(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWorkbook, err)
	}
	defer f.Close()
	return r.ReadSource(ExcelSource{File: f})
}

// ReadFile parses an .xlsx file from disk.
func (r *Reader) ReadFile(path string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrInvalidWorkbook, path, err)
	}
	defer f.Close()
	return r.ReadSource(ExcelSource{File: f})
}

func (r *Reader) ReadSource(src SheetSource) (*Workbook, error) {
	names := src.SheetNames()
	if _, ok := pickSheet(names, r.layout.OrderSheets); !ok {
		return nil, ErrNoOrderSheet
	}

	wb := &Workbook{
		Customers: []domain.DirectoryCustomer{},
		Catalog:   []domain.CatalogItem{},
		Stats:     []domain.StatRow{},
		Sheets:    make(map[string]string, 4),
	}

	steps := []struct {
		kind       string
		candidates []string
		apply      func(t *sheet.Table)
	}{
		{KindOrders, r.layout.OrderSheets, func(t *sheet.Table) {
			grouped := GroupOrders(t)
			wb.Orders = grouped.Orders
			wb.Dropped = grouped.Dropped
		}},
		{KindCustomers, r.layout.DirectorySheets, func(t *sheet.Table) {
			wb.Customers = ParseDirectory(t)
		}},
		{KindCatalog, r.layout.CatalogSheets, func(t *sheet.Table) {
			wb.Catalog = ParseCatalog(t, r.layout.Catalog)
		}},
		{KindStats, r.layout.StatsSheets, func(t *sheet.Table) {
			wb.Stats = ParseStats(t)
		}},
	}

	for i, step := range steps {
		name, ok := pickSheet(names, step.candidates)
		if !ok {
			wb.Missing = append(wb.Missing, step.kind)
			step.apply(nil)
		} else {
			rows, err := src.Rows(name)
			if err != nil {
				return nil, fmt.Errorf("read sheet %q: %w", name, err)
			}
			wb.Sheets[step.kind] = name
			step.apply(sheet.Normalize(rows))
		}
		if r.progress != nil {
			r.progress(step.kind, i+1, len(steps))
		}
	}

	return wb, nil
}

// ExcelSource reads sheets from an open workbook. Cells are taken as raw
// values so dates arrive as serial numbers rather than locale-formatted text.
type ExcelSource struct {
	File *excelize.File
}

func (s ExcelSource) SheetNames() []string {
	return s.File.GetSheetList()
}

func (s ExcelSource) Rows(name string) ([][]any, error) {
	rows, err := s.File.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}
	return sheet.FromStrings(rows), nil
}

// MemorySource serves sheets held in memory, in the given order.
type MemorySource struct {
	Names  []string
	Sheets map[string][][]any
}

func (s MemorySource) SheetNames() []string {
	return s.Names
}

func (s MemorySource) Rows(name string) ([][]any, error) {
	rows, ok := s.Sheets[name]
	if !ok {
		return nil, fmt.Errorf("sheet %q not found", name)
	}
	return rows, nil
}
