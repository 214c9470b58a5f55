package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"lojadash/backend/internal/domain"
)

type printer struct {
	out    io.Writer
	header *color.Color
	good   *color.Color
	notice *color.Color
}

func newPrinter(out io.Writer, noColor bool) *printer {
	p := &printer{
		out:    out,
		header: color.New(color.FgCyan, color.Bold),
		good:   color.New(color.FgGreen),
		notice: color.New(color.FgYellow),
	}
	if noColor {
		p.header.DisableColor()
		p.good.DisableColor()
		p.notice.DisableColor()
	}
	return p
}

func (p *printer) section(title string) {
	p.header.Fprintf(p.out, "\n%s\n%s\n", title, strings.Repeat("-", len(title)))
}

func (p *printer) success(format string, args ...any) {
	p.good.Fprintf(p.out, "✓ "+format+"\n", args...)
}

func (p *printer) info(format string, args ...any) {
	fmt.Fprintf(p.out, "  "+format+"\n", args...)
}

func (p *printer) warn(format string, args ...any) {
	p.notice.Fprintf(p.out, "! "+format+"\n", args...)
}

func (p *printer) printMetrics(report domain.ImportReport, m domain.Metrics) {
	p.section("Resumo")
	p.info("%-14s %s", "Fonte", report.Snapshot.Source)
	p.info("%-14s %d", "Encomendas", m.OrderCount)
	p.info("%-14s %s €", "Receita", m.TotalRevenue.StringFixed(2))
	p.info("%-14s %s €", "Lucro", m.TotalProfit.StringFixed(2))
	p.info("%-14s %s €", "Ticket médio", m.AvgTicket.StringFixed(2))
	if report.DroppedItems > 0 {
		p.warn("%d line items after the last TOTAL row were dropped", report.DroppedItems)
	}

	p.section("Top clientes")
	for i, c := range m.TopCustomers {
		p.info("%d. %-24s %10s € %3d enc. %5.1f%%", i+1, c.Name, c.Revenue.StringFixed(2), c.Orders, c.Percentage)
	}

	p.section("Top produtos")
	for i, prod := range m.TopProducts {
		p.info("%d. %-10s %-20s %4d un. %10s €", i+1, prod.Reference, prod.Name, prod.Quantity, prod.Revenue.StringFixed(2))
	}

	p.section("Pagamentos")
	for _, pay := range m.PaymentMethodData {
		p.info("%-14s %10s € %3d %5.1f%%", pay.Method, pay.Revenue.StringFixed(2), pay.Count, pay.Percentage)
	}

	if m.ShippingMetrics.ShippingCount > 0 {
		p.section("Portes")
		p.info("%-14s %d (%s €)", "Continente", m.ShippingMetrics.ContinentalCount, m.ShippingMetrics.ContinentalRevenue.StringFixed(2))
		p.info("%-14s %d (%s €)", "Ilhas", m.ShippingMetrics.IlhasCount, m.ShippingMetrics.IlhasRevenue.StringFixed(2))
	}
}
