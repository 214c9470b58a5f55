package ingest

import (
	"strings"

	"lojadash/backend/internal/domain"
	"lojadash/backend/internal/sheet"
)

// ParseDirectory maps the customer directory sheet row by row.
func ParseDirectory(t *sheet.Table) []domain.DirectoryCustomer {
	records := t.Records()
	customers := make([]domain.DirectoryCustomer, 0, len(records))
	for _, rec := range records {
		customers = append(customers, directoryCustomerFromRecord(rec))
	}
	return customers
}

func directoryCustomerFromRecord(rec sheet.Record) domain.DirectoryCustomer {
	return domain.DirectoryCustomer{
		Name:         rec.TrimmedText("nome_cliente"),
		SocialHandle: rec.TrimmedText("instagram"),
		Address:      rec.TrimmedText("morada"),
		Email:        rec.TrimmedText("email_cliente"),
		Phone:        rec.TrimmedText("telefone_cliente"),
	}
}

// ParseStats keeps the stats sheet as flat text rows.
func ParseStats(t *sheet.Table) []domain.StatRow {
	records := t.Records()
	rows := make([]domain.StatRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, statRowFromRecord(rec))
	}
	return rows
}

func statRowFromRecord(rec sheet.Record) domain.StatRow {
	row := make(domain.StatRow, len(rec))
	for key, cell := range rec {
		row[key] = strings.TrimSpace(sheet.Text(cell))
	}
	return row
}
