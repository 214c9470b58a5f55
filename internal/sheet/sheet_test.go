package sheet

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeHeader(t *testing.T) {
	tests := []struct {
		name string
		cell any
		want string
	}{
		{name: "simple", cell: "REF", want: "ref"},
		{name: "spaces collapse", cell: "Nome   Cliente", want: "nome_cliente"},
		{name: "slash stripped", cell: "PVP C/IVA", want: "pvp_civa"},
		{name: "accented letters removed", cell: "Designação", want: "designao"},
		{name: "nil cell", cell: nil, want: ""},
		{name: "empty cell", cell: "", want: ""},
		{name: "symbols only", cell: "€", want: ""},
		{name: "numeric header", cell: 2024.0, want: "2024"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeHeader(tt.cell))
		})
	}
}

func TestNormalizeSkipsBannerAndEmptyRows(t *testing.T) {
	rows := [][]any{
		{"Relatório de vendas"},
		{},
		{"REF", "PVP", "", "Nome Cliente"},
		{"X1", "10", nil, "Ana"},
		{nil, "", nil},
		{"", ""},
		{"TOTAL", "10"},
	}

	table := Normalize(rows)
	require.NotNil(t, table)

	assert.Equal(t, []string{"ref", "pvp", "", "nome_cliente"}, table.Headers)
	require.Len(t, table.Rows, 2)

	first := table.Record(0)
	assert.Equal(t, "X1", first.Text("ref"))
	assert.Equal(t, "Ana", first.Text("nome_cliente"))
	_, hasBlankKey := first[""]
	assert.False(t, hasBlankKey)

	second := table.Record(1)
	assert.Equal(t, "TOTAL", second.Text("ref"))
	assert.Nil(t, second["nome_cliente"])
}

func TestNormalizeKeepsWhitespaceOnlyCells(t *testing.T) {
	table := Normalize([][]any{
		{"a", "b", "c"},
		{" ", nil, nil},
	})
	require.NotNil(t, table)
	assert.Len(t, table.Rows, 1)
}

func TestNormalizeReturnsNilForUnusableSheets(t *testing.T) {
	tests := []struct {
		name string
		rows [][]any
	}{
		{name: "empty", rows: nil},
		{name: "single row", rows: [][]any{{"a", "b", "c"}}},
		{name: "only blank rows", rows: [][]any{{"", nil}, {nil}}},
		{name: "header without data", rows: [][]any{{"a", "b", "c"}, {"", nil}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Nil(t, Normalize(tt.rows))
		})
	}
}

func TestNormalizeNarrowSheetUsesFirstNonEmptyRow(t *testing.T) {
	table := Normalize([][]any{
		{nil, ""},
		{"ref", "pvp"},
		{"X1", "10"},
		{"TOTAL", "10"},
	})
	require.NotNil(t, table)
	assert.Equal(t, []string{"ref", "pvp"}, table.Headers)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "X1", table.Records()[0]["ref"])
}

func TestNormalizePrefersWideHeaderOverBanner(t *testing.T) {
	table := Normalize([][]any{
		{"Encomendas 2024"},
		{"REF", "PVP", "Lucro"},
		{"X1", "10", "4"},
	})
	require.NotNil(t, table)
	assert.Equal(t, []string{"ref", "pvp", "lucro"}, table.Headers)
	assert.Len(t, table.Rows, 1)
}

func TestFromStrings(t *testing.T) {
	rows := FromStrings([][]string{{"a", "b"}, {"c"}})
	require.Len(t, rows, 2)
	assert.Equal(t, []any{"a", "b"}, rows[0])
	assert.Equal(t, []any{"c"}, rows[1])
}

func TestDecimal(t *testing.T) {
	tests := []struct {
		name string
		cell any
		want string
	}{
		{name: "plain string", cell: "12.5", want: "12.5"},
		{name: "currency suffix", cell: "10€", want: "10"},
		{name: "leading space", cell: "  7.25 ", want: "7.25"},
		{name: "float", cell: 3.5, want: "3.5"},
		{name: "int", cell: 4, want: "4"},
		{name: "text", cell: "abc", want: "0"},
		{name: "nil", cell: nil, want: "0"},
		{name: "negative", cell: "-2", want: "-2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want := decimal.RequireFromString(tt.want)
			got := Decimal(tt.cell)
			assert.True(t, want.Equal(got), "want %s got %s", want, got)
		})
	}
}

func TestLooseDecimal(t *testing.T) {
	tests := []struct {
		name string
		cell any
		want string
	}{
		{name: "currency prefix", cell: "€ 19.90", want: "19.9"},
		{name: "numeric", cell: 8.0, want: "8"},
		{name: "garbage", cell: "n/d", want: "0"},
		{name: "double minus", cell: "--5", want: "0"},
		{name: "empty", cell: "", want: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want := decimal.RequireFromString(tt.want)
			got := LooseDecimal(tt.cell)
			assert.True(t, want.Equal(got), "want %s got %s", want, got)
		})
	}
}

func TestInt(t *testing.T) {
	n, ok := Int("3")
	assert.True(t, ok)
	assert.Equal(t, 3, n)

	n, ok = Int(2.9)
	assert.True(t, ok)
	assert.Equal(t, 2, n)

	_, ok = Int("")
	assert.False(t, ok)

	_, ok = Int("two")
	assert.False(t, ok)
}

func TestDate(t *testing.T) {
	march := time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		cell any
		want time.Time
		ok   bool
	}{
		{name: "iso date", cell: "2024-03-15", want: march, ok: true},
		{name: "rfc3339", cell: "2024-03-15T00:00:00Z", want: march, ok: true},
		{name: "portuguese layout", cell: "15/03/2024", want: march, ok: true},
		{name: "excel serial string", cell: "45366", want: march, ok: true},
		{name: "excel serial number", cell: 45366.0, want: march, ok: true},
		{name: "time value", cell: march, want: march, ok: true},
		{name: "empty", cell: "", ok: false},
		{name: "garbage", cell: "ontem", ok: false},
		{name: "nil", cell: nil, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Date(tt.cell)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.True(t, tt.want.Equal(got), "want %s got %s", tt.want, got)
			}
		})
	}
}
