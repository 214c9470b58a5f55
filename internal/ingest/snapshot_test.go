package ingest

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lojadash/backend/internal/domain"
)

func TestDecodeSnapshotReadsCellsLeniently(t *testing.T) {
	doc := `{
		"id": 42,
		"version": 9,
		"source": " export.json ",
		"orders": [
			{"ref": "TOTAL", "pvp": "10€", "lucro": "", "data_venda": "", "nome_cliente": " Ana ", "extra": [1, 2],
			 "items": [{"ref": "X1", "pvp": "abc", "quantidade": ""}, "not an object"]},
			{"pvp": 5.25, "data_venda": "15/03/2024", "item_count": 3}
		],
		"customers": [{"nome_cliente": "Ana", "instagram": "@ana"}],
		"products_catalog": [{"ref": "AB12S", "pvp_civa": "12,5 €", "stock_atual": 4.0}],
		"stats": [{"mes": "Março", "total": 20}]
	}`

	snapshot, err := DecodeSnapshot(strings.NewReader(doc))
	require.NoError(t, err)

	assert.Equal(t, "42", snapshot.ID)
	assert.Equal(t, int64(0), snapshot.Version)
	assert.Equal(t, "export.json", snapshot.Source)
	assert.True(t, snapshot.Timestamp.IsZero())

	require.Len(t, snapshot.Orders, 2)
	first := snapshot.Orders[0]
	assert.True(t, decimal.NewFromInt(10).Equal(first.Total))
	assert.True(t, first.Profit.IsZero())
	assert.False(t, first.HasDate())
	assert.Equal(t, "Ana", first.CustomerName)
	require.Len(t, first.Items, 1)
	assert.Equal(t, "X1", first.Items[0].Reference)
	assert.True(t, first.Items[0].UnitPrice.IsZero())
	assert.Equal(t, 1, first.Items[0].Quantity)
	assert.Equal(t, 1, first.ItemCount)

	second := snapshot.Orders[1]
	assert.True(t, decimal.RequireFromString("5.25").Equal(second.Total))
	require.True(t, second.HasDate())
	assert.Equal(t, time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC), *second.Date)
	assert.Empty(t, second.Items)
	assert.Equal(t, 3, second.ItemCount)

	require.Len(t, snapshot.Customers, 1)
	assert.Equal(t, "@ana", snapshot.Customers[0].SocialHandle)

	require.Len(t, snapshot.Catalog, 1)
	assert.True(t, decimal.NewFromInt(125).Equal(snapshot.Catalog[0].RetailPrice), "loose parse drops the comma")
	assert.Equal(t, 4, snapshot.Catalog[0].StockHint)

	require.Len(t, snapshot.Stats, 1)
	assert.Equal(t, domain.StatRow{"mes": "Março", "total": "20"}, snapshot.Stats[0])
}

func TestDecodeSnapshotRoundTripsEncodedSnapshot(t *testing.T) {
	sold := time.Date(2024, time.March, 15, 10, 30, 0, 0, time.UTC)
	original := domain.Snapshot{
		ID:        "snap-1",
		Version:   3,
		Source:    "vendas.xlsx",
		Timestamp: time.Date(2024, time.April, 1, 9, 0, 0, 0, time.UTC),
		Customers: []domain.DirectoryCustomer{{Name: "Ana Silva", SocialHandle: "@ana.s", Email: "ana@example.pt"}},
		Orders: []domain.Order{{
			SaleID:        "7",
			Date:          &sold,
			PaymentMethod: "MB WAY",
			Total:         decimal.RequireFromString("23.5"),
			Profit:        decimal.NewFromInt(8),
			CustomerName:  "Ana Silva",
			SocialHandle:  "@ana.s",
			Location:      "Lisboa",
			Weekday:       "SEXTA-FEIRA",
			MonthYear:     "MARÇO 2024",
			Items: []domain.LineItem{
				{Reference: "AB12", UnitPrice: decimal.NewFromInt(20), Profit: decimal.NewFromInt(8), Quantity: 2, Description: "Colar"},
				{Reference: "CONTINENTAL", UnitPrice: decimal.RequireFromString("3.5"), Quantity: 1},
			},
			ItemCount: 2,
		}},
		Catalog: []domain.CatalogItem{{Reference: "AB12", Name: "Colar", RetailPrice: decimal.NewFromInt(20), StockHint: 3}},
		Stats:   []domain.StatRow{{"mes": "Março"}},
	}

	encoded, err := json.Marshal(original)
	require.NoError(t, err)

	decoded, err := DecodeSnapshot(bytes.NewReader(encoded))
	require.NoError(t, err)

	assert.Equal(t, original.ID, decoded.ID)
	assert.Equal(t, original.Source, decoded.Source)
	assert.True(t, original.Timestamp.Equal(decoded.Timestamp))
	assert.Equal(t, original.Customers, decoded.Customers)
	assert.Equal(t, original.Stats, decoded.Stats)

	require.Len(t, decoded.Orders, 1)
	got, want := decoded.Orders[0], original.Orders[0]
	assert.Equal(t, want.SaleID, got.SaleID)
	require.True(t, got.HasDate())
	assert.True(t, want.Date.Equal(*got.Date))
	assert.True(t, want.Total.Equal(got.Total))
	assert.True(t, want.Profit.Equal(got.Profit))
	assert.Equal(t, want.PaymentMethod, got.PaymentMethod)
	assert.Equal(t, want.MonthYear, got.MonthYear)
	assert.Equal(t, want.ItemCount, got.ItemCount)
	require.Len(t, got.Items, 2)
	assert.Equal(t, 2, got.Items[0].Quantity)
	assert.Equal(t, "Colar", got.Items[0].Description)
	assert.True(t, want.Items[1].UnitPrice.Equal(got.Items[1].UnitPrice))

	require.Len(t, decoded.Catalog, 1)
	assert.True(t, decimal.NewFromInt(20).Equal(decoded.Catalog[0].RetailPrice))
	assert.Equal(t, 3, decoded.Catalog[0].StockHint)
}

func TestDecodeSnapshotRejectsMalformedDocument(t *testing.T) {
	_, err := DecodeSnapshot(strings.NewReader(`{"orders": {"ref": "TOTAL"}}`))
	assert.Error(t, err)

	_, err = DecodeSnapshot(strings.NewReader(`not json`))
	assert.Error(t, err)
}
