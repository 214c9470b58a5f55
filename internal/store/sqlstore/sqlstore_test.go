package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"lojadash/backend/internal/domain"
	"lojadash/backend/internal/store"
)

func newSQLiteStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lojadash.db")
	s, err := New(context.Background(), SQLite, path)
	if err != nil {
		t.Fatalf("new sqlite store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

func sampleSnapshot(id string) domain.Snapshot {
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	return domain.Snapshot{
		ID:     id,
		Source: "vendas.xlsx",
		Customers: []domain.DirectoryCustomer{
			{Name: "Ana Silva", SocialHandle: "@ana.s", Address: "Rua A"},
		},
		Orders: []domain.Order{
			{
				SaleID:        "101",
				Date:          &date,
				PaymentMethod: "MB Way",
				Total:         decimal.RequireFromString("45.90"),
				CustomerName:  "Ana Silva",
				Items: []domain.LineItem{
					{Reference: "AB12", UnitPrice: decimal.RequireFromString("40.90"), Quantity: 1},
					{Reference: "CONTINENTAL", UnitPrice: decimal.RequireFromString("5")},
				},
				ItemCount: 2,
			},
		},
		Catalog:   []domain.CatalogItem{{Reference: "AB12", Name: "Colar", RetailPrice: decimal.RequireFromString("40.90")}},
		Stats:     []domain.StatRow{{"mes": "03"}},
		Timestamp: time.Date(2024, 3, 16, 9, 30, 0, 0, time.UTC),
	}
}

func TestParseDialect(t *testing.T) {
	cases := map[string]Dialect{
		"":         Postgres,
		"postgres": Postgres,
		"MySQL":    MySQL,
		"sqlite3":  SQLite,
	}
	for input, want := range cases {
		got, err := ParseDialect(input)
		if err != nil {
			t.Fatalf("parse %q: %v", input, err)
		}
		if got != want {
			t.Fatalf("parse %q: expected %s, got %s", input, want, got)
		}
	}
	if _, err := ParseDialect("oracle"); err == nil {
		t.Fatalf("expected error for unsupported driver")
	}
}

func TestRebind(t *testing.T) {
	pg := &Store{dialect: Postgres}
	if got := pg.rebind(`SELECT a FROM t WHERE x = ? AND y = ?`); got != `SELECT a FROM t WHERE x = $1 AND y = $2` {
		t.Fatalf("unexpected postgres query: %s", got)
	}
	my := &Store{dialect: MySQL}
	if got := my.rebind(`WHERE x = ?`); got != `WHERE x = ?` {
		t.Fatalf("unexpected mysql query: %s", got)
	}
}

func TestSQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)

	if _, err := s.LatestSnapshot(ctx); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on empty store, got %v", err)
	}

	saved, err := s.SaveSnapshot(ctx, sampleSnapshot("snap-1"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if saved.Version != 1 {
		t.Fatalf("expected version 1, got %d", saved.Version)
	}

	loaded, err := s.GetSnapshot(ctx, "snap-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(loaded.Orders) != 1 || len(loaded.Orders[0].Items) != 2 {
		t.Fatalf("unexpected orders after round trip: %+v", loaded.Orders)
	}
	if !loaded.Orders[0].Total.Equal(decimal.RequireFromString("45.90")) {
		t.Fatalf("expected total 45.90, got %s", loaded.Orders[0].Total)
	}
	if loaded.Orders[0].Date == nil || !loaded.Orders[0].Date.Equal(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected date: %v", loaded.Orders[0].Date)
	}
	if loaded.Stats[0]["mes"] != "03" {
		t.Fatalf("unexpected stats: %+v", loaded.Stats)
	}

	if _, err := s.SaveSnapshot(ctx, sampleSnapshot("snap-1")); !errors.Is(err, store.ErrInvalidSnapshot) {
		t.Fatalf("expected ErrInvalidSnapshot for duplicate id, got %v", err)
	}
}

func TestSQLiteVersionsAndListing(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)

	for i := 1; i <= 4; i++ {
		saved, err := s.SaveSnapshot(ctx, sampleSnapshot(fmt.Sprintf("snap-%d", i)))
		if err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
		if saved.Version != int64(i) {
			t.Fatalf("expected version %d, got %d", i, saved.Version)
		}
	}

	latest, err := s.LatestSnapshot(ctx)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.ID != "snap-4" || latest.Version != 4 {
		t.Fatalf("unexpected latest snapshot %s v%d", latest.ID, latest.Version)
	}

	list, err := s.ListSnapshots(ctx, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != "snap-4" || list[1].ID != "snap-3" {
		t.Fatalf("unexpected listing: %+v", list)
	}
	if list[0].OrderCount != 1 {
		t.Fatalf("expected order count 1, got %d", list[0].OrderCount)
	}
	if !list[0].Timestamp.Equal(time.Date(2024, 3, 16, 9, 30, 0, 0, time.UTC)) {
		t.Fatalf("unexpected timestamp %v", list[0].Timestamp)
	}

	all, err := s.ListSnapshots(ctx, 0)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 snapshots, got %d", len(all))
	}
}

func TestExternalDatabaseRoundTrip(t *testing.T) {
	databaseURL := os.Getenv("LOJADASH_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set LOJADASH_TEST_DATABASE_URL to run database integration test")
	}
	dialect, err := ParseDialect(os.Getenv("LOJADASH_TEST_DATABASE_DRIVER"))
	if err != nil {
		t.Fatalf("parse driver: %v", err)
	}

	ctx := context.Background()
	s, err := New(ctx, dialect, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})

	id := fmt.Sprintf("it-%d", time.Now().UnixNano())
	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, s.rebind(`DELETE FROM snapshots WHERE id = ?`), id)
	})

	saved, err := s.SaveSnapshot(ctx, sampleSnapshot(id))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	latest, err := s.LatestSnapshot(ctx)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.Version < saved.Version {
		t.Fatalf("latest version %d older than saved %d", latest.Version, saved.Version)
	}
	loaded, err := s.GetSnapshot(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(loaded.Customers) != 1 || loaded.Customers[0].SocialHandle != "@ana.s" {
		t.Fatalf("unexpected customers: %+v", loaded.Customers)
	}
}
