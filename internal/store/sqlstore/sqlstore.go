// Package sqlstore keeps snapshots in a SQL database. The same schema runs on
// PostgreSQL (pgx), MySQL and SQLite; a snapshot's parsed sheets are stored
// as one JSON document next to the columns used for listing.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"lojadash/backend/internal/domain"
	"lojadash/backend/internal/store"
)

type Dialect string

const (
	Postgres Dialect = "pgx"
	MySQL    Dialect = "mysql"
	SQLite   Dialect = "sqlite"
)

// ParseDialect accepts the driver names and a few common aliases.
func ParseDialect(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "pgx", "postgres", "postgresql":
		return Postgres, nil
	case "mysql", "mariadb":
		return MySQL, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", name)
	}
}

const saveAttempts = 3

type Store struct {
	db      *sql.DB
	dialect Dialect
}

func New(ctx context.Context, dialect Dialect, dsn string) (*Store, error) {
	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, err
	}

	if dialect == SQLite {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxIdleConns(8)
		db.SetMaxOpenConns(30)
	}
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{db: db, dialect: dialect}
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Dialect() Dialect {
	return s.dialect
}

// Migrate creates the snapshots table when it does not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	payloadType := "TEXT"
	if s.dialect == MySQL {
		payloadType = "LONGTEXT"
	}
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS snapshots (
			id VARCHAR(64) PRIMARY KEY,
			version BIGINT NOT NULL UNIQUE,
			source VARCHAR(512) NOT NULL,
			order_count INTEGER NOT NULL,
			payload `+payloadType+` NOT NULL,
			created_at_ms BIGINT NOT NULL
		)
	`)
	return err
}

func (s *Store) SaveSnapshot(ctx context.Context, snapshot domain.Snapshot) (*domain.Snapshot, error) {
	if err := store.Validate(snapshot); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt < saveAttempts; attempt++ {
		saved, err := s.insertSnapshot(ctx, snapshot)
		if err == nil {
			return saved, nil
		}
		if !isUniqueViolation(err) {
			return nil, err
		}
		// Another writer took the version or the id; the id case is final.
		if _, getErr := s.GetSnapshot(ctx, snapshot.ID); getErr == nil {
			return nil, store.ErrInvalidSnapshot
		}
		lastErr = err
	}
	return nil, fmt.Errorf("save snapshot %s: %w", snapshot.ID, lastErr)
}

func (s *Store) insertSnapshot(ctx context.Context, snapshot domain.Snapshot) (*domain.Snapshot, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var current int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM snapshots`).Scan(&current); err != nil {
		return nil, err
	}
	snapshot.Version = current + 1

	payload, err := json.Marshal(snapshot)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, s.rebind(`
		INSERT INTO snapshots (id, version, source, order_count, payload, created_at_ms)
		VALUES (?, ?, ?, ?, ?, ?)
	`), snapshot.ID, snapshot.Version, snapshot.Source, len(snapshot.Orders), string(payload), snapshot.Timestamp.UTC().UnixMilli())
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (s *Store) LatestSnapshot(ctx context.Context) (*domain.Snapshot, error) {
	return s.loadSnapshot(ctx, `SELECT payload, version FROM snapshots ORDER BY version DESC LIMIT 1`)
}

func (s *Store) GetSnapshot(ctx context.Context, id string) (*domain.Snapshot, error) {
	return s.loadSnapshot(ctx, s.rebind(`SELECT payload, version FROM snapshots WHERE id = ?`), id)
}

func (s *Store) loadSnapshot(ctx context.Context, query string, args ...any) (*domain.Snapshot, error) {
	var (
		payload string
		version int64
	)
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&payload, &version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	var snapshot domain.Snapshot
	if err := json.Unmarshal([]byte(payload), &snapshot); err != nil {
		return nil, fmt.Errorf("decode snapshot payload: %w", err)
	}
	snapshot.Version = version
	return &snapshot, nil
}

func (s *Store) ListSnapshots(ctx context.Context, limit int) ([]domain.SnapshotInfo, error) {
	query := `
		SELECT id, version, source, order_count, created_at_ms
		FROM snapshots
		ORDER BY version DESC
	`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.SnapshotInfo, 0, 16)
	for rows.Next() {
		var (
			info      domain.SnapshotInfo
			createdMs int64
		)
		if err := rows.Scan(&info.ID, &info.Version, &info.Source, &info.OrderCount, &createdMs); err != nil {
			return nil, err
		}
		info.Timestamp = time.UnixMilli(createdMs).UTC()
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// rebind rewrites "?" placeholders to "$n" for PostgreSQL.
func (s *Store) rebind(query string) string {
	if s.dialect != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
