package store

import (
	"context"
	"errors"

	"lojadash/backend/internal/domain"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidSnapshot = errors.New("invalid snapshot")
)

// Repository persists workbook snapshots. SaveSnapshot assigns the next
// version; versions only grow, so the latest snapshot is the one with the
// highest version.
type Repository interface {
	SaveSnapshot(ctx context.Context, snapshot domain.Snapshot) (*domain.Snapshot, error)
	LatestSnapshot(ctx context.Context) (*domain.Snapshot, error)
	GetSnapshot(ctx context.Context, id string) (*domain.Snapshot, error)
	ListSnapshots(ctx context.Context, limit int) ([]domain.SnapshotInfo, error)
}

// Validate checks the fields every backend relies on.
func Validate(snapshot domain.Snapshot) error {
	if snapshot.ID == "" {
		return ErrInvalidSnapshot
	}
	if snapshot.Timestamp.IsZero() {
		return ErrInvalidSnapshot
	}
	return nil
}
