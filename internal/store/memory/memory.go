package memory

import (
	"context"
	"sort"
	"sync"

	"lojadash/backend/internal/domain"
	"lojadash/backend/internal/store"
)

type Store struct {
	mu          sync.RWMutex
	snapshots   map[string]domain.Snapshot
	order       []string
	lastVersion int64
}

func New() *Store {
	return &Store{
		snapshots: make(map[string]domain.Snapshot),
	}
}

func (s *Store) SaveSnapshot(_ context.Context, snapshot domain.Snapshot) (*domain.Snapshot, error) {
	if err := store.Validate(snapshot); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.snapshots[snapshot.ID]; exists {
		return nil, store.ErrInvalidSnapshot
	}
	s.lastVersion++
	snapshot.Version = s.lastVersion
	s.snapshots[snapshot.ID] = snapshot
	s.order = append(s.order, snapshot.ID)

	saved := snapshot
	return &saved, nil
}

func (s *Store) LatestSnapshot(_ context.Context) (*domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.order) == 0 {
		return nil, store.ErrNotFound
	}
	latest := s.snapshots[s.order[len(s.order)-1]]
	return &latest, nil
}

func (s *Store) GetSnapshot(_ context.Context, id string) (*domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot, ok := s.snapshots[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &snapshot, nil
}

func (s *Store) ListSnapshots(_ context.Context, limit int) ([]domain.SnapshotInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.SnapshotInfo, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.snapshots[id].Info())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Version > out[j].Version
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
