package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"lojadash/backend/internal/analytics"
	"lojadash/backend/internal/cache"
	"lojadash/backend/internal/domain"
	"lojadash/backend/internal/ingest"
	"lojadash/backend/internal/store"
)

var ErrForbidden = errors.New("editor role required")

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// CanWrite reports whether a role may replace the loaded snapshot.
func CanWrite(role string) bool {
	return role == "admin" || role == "editor"
}

type Service struct {
	repo       store.Repository
	metrics    cache.MetricsCache
	reader     *ingest.Reader
	metricsTTL time.Duration

	mu      sync.RWMutex
	current *domain.Snapshot

	now   func() time.Time
	newID func() string
}

func New(repo store.Repository, metricsCache cache.MetricsCache, reader *ingest.Reader, metricsTTL time.Duration) *Service {
	if metricsCache == nil {
		metricsCache = cache.NoopMetricsCache{}
	}
	if reader == nil {
		reader = ingest.NewReader(ingest.DefaultLayout())
	}
	if metricsTTL <= 0 {
		metricsTTL = 5 * time.Minute
	}

	return &Service{
		repo:       repo,
		metrics:    metricsCache,
		reader:     reader,
		metricsTTL: metricsTTL,
		now:        func() time.Time { return time.Now().UTC() },
		newID:      uuid.NewString,
	}
}

// ImportWorkbook parses an uploaded workbook into a new snapshot and makes it
// the current one.
func (s *Service) ImportWorkbook(ctx context.Context, r io.Reader, name string) (domain.ImportReport, error) {
	if err := requireWriter(ctx); err != nil {
		return domain.ImportReport{}, err
	}

	wb, err := s.reader.Read(r)
	if err != nil {
		return domain.ImportReport{}, err
	}

	if len(wb.Dropped) > 0 {
		log.Printf("[ingest] WARN: dropped %d line items after the last TOTAL row source=%s", len(wb.Dropped), name)
	}
	if len(wb.Missing) > 0 {
		log.Printf("[ingest] WARN: sheets not found source=%s kinds=%s", name, strings.Join(wb.Missing, ","))
	}

	saved, err := s.save(ctx, domain.Snapshot{
		Source:    name,
		Customers: wb.Customers,
		Orders:    wb.Orders,
		Catalog:   wb.Catalog,
		Stats:     wb.Stats,
	})
	if err != nil {
		return domain.ImportReport{}, err
	}

	return domain.ImportReport{
		Snapshot:      saved.Info(),
		Customers:     len(saved.Customers),
		Orders:        len(saved.Orders),
		CatalogItems:  len(saved.Catalog),
		StatRows:      len(saved.Stats),
		DroppedItems:  len(wb.Dropped),
		MissingSheets: wb.Missing,
	}, nil
}

// ReplaceSnapshot stores an already parsed snapshot. Id and timestamp are
// filled in when absent; the version is always assigned by the repository.
func (s *Service) ReplaceSnapshot(ctx context.Context, snapshot domain.Snapshot) (*domain.Snapshot, error) {
	if err := requireWriter(ctx); err != nil {
		return nil, err
	}
	return s.save(ctx, snapshot)
}

func (s *Service) save(ctx context.Context, snapshot domain.Snapshot) (*domain.Snapshot, error) {
	if strings.TrimSpace(snapshot.ID) == "" {
		snapshot.ID = s.newID()
	}
	if snapshot.Timestamp.IsZero() {
		snapshot.Timestamp = s.now()
	}
	normalizeSnapshot(&snapshot)

	saved, err := s.repo.SaveSnapshot(ctx, snapshot)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.current == nil || saved.Version >= s.current.Version {
		s.current = saved
	}
	s.mu.Unlock()

	log.Printf("[service] snapshot %s v%d loaded source=%s orders=%d customers=%d", saved.ID, saved.Version, saved.Source, len(saved.Orders), len(saved.Customers))
	return saved, nil
}

// CurrentSnapshot returns the loaded snapshot, falling back to the newest one
// in the repository after a restart.
func (s *Service) CurrentSnapshot(ctx context.Context) (*domain.Snapshot, error) {
	s.mu.RLock()
	current := s.current
	s.mu.RUnlock()
	if current != nil {
		return current, nil
	}

	latest, err := s.repo.LatestSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil || latest.Version > s.current.Version {
		s.current = latest
	}
	return s.current, nil
}

func (s *Service) ListSnapshots(ctx context.Context, limit int) ([]domain.SnapshotInfo, error) {
	if limit < 1 || limit > 200 {
		limit = 50
	}
	return s.repo.ListSnapshots(ctx, limit)
}

// Metrics computes the dashboard for the current snapshot. Results are
// memoized per snapshot and selection.
func (s *Service) Metrics(ctx context.Context, sel domain.FilterSelection) (domain.Metrics, error) {
	if err := analytics.ValidateSelection(sel); err != nil {
		return domain.Metrics{}, err
	}

	snapshot, err := s.CurrentSnapshot(ctx)
	if err != nil {
		return domain.Metrics{}, err
	}

	key := MetricsKey(snapshot.ID, snapshot.Version, sel)
	if cached, ok, err := s.metrics.Get(ctx, key); err != nil {
		log.Printf("[cache] WARN: get %s: %v", key, err)
	} else if ok {
		return *cached, nil
	}

	metrics, err := analytics.Compute(analytics.Input{
		Orders:    snapshot.Orders,
		Directory: snapshot.Customers,
		Catalog:   snapshot.Catalog,
		Selection: sel,
	})
	if err != nil {
		return domain.Metrics{}, err
	}
	metrics.SnapshotVersion = snapshot.Version

	if err := s.metrics.Set(ctx, key, &metrics, s.metricsTTL); err != nil {
		log.Printf("[cache] WARN: set %s: %v", key, err)
	}
	return metrics, nil
}

// Customers is the full roster for a selection, highest revenue first.
func (s *Service) Customers(ctx context.Context, sel domain.FilterSelection) ([]domain.CustomerSummary, error) {
	metrics, err := s.Metrics(ctx, sel)
	if err != nil {
		return nil, err
	}
	return metrics.AllCustomers, nil
}

func (s *Service) Catalog(ctx context.Context) ([]domain.CatalogItem, error) {
	snapshot, err := s.CurrentSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snapshot.Catalog, nil
}

// MetricsKey includes the snapshot id because versions restart with an
// in-memory repository while a shared cache outlives the process.
func MetricsKey(snapshotID string, version int64, sel domain.FilterSelection) string {
	return fmt.Sprintf("metrics:%s:%d:%s", snapshotID, version, sel.Key())
}

func requireWriter(ctx context.Context) error {
	actor, ok := ActorFromContext(ctx)
	if ok && !CanWrite(actor.Role) {
		return ErrForbidden
	}
	return nil
}

func normalizeSnapshot(snapshot *domain.Snapshot) {
	if snapshot.Customers == nil {
		snapshot.Customers = []domain.DirectoryCustomer{}
	}
	if snapshot.Orders == nil {
		snapshot.Orders = []domain.Order{}
	}
	if snapshot.Catalog == nil {
		snapshot.Catalog = []domain.CatalogItem{}
	}
	if snapshot.Stats == nil {
		snapshot.Stats = []domain.StatRow{}
	}
	for i := range snapshot.Orders {
		if n := len(snapshot.Orders[i].Items); n > 0 {
			snapshot.Orders[i].ItemCount = n
		}
	}
}
