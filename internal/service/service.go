package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"catatkas/backend/internal/analytics"
	"catatkas/backend/internal/cache"
	"catatkas/backend/internal/domain"
	"catatkas/backend/internal/pos"
	"catatkas/backend/internal/store"
	"catatkas/backend/internal/xid"
)

var (
	// ErrNotConfigured means no active POS connection settings exist.
	ErrNotConfigured = errors.New("pos connection is not configured")
	// ErrInvalidRange means the caller omitted or inverted the date range.
	ErrInvalidRange = errors.New("date_from and date_to are required and date_from must not be after date_to")
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// Service orchestrates POS sync cycles and answers dashboard queries.
//
// A sync is sequential end-to-end; two concurrent syncs over overlapping date
// ranges would interleave their delete-then-insert steps. Callers are
// expected to serialize sync requests (e.g. disable the sync control while
// one is in flight); the service does not take a lock.
type Service struct {
	repo          store.Repository
	revenueCache  cache.RevenueCache
	cacheTTL      time.Duration
	authTimeout   time.Duration
	reportTimeout time.Duration
}

func New(repo store.Repository, revenueCache cache.RevenueCache, cacheTTL time.Duration, authTimeout time.Duration, reportTimeout time.Duration) *Service {
	if revenueCache == nil {
		revenueCache = cache.NoopRevenueCache{}
	}
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}
	return &Service{
		repo:          repo,
		revenueCache:  revenueCache,
		cacheTTL:      cacheTTL,
		authTimeout:   authTimeout,
		reportTimeout: reportTimeout,
	}
}

// SaveSettings stores the POS connection record, hashing the raw password
// into the digest the POS auth endpoint expects. Only one row is canonical;
// saving overwrites it.
func (s *Service) SaveSettings(ctx context.Context, req domain.SettingsSaveRequest) (domain.ConnectionSettings, error) {
	serverURL := strings.TrimRight(strings.TrimSpace(req.ServerURL), "/")
	login := strings.TrimSpace(req.Login)
	if serverURL == "" || login == "" || req.Password == "" {
		return domain.ConnectionSettings{}, store.ErrInvalidInput
	}

	saved, err := s.repo.SaveSettings(ctx, domain.ConnectionSettings{
		ServerURL:    serverURL,
		Login:        login,
		PasswordHash: pos.HashPassword(req.Password),
	})
	if err != nil {
		return domain.ConnectionSettings{}, err
	}
	return *saved, nil
}

func (s *Service) GetSettings(ctx context.Context) (domain.ConnectionSettings, error) {
	settings, err := s.repo.GetActiveSettings(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.ConnectionSettings{}, ErrNotConfigured
		}
		return domain.ConnectionSettings{}, err
	}
	return *settings, nil
}

// TestConnection authenticates against the POS server and immediately logs
// out. It is a diagnostic probe: it never persists anything and reports
// failure as a message rather than an error.
func (s *Service) TestConnection(ctx context.Context) domain.TestConnectionResult {
	settings, err := s.repo.GetActiveSettings(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.TestConnectionResult{Success: false, Message: ErrNotConfigured.Error()}
		}
		return domain.TestConnectionResult{Success: false, Message: err.Error()}
	}

	client := s.newClient(*settings)
	if _, err := client.Authenticate(ctx); err != nil {
		return domain.TestConnectionResult{Success: false, Message: err.Error()}
	}
	client.Logout(ctx)

	return domain.TestConnectionResult{Success: true, Message: "connection ok"}
}

// Sync runs one full import cycle for [from, to]: authenticate, fetch the
// sales pivot, normalize, replace the range in storage, stamp the settings
// record, release the session. Logout runs on every exit path, including
// errors, so a failed sync never leaks a session license.
func (s *Service) Sync(ctx context.Context, from time.Time, to time.Time) (domain.SyncResult, error) {
	if from.IsZero() || to.IsZero() || from.After(to) {
		return domain.SyncResult{}, ErrInvalidRange
	}

	settings, err := s.repo.GetActiveSettings(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.SyncResult{}, ErrNotConfigured
		}
		return domain.SyncResult{}, fmt.Errorf("load pos settings: %w", err)
	}

	client := s.newClient(*settings)
	token, err := client.Authenticate(ctx)
	if err != nil {
		return domain.SyncResult{}, err
	}
	defer client.Logout(ctx)

	raw, err := client.FetchPivotReport(ctx, token, from, to, "")
	if err != nil {
		return domain.SyncResult{}, err
	}

	report, err := pos.ParsePivotReport(raw)
	if err != nil {
		return domain.SyncResult{}, err
	}

	importedAt := time.Now().UTC()
	for i := range report.Items {
		report.Items[i].ID = xid.New("sale")
		report.Items[i].ImportedAt = importedAt
		// A row whose timestamp could not be parsed must still land inside
		// the replace-range window, otherwise a re-sync of the same range
		// would never delete it and duplicates would accumulate.
		if report.Items[i].SoldAt.IsZero() {
			report.Items[i].SoldAt = from
		}
	}

	// Replace-range: delete everything previously imported for the window,
	// dateTo widened to end-of-day, then insert the fresh batch. If the
	// insert fails after the delete, the range is left empty; re-running the
	// sync for the same range is the recovery path.
	if _, err := s.repo.DeleteSalesRange(ctx, from, endOfDay(to)); err != nil {
		return domain.SyncResult{}, fmt.Errorf("delete sales range: %w", err)
	}
	if err := s.repo.InsertSalesItems(ctx, report.Items); err != nil {
		return domain.SyncResult{}, fmt.Errorf("insert sales items: %w", err)
	}

	if err := s.repo.UpdateLastSync(ctx, settings.ID, importedAt); err != nil {
		return domain.SyncResult{}, fmt.Errorf("update last sync: %w", err)
	}

	if err := s.revenueCache.Invalidate(ctx); err != nil {
		log.Printf("[service] WARN: revenue cache invalidation failed: %v", err)
	}

	return domain.SyncResult{
		ItemsImported: len(report.Items),
		Summary:       report.Summary,
	}, nil
}

// GetRevenue aggregates persisted line items for the range, consulting the
// revenue cache first.
func (s *Service) GetRevenue(ctx context.Context, from time.Time, to time.Time) (domain.RevenueStats, error) {
	if from.IsZero() || to.IsZero() || from.After(to) {
		return domain.RevenueStats{}, ErrInvalidRange
	}

	key := fmt.Sprintf("%s:%s", from.Format("2006-01-02"), to.Format("2006-01-02"))
	if cached, ok, err := s.revenueCache.GetStats(ctx, key); err == nil && ok {
		return *cached, nil
	} else if err != nil {
		log.Printf("[service] WARN: revenue cache read failed: %v", err)
	}

	items, err := s.repo.ListSalesItems(ctx, from, endOfDay(to))
	if err != nil {
		return domain.RevenueStats{}, fmt.Errorf("list sales items: %w", err)
	}

	stats := analytics.Stats(items)
	if err := s.revenueCache.SetStats(ctx, key, &stats, s.cacheTTL); err != nil {
		log.Printf("[service] WARN: revenue cache write failed: %v", err)
	}
	return stats, nil
}

func (s *Service) GetTopItems(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.TopItem, error) {
	if from.IsZero() || to.IsZero() || from.After(to) {
		return nil, ErrInvalidRange
	}

	items, err := s.repo.ListSalesItems(ctx, from, endOfDay(to))
	if err != nil {
		return nil, fmt.Errorf("list sales items: %w", err)
	}
	return analytics.TopItems(items, limit), nil
}

// FetchDailyTopItems pulls the legacy daily report straight from the POS
// server and returns its per-dish ranking. Diagnostic path; nothing is
// persisted.
func (s *Service) FetchDailyTopItems(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.TopItem, error) {
	if from.IsZero() || to.IsZero() || from.After(to) {
		return nil, ErrInvalidRange
	}

	settings, err := s.repo.GetActiveSettings(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotConfigured
		}
		return nil, fmt.Errorf("load pos settings: %w", err)
	}

	client := s.newClient(*settings)
	token, err := client.Authenticate(ctx)
	if err != nil {
		return nil, err
	}
	defer client.Logout(ctx)

	raw, err := client.FetchDailyReport(ctx, token, from, to)
	if err != nil {
		return nil, err
	}
	return pos.ParseDailyReport(raw, limit)
}

// FetchOrderList is the raw diagnostic passthrough to the POS order list.
func (s *Service) FetchOrderList(ctx context.Context, from time.Time, to time.Time, closedOnly bool) ([]map[string]any, error) {
	if from.IsZero() || to.IsZero() || from.After(to) {
		return nil, ErrInvalidRange
	}

	settings, err := s.repo.GetActiveSettings(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotConfigured
		}
		return nil, fmt.Errorf("load pos settings: %w", err)
	}

	client := s.newClient(*settings)
	token, err := client.Authenticate(ctx)
	if err != nil {
		return nil, err
	}
	defer client.Logout(ctx)

	raw, err := client.FetchOrderList(ctx, token, from, to, closedOnly)
	if err != nil {
		return nil, err
	}
	return pos.ParseOrderList(raw)
}

func (s *Service) newClient(settings domain.ConnectionSettings) *pos.Client {
	return pos.NewClient(settings.ServerURL, settings.Login, settings.PasswordHash, s.authTimeout, s.reportTimeout)
}

func endOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}
