package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"catatkas/backend/internal/cache"
	"catatkas/backend/internal/domain"
	"catatkas/backend/internal/store/memory"
)

// fakePOS emulates the POS reporting server: plain-text auth token, counted
// logout, and a configurable pivot payload.
type fakePOS struct {
	authCalls   atomic.Int64
	logoutCalls atomic.Int64
	pivotBody   string
	pivotStatus int
}

func (f *fakePOS) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/resto/api/auth", func(w http.ResponseWriter, r *http.Request) {
		f.authCalls.Add(1)
		_, _ = w.Write([]byte("fake-token"))
	})
	mux.HandleFunc("/resto/api/logout", func(w http.ResponseWriter, r *http.Request) {
		f.logoutCalls.Add(1)
	})
	mux.HandleFunc("/resto/api/v2/reports/olap", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "fake-token" {
			http.Error(w, "invalid key", http.StatusUnauthorized)
			return
		}
		status := f.pivotStatus
		if status == 0 {
			status = http.StatusOK
		}
		if status != http.StatusOK {
			http.Error(w, `{"message": "report engine exploded"}`, status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(f.pivotBody))
	})
	return mux
}

const samplePivot = `{"data": [
	{"DishId": "d-1", "DishName": "Mojito", "DishCategory": "BAR", "DishAmountInt": 2, "DishSumInt": 1000, "DishDiscountSumInt": 100, "OrderNum": "41", "OpenDate.Typed": "2024-03-15T12:30:00"},
	{"DishId": "d-2", "DishName": "Cola", "DishCategory": "BAR", "DishAmountInt": 1, "DishSumInt": 500, "DishDiscountSumInt": 0, "OrderNum": "42", "OpenDate.Typed": "2024-03-15T19:05:00"}
]}`

func newTestService(t *testing.T, pos *fakePOS) (*Service, *memory.Store) {
	t.Helper()

	server := httptest.NewServer(pos.handler())
	t.Cleanup(server.Close)

	repo := memory.New()
	svc := New(repo, cache.NoopRevenueCache{}, time.Minute, 5*time.Second, 10*time.Second)

	_, err := svc.SaveSettings(context.Background(), domain.SettingsSaveRequest{
		ServerURL: server.URL + "/",
		Login:     "admin",
		Password:  "resto#test",
	})
	if err != nil {
		t.Fatalf("save settings failed: %v", err)
	}
	return svc, repo
}

func marchRange() (time.Time, time.Time) {
	return time.Date(2024, 3, 15, 0, 0, 0, 0, time.Local),
		time.Date(2024, 3, 15, 0, 0, 0, 0, time.Local)
}

func TestSyncImportsAndSummarizes(t *testing.T) {
	pos := &fakePOS{pivotBody: samplePivot}
	svc, repo := newTestService(t, pos)
	from, to := marchRange()

	result, err := svc.Sync(context.Background(), from, to)
	if err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	if result.ItemsImported != 2 {
		t.Fatalf("expected 2 items imported, got %d", result.ItemsImported)
	}
	if result.Summary.TotalNet != 1400 || result.Summary.TotalQuantity != 3 {
		t.Fatalf("unexpected summary: %+v", result.Summary)
	}
	if pos.logoutCalls.Load() != 1 {
		t.Fatalf("expected exactly one logout, got %d", pos.logoutCalls.Load())
	}

	items, err := repo.ListSalesItems(context.Background(), from, to.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 persisted items, got %d", len(items))
	}
	if items[0].Amount != 900 {
		t.Fatalf("persisted amount must be net of discount, got %v", items[0].Amount)
	}
	if items[0].ImportedAt.IsZero() {
		t.Fatalf("expected import timestamp to be stamped")
	}

	settings, err := svc.GetSettings(context.Background())
	if err != nil {
		t.Fatalf("get settings failed: %v", err)
	}
	if settings.LastSyncAt == nil {
		t.Fatalf("expected last sync timestamp to be updated")
	}
}

func TestSyncSameRangeIsIdempotent(t *testing.T) {
	pos := &fakePOS{pivotBody: samplePivot}
	svc, repo := newTestService(t, pos)
	from, to := marchRange()
	ctx := context.Background()

	first, err := svc.Sync(ctx, from, to)
	if err != nil {
		t.Fatalf("first sync failed: %v", err)
	}
	second, err := svc.Sync(ctx, from, to)
	if err != nil {
		t.Fatalf("second sync failed: %v", err)
	}

	if first.ItemsImported != second.ItemsImported || first.Summary != second.Summary {
		t.Fatalf("re-sync must be idempotent: first=%+v second=%+v", first, second)
	}

	items, err := repo.ListSalesItems(ctx, from, to.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("replace-range must not duplicate rows, got %d", len(items))
	}
	if pos.logoutCalls.Load() != 2 {
		t.Fatalf("each sync must release its session, got %d logouts", pos.logoutCalls.Load())
	}
}

func TestSyncRejectsMissingRangeBeforeAnyNetworkCall(t *testing.T) {
	pos := &fakePOS{pivotBody: samplePivot}
	svc, _ := newTestService(t, pos)

	_, err := svc.Sync(context.Background(), time.Time{}, time.Now())
	if !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
	if pos.authCalls.Load() != 0 {
		t.Fatalf("validation failure must not reach the network")
	}
}

func TestSyncWithoutSettingsFailsWithConfigurationError(t *testing.T) {
	svc := New(memory.New(), cache.NoopRevenueCache{}, time.Minute, time.Second, time.Second)
	from, to := marchRange()

	_, err := svc.Sync(context.Background(), from, to)
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestSyncFetchFailureStillLogsOutAndKeepsExistingData(t *testing.T) {
	pos := &fakePOS{pivotStatus: http.StatusInternalServerError}
	svc, repo := newTestService(t, pos)
	from, to := marchRange()
	ctx := context.Background()

	existing := domain.SalesLineItem{
		ID:       "sale-existing",
		DishName: "Old Row",
		Amount:   10,
		SoldAt:   time.Date(2024, 3, 15, 10, 0, 0, 0, time.Local),
	}
	if err := repo.InsertSalesItems(ctx, []domain.SalesLineItem{existing}); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	_, err := svc.Sync(ctx, from, to)
	if err == nil {
		t.Fatalf("expected sync to fail on upstream 500")
	}
	if pos.logoutCalls.Load() != 1 {
		t.Fatalf("logout must run on the error path, got %d", pos.logoutCalls.Load())
	}

	items, err := repo.ListSalesItems(ctx, from, to.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(items) != 1 || items[0].ID != "sale-existing" {
		t.Fatalf("pre-delete failure must leave existing data untouched: %+v", items)
	}
}

func TestSyncEmptyBatchSucceedsWithZeroRows(t *testing.T) {
	pos := &fakePOS{pivotBody: `{"data": []}`}
	svc, repo := newTestService(t, pos)
	from, to := marchRange()

	result, err := svc.Sync(context.Background(), from, to)
	if err != nil {
		t.Fatalf("empty sales period must not fail: %v", err)
	}
	if result.ItemsImported != 0 {
		t.Fatalf("expected 0 items, got %d", result.ItemsImported)
	}

	items, err := repo.ListSalesItems(context.Background(), from, to.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected no persisted rows, got %d", len(items))
	}
}

func TestSyncClampsUnparseableTimestampsIntoRange(t *testing.T) {
	pos := &fakePOS{pivotBody: `{"data": [
		{"DishName": "Ghost Dish", "DishSumInt": 100, "DishAmountInt": 1, "OrderNum": "9", "OpenDate.Typed": "garbage-date"}
	]}`}
	svc, repo := newTestService(t, pos)
	from, to := marchRange()
	ctx := context.Background()

	if _, err := svc.Sync(ctx, from, to); err != nil {
		t.Fatalf("first sync failed: %v", err)
	}
	if _, err := svc.Sync(ctx, from, to); err != nil {
		t.Fatalf("second sync failed: %v", err)
	}

	allTime, err := repo.ListSalesItems(ctx,
		time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(allTime) != 1 {
		t.Fatalf("re-sync of the same range must not duplicate rows with bad timestamps, got %d items", len(allTime))
	}
	if !allTime[0].SoldAt.Equal(from) {
		t.Fatalf("unparseable sold-at must be clamped to the range start, got %v", allTime[0].SoldAt)
	}
}

func TestGetRevenueAggregatesPersistedItems(t *testing.T) {
	pos := &fakePOS{pivotBody: samplePivot}
	svc, _ := newTestService(t, pos)
	from, to := marchRange()
	ctx := context.Background()

	if _, err := svc.Sync(ctx, from, to); err != nil {
		t.Fatalf("sync failed: %v", err)
	}

	stats, err := svc.GetRevenue(ctx, from, to)
	if err != nil {
		t.Fatalf("get revenue failed: %v", err)
	}
	if stats.TotalRevenue != 1400 || stats.TotalQuantity != 3 || stats.OrderCount != 2 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if len(stats.ByCategory) != 1 || stats.ByCategory[0].Category != "BAR" || stats.ByCategory[0].Amount != 1400 {
		t.Fatalf("unexpected category breakdown: %+v", stats.ByCategory)
	}

	top, err := svc.GetTopItems(ctx, from, to, 5)
	if err != nil {
		t.Fatalf("get top items failed: %v", err)
	}
	if len(top) != 2 || top[0].DishName != "Mojito" || top[0].Amount != 900 {
		t.Fatalf("unexpected top items: %+v", top)
	}
}

func TestTestConnectionProbe(t *testing.T) {
	pos := &fakePOS{pivotBody: samplePivot}
	svc, _ := newTestService(t, pos)

	result := svc.TestConnection(context.Background())
	if !result.Success {
		t.Fatalf("expected probe to succeed, got %+v", result)
	}
	if pos.logoutCalls.Load() != 1 {
		t.Fatalf("probe must release its session, got %d logouts", pos.logoutCalls.Load())
	}

	unconfigured := New(memory.New(), cache.NoopRevenueCache{}, time.Minute, time.Second, time.Second)
	result = unconfigured.TestConnection(context.Background())
	if result.Success || result.Message == "" {
		t.Fatalf("expected failure with message when unconfigured, got %+v", result)
	}
}

func TestSaveSettingsHashesPasswordAndTrimsURL(t *testing.T) {
	svc := New(memory.New(), cache.NoopRevenueCache{}, time.Minute, time.Second, time.Second)

	saved, err := svc.SaveSettings(context.Background(), domain.SettingsSaveRequest{
		ServerURL: "  https://pos.example.com:443/  ",
		Login:     "admin",
		Password:  "secret",
	})
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if saved.ServerURL != "https://pos.example.com:443" {
		t.Fatalf("expected trimmed URL without trailing slash, got %q", saved.ServerURL)
	}
	if saved.PasswordHash == "secret" || len(saved.PasswordHash) != 40 {
		t.Fatalf("password must be stored as its protocol digest, got %q", saved.PasswordHash)
	}

	// Saving again overwrites the single canonical record.
	again, err := svc.SaveSettings(context.Background(), domain.SettingsSaveRequest{
		ServerURL: "https://other.example.com",
		Login:     "admin2",
		Password:  "secret2",
	})
	if err != nil {
		t.Fatalf("second save failed: %v", err)
	}
	if again.ID != saved.ID {
		t.Fatalf("save must overwrite the canonical row, got new id %q", again.ID)
	}
}
