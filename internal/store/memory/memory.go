// Package memory is an in-memory Repository used for tests and for running
// the backend without a database.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"catatkas/backend/internal/domain"
	"catatkas/backend/internal/store"
	"catatkas/backend/internal/xid"
)

type Store struct {
	mu       sync.RWMutex
	settings *domain.ConnectionSettings
	items    []domain.SalesLineItem
}

func New() *Store {
	return &Store{}
}

func (s *Store) SaveSettings(ctx context.Context, settings domain.ConnectionSettings) (*domain.ConnectionSettings, error) {
	if strings.TrimSpace(settings.ServerURL) == "" || strings.TrimSpace(settings.Login) == "" {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	saved := settings
	saved.Active = true
	saved.UpdatedAt = now
	if s.settings != nil {
		saved.ID = s.settings.ID
		saved.CreatedAt = s.settings.CreatedAt
		saved.LastSyncAt = s.settings.LastSyncAt
	} else {
		saved.ID = xid.New("posset")
		saved.CreatedAt = now
	}
	s.settings = &saved

	result := saved
	return &result, nil
}

func (s *Store) GetActiveSettings(ctx context.Context) (*domain.ConnectionSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.settings == nil || !s.settings.Active {
		return nil, store.ErrNotFound
	}
	result := *s.settings
	return &result, nil
}

func (s *Store) UpdateLastSync(ctx context.Context, settingsID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.settings == nil || s.settings.ID != settingsID {
		return store.ErrNotFound
	}
	ts := at.UTC()
	s.settings.LastSyncAt = &ts
	s.settings.UpdatedAt = ts
	return nil
}

func (s *Store) DeleteSalesRange(ctx context.Context, from time.Time, to time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := make([]domain.SalesLineItem, 0, len(s.items))
	var removed int64
	for _, item := range s.items {
		if !item.SoldAt.Before(from) && !item.SoldAt.After(to) {
			removed++
			continue
		}
		kept = append(kept, item)
	}
	s.items = kept
	return removed, nil
}

func (s *Store) InsertSalesItems(ctx context.Context, items []domain.SalesLineItem) error {
	if len(items) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range items {
		if item.ID == "" {
			item.ID = xid.New("sale")
		}
		s.items = append(s.items, item)
	}
	return nil
}

func (s *Store) ListSalesItems(ctx context.Context, from time.Time, to time.Time) ([]domain.SalesLineItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.SalesLineItem, 0, len(s.items))
	for _, item := range s.items {
		if !item.SoldAt.Before(from) && !item.SoldAt.After(to) {
			result = append(result, item)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].SoldAt.Before(result[j].SoldAt)
	})
	return result, nil
}
