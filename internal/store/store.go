package store

import (
	"context"
	"errors"
	"time"

	"catatkas/backend/internal/domain"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)

// Repository persists the single POS connection settings record and the sales
// line items imported from the POS server.
//
// DeleteSalesRange + InsertSalesItems together implement the replace-range
// strategy: a sync for [from, to] first removes everything whose sold_at falls
// in that window, then inserts the fresh batch. Re-running a sync for the same
// range with the same upstream data is therefore idempotent.
type Repository interface {
	SaveSettings(ctx context.Context, settings domain.ConnectionSettings) (*domain.ConnectionSettings, error)
	GetActiveSettings(ctx context.Context) (*domain.ConnectionSettings, error)
	UpdateLastSync(ctx context.Context, settingsID string, at time.Time) error

	DeleteSalesRange(ctx context.Context, from time.Time, to time.Time) (int64, error)
	InsertSalesItems(ctx context.Context, items []domain.SalesLineItem) error
	ListSalesItems(ctx context.Context, from time.Time, to time.Time) ([]domain.SalesLineItem, error)
}
