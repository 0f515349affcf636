// Package postgres implements the Repository on PostgreSQL via the pgx
// stdlib driver.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"catatkas/backend/internal/domain"
	"catatkas/backend/internal/store"
	"catatkas/backend/internal/xid"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS pos_connection_settings (
			id            TEXT PRIMARY KEY,
			server_url    TEXT NOT NULL,
			login         TEXT NOT NULL,
			password_hash TEXT NOT NULL,
			active        BOOLEAN NOT NULL DEFAULT true,
			last_sync_at  TIMESTAMPTZ,
			created_at    TIMESTAMPTZ NOT NULL,
			updated_at    TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS pos_sales_items (
			id              TEXT PRIMARY KEY,
			dish_id         TEXT NOT NULL DEFAULT '',
			dish_name       TEXT NOT NULL DEFAULT '',
			dish_code       TEXT NOT NULL DEFAULT '',
			category_id     TEXT NOT NULL DEFAULT '',
			category_name   TEXT NOT NULL DEFAULT '',
			group_id        TEXT NOT NULL DEFAULT '',
			group_name      TEXT NOT NULL DEFAULT '',
			department_id   TEXT NOT NULL DEFAULT '',
			department_name TEXT NOT NULL DEFAULT '',
			quantity        DOUBLE PRECISION NOT NULL DEFAULT 0,
			amount          DOUBLE PRECISION NOT NULL DEFAULT 0,
			discount        DOUBLE PRECISION NOT NULL DEFAULT 0,
			order_number    TEXT NOT NULL DEFAULT '',
			sold_at         TIMESTAMPTZ NOT NULL,
			imported_at     TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_pos_sales_items_sold_at ON pos_sales_items (sold_at)`,
		`CREATE INDEX IF NOT EXISTS idx_pos_sales_items_category ON pos_sales_items (category_name)`,
		`CREATE INDEX IF NOT EXISTS idx_pos_sales_items_order ON pos_sales_items (order_number)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) SaveSettings(ctx context.Context, settings domain.ConnectionSettings) (*domain.ConnectionSettings, error) {
	if strings.TrimSpace(settings.ServerURL) == "" || strings.TrimSpace(settings.Login) == "" {
		return nil, store.ErrInvalidInput
	}

	existing, err := s.GetActiveSettings(ctx)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	saved := settings
	saved.Active = true
	saved.UpdatedAt = now

	if existing != nil {
		saved.ID = existing.ID
		saved.CreatedAt = existing.CreatedAt
		saved.LastSyncAt = existing.LastSyncAt
		_, err = s.db.ExecContext(ctx, `
			UPDATE pos_connection_settings
			SET server_url = $2, login = $3, password_hash = $4, active = true, updated_at = $5
			WHERE id = $1
		`, saved.ID, saved.ServerURL, saved.Login, saved.PasswordHash, saved.UpdatedAt)
		if err != nil {
			return nil, err
		}
		return &saved, nil
	}

	saved.ID = xid.New("posset")
	saved.CreatedAt = now
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO pos_connection_settings (id, server_url, login, password_hash, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,true,$5,$6)
	`, saved.ID, saved.ServerURL, saved.Login, saved.PasswordHash, saved.CreatedAt, saved.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

func (s *Store) GetActiveSettings(ctx context.Context) (*domain.ConnectionSettings, error) {
	var settings domain.ConnectionSettings
	var lastSync sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT id, server_url, login, password_hash, active, last_sync_at, created_at, updated_at
		FROM pos_connection_settings
		WHERE active = true
		ORDER BY updated_at DESC
		LIMIT 1
	`).Scan(&settings.ID, &settings.ServerURL, &settings.Login, &settings.PasswordHash,
		&settings.Active, &lastSync, &settings.CreatedAt, &settings.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if lastSync.Valid {
		ts := lastSync.Time.UTC()
		settings.LastSyncAt = &ts
	}
	return &settings, nil
}

func (s *Store) UpdateLastSync(ctx context.Context, settingsID string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE pos_connection_settings
		SET last_sync_at = $2, updated_at = $2
		WHERE id = $1
	`, settingsID, at.UTC())
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteSalesRange(ctx context.Context, from time.Time, to time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM pos_sales_items
		WHERE sold_at >= $1 AND sold_at <= $2
	`, from, to)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) InsertSalesItems(ctx context.Context, items []domain.SalesLineItem) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO pos_sales_items (
			id, dish_id, dish_name, dish_code, category_id, category_name,
			group_id, group_name, department_id, department_name,
			quantity, amount, discount, order_number, sold_at, imported_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, item := range items {
		if item.ID == "" {
			item.ID = xid.New("sale")
		}
		_, err := stmt.ExecContext(ctx,
			item.ID, item.DishID, item.DishName, item.DishCode, item.CategoryID, item.CategoryName,
			item.GroupID, item.GroupName, item.DepartmentID, item.DepartmentName,
			item.Quantity, item.Amount, item.Discount, item.OrderNumber, item.SoldAt, item.ImportedAt)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *Store) ListSalesItems(ctx context.Context, from time.Time, to time.Time) ([]domain.SalesLineItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, dish_id, dish_name, dish_code, category_id, category_name,
		       group_id, group_name, department_id, department_name,
		       quantity, amount, discount, order_number, sold_at, imported_at
		FROM pos_sales_items
		WHERE sold_at >= $1 AND sold_at <= $2
		ORDER BY sold_at
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.SalesLineItem, 0, 256)
	for rows.Next() {
		var item domain.SalesLineItem
		err := rows.Scan(&item.ID, &item.DishID, &item.DishName, &item.DishCode, &item.CategoryID, &item.CategoryName,
			&item.GroupID, &item.GroupName, &item.DepartmentID, &item.DepartmentName,
			&item.Quantity, &item.Amount, &item.Discount, &item.OrderNumber, &item.SoldAt, &item.ImportedAt)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
