package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type catalogService struct {
	pool *pgxpool.Pool
}

// NewCatalogService constructs a CatalogService backed by PostgreSQL.
func NewCatalogService(pool *pgxpool.Pool) CatalogService {
	return &catalogService{pool: pool}
}

// CreateStore inserts a new store.
func (s *catalogService) CreateStore(ctx context.Context, input StoreInput) (*Store, error) {
	if input.Code == "" || input.Name == "" {
		return nil, E(KindValidation, "store code and name are required")
	}
	st := &Store{}
	if err := s.pool.QueryRow(ctx, `
		INSERT INTO stores (code, name)
		VALUES ($1, $2)
		RETURNING id, code, name, is_active, created_at`,
		input.Code, input.Name,
	).Scan(&st.ID, &st.Code, &st.Name, &st.IsActive, &st.CreatedAt); err != nil {
		return nil, fmt.Errorf("create store %q: %w", input.Code, err)
	}
	return st, nil
}

// GetStores returns all active stores, ordered by code.
func (s *catalogService) GetStores(ctx context.Context) ([]Store, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, code, name, is_active, created_at
		FROM stores
		WHERE is_active = true
		ORDER BY code`,
	)
	if err != nil {
		return nil, fmt.Errorf("get stores: %w", err)
	}
	defer rows.Close()

	var stores []Store
	for rows.Next() {
		var st Store
		if err := rows.Scan(&st.ID, &st.Code, &st.Name, &st.IsActive, &st.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan store: %w", err)
		}
		stores = append(stores, st)
	}
	return stores, rows.Err()
}

// CreateDevice inserts a new catalog device.
func (s *catalogService) CreateDevice(ctx context.Context, input DeviceInput) (*Device, error) {
	if input.SKU == "" || input.Name == "" {
		return nil, E(KindValidation, "device SKU and name are required")
	}
	d := &Device{}
	if err := s.pool.QueryRow(ctx, `
		INSERT INTO devices (sku, name)
		VALUES ($1, $2)
		RETURNING id, sku, name, is_active, created_at`,
		input.SKU, input.Name,
	).Scan(&d.ID, &d.SKU, &d.Name, &d.IsActive, &d.CreatedAt); err != nil {
		return nil, fmt.Errorf("create device %q: %w", input.SKU, err)
	}
	return d, nil
}

// GetDevices returns all active devices, ordered by SKU.
func (s *catalogService) GetDevices(ctx context.Context) ([]Device, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, sku, name, is_active, created_at
		FROM devices
		WHERE is_active = true
		ORDER BY sku`,
	)
	if err != nil {
		return nil, fmt.Errorf("get devices: %w", err)
	}
	defer rows.Close()

	var devices []Device
	for rows.Next() {
		var d Device
		if err := rows.Scan(&d.ID, &d.SKU, &d.Name, &d.IsActive, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan device: %w", err)
		}
		devices = append(devices, d)
	}
	return devices, rows.Err()
}

// GetDeviceBySKU returns a device by SKU.
func (s *catalogService) GetDeviceBySKU(ctx context.Context, sku string) (*Device, error) {
	d := &Device{}
	if err := s.pool.QueryRow(ctx, `
		SELECT id, sku, name, is_active, created_at
		FROM devices
		WHERE sku = $1`,
		sku,
	).Scan(&d.ID, &d.SKU, &d.Name, &d.IsActive, &d.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, E(KindDeviceNotFound, "device %q not found", sku)
		}
		return nil, fmt.Errorf("get device %q: %w", sku, err)
	}
	return d, nil
}
