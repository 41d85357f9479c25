package core

import (
	"context"
	"time"
)

// Store is a retail location that owns purchase orders.
type Store struct {
	ID        int
	Code      string
	Name      string
	IsActive  bool
	CreatedAt time.Time
}

// Device is a catalog article that can appear on order lines.
type Device struct {
	ID        int
	SKU       string
	Name      string
	IsActive  bool
	CreatedAt time.Time
}

// StoreInput holds the fields required to create a store.
type StoreInput struct {
	Code string
	Name string
}

// DeviceInput holds the fields required to create a device.
type DeviceInput struct {
	SKU  string
	Name string
}

// CatalogService provides the store and device lookups the purchasing
// engine references.
type CatalogService interface {
	CreateStore(ctx context.Context, input StoreInput) (*Store, error)
	GetStores(ctx context.Context) ([]Store, error)

	CreateDevice(ctx context.Context, input DeviceInput) (*Device, error)
	GetDevices(ctx context.Context) ([]Device, error)

	// GetDeviceBySKU returns a device by SKU, active or not.
	GetDeviceBySKU(ctx context.Context, sku string) (*Device, error)
}
