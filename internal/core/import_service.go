package core

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

// importParallelism bounds how many (store, supplier) groups are
// materialized at once. Rows in the same group always run on one
// goroutine so duplicate orders cannot be created.
const importParallelism = 4

// ImportResult is the outcome of a bulk import: best-effort batch with
// partial success.
type ImportResult struct {
	Imported int
	Orders   []PurchaseOrder
	Errors   []RowError
}

// ImportService materializes spreadsheet rows into purchase orders
// through the same creation path as the interactive form.
type ImportService interface {
	ImportFromFile(ctx context.Context, filename string, r io.Reader, reason string, actorID int) (*ImportResult, error)
}

type importService struct {
	pool   *pgxpool.Pool
	orders PurchaseOrderService
}

func NewImportService(pool *pgxpool.Pool, orders PurchaseOrderService) ImportService {
	return &importService{pool: pool, orders: orders}
}

// ImportFromFile parses the upload, validates rows against the catalog,
// groups the survivors by (store, supplier) and creates one order per
// group. Row failures are collected, never fatal: only an unreadable
// file fails the call itself.
func (s *importService) ImportFromFile(ctx context.Context, filename string, r io.Reader, reason string, actorID int) (*ImportResult, error) {
	if err := ValidateReason(reason); err != nil {
		return nil, err
	}

	rows, rowErrs, err := ParseImportFile(filename, r)
	if err != nil {
		return nil, err
	}

	valid := make([]ImportRow, 0, len(rows))
	for _, row := range rows {
		if msg := s.checkRowReferences(ctx, row); msg != "" {
			rowErrs = append(rowErrs, RowError{Row: row.Row, Message: msg})
			continue
		}
		valid = append(valid, row)
	}

	type groupKey struct {
		storeID  int
		supplier string
	}
	groups := make(map[groupKey][]ImportRow)
	var keys []groupKey
	for _, row := range valid {
		key := groupKey{storeID: row.StoreID, supplier: row.Supplier}
		if _, ok := groups[key]; !ok {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], row)
	}

	result := &ImportResult{Errors: rowErrs}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(importParallelism)
	for _, key := range keys {
		key := key
		group := groups[key]
		g.Go(func() error {
			input := CreateOrderInput{
				StoreID:  key.storeID,
				Supplier: key.supplier,
				Items:    mergeGroupItems(group),
				Notes:    groupNotes(group),
				Reason:   reason,
				ActorID:  actorID,
			}
			po, err := s.orders.CreateOrder(gctx, input)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				for _, row := range group {
					result.Errors = append(result.Errors, RowError{Row: row.Row, Message: err.Error()})
				}
				return nil
			}
			result.Orders = append(result.Orders, *po)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("import orders: %w", err)
	}

	sort.Slice(result.Orders, func(i, j int) bool { return result.Orders[i].ID < result.Orders[j].ID })
	sort.Slice(result.Errors, func(i, j int) bool { return result.Errors[i].Row < result.Errors[j].Row })
	result.Imported = len(result.Orders)
	return result, nil
}

// checkRowReferences validates the row's store and device against the
// catalog so a bad reference stays a row-level error instead of sinking
// its whole group.
func (s *importService) checkRowReferences(ctx context.Context, row ImportRow) string {
	var exists bool
	if err := s.pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM stores WHERE id = $1 AND is_active = true)", row.StoreID,
	).Scan(&exists); err != nil {
		return fmt.Sprintf("validate store %d: %v", row.StoreID, err)
	}
	if !exists {
		return fmt.Sprintf("store %d not found", row.StoreID)
	}
	if err := s.pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM devices WHERE id = $1 AND is_active = true)", row.DeviceID,
	).Scan(&exists); err != nil {
		return fmt.Sprintf("validate device %d: %v", row.DeviceID, err)
	}
	if !exists {
		return fmt.Sprintf("device %d not found", row.DeviceID)
	}
	return ""
}

// mergeGroupItems folds the group's rows into order lines. A device
// repeated within a group accumulates quantity under the first row's
// unit cost.
func mergeGroupItems(group []ImportRow) []ItemInput {
	byDevice := make(map[int]int)
	var items []ItemInput
	for _, row := range group {
		if idx, ok := byDevice[row.DeviceID]; ok {
			items[idx].Quantity += row.Quantity
			continue
		}
		byDevice[row.DeviceID] = len(items)
		items = append(items, ItemInput{DeviceID: row.DeviceID, Quantity: row.Quantity, UnitCost: row.UnitCost})
	}
	return items
}

// groupNotes joins the distinct reference and notes fields of a group.
func groupNotes(group []ImportRow) string {
	seen := make(map[string]bool)
	var parts []string
	for _, row := range group {
		for _, v := range []string{row.Reference, row.Notes} {
			if v != "" && !seen[v] {
				seen[v] = true
				parts = append(parts, v)
			}
		}
	}
	return strings.Join(parts, "; ")
}
