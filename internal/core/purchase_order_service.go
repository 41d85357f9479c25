package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type purchaseOrderService struct {
	pool *pgxpool.Pool
}

// NewPurchaseOrderService constructs a PurchaseOrderService backed by PostgreSQL.
func NewPurchaseOrderService(pool *pgxpool.Pool) PurchaseOrderService {
	return &purchaseOrderService{pool: pool}
}

// CreateOrder creates a new BORRADOR purchase order with its lines.
func (s *purchaseOrderService) CreateOrder(ctx context.Context, input CreateOrderInput) (*PurchaseOrder, error) {
	if err := ValidateReason(input.Reason); err != nil {
		return nil, err
	}
	if input.Supplier == "" {
		return nil, E(KindValidation, "supplier is required")
	}
	if len(input.Items) == 0 {
		return nil, E(KindValidation, "purchase order must have at least one item")
	}
	seen := make(map[int]bool, len(input.Items))
	for i, it := range input.Items {
		if it.Quantity < 1 {
			return nil, E(KindValidation, "item %d: quantity must be at least 1", i+1)
		}
		if it.UnitCost.IsNegative() {
			return nil, E(KindValidation, "item %d: unit cost must not be negative", i+1)
		}
		if seen[it.DeviceID] {
			return nil, E(KindValidation, "item %d: device %d appears more than once", i+1, it.DeviceID)
		}
		seen[it.DeviceID] = true
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var storeExists bool
	if err := tx.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM stores WHERE id = $1 AND is_active = true)",
		input.StoreID,
	).Scan(&storeExists); err != nil {
		return nil, fmt.Errorf("validate store: %w", err)
	}
	if !storeExists {
		return nil, E(KindValidation, "store %d not found", input.StoreID)
	}

	for i, it := range input.Items {
		var deviceExists bool
		if err := tx.QueryRow(ctx,
			"SELECT EXISTS(SELECT 1 FROM devices WHERE id = $1 AND is_active = true)",
			it.DeviceID,
		).Scan(&deviceExists); err != nil {
			return nil, fmt.Errorf("item %d: validate device: %w", i+1, err)
		}
		if !deviceExists {
			return nil, E(KindDeviceNotFound, "item %d: device %d not found", i+1, it.DeviceID)
		}
	}

	var orderID int
	if err := tx.QueryRow(ctx, `
		INSERT INTO purchase_orders (store_id, supplier, status, notes, created_by)
		VALUES ($1, $2, 'BORRADOR', $3, $4)
		RETURNING id`,
		input.StoreID, input.Supplier, input.Notes, input.ActorID,
	).Scan(&orderID); err != nil {
		return nil, fmt.Errorf("insert purchase order: %w", err)
	}

	for i, it := range input.Items {
		if _, err := tx.Exec(ctx, `
			INSERT INTO purchase_order_items (order_id, device_id, qty_ordered, unit_cost)
			VALUES ($1, $2, $3, $4)`,
			orderID, it.DeviceID, it.Quantity, it.UnitCost,
		); err != nil {
			return nil, fmt.Errorf("insert item %d: %w", i+1, err)
		}
	}

	if err := appendStatusEventTx(ctx, tx, orderID, StatusBorrador, "orden creada", input.Reason, input.ActorID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit purchase order: %w", err)
	}

	return s.GetOrder(ctx, orderID)
}

// TransitionStatus moves an order to a caller-requested state, appending
// a StatusEvent and bumping the version in the same transaction. Moving
// to PENDIENTE assigns the gapless order number.
func (s *purchaseOrderService) TransitionStatus(ctx context.Context, orderID int, target Status, note, reason string, actorID int, expectedVersion *int) (*PurchaseOrder, error) {
	if err := ValidateReason(reason); err != nil {
		return nil, err
	}
	if !ValidStatus(target) {
		return nil, E(KindValidation, "unknown status %q", target)
	}
	if target == StatusParcial || target == StatusCompletada {
		return nil, E(KindInvalidTransition, "status %s is derived from received quantities and cannot be set directly", target)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	cur, err := lockOrderTx(ctx, tx, orderID, expectedVersion)
	if err != nil {
		return nil, err
	}

	if cur.status.Terminal() {
		return nil, E(KindOrderTerminal, "purchase order %d is %s and cannot be modified", orderID, cur.status)
	}
	if !CanTransition(cur.status, target) {
		return nil, E(KindInvalidTransition, "purchase order %d cannot move from %s to %s", orderID, cur.status, target)
	}

	if target == StatusPendiente && cur.orderNumber == nil {
		number, err := nextOrderNumberTx(ctx, tx, time.Now().Year())
		if err != nil {
			return nil, err
		}
		if _, err := tx.Exec(ctx,
			"UPDATE purchase_orders SET order_number = $1 WHERE id = $2",
			number, orderID,
		); err != nil {
			return nil, fmt.Errorf("assign order number: %w", err)
		}
	}

	query := "UPDATE purchase_orders SET status = $1, version = version + 1, updated_at = NOW() WHERE id = $2"
	if target == StatusCancelada {
		query = "UPDATE purchase_orders SET status = $1, version = version + 1, updated_at = NOW(), closed_at = NOW() WHERE id = $2"
	}
	if _, err := tx.Exec(ctx, query, target, orderID); err != nil {
		return nil, fmt.Errorf("update purchase order %d status: %w", orderID, err)
	}

	if err := appendStatusEventTx(ctx, tx, orderID, target, note, reason, actorID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit status transition: %w", err)
	}

	return s.GetOrder(ctx, orderID)
}

// CancelOrder moves an order to CANCELADA. Stock already received is
// frozen, not reversed.
func (s *purchaseOrderService) CancelOrder(ctx context.Context, orderID int, note, reason string, actorID int, expectedVersion *int) (*PurchaseOrder, error) {
	return s.TransitionStatus(ctx, orderID, StatusCancelada, note, reason, actorID, expectedVersion)
}

// GetOrder returns a purchase order with items, returns, documents and events.
func (s *purchaseOrderService) GetOrder(ctx context.Context, orderID int) (*PurchaseOrder, error) {
	po := &PurchaseOrder{}
	if err := s.pool.QueryRow(ctx, `
		SELECT po.id, po.order_number, po.store_id, st.code, st.name,
		       po.supplier, po.status, po.notes, po.version,
		       po.created_by, po.created_at, po.updated_at, po.closed_at
		FROM purchase_orders po
		JOIN stores st ON st.id = po.store_id
		WHERE po.id = $1`,
		orderID,
	).Scan(
		&po.ID, &po.OrderNumber, &po.StoreID, &po.StoreCode, &po.StoreName,
		&po.Supplier, &po.Status, &po.Notes, &po.Version,
		&po.CreatedBy, &po.CreatedAt, &po.UpdatedAt, &po.ClosedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, E(KindOrderNotFound, "purchase order %d not found", orderID)
		}
		return nil, fmt.Errorf("get purchase order %d: %w", orderID, err)
	}

	var err error
	if po.Items, err = s.fetchItems(ctx, orderID); err != nil {
		return nil, err
	}
	if po.Returns, err = s.fetchReturns(ctx, orderID); err != nil {
		return nil, err
	}
	if po.Documents, err = s.fetchDocuments(ctx, orderID); err != nil {
		return nil, err
	}
	if po.Events, err = s.fetchEvents(ctx, orderID); err != nil {
		return nil, err
	}
	return po, nil
}

// ListOrders returns order headers, newest first.
func (s *purchaseOrderService) ListOrders(ctx context.Context, filter ListOrdersFilter) ([]PurchaseOrder, error) {
	query := `
		SELECT po.id, po.order_number, po.store_id, st.code, st.name,
		       po.supplier, po.status, po.notes, po.version,
		       po.created_by, po.created_at, po.updated_at, po.closed_at
		FROM purchase_orders po
		JOIN stores st ON st.id = po.store_id
		WHERE 1=1`
	var args []any

	if filter.StoreID != 0 {
		args = append(args, filter.StoreID)
		query += fmt.Sprintf(" AND po.store_id = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND po.status = $%d", len(args))
	}
	query += " ORDER BY po.created_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list purchase orders: %w", err)
	}
	defer rows.Close()

	var orders []PurchaseOrder
	for rows.Next() {
		var po PurchaseOrder
		if err := rows.Scan(
			&po.ID, &po.OrderNumber, &po.StoreID, &po.StoreCode, &po.StoreName,
			&po.Supplier, &po.Status, &po.Notes, &po.Version,
			&po.CreatedBy, &po.CreatedAt, &po.UpdatedAt, &po.ClosedAt,
		); err != nil {
			return nil, fmt.Errorf("scan purchase order: %w", err)
		}
		orders = append(orders, po)
	}
	return orders, rows.Err()
}

// lockedOrder is the header state read under FOR UPDATE.
type lockedOrder struct {
	status      Status
	version     int
	orderNumber *string
}

// lockOrderTx locks the order row for the duration of tx and checks the
// caller's expected version. Concurrent mutations of the same order
// serialize on this lock.
func lockOrderTx(ctx context.Context, tx pgx.Tx, orderID int, expectedVersion *int) (*lockedOrder, error) {
	var lo lockedOrder
	if err := tx.QueryRow(ctx,
		"SELECT status, version, order_number FROM purchase_orders WHERE id = $1 FOR UPDATE",
		orderID,
	).Scan(&lo.status, &lo.version, &lo.orderNumber); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, E(KindOrderNotFound, "purchase order %d not found", orderID)
		}
		return nil, fmt.Errorf("lock purchase order %d: %w", orderID, err)
	}
	if expectedVersion != nil && *expectedVersion != lo.version {
		return nil, E(KindConcurrentModification,
			"purchase order %d was modified: expected version %d, have %d", orderID, *expectedVersion, lo.version)
	}
	return &lo, nil
}

// appendStatusEventTx writes one audit trail entry inside tx.
func appendStatusEventTx(ctx context.Context, tx pgx.Tx, orderID int, status Status, note, reason string, actorID int) error {
	if _, err := tx.Exec(ctx, `
		INSERT INTO purchase_order_events (order_id, status, note, reason, actor_id)
		VALUES ($1, $2, $3, $4, $5)`,
		orderID, status, note, reason, actorID,
	); err != nil {
		return fmt.Errorf("append status event for order %d: %w", orderID, err)
	}
	return nil
}

// fetchItems returns all lines for a purchase order.
func (s *purchaseOrderService) fetchItems(ctx context.Context, orderID int) ([]PurchaseOrderItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT i.id, i.order_id, i.device_id, d.sku, d.name,
		       i.qty_ordered, i.qty_received, i.unit_cost
		FROM purchase_order_items i
		JOIN devices d ON d.id = i.device_id
		WHERE i.order_id = $1
		ORDER BY i.id`,
		orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("fetch items for order %d: %w", orderID, err)
	}
	defer rows.Close()

	var items []PurchaseOrderItem
	for rows.Next() {
		var it PurchaseOrderItem
		if err := rows.Scan(
			&it.ID, &it.OrderID, &it.DeviceID, &it.DeviceSKU, &it.DeviceName,
			&it.QtyOrdered, &it.QtyReceived, &it.UnitCost,
		); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (s *purchaseOrderService) fetchReturns(ctx context.Context, orderID int) ([]PurchaseReturn, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT r.id, r.order_id, r.device_id, d.sku, r.quantity,
		       r.reason, r.reason_text, r.category, r.disposition,
		       r.warehouse_id, r.ledger_entry_id, r.credit_note_amount,
		       r.processed_by, r.approved_by, r.created_at
		FROM purchase_returns r
		JOIN devices d ON d.id = r.device_id
		WHERE r.order_id = $1
		ORDER BY r.id`,
		orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("fetch returns for order %d: %w", orderID, err)
	}
	defer rows.Close()

	var returns []PurchaseReturn
	for rows.Next() {
		var r PurchaseReturn
		if err := rows.Scan(
			&r.ID, &r.OrderID, &r.DeviceID, &r.DeviceSKU, &r.Quantity,
			&r.Reason, &r.ReasonText, &r.Category, &r.Disposition,
			&r.WarehouseID, &r.LedgerEntryID, &r.CreditNoteAmount,
			&r.ProcessedBy, &r.ApprovedBy, &r.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan return: %w", err)
		}
		returns = append(returns, r)
	}
	return returns, rows.Err()
}

func (s *purchaseOrderService) fetchDocuments(ctx context.Context, orderID int) ([]PurchaseOrderDocument, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, order_id, filename, content_type, storage_backend, object_key, uploaded_by, created_at
		FROM purchase_order_documents
		WHERE order_id = $1
		ORDER BY id`,
		orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("fetch documents for order %d: %w", orderID, err)
	}
	defer rows.Close()

	var docs []PurchaseOrderDocument
	for rows.Next() {
		var d PurchaseOrderDocument
		if err := rows.Scan(
			&d.ID, &d.OrderID, &d.Filename, &d.ContentType,
			&d.StorageBackend, &d.ObjectKey, &d.UploadedBy, &d.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (s *purchaseOrderService) fetchEvents(ctx context.Context, orderID int) ([]StatusEvent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, order_id, status, note, reason, actor_id, created_at
		FROM purchase_order_events
		WHERE order_id = $1
		ORDER BY id`,
		orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("fetch events for order %d: %w", orderID, err)
	}
	defer rows.Close()

	var events []StatusEvent
	for rows.Next() {
		var e StatusEvent
		if err := rows.Scan(&e.ID, &e.OrderID, &e.Status, &e.Note, &e.Reason, &e.ActorID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
