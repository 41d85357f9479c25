package core

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Receive applies one receiving call. All lines are validated against
// the locked item rows and applied together: quantity increments, receipt
// rows, outbox entries, status rederivation and the audit event commit in
// a single transaction, or none of them do.
func (s *purchaseOrderService) Receive(ctx context.Context, orderID int, lines []ReceiveLine, reason string, actorID int, expectedVersion *int) (*ReceiveResult, error) {
	if err := ValidateReason(reason); err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, E(KindValidation, "at least one receive line is required")
	}
	for i, l := range lines {
		if l.Quantity < 1 {
			return nil, E(KindValidation, "line %d: quantity must be at least 1", i+1)
		}
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
		return nil, E(KindOrderTerminal, "purchase order %d is %s and cannot receive goods", orderID, cur.status)
	}
	if !receivable(cur.status) {
		return nil, E(KindInvalidTransition, "purchase order %d is %s: goods can only be received after approval", orderID, cur.status)
	}

	// Item rows are covered by the header lock; load current quantities.
	rows, err := tx.Query(ctx, `
		SELECT id, device_id, qty_ordered, qty_received
		FROM purchase_order_items
		WHERE order_id = $1
		ORDER BY id`,
		orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("fetch items for order %d: %w", orderID, err)
	}
	type itemState struct {
		id       int
		ordered  int
		received int
	}
	itemByDevice := make(map[int]*itemState)
	var order []int
	for rows.Next() {
		var st itemState
		var deviceID int
		if err := rows.Scan(&st.id, &deviceID, &st.ordered, &st.received); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan item: %w", err)
		}
		itemByDevice[deviceID] = &st
		order = append(order, deviceID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fetch items for order %d: %w", orderID, err)
	}

	// Accumulate per device so repeated lines for one device are checked
	// against the remaining quantity as a whole.
	perDevice := make(map[int]int)
	for _, l := range lines {
		perDevice[l.DeviceID] += l.Quantity
	}
	for deviceID, qty := range perDevice {
		st, ok := itemByDevice[deviceID]
		if !ok {
			return nil, E(KindUnknownLineItem, "device %d is not on purchase order %d", deviceID, orderID)
		}
		remaining := st.ordered - st.received
		if qty > remaining {
			return nil, E(KindOverReceipt,
				"device %d on order %d: requested %d but only %d remaining (%d of %d received)",
				deviceID, orderID, qty, remaining, st.received, st.ordered)
		}
	}

	eventID := uuid.New()
	total := 0
	for _, l := range lines {
		st := itemByDevice[l.DeviceID]
		if _, err := tx.Exec(ctx, `
			UPDATE purchase_order_items SET qty_received = qty_received + $1 WHERE id = $2`,
			l.Quantity, st.id,
		); err != nil {
			return nil, fmt.Errorf("apply receipt for device %d: %w", l.DeviceID, err)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO purchase_receipts (order_id, item_id, quantity, batch_code, event_id, reason, actor_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			orderID, st.id, l.Quantity, l.BatchCode, eventID, reason, actorID,
		); err != nil {
			return nil, fmt.Errorf("record receipt for device %d: %w", l.DeviceID, err)
		}
		st.received += l.Quantity
		total += l.Quantity
	}

	// Queue one stock-in adjustment per device for the inventory
	// collaborator, committed with the order mutation.
	for deviceID, qty := range perDevice {
		if err := queueStockAdjustmentTx(ctx, tx, StockAdjustment{
			EventID:  uuid.New(),
			DeviceID: deviceID,
			Quantity: qty,
		}); err != nil {
			return nil, err
		}
	}

	progress := make([]itemProgress, 0, len(itemByDevice))
	for _, deviceID := range order {
		st := itemByDevice[deviceID]
		progress = append(progress, itemProgress{ordered: st.ordered, received: st.received})
	}
	derived := DeriveStatus(progress)

	newStatus := cur.status
	if derived == StatusCompletada || derived == StatusParcial {
		newStatus = derived
	}

	switch {
	case newStatus == StatusCompletada:
		if _, err := tx.Exec(ctx, `
			UPDATE purchase_orders
			SET status = $1, version = version + 1, updated_at = NOW(), closed_at = NOW()
			WHERE id = $2`,
			newStatus, orderID,
		); err != nil {
			return nil, fmt.Errorf("complete purchase order %d: %w", orderID, err)
		}
	default:
		if _, err := tx.Exec(ctx, `
			UPDATE purchase_orders
			SET status = $1, version = version + 1, updated_at = NOW()
			WHERE id = $2`,
			newStatus, orderID,
		); err != nil {
			return nil, fmt.Errorf("update purchase order %d after receipt: %w", orderID, err)
		}
	}

	note := fmt.Sprintf("recepción de %d unidades", total)
	if err := appendStatusEventTx(ctx, tx, orderID, newStatus, note, reason, actorID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit receipt: %w", err)
	}

	po, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &ReceiveResult{Order: po, EventID: eventID}, nil
}
