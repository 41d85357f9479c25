package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type returnsService struct {
	pool   *pgxpool.Pool
	ledger *SupplierLedger
}

// NewReturnsService constructs a ReturnsService backed by PostgreSQL.
// Credit notes are posted to the supplier ledger in the same transaction
// as the return row.
func NewReturnsService(pool *pgxpool.Pool, ledger *SupplierLedger) ReturnsService {
	return &returnsService{pool: pool, ledger: ledger}
}

// RegisterReturn records a return against received stock.
func (s *returnsService) RegisterReturn(ctx context.Context, input RegisterReturnInput) (*PurchaseReturn, error) {
	if err := ValidateReason(input.Reason); err != nil {
		return nil, err
	}
	if input.Quantity < 1 {
		return nil, E(KindValidation, "return quantity must be at least 1")
	}
	if input.Category == "" {
		input.Category = CategoryOther
	}
	if !ValidReturnCategory(input.Category) {
		return nil, E(KindValidation, "unknown return category %q", input.Category)
	}
	if input.Disposition == "" {
		input.Disposition = DispositionDefective
	}
	if !ValidDisposition(input.Disposition) {
		return nil, E(KindValidation, "unknown disposition %q", input.Disposition)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var status Status
	var supplier string
	if err := tx.QueryRow(ctx,
		"SELECT status, supplier FROM purchase_orders WHERE id = $1 FOR UPDATE",
		input.OrderID,
	).Scan(&status, &supplier); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, E(KindOrderNotFound, "purchase order %d not found", input.OrderID)
		}
		return nil, fmt.Errorf("lock purchase order %d: %w", input.OrderID, err)
	}
	// Returns stay possible after COMPLETADA: stock comes back after the
	// order closes. Only cancellation freezes the order entirely.
	if status == StatusCancelada {
		return nil, E(KindOrderTerminal, "purchase order %d is CANCELADA and cannot accept returns", input.OrderID)
	}

	var qtyReceived int
	var unitCost decimal.Decimal
	if err := tx.QueryRow(ctx, `
		SELECT qty_received, unit_cost
		FROM purchase_order_items
		WHERE order_id = $1 AND device_id = $2`,
		input.OrderID, input.DeviceID,
	).Scan(&qtyReceived, &unitCost); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, E(KindUnknownLineItem, "device %d is not on purchase order %d", input.DeviceID, input.OrderID)
		}
		return nil, fmt.Errorf("resolve item for device %d: %w", input.DeviceID, err)
	}

	var alreadyReturned int
	if err := tx.QueryRow(ctx, `
		SELECT COALESCE(SUM(quantity), 0)
		FROM purchase_returns
		WHERE order_id = $1 AND device_id = $2`,
		input.OrderID, input.DeviceID,
	).Scan(&alreadyReturned); err != nil {
		return nil, fmt.Errorf("check returned quantity for device %d: %w", input.DeviceID, err)
	}
	if input.Quantity+alreadyReturned > qtyReceived {
		return nil, E(KindOverReturn,
			"device %d on order %d: returning %d with %d already returned exceeds %d received",
			input.DeviceID, input.OrderID, input.Quantity, alreadyReturned, qtyReceived)
	}

	creditNote := unitCost.Mul(decimal.NewFromInt(int64(input.Quantity)))

	var returnID int
	if err := tx.QueryRow(ctx, `
		INSERT INTO purchase_returns
		            (order_id, device_id, quantity, reason, reason_text, category, disposition,
		             warehouse_id, credit_note_amount, processed_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`,
		input.OrderID, input.DeviceID, input.Quantity, input.Reason, input.ReasonText,
		input.Category, input.Disposition, input.WarehouseID, creditNote, input.ActorID,
	).Scan(&returnID); err != nil {
		return nil, fmt.Errorf("insert return: %w", err)
	}

	notes := fmt.Sprintf("Nota de crédito por devolución %d (pedido %d)", returnID, input.OrderID)
	entryID, err := s.ledger.CommitCreditNoteTx(ctx, tx, supplier, returnID, creditNote, notes, input.ActorID)
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx,
		"UPDATE purchase_returns SET ledger_entry_id = $1 WHERE id = $2",
		entryID, returnID,
	); err != nil {
		return nil, fmt.Errorf("link credit note to return %d: %w", returnID, err)
	}

	// Resellable stock re-enters inventory at the destination warehouse.
	// Defective and write-off stock stays out of the sellable count.
	if input.Disposition == DispositionResellable {
		if err := queueStockAdjustmentTx(ctx, tx, StockAdjustment{
			EventID:     uuid.New(),
			DeviceID:    input.DeviceID,
			WarehouseID: input.WarehouseID,
			Quantity:    input.Quantity,
		}); err != nil {
			return nil, err
		}
	}

	if _, err := tx.Exec(ctx,
		"UPDATE purchase_orders SET version = version + 1, updated_at = NOW() WHERE id = $1",
		input.OrderID,
	); err != nil {
		return nil, fmt.Errorf("bump order %d version: %w", input.OrderID, err)
	}

	note := fmt.Sprintf("devolución de %d unidades (dispositivo %d, %s)", input.Quantity, input.DeviceID, input.Disposition)
	if err := appendStatusEventTx(ctx, tx, input.OrderID, status, note, input.Reason, input.ActorID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit return: %w", err)
	}

	return s.getReturn(ctx, returnID)
}

// ApproveReturn stamps the approver on a pending return.
func (s *returnsService) ApproveReturn(ctx context.Context, orderID, returnID int, reason string, actorID int) (*PurchaseReturn, error) {
	if err := ValidateReason(reason); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var approvedBy *int
	if err := tx.QueryRow(ctx,
		"SELECT approved_by FROM purchase_returns WHERE id = $1 AND order_id = $2 FOR UPDATE",
		returnID, orderID,
	).Scan(&approvedBy); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, E(KindValidation, "return %d not found on purchase order %d", returnID, orderID)
		}
		return nil, fmt.Errorf("lock return %d: %w", returnID, err)
	}
	if approvedBy != nil {
		return nil, E(KindValidation, "return %d is already approved", returnID)
	}

	if _, err := tx.Exec(ctx,
		"UPDATE purchase_returns SET approved_by = $1 WHERE id = $2",
		actorID, returnID,
	); err != nil {
		return nil, fmt.Errorf("approve return %d: %w", returnID, err)
	}

	var status Status
	if err := tx.QueryRow(ctx,
		"SELECT status FROM purchase_orders WHERE id = $1", orderID,
	).Scan(&status); err != nil {
		return nil, fmt.Errorf("fetch order %d status: %w", orderID, err)
	}
	note := fmt.Sprintf("devolución %d aprobada", returnID)
	if err := appendStatusEventTx(ctx, tx, orderID, status, note, reason, actorID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit return approval: %w", err)
	}

	return s.getReturn(ctx, returnID)
}

func (s *returnsService) getReturn(ctx context.Context, returnID int) (*PurchaseReturn, error) {
	r := &PurchaseReturn{}
	if err := s.pool.QueryRow(ctx, `
		SELECT r.id, r.order_id, r.device_id, d.sku, r.quantity,
		       r.reason, r.reason_text, r.category, r.disposition,
		       r.warehouse_id, r.ledger_entry_id, r.credit_note_amount,
		       r.processed_by, r.approved_by, r.created_at
		FROM purchase_returns r
		JOIN devices d ON d.id = r.device_id
		WHERE r.id = $1`,
		returnID,
	).Scan(
		&r.ID, &r.OrderID, &r.DeviceID, &r.DeviceSKU, &r.Quantity,
		&r.Reason, &r.ReasonText, &r.Category, &r.Disposition,
		&r.WarehouseID, &r.LedgerEntryID, &r.CreditNoteAmount,
		&r.ProcessedBy, &r.ApprovedBy, &r.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("get return %d: %w", returnID, err)
	}
	return r, nil
}
