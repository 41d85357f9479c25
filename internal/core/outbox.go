package core

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StockAdjustment is one pending on-hand quantity change for the
// external inventory service. Positive quantities add stock.
type StockAdjustment struct {
	EventID     uuid.UUID
	DeviceID    int
	WarehouseID *string
	Quantity    int
}

// StockAdjuster pushes a stock adjustment to the inventory service.
// Implementations must be safe to retry: the service dedupes on EventID.
type StockAdjuster interface {
	AdjustStock(ctx context.Context, adj StockAdjustment) error
}

// queueStockAdjustmentTx writes an outbox row inside the caller's
// transaction so the adjustment is queued exactly when the order
// mutation commits.
func queueStockAdjustmentTx(ctx context.Context, tx pgx.Tx, adj StockAdjustment) error {
	if _, err := tx.Exec(ctx, `
		INSERT INTO inventory_outbox (event_id, device_id, warehouse_id, quantity)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (event_id) DO NOTHING`,
		adj.EventID, adj.DeviceID, adj.WarehouseID, adj.Quantity,
	); err != nil {
		return fmt.Errorf("queue stock adjustment for device %d: %w", adj.DeviceID, err)
	}
	return nil
}

// OutboxDispatcher drains pending inventory adjustments. Rows that fail
// stay PENDING with an incremented attempt count and are retried on the
// next tick.
type OutboxDispatcher struct {
	pool     *pgxpool.Pool
	adjuster StockAdjuster
	interval time.Duration
	batch    int
}

// NewOutboxDispatcher constructs a dispatcher polling at the given interval.
func NewOutboxDispatcher(pool *pgxpool.Pool, adjuster StockAdjuster, interval time.Duration) *OutboxDispatcher {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &OutboxDispatcher{pool: pool, adjuster: adjuster, interval: interval, batch: 50}
}

// Run polls until ctx is cancelled.
func (d *OutboxDispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := d.DispatchPending(ctx); err != nil {
				log.Printf("outbox: dispatch failed: %v", err)
			} else if n > 0 {
				log.Printf("outbox: delivered %d stock adjustments", n)
			}
		}
	}
}

// DispatchPending delivers up to one batch of pending adjustments and
// returns the number delivered. Rows are claimed with SKIP LOCKED so
// multiple dispatchers never double-deliver.
func (d *OutboxDispatcher) DispatchPending(ctx context.Context) (int, error) {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin outbox transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
		SELECT id, event_id, device_id, warehouse_id, quantity
		FROM inventory_outbox
		WHERE status = 'PENDING'
		ORDER BY id
		LIMIT $1
		FOR UPDATE SKIP LOCKED`,
		d.batch,
	)
	if err != nil {
		return 0, fmt.Errorf("claim outbox rows: %w", err)
	}

	type pendingRow struct {
		id  int
		adj StockAdjustment
	}
	var pending []pendingRow
	for rows.Next() {
		var p pendingRow
		if err := rows.Scan(&p.id, &p.adj.EventID, &p.adj.DeviceID, &p.adj.WarehouseID, &p.adj.Quantity); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan outbox row: %w", err)
		}
		pending = append(pending, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("claim outbox rows: %w", err)
	}

	delivered := 0
	for _, p := range pending {
		if err := d.adjuster.AdjustStock(ctx, p.adj); err != nil {
			if _, uerr := tx.Exec(ctx, `
				UPDATE inventory_outbox
				SET attempts = attempts + 1, last_error = $1
				WHERE id = $2`,
				err.Error(), p.id,
			); uerr != nil {
				return delivered, fmt.Errorf("record outbox failure: %w", uerr)
			}
			continue
		}
		if _, err := tx.Exec(ctx, `
			UPDATE inventory_outbox
			SET status = 'DELIVERED', attempts = attempts + 1, last_error = '', delivered_at = NOW()
			WHERE id = $1`,
			p.id,
		); err != nil {
			return delivered, fmt.Errorf("mark outbox row delivered: %w", err)
		}
		delivered++
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit outbox batch: %w", err)
	}
	return delivered, nil
}
