package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// LedgerEntryType distinguishes supplier ledger entries.
type LedgerEntryType string

const (
	EntryPurchase   LedgerEntryType = "PURCHASE"
	EntryCreditNote LedgerEntryType = "CREDIT_NOTE"
)

// LedgerEntry is one append-only row on the supplier ledger: an ad-hoc
// purchase record or a return credit note.
type LedgerEntry struct {
	ID             int
	Supplier       string
	EntryType      LedgerEntryType
	ReferenceType  *string
	ReferenceID    *int
	Amount         decimal.Decimal
	TaxRate        decimal.Decimal
	PaymentMethod  string
	Notes          string
	IdempotencyKey *string
	CreatedBy      int
	CreatedAt      time.Time
}

// SupplierBalance is the net position against one supplier: purchases
// minus credit notes.
type SupplierBalance struct {
	Supplier string
	Balance  decimal.Decimal
}

// RecordPurchaseInput holds the fields of an ad-hoc purchase record not
// tied to a purchase order.
type RecordPurchaseInput struct {
	Supplier      string
	Amount        decimal.Decimal
	TaxRate       decimal.Decimal
	PaymentMethod string
	Notes         string
	Reason        string
	ActorID       int
}

// SupplierLedger records purchases and credit notes against suppliers.
type SupplierLedger struct {
	pool *pgxpool.Pool
}

func NewSupplierLedger(pool *pgxpool.Pool) *SupplierLedger {
	return &SupplierLedger{pool: pool}
}

// RecordPurchase appends an ad-hoc PURCHASE entry in its own transaction.
func (l *SupplierLedger) RecordPurchase(ctx context.Context, input RecordPurchaseInput) (*LedgerEntry, error) {
	if err := ValidateReason(input.Reason); err != nil {
		return nil, err
	}
	if input.Supplier == "" {
		return nil, E(KindValidation, "supplier is required")
	}
	if !input.Amount.IsPositive() {
		return nil, E(KindValidation, "amount must be positive")
	}
	if input.TaxRate.IsNegative() {
		return nil, E(KindValidation, "tax rate must not be negative")
	}

	var id int
	if err := l.pool.QueryRow(ctx, `
		INSERT INTO supplier_ledger (supplier, entry_type, amount, tax_rate, payment_method, notes, created_by)
		VALUES ($1, 'PURCHASE', $2, $3, $4, $5, $6)
		RETURNING id`,
		input.Supplier, input.Amount, input.TaxRate, input.PaymentMethod, input.Notes, input.ActorID,
	).Scan(&id); err != nil {
		return nil, fmt.Errorf("insert purchase record: %w", err)
	}
	return l.GetEntry(ctx, id)
}

// CommitCreditNoteTx posts a CREDIT_NOTE entry for a return inside the
// caller's transaction. The idempotency key makes replays harmless: a
// duplicate key returns the existing entry's id.
func (l *SupplierLedger) CommitCreditNoteTx(ctx context.Context, tx pgx.Tx, supplier string, returnID int, amount decimal.Decimal, notes string, actorID int) (int, error) {
	key := fmt.Sprintf("credit-note-return-%d", returnID)
	refType := "RETURN"

	var entryID int
	err := tx.QueryRow(ctx, `
		INSERT INTO supplier_ledger (supplier, entry_type, reference_type, reference_id, amount, notes, idempotency_key, created_by)
		VALUES ($1, 'CREDIT_NOTE', $2, $3, $4, $5, $6, $7)
		ON CONFLICT (idempotency_key) DO NOTHING
		RETURNING id`,
		supplier, refType, returnID, amount, notes, key, actorID,
	).Scan(&entryID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Key already present: fetch the existing entry.
			if err := tx.QueryRow(ctx,
				"SELECT id FROM supplier_ledger WHERE idempotency_key = $1", key,
			).Scan(&entryID); err != nil {
				return 0, fmt.Errorf("resolve existing credit note for return %d: %w", returnID, err)
			}
			return entryID, nil
		}
		return 0, fmt.Errorf("insert credit note for return %d: %w", returnID, err)
	}
	return entryID, nil
}

// GetEntry returns a single ledger entry by id.
func (l *SupplierLedger) GetEntry(ctx context.Context, id int) (*LedgerEntry, error) {
	e := &LedgerEntry{}
	if err := l.pool.QueryRow(ctx, `
		SELECT id, supplier, entry_type, reference_type, reference_id, amount,
		       tax_rate, payment_method, notes, idempotency_key, created_by, created_at
		FROM supplier_ledger
		WHERE id = $1`,
		id,
	).Scan(
		&e.ID, &e.Supplier, &e.EntryType, &e.ReferenceType, &e.ReferenceID, &e.Amount,
		&e.TaxRate, &e.PaymentMethod, &e.Notes, &e.IdempotencyKey, &e.CreatedBy, &e.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, E(KindValidation, "ledger entry %d not found", id)
		}
		return nil, fmt.Errorf("get ledger entry %d: %w", id, err)
	}
	return e, nil
}

// ListEntries returns ledger entries, newest first, optionally filtered
// by supplier.
func (l *SupplierLedger) ListEntries(ctx context.Context, supplier string, limit int) ([]LedgerEntry, error) {
	query := `
		SELECT id, supplier, entry_type, reference_type, reference_id, amount,
		       tax_rate, payment_method, notes, idempotency_key, created_by, created_at
		FROM supplier_ledger`
	var args []any
	if supplier != "" {
		args = append(args, supplier)
		query += " WHERE supplier = $1"
	}
	query += " ORDER BY created_at DESC, id DESC"
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := l.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []LedgerEntry
	for rows.Next() {
		var e LedgerEntry
		if err := rows.Scan(
			&e.ID, &e.Supplier, &e.EntryType, &e.ReferenceType, &e.ReferenceID, &e.Amount,
			&e.TaxRate, &e.PaymentMethod, &e.Notes, &e.IdempotencyKey, &e.CreatedBy, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// GetSupplierBalances returns the net amount owed per supplier:
// purchases minus credit notes.
func (l *SupplierLedger) GetSupplierBalances(ctx context.Context) ([]SupplierBalance, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT supplier,
		       COALESCE(SUM(CASE WHEN entry_type = 'PURCHASE' THEN amount ELSE -amount END), 0) AS balance
		FROM supplier_ledger
		GROUP BY supplier
		ORDER BY supplier`,
	)
	if err != nil {
		return nil, fmt.Errorf("query supplier balances: %w", err)
	}
	defer rows.Close()

	var balances []SupplierBalance
	for rows.Next() {
		var b SupplierBalance
		if err := rows.Scan(&b.Supplier, &b.Balance); err != nil {
			return nil, fmt.Errorf("scan supplier balance: %w", err)
		}
		balances = append(balances, b)
	}
	return balances, rows.Err()
}
