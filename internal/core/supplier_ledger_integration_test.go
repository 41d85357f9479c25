package core_test

import (
	"testing"

	"purchasing-engine/internal/core"

	"github.com/shopspring/decimal"
)

func TestRecordPurchase(t *testing.T) {
	pool, ctx := setupTestDB(t)
	defer pool.Close()

	ledger := core.NewSupplierLedger(pool)

	entry, err := ledger.RecordPurchase(ctx, core.RecordPurchaseInput{
		Supplier:      "Distribuidora Norte",
		Amount:        decimal.NewFromFloat(1500.00),
		TaxRate:       decimal.NewFromFloat(0.16),
		PaymentMethod: "transferencia",
		Notes:         "compra de accesorios",
		Reason:        "compra fuera de orden",
		ActorID:       1,
	})
	if err != nil {
		t.Fatalf("RecordPurchase failed: %v", err)
	}
	if entry.EntryType != core.EntryPurchase {
		t.Errorf("entry type = %s, want %s", entry.EntryType, core.EntryPurchase)
	}
	if !entry.Amount.Equal(decimal.NewFromFloat(1500.00)) {
		t.Errorf("amount = %s, want 1500.00", entry.Amount)
	}

	t.Run("validation", func(t *testing.T) {
		cases := []struct {
			name     string
			input    core.RecordPurchaseInput
			wantKind core.Kind
		}{
			{"missing reason", core.RecordPurchaseInput{Supplier: "X", Amount: decimal.NewFromInt(1)}, core.KindReasonRequired},
			{"missing supplier", core.RecordPurchaseInput{Amount: decimal.NewFromInt(1), Reason: "motivo válido"}, core.KindValidation},
			{"zero amount", core.RecordPurchaseInput{Supplier: "X", Reason: "motivo válido"}, core.KindValidation},
			{"negative amount", core.RecordPurchaseInput{Supplier: "X", Amount: decimal.NewFromInt(-5), Reason: "motivo válido"}, core.KindValidation},
		}
		for _, tc := range cases {
			_, err := ledger.RecordPurchase(ctx, tc.input)
			if core.KindOf(err) != tc.wantKind {
				t.Errorf("%s: kind = %s, want %s", tc.name, core.KindOf(err), tc.wantKind)
			}
		}
	})
}

func TestSupplierBalances(t *testing.T) {
	pool, ctx := setupTestDB(t)
	defer pool.Close()

	orders := core.NewPurchaseOrderService(pool)
	ledger := core.NewSupplierLedger(pool)
	returns := core.NewReturnsService(pool, ledger)

	record := func(supplier string, amount float64) {
		t.Helper()
		_, err := ledger.RecordPurchase(ctx, core.RecordPurchaseInput{
			Supplier: supplier,
			Amount:   decimal.NewFromFloat(amount),
			Reason:   "compra registrada en prueba",
			ActorID:  1,
		})
		if err != nil {
			t.Fatalf("RecordPurchase failed: %v", err)
		}
	}
	record("Distribuidora Norte", 1000.00)
	record("Distribuidora Norte", 250.00)
	record("Mayorista Sur", 400.00)

	// A return credit note reduces the supplier's balance.
	po := receivedOrder(t, ctx, pool, orders)
	if _, err := returns.RegisterReturn(ctx, core.RegisterReturnInput{
		OrderID:  po.ID,
		DeviceID: 10,
		Quantity: 2, // 2 × 120.50
		Reason:   "unidades defectuosas",
		ActorID:  1,
	}); err != nil {
		t.Fatalf("RegisterReturn failed: %v", err)
	}

	balances, err := ledger.GetSupplierBalances(ctx)
	if err != nil {
		t.Fatalf("GetSupplierBalances failed: %v", err)
	}
	byName := make(map[string]decimal.Decimal, len(balances))
	for _, b := range balances {
		byName[b.Supplier] = b.Balance
	}
	if got, want := byName["Distribuidora Norte"], decimal.NewFromFloat(1009.00); !got.Equal(want) {
		t.Errorf("Distribuidora Norte balance = %s, want %s", got, want)
	}
	if got, want := byName["Mayorista Sur"], decimal.NewFromFloat(400.00); !got.Equal(want) {
		t.Errorf("Mayorista Sur balance = %s, want %s", got, want)
	}
}

func TestListEntries(t *testing.T) {
	pool, ctx := setupTestDB(t)
	defer pool.Close()

	ledger := core.NewSupplierLedger(pool)
	for i := 0; i < 3; i++ {
		if _, err := ledger.RecordPurchase(ctx, core.RecordPurchaseInput{
			Supplier: "Distribuidora Norte",
			Amount:   decimal.NewFromInt(100),
			Reason:   "compra registrada en prueba",
			ActorID:  1,
		}); err != nil {
			t.Fatalf("RecordPurchase failed: %v", err)
		}
	}
	if _, err := ledger.RecordPurchase(ctx, core.RecordPurchaseInput{
		Supplier: "Mayorista Sur",
		Amount:   decimal.NewFromInt(100),
		Reason:   "compra registrada en prueba",
		ActorID:  1,
	}); err != nil {
		t.Fatalf("RecordPurchase failed: %v", err)
	}

	all, err := ledger.ListEntries(ctx, "", 0)
	if err != nil {
		t.Fatalf("ListEntries failed: %v", err)
	}
	if len(all) != 4 {
		t.Errorf("expected 4 entries, got %d", len(all))
	}

	norte, err := ledger.ListEntries(ctx, "Distribuidora Norte", 0)
	if err != nil {
		t.Fatalf("ListEntries failed: %v", err)
	}
	if len(norte) != 3 {
		t.Errorf("supplier filter returned %d entries, want 3", len(norte))
	}

	limited, err := ledger.ListEntries(ctx, "", 2)
	if err != nil {
		t.Fatalf("ListEntries failed: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("limit returned %d entries, want 2", len(limited))
	}
}

func TestCreditNoteIdempotency(t *testing.T) {
	pool, ctx := setupTestDB(t)
	defer pool.Close()

	ledger := core.NewSupplierLedger(pool)
	amount := decimal.NewFromFloat(241.00)

	commit := func() int {
		t.Helper()
		tx, err := pool.Begin(ctx)
		if err != nil {
			t.Fatalf("begin failed: %v", err)
		}
		defer tx.Rollback(ctx)
		id, err := ledger.CommitCreditNoteTx(ctx, tx, "Distribuidora Norte", 77, amount, "nota de prueba", 1)
		if err != nil {
			t.Fatalf("CommitCreditNoteTx failed: %v", err)
		}
		if err := tx.Commit(ctx); err != nil {
			t.Fatalf("commit failed: %v", err)
		}
		return id
	}

	first := commit()
	second := commit()
	if first != second {
		t.Errorf("same return produced two entries: %d and %d", first, second)
	}

	var count int
	if err := pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM supplier_ledger WHERE idempotency_key = 'credit-note-return-77'`).Scan(&count); err != nil {
		t.Fatalf("ledger query failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 ledger row, got %d", count)
	}
}
