package core_test

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"purchasing-engine/internal/core"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

func setupTestDB(t *testing.T) (*pgxpool.Pool, context.Context) {
	t.Helper()
	_ = godotenv.Load("../../.env")

	// Use a dedicated TEST database to avoid wiping the live app database.
	// Set TEST_DATABASE_URL in your .env or environment to run integration tests.
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set — skipping integration test to protect live database")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	// Clean and seed test DB
	_, err = pool.Exec(ctx, `
		TRUNCATE TABLE purchase_returns, purchase_receipts, purchase_order_documents,
			purchase_order_events, purchase_order_items, purchase_orders,
			supplier_ledger, inventory_outbox, recurring_orders, order_sequences,
			users, devices, stores CASCADE;

		INSERT INTO stores (id, code, name) VALUES
		(1, 'CEN', 'Sucursal Centro'),
		(2, 'NOR', 'Sucursal Norte');

		INSERT INTO devices (id, sku, name) VALUES
		(10, 'IPH15-128-BLK', 'iPhone 15 128GB Negro'),
		(11, 'SGS24-128-GRY', 'Samsung Galaxy S24 128GB Gris'),
		(12, 'XRN13-128-BLU', 'Xiaomi Redmi Note 13 128GB Azul');

		INSERT INTO users (id, username, password_hash, role) VALUES
		(1, 'tester', 'not-a-real-hash', 'admin');
	`)
	if err != nil {
		t.Fatalf("Failed to seed test database: %v", err)
	}

	return pool, ctx
}

// createDraft creates a two-line draft order for store 1.
func createDraft(t *testing.T, ctx context.Context, svc core.PurchaseOrderService) *core.PurchaseOrder {
	t.Helper()
	po, err := svc.CreateOrder(ctx, core.CreateOrderInput{
		StoreID:  1,
		Supplier: "Distribuidora Norte",
		Items: []core.ItemInput{
			{DeviceID: 10, Quantity: 10, UnitCost: decimal.NewFromFloat(120.50)},
			{DeviceID: 11, Quantity: 5, UnitCost: decimal.NewFromFloat(310.00)},
		},
		Notes:   "pedido semanal",
		Reason:  "reposición de stock",
		ActorID: 1,
	})
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}
	return po
}

// advanceTo walks an order through the lifecycle up to target.
func advanceTo(t *testing.T, ctx context.Context, svc core.PurchaseOrderService, orderID int, target core.Status) *core.PurchaseOrder {
	t.Helper()
	path := []core.Status{core.StatusPendiente, core.StatusAprobada, core.StatusEnviada}
	var po *core.PurchaseOrder
	var err error
	for _, s := range path {
		po, err = svc.TransitionStatus(ctx, orderID, s, "", "avance de prueba", 1, nil)
		if err != nil {
			t.Fatalf("TransitionStatus to %s failed: %v", s, err)
		}
		if s == target {
			return po
		}
	}
	t.Fatalf("unreachable target %s", target)
	return nil
}

func TestCreateOrder(t *testing.T) {
	pool, ctx := setupTestDB(t)
	defer pool.Close()

	svc := core.NewPurchaseOrderService(pool)
	po := createDraft(t, ctx, svc)

	if po.Status != core.StatusBorrador {
		t.Errorf("new order status = %s, want BORRADOR", po.Status)
	}
	if po.OrderNumber != nil {
		t.Errorf("draft should have no order number, got %s", *po.OrderNumber)
	}
	if po.Version != 1 {
		t.Errorf("new order version = %d, want 1", po.Version)
	}
	if len(po.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(po.Items))
	}
	if po.Items[0].QtyReceived != 0 {
		t.Errorf("new item should have nothing received")
	}
	if len(po.Events) != 1 {
		t.Fatalf("expected 1 audit event, got %d", len(po.Events))
	}
	if po.Events[0].Reason != "reposición de stock" {
		t.Errorf("event reason = %q", po.Events[0].Reason)
	}
	if po.StoreCode != "CEN" {
		t.Errorf("store code = %q, want CEN", po.StoreCode)
	}
}

func TestCreateOrderValidation(t *testing.T) {
	pool, ctx := setupTestDB(t)
	defer pool.Close()

	svc := core.NewPurchaseOrderService(pool)
	valid := core.CreateOrderInput{
		StoreID:  1,
		Supplier: "Distribuidora Norte",
		Items:    []core.ItemInput{{DeviceID: 10, Quantity: 1, UnitCost: decimal.NewFromInt(100)}},
		Reason:   "motivo válido",
		ActorID:  1,
	}

	cases := []struct {
		name     string
		mutate   func(in *core.CreateOrderInput)
		wantKind core.Kind
	}{
		{"missing reason", func(in *core.CreateOrderInput) { in.Reason = "" }, core.KindReasonRequired},
		{"short reason", func(in *core.CreateOrderInput) { in.Reason = "ok" }, core.KindReasonRequired},
		{"missing supplier", func(in *core.CreateOrderInput) { in.Supplier = "" }, core.KindValidation},
		{"no items", func(in *core.CreateOrderInput) { in.Items = nil }, core.KindValidation},
		{"zero quantity", func(in *core.CreateOrderInput) { in.Items[0].Quantity = 0 }, core.KindValidation},
		{"negative unit cost", func(in *core.CreateOrderInput) { in.Items[0].UnitCost = decimal.NewFromInt(-1) }, core.KindValidation},
		{"unknown device", func(in *core.CreateOrderInput) { in.Items[0].DeviceID = 999 }, core.KindDeviceNotFound},
		{"unknown store", func(in *core.CreateOrderInput) { in.StoreID = 999 }, core.KindValidation},
		{"duplicate device lines", func(in *core.CreateOrderInput) {
			in.Items = append(in.Items, in.Items[0])
		}, core.KindValidation},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := valid
			in.Items = append([]core.ItemInput(nil), valid.Items...)
			tc.mutate(&in)
			_, err := svc.CreateOrder(ctx, in)
			if err == nil {
				t.Fatal("expected an error")
			}
			if core.KindOf(err) != tc.wantKind {
				t.Errorf("kind = %s, want %s (%v)", core.KindOf(err), tc.wantKind, err)
			}
		})
	}
}

func TestOrderNumberAssignment(t *testing.T) {
	pool, ctx := setupTestDB(t)
	defer pool.Close()

	svc := core.NewPurchaseOrderService(pool)
	year := time.Now().Year()

	first := createDraft(t, ctx, svc)
	second := createDraft(t, ctx, svc)

	// The number is assigned on PENDIENTE, in submission order, with no gaps.
	po, err := svc.TransitionStatus(ctx, second.ID, core.StatusPendiente, "", "envío a revisión", 1, nil)
	if err != nil {
		t.Fatalf("TransitionStatus failed: %v", err)
	}
	want := fmt.Sprintf("PC-%d-00001", year)
	if po.OrderNumber == nil || *po.OrderNumber != want {
		t.Errorf("first submitted order number = %v, want %s", po.OrderNumber, want)
	}

	po, err = svc.TransitionStatus(ctx, first.ID, core.StatusPendiente, "", "envío a revisión", 1, nil)
	if err != nil {
		t.Fatalf("TransitionStatus failed: %v", err)
	}
	want = fmt.Sprintf("PC-%d-00002", year)
	if po.OrderNumber == nil || *po.OrderNumber != want {
		t.Errorf("second submitted order number = %v, want %s", po.OrderNumber, want)
	}

	// A draft cancelled before submission consumes no number.
	third := createDraft(t, ctx, svc)
	if _, err := svc.CancelOrder(ctx, third.ID, "", "creado por error", 1, nil); err != nil {
		t.Fatalf("CancelOrder failed: %v", err)
	}
	fourth := createDraft(t, ctx, svc)
	po, err = svc.TransitionStatus(ctx, fourth.ID, core.StatusPendiente, "", "envío a revisión", 1, nil)
	if err != nil {
		t.Fatalf("TransitionStatus failed: %v", err)
	}
	want = fmt.Sprintf("PC-%d-00003", year)
	if po.OrderNumber == nil || *po.OrderNumber != want {
		t.Errorf("number after cancelled draft = %v, want %s", po.OrderNumber, want)
	}
}

func TestTransitionRules(t *testing.T) {
	pool, ctx := setupTestDB(t)
	defer pool.Close()

	svc := core.NewPurchaseOrderService(pool)
	po := createDraft(t, ctx, svc)

	t.Run("cannot skip states", func(t *testing.T) {
		_, err := svc.TransitionStatus(ctx, po.ID, core.StatusAprobada, "", "intento de salto", 1, nil)
		if core.KindOf(err) != core.KindInvalidTransition {
			t.Errorf("kind = %s, want %s", core.KindOf(err), core.KindInvalidTransition)
		}
	})

	t.Run("derived states are not user targets", func(t *testing.T) {
		for _, target := range []core.Status{core.StatusParcial, core.StatusCompletada} {
			_, err := svc.TransitionStatus(ctx, po.ID, target, "", "intento directo", 1, nil)
			if core.KindOf(err) != core.KindInvalidTransition {
				t.Errorf("target %s: kind = %s, want %s", target, core.KindOf(err), core.KindInvalidTransition)
			}
		}
	})

	t.Run("unknown status rejected", func(t *testing.T) {
		_, err := svc.TransitionStatus(ctx, po.ID, "ENTREGADA", "", "estado inventado", 1, nil)
		if core.KindOf(err) != core.KindValidation {
			t.Errorf("kind = %s, want %s", core.KindOf(err), core.KindValidation)
		}
	})

	t.Run("terminal orders are frozen", func(t *testing.T) {
		cancelled := createDraft(t, ctx, svc)
		if _, err := svc.CancelOrder(ctx, cancelled.ID, "", "ya no se necesita", 1, nil); err != nil {
			t.Fatalf("CancelOrder failed: %v", err)
		}
		_, err := svc.TransitionStatus(ctx, cancelled.ID, core.StatusPendiente, "", "reactivación", 1, nil)
		if core.KindOf(err) != core.KindOrderTerminal {
			t.Errorf("kind = %s, want %s", core.KindOf(err), core.KindOrderTerminal)
		}
	})

	t.Run("missing order", func(t *testing.T) {
		_, err := svc.TransitionStatus(ctx, 99999, core.StatusPendiente, "", "orden fantasma", 1, nil)
		if core.KindOf(err) != core.KindOrderNotFound {
			t.Errorf("kind = %s, want %s", core.KindOf(err), core.KindOrderNotFound)
		}
	})
}

func TestCancelOrder(t *testing.T) {
	pool, ctx := setupTestDB(t)
	defer pool.Close()

	svc := core.NewPurchaseOrderService(pool)
	po := createDraft(t, ctx, svc)

	cancelled, err := svc.CancelOrder(ctx, po.ID, "proveedor sin stock", "cancelación solicitada por tienda", 1, nil)
	if err != nil {
		t.Fatalf("CancelOrder failed: %v", err)
	}
	if cancelled.Status != core.StatusCancelada {
		t.Errorf("status = %s, want CANCELADA", cancelled.Status)
	}
	if cancelled.ClosedAt == nil {
		t.Error("cancelled order should have closed_at set")
	}
	if cancelled.Version != po.Version+1 {
		t.Errorf("version = %d, want %d", cancelled.Version, po.Version+1)
	}
}

func TestOptimisticConcurrency(t *testing.T) {
	pool, ctx := setupTestDB(t)
	defer pool.Close()

	svc := core.NewPurchaseOrderService(pool)
	po := createDraft(t, ctx, svc)

	stale := po.Version
	if _, err := svc.TransitionStatus(ctx, po.ID, core.StatusPendiente, "", "primer escritor", 1, nil); err != nil {
		t.Fatalf("TransitionStatus failed: %v", err)
	}

	// A second writer holding the old version must be rejected.
	_, err := svc.TransitionStatus(ctx, po.ID, core.StatusPendiente, "", "segundo escritor", 1, &stale)
	if core.KindOf(err) != core.KindConcurrentModification {
		t.Errorf("kind = %s, want %s", core.KindOf(err), core.KindConcurrentModification)
	}

	current := stale + 1
	if _, err := svc.TransitionStatus(ctx, po.ID, core.StatusAprobada, "", "versión correcta", 1, &current); err != nil {
		t.Errorf("matching version should pass: %v", err)
	}
}

func TestConcurrentReceive(t *testing.T) {
	pool, ctx := setupTestDB(t)
	defer pool.Close()

	svc := core.NewPurchaseOrderService(pool)
	po := createDraft(t, ctx, svc)
	advanceTo(t, ctx, svc, po.ID, core.StatusEnviada)

	// Two clerks book 6 of the 10 ordered units at the same time. The
	// row lock serializes them: whoever commits second sees 6 already
	// received and must be rejected, never over-booked.
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Receive(ctx, po.ID, []core.ReceiveLine{
				{DeviceID: 10, Quantity: 6},
			}, "recepción simultánea del proveedor", 1, nil)
		}(i)
	}
	wg.Wait()

	var failures int
	for _, err := range errs {
		if err == nil {
			continue
		}
		failures++
		if kind := core.KindOf(err); kind != core.KindOverReceipt && kind != core.KindConcurrentModification {
			t.Errorf("loser kind = %s, want %s or %s", kind, core.KindOverReceipt, core.KindConcurrentModification)
		}
	}
	if failures != 1 {
		t.Fatalf("got %d failures, want exactly 1 of 2 concurrent receipts rejected: %v", failures, errs)
	}

	after, err := svc.GetOrder(ctx, po.ID)
	if err != nil {
		t.Fatalf("GetOrder failed: %v", err)
	}
	if got := after.Items[0].QtyReceived; got != 6 {
		t.Errorf("qty received = %d, want 6 (only the winner's receipt)", got)
	}
	if after.Status != core.StatusParcial {
		t.Errorf("status = %s, want PARCIAL", after.Status)
	}
}

func TestReceive(t *testing.T) {
	pool, ctx := setupTestDB(t)
	defer pool.Close()

	svc := core.NewPurchaseOrderService(pool)

	t.Run("partial then complete", func(t *testing.T) {
		po := createDraft(t, ctx, svc)
		advanceTo(t, ctx, svc, po.ID, core.StatusEnviada)

		res, err := svc.Receive(ctx, po.ID, []core.ReceiveLine{
			{DeviceID: 10, Quantity: 4, BatchCode: "L-2024-07"},
		}, "recepción parcial del proveedor", 1, nil)
		if err != nil {
			t.Fatalf("Receive failed: %v", err)
		}
		if res.Order.Status != core.StatusParcial {
			t.Errorf("status = %s, want PARCIAL", res.Order.Status)
		}
		if got := res.Order.Items[0].QtyReceived; got != 4 {
			t.Errorf("qty received = %d, want 4", got)
		}

		// All receipt rows of one call share the call's event id.
		var receipts int
		err = pool.QueryRow(ctx,
			`SELECT COUNT(*) FROM purchase_receipts WHERE order_id = $1 AND event_id = $2`,
			po.ID, res.EventID).Scan(&receipts)
		if err != nil {
			t.Fatalf("receipt query failed: %v", err)
		}
		if receipts != 1 {
			t.Errorf("receipts with event id = %d, want 1", receipts)
		}

		// A stock-in adjustment was queued for the received device.
		var queued int
		err = pool.QueryRow(ctx,
			`SELECT COUNT(*) FROM inventory_outbox WHERE device_id = 10 AND quantity = 4 AND status = 'PENDING'`).Scan(&queued)
		if err != nil {
			t.Fatalf("outbox query failed: %v", err)
		}
		if queued != 1 {
			t.Errorf("queued adjustments = %d, want 1", queued)
		}

		res, err = svc.Receive(ctx, po.ID, []core.ReceiveLine{
			{DeviceID: 10, Quantity: 6},
			{DeviceID: 11, Quantity: 5},
		}, "recepción final del proveedor", 1, nil)
		if err != nil {
			t.Fatalf("Receive failed: %v", err)
		}
		if res.Order.Status != core.StatusCompletada {
			t.Errorf("status = %s, want COMPLETADA", res.Order.Status)
		}
		if res.Order.ClosedAt == nil {
			t.Error("completed order should have closed_at set")
		}
	})

	t.Run("over-receipt rejected atomically", func(t *testing.T) {
		po := createDraft(t, ctx, svc)
		advanceTo(t, ctx, svc, po.ID, core.StatusEnviada)

		// The first line alone would fit; the call must still apply nothing.
		_, err := svc.Receive(ctx, po.ID, []core.ReceiveLine{
			{DeviceID: 11, Quantity: 3},
			{DeviceID: 10, Quantity: 11},
		}, "recepción con exceso", 1, nil)
		if core.KindOf(err) != core.KindOverReceipt {
			t.Fatalf("kind = %s, want %s (%v)", core.KindOf(err), core.KindOverReceipt, err)
		}

		after, err := svc.GetOrder(ctx, po.ID)
		if err != nil {
			t.Fatalf("GetOrder failed: %v", err)
		}
		for _, it := range after.Items {
			if it.QtyReceived != 0 {
				t.Errorf("device %d: qty received = %d after rejected call, want 0", it.DeviceID, it.QtyReceived)
			}
		}
	})

	t.Run("split deliveries accumulate against the limit", func(t *testing.T) {
		po := createDraft(t, ctx, svc)
		advanceTo(t, ctx, svc, po.ID, core.StatusEnviada)

		// Two lines for the same device count together: 6 + 5 > 10.
		_, err := svc.Receive(ctx, po.ID, []core.ReceiveLine{
			{DeviceID: 10, Quantity: 6, BatchCode: "L-A"},
			{DeviceID: 10, Quantity: 5, BatchCode: "L-B"},
		}, "dos lotes del mismo equipo", 1, nil)
		if core.KindOf(err) != core.KindOverReceipt {
			t.Errorf("kind = %s, want %s", core.KindOf(err), core.KindOverReceipt)
		}

		// Within the limit the same split is fine.
		res, err := svc.Receive(ctx, po.ID, []core.ReceiveLine{
			{DeviceID: 10, Quantity: 6, BatchCode: "L-A"},
			{DeviceID: 10, Quantity: 4, BatchCode: "L-B"},
		}, "dos lotes del mismo equipo", 1, nil)
		if err != nil {
			t.Fatalf("Receive failed: %v", err)
		}
		if got := res.Order.Items[0].QtyReceived; got != 10 {
			t.Errorf("qty received = %d, want 10", got)
		}
	})

	t.Run("unknown line item", func(t *testing.T) {
		po := createDraft(t, ctx, svc)
		advanceTo(t, ctx, svc, po.ID, core.StatusEnviada)

		_, err := svc.Receive(ctx, po.ID, []core.ReceiveLine{
			{DeviceID: 12, Quantity: 1},
		}, "equipo fuera de la orden", 1, nil)
		if core.KindOf(err) != core.KindUnknownLineItem {
			t.Errorf("kind = %s, want %s", core.KindOf(err), core.KindUnknownLineItem)
		}
	})

	t.Run("only approved or later orders receive", func(t *testing.T) {
		po := createDraft(t, ctx, svc)
		_, err := svc.Receive(ctx, po.ID, []core.ReceiveLine{
			{DeviceID: 10, Quantity: 1},
		}, "recepción prematura", 1, nil)
		if core.KindOf(err) != core.KindInvalidTransition {
			t.Errorf("kind = %s, want %s", core.KindOf(err), core.KindInvalidTransition)
		}
	})
}

func TestListOrders(t *testing.T) {
	pool, ctx := setupTestDB(t)
	defer pool.Close()

	svc := core.NewPurchaseOrderService(pool)
	first := createDraft(t, ctx, svc)
	advanceTo(t, ctx, svc, first.ID, core.StatusPendiente)
	createDraft(t, ctx, svc)

	all, err := svc.ListOrders(ctx, core.ListOrdersFilter{})
	if err != nil {
		t.Fatalf("ListOrders failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(all))
	}

	pending, err := svc.ListOrders(ctx, core.ListOrdersFilter{Status: core.StatusPendiente})
	if err != nil {
		t.Fatalf("ListOrders failed: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != first.ID {
		t.Errorf("status filter returned %d orders", len(pending))
	}

	none, err := svc.ListOrders(ctx, core.ListOrdersFilter{StoreID: 2})
	if err != nil {
		t.Fatalf("ListOrders failed: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("store filter returned %d orders, want 0", len(none))
	}
}
