package core_test

import (
	"testing"

	"purchasing-engine/internal/core"
)

func testPayload() core.TemplatePayload {
	return core.TemplatePayload{
		StoreID:  1,
		Supplier: "Distribuidora Norte",
		Items: []core.TemplateItem{
			{DeviceID: 10, Quantity: 5, UnitCost: "120.50"},
			{DeviceID: 11, Quantity: 2, UnitCost: "310.00"},
		},
		Notes: "pedido quincenal",
	}
}

func TestSaveAndGetTemplate(t *testing.T) {
	pool, ctx := setupTestDB(t)
	defer pool.Close()

	orders := core.NewPurchaseOrderService(pool)
	templates := core.NewTemplateService(pool, orders)

	saved, err := templates.SaveTemplate(ctx, "Quincena Centro", testPayload(), "plantilla de pedido recurrente", 1)
	if err != nil {
		t.Fatalf("SaveTemplate failed: %v", err)
	}
	if saved.OrderType != core.OrderTypePurchase {
		t.Errorf("order type = %q, want %q", saved.OrderType, core.OrderTypePurchase)
	}
	if saved.LastUsedAt != nil {
		t.Error("new template should never have been used")
	}

	got, err := templates.GetTemplate(ctx, saved.ID)
	if err != nil {
		t.Fatalf("GetTemplate failed: %v", err)
	}
	if got.Payload.Supplier != "Distribuidora Norte" || len(got.Payload.Items) != 2 {
		t.Errorf("payload did not round-trip: %+v", got.Payload)
	}
	if got.Payload.Items[0].UnitCost != "120.50" {
		t.Errorf("unit cost = %q, want stored string 120.50", got.Payload.Items[0].UnitCost)
	}

	t.Run("validation", func(t *testing.T) {
		if _, err := templates.SaveTemplate(ctx, "", testPayload(), "plantilla sin nombre", 1); core.KindOf(err) != core.KindValidation {
			t.Errorf("missing name: kind = %s", core.KindOf(err))
		}
		bad := testPayload()
		bad.Items[0].UnitCost = "caro"
		if _, err := templates.SaveTemplate(ctx, "X", bad, "plantilla inválida", 1); core.KindOf(err) != core.KindValidation {
			t.Errorf("bad unit cost: kind = %s", core.KindOf(err))
		}
		empty := testPayload()
		empty.Items = nil
		if _, err := templates.SaveTemplate(ctx, "X", empty, "plantilla vacía", 1); core.KindOf(err) != core.KindValidation {
			t.Errorf("no items: kind = %s", core.KindOf(err))
		}
	})

	t.Run("missing template", func(t *testing.T) {
		if _, err := templates.GetTemplate(ctx, 99999); core.KindOf(err) != core.KindTemplateNotFound {
			t.Errorf("kind = %s, want %s", core.KindOf(err), core.KindTemplateNotFound)
		}
	})
}

func TestApplyTemplateIsPure(t *testing.T) {
	pool, ctx := setupTestDB(t)
	defer pool.Close()

	orders := core.NewPurchaseOrderService(pool)
	templates := core.NewTemplateService(pool, orders)

	saved, err := templates.SaveTemplate(ctx, "Quincena Centro", testPayload(), "plantilla de pedido recurrente", 1)
	if err != nil {
		t.Fatalf("SaveTemplate failed: %v", err)
	}

	draft, err := templates.ApplyTemplate(saved)
	if err != nil {
		t.Fatalf("ApplyTemplate failed: %v", err)
	}
	if draft.StoreID != 1 || draft.Supplier != "Distribuidora Norte" || len(draft.Items) != 2 {
		t.Errorf("unexpected draft: %+v", draft)
	}
	if draft.Items[0].UnitCost.StringFixed(2) != "120.50" {
		t.Errorf("draft unit cost = %s", draft.Items[0].UnitCost)
	}

	// Applying creates nothing and stamps nothing.
	var orderCount int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM purchase_orders`).Scan(&orderCount); err != nil {
		t.Fatalf("order query failed: %v", err)
	}
	if orderCount != 0 {
		t.Errorf("ApplyTemplate created %d orders", orderCount)
	}
	got, err := templates.GetTemplate(ctx, saved.ID)
	if err != nil {
		t.Fatalf("GetTemplate failed: %v", err)
	}
	if got.LastUsedAt != nil {
		t.Error("ApplyTemplate must not stamp last_used_at")
	}
}

func TestExecuteTemplate(t *testing.T) {
	pool, ctx := setupTestDB(t)
	defer pool.Close()

	orders := core.NewPurchaseOrderService(pool)
	templates := core.NewTemplateService(pool, orders)

	saved, err := templates.SaveTemplate(ctx, "Quincena Centro", testPayload(), "plantilla de pedido recurrente", 1)
	if err != nil {
		t.Fatalf("SaveTemplate failed: %v", err)
	}

	po, err := templates.ExecuteTemplate(ctx, saved.ID, "reposición quincenal", 1)
	if err != nil {
		t.Fatalf("ExecuteTemplate failed: %v", err)
	}
	if po.Status != core.StatusBorrador {
		t.Errorf("executed order status = %s, want BORRADOR", po.Status)
	}
	if len(po.Items) != 2 {
		t.Errorf("executed order has %d items, want 2", len(po.Items))
	}
	if po.Events[0].Reason != "reposición quincenal" {
		t.Errorf("event reason = %q, want the execution reason", po.Events[0].Reason)
	}

	got, err := templates.GetTemplate(ctx, saved.ID)
	if err != nil {
		t.Fatalf("GetTemplate failed: %v", err)
	}
	if got.LastUsedAt == nil {
		t.Error("ExecuteTemplate should stamp last_used_at")
	}

	// A payload referencing a retired device fails at execution, through
	// the same checks as manual creation.
	if _, err := pool.Exec(ctx, `UPDATE devices SET is_active = false WHERE id = 11`); err != nil {
		t.Fatalf("retire device failed: %v", err)
	}
	_, err = templates.ExecuteTemplate(ctx, saved.ID, "reposición quincenal", 1)
	if core.KindOf(err) != core.KindDeviceNotFound {
		t.Errorf("kind = %s, want %s", core.KindOf(err), core.KindDeviceNotFound)
	}
}

func TestPayloadSchema(t *testing.T) {
	pool, _ := setupTestDB(t)
	defer pool.Close()

	orders := core.NewPurchaseOrderService(pool)
	templates := core.NewTemplateService(pool, orders)

	schema := templates.PayloadSchema()
	if schema == nil {
		t.Fatal("PayloadSchema returned nil")
	}
	if _, ok := schema.Properties.Get("items"); !ok {
		t.Error("schema should describe the items property")
	}
	if _, ok := schema.Properties.Get("supplier"); !ok {
		t.Error("schema should describe the supplier property")
	}
}
