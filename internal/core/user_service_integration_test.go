package core_test

import (
	"testing"

	"purchasing-engine/internal/core"
)

func TestAuthenticate(t *testing.T) {
	pool, ctx := setupTestDB(t)
	defer pool.Close()

	hash, err := core.HashPassword("s3creta")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if _, err := pool.Exec(ctx, `
		INSERT INTO users (username, password_hash, role, store_id)
		VALUES ('gerente', $1, 'manager', 1)`,
		hash,
	); err != nil {
		t.Fatalf("insert user failed: %v", err)
	}

	users := core.NewUserService(pool)

	u, err := users.Authenticate(ctx, "gerente", "s3creta")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if u.Role != "manager" {
		t.Errorf("role = %q, want manager", u.Role)
	}
	if u.StoreID == nil || *u.StoreID != 1 {
		t.Errorf("store id = %v, want 1", u.StoreID)
	}

	// Wrong password and unknown user are indistinguishable.
	_, badPass := users.Authenticate(ctx, "gerente", "equivocada")
	_, badUser := users.Authenticate(ctx, "nadie", "s3creta")
	if badPass == nil || badUser == nil {
		t.Fatal("bad credentials should fail")
	}
	if badPass.Error() != badUser.Error() {
		t.Errorf("error messages differ: %q vs %q", badPass, badUser)
	}
	if core.KindOf(badPass) != core.KindValidation {
		t.Errorf("kind = %s, want %s", core.KindOf(badPass), core.KindValidation)
	}
}

func TestCatalog(t *testing.T) {
	pool, ctx := setupTestDB(t)
	defer pool.Close()

	catalog := core.NewCatalogService(pool)

	stores, err := catalog.GetStores(ctx)
	if err != nil {
		t.Fatalf("GetStores failed: %v", err)
	}
	if len(stores) != 2 {
		t.Errorf("expected 2 seeded stores, got %d", len(stores))
	}

	dev, err := catalog.CreateDevice(ctx, core.DeviceInput{SKU: "MOTG84-256-GRN", Name: "Motorola Moto G84 256GB Verde"})
	if err != nil {
		t.Fatalf("CreateDevice failed: %v", err)
	}

	found, err := catalog.GetDeviceBySKU(ctx, "MOTG84-256-GRN")
	if err != nil {
		t.Fatalf("GetDeviceBySKU failed: %v", err)
	}
	if found.ID != dev.ID {
		t.Errorf("lookup returned device %d, want %d", found.ID, dev.ID)
	}

	_, err = catalog.GetDeviceBySKU(ctx, "NO-EXISTE")
	if core.KindOf(err) != core.KindDeviceNotFound {
		t.Errorf("kind = %s, want %s", core.KindOf(err), core.KindDeviceNotFound)
	}
}
