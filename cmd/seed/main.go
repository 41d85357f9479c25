// seed is a one-shot tool to load baseline catalog data into the live
// database: the store list, a starter device catalog, and an admin user.
// Run it after migrations on a fresh database.
//
// Usage: go run ./cmd/seed
package main

import (
	"context"
	"log"
	"os"

	"purchasing-engine/internal/core"
	"purchasing-engine/internal/db"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	ctx := context.Background()
	pool, err := db.NewPool(ctx)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer pool.Close()

	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Fatalf("Failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx)

	log.Println("Restoring stores...")
	_, err = tx.Exec(ctx, `
		INSERT INTO stores (code, name)
		VALUES
		  ('CEN', 'Sucursal Centro'),
		  ('NOR', 'Sucursal Norte'),
		  ('SUR', 'Sucursal Sur')
		ON CONFLICT (code) DO UPDATE
		  SET name = EXCLUDED.name;
	`)
	if err != nil {
		log.Fatalf("Failed to restore stores: %v", err)
	}

	log.Println("Restoring device catalog...")
	_, err = tx.Exec(ctx, `
		INSERT INTO devices (sku, name)
		VALUES
		  ('IPH15-128-BLK', 'iPhone 15 128GB Negro'),
		  ('IPH15-256-BLU', 'iPhone 15 256GB Azul'),
		  ('SGS24-128-GRY', 'Samsung Galaxy S24 128GB Gris'),
		  ('SGA54-128-BLK', 'Samsung Galaxy A54 128GB Negro'),
		  ('XRN13-128-BLU', 'Xiaomi Redmi Note 13 128GB Azul'),
		  ('MOTG84-256-GRN', 'Motorola Moto G84 256GB Verde')
		ON CONFLICT (sku) DO UPDATE
		  SET name = EXCLUDED.name;
	`)
	if err != nil {
		log.Fatalf("Failed to restore devices: %v", err)
	}

	adminPassword := os.Getenv("SEED_ADMIN_PASSWORD")
	if adminPassword == "" {
		adminPassword = "admin123"
		log.Println("Warning: SEED_ADMIN_PASSWORD not set, using default password")
	}
	hash, err := core.HashPassword(adminPassword)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	log.Println("Restoring admin user...")
	_, err = tx.Exec(ctx, `
		INSERT INTO users (username, email, password_hash, role)
		VALUES ('admin', 'admin@example.com', $1, 'admin')
		ON CONFLICT (username) DO UPDATE
		  SET password_hash = EXCLUDED.password_hash,
		      role = EXCLUDED.role;
	`, hash)
	if err != nil {
		log.Fatalf("Failed to restore admin user: %v", err)
	}

	if err := tx.Commit(ctx); err != nil {
		log.Fatalf("Failed to commit: %v", err)
	}

	log.Println("Seed data restored successfully.")
}
