package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	webAdapter "purchasing-engine/internal/adapters/web"
	"purchasing-engine/internal/app"
	"purchasing-engine/internal/core"
	"purchasing-engine/internal/db"
	"purchasing-engine/internal/inventory"
	"purchasing-engine/internal/s3"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	ctx := context.Background()
	pool, err := db.NewPool(ctx)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer pool.Close()

	uploader, err := s3.NewUploader(ctx, s3.Config{
		Region:          os.Getenv("AWS_REGION"),
		Bucket:          os.Getenv("S3_BUCKET"),
		AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
	})
	if err != nil {
		log.Fatalf("s3: %v", err)
	}

	userService := core.NewUserService(pool)
	catalogService := core.NewCatalogService(pool)
	orderService := core.NewPurchaseOrderService(pool)
	ledger := core.NewSupplierLedger(pool)
	returnsService := core.NewReturnsService(pool, ledger)
	docService := core.NewDocumentService(pool, uploader)
	importService := core.NewImportService(pool, orderService)
	templateService := core.NewTemplateService(pool, orderService)

	svc := app.NewAppService(pool, userService, catalogService, orderService,
		returnsService, docService, importService, templateService, ledger)

	inventoryURL := os.Getenv("INVENTORY_API_URL")
	if inventoryURL == "" {
		log.Println("Warning: INVENTORY_API_URL is not set, outbox deliveries will fail")
	}
	inventoryClient := inventory.NewClient(inventoryURL, os.Getenv("INVENTORY_API_KEY"))
	dispatcher := core.NewOutboxDispatcher(pool, inventoryClient, 5*time.Second)
	go dispatcher.Run(ctx)

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET environment variable not set")
	}

	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	handler := webAdapter.NewHandler(svc, allowedOrigins, jwtSecret)

	log.Printf("server starting on :%s", port)
	if err := http.ListenAndServe(":"+port, handler); err != nil {
		log.Fatalf("server: %v", err)
	}
}
