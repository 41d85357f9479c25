package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// downloadURLExpiry bounds how long a resolved document link stays valid.
const downloadURLExpiry = 15 * time.Minute

// BlobStore is the object storage a document's bytes live in.
type BlobStore interface {
	Upload(ctx context.Context, objectKey, contentType string, body io.Reader) error
	PresignDownload(ctx context.Context, objectKey string, expiry time.Duration) (string, error)
}

// DocumentService attaches files to purchase orders. Documents are
// immutable once uploaded.
type DocumentService interface {
	UploadDocument(ctx context.Context, orderID int, filename, contentType string, body io.Reader, reason string, actorID int) (*PurchaseOrderDocument, error)
	ListDocuments(ctx context.Context, orderID int) ([]PurchaseOrderDocument, error)
}

type documentService struct {
	pool  *pgxpool.Pool
	store BlobStore
}

// NewDocumentService constructs a DocumentService writing bytes to the
// given blob store and metadata to PostgreSQL.
func NewDocumentService(pool *pgxpool.Pool, store BlobStore) DocumentService {
	return &documentService{pool: pool, store: store}
}

// UploadDocument stores the file and records it against the order.
func (s *documentService) UploadDocument(ctx context.Context, orderID int, filename, contentType string, body io.Reader, reason string, actorID int) (*PurchaseOrderDocument, error) {
	if err := ValidateReason(reason); err != nil {
		return nil, err
	}
	if filename == "" {
		return nil, E(KindValidation, "filename is required")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	var status Status
	if err := s.pool.QueryRow(ctx,
		"SELECT status FROM purchase_orders WHERE id = $1", orderID,
	).Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, E(KindOrderNotFound, "purchase order %d not found", orderID)
		}
		return nil, fmt.Errorf("fetch purchase order %d: %w", orderID, err)
	}
	if status == StatusCancelada {
		return nil, E(KindOrderTerminal, "purchase order %d is CANCELADA and cannot accept documents", orderID)
	}

	objectKey := fmt.Sprintf("purchase-orders/%d/%s%s", orderID, uuid.New().String(), path.Ext(filename))
	if err := s.store.Upload(ctx, objectKey, contentType, body); err != nil {
		return nil, Wrap(KindDependencyFailure, err, "store document %s", filename)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var docID int
	if err := tx.QueryRow(ctx, `
		INSERT INTO purchase_order_documents (order_id, filename, content_type, storage_backend, object_key, uploaded_by)
		VALUES ($1, $2, $3, 's3', $4, $5)
		RETURNING id`,
		orderID, filename, contentType, objectKey, actorID,
	).Scan(&docID); err != nil {
		return nil, fmt.Errorf("insert document: %w", err)
	}

	if _, err := tx.Exec(ctx,
		"UPDATE purchase_orders SET version = version + 1, updated_at = NOW() WHERE id = $1",
		orderID,
	); err != nil {
		return nil, fmt.Errorf("bump order %d version: %w", orderID, err)
	}

	note := fmt.Sprintf("documento adjunto: %s", filename)
	if err := appendStatusEventTx(ctx, tx, orderID, status, note, reason, actorID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit document: %w", err)
	}

	return s.getDocument(ctx, docID)
}

// ListDocuments returns the order's documents with resolved download URLs.
func (s *documentService) ListDocuments(ctx context.Context, orderID int) ([]PurchaseOrderDocument, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, order_id, filename, content_type, storage_backend, object_key, uploaded_by, created_at
		FROM purchase_order_documents
		WHERE order_id = $1
		ORDER BY id`,
		orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("list documents for order %d: %w", orderID, err)
	}
	defer rows.Close()

	var docs []PurchaseOrderDocument
	for rows.Next() {
		var d PurchaseOrderDocument
		if err := rows.Scan(
			&d.ID, &d.OrderID, &d.Filename, &d.ContentType,
			&d.StorageBackend, &d.ObjectKey, &d.UploadedBy, &d.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range docs {
		url, err := s.store.PresignDownload(ctx, docs[i].ObjectKey, downloadURLExpiry)
		if err != nil {
			return nil, Wrap(KindDependencyFailure, err, "resolve download URL for document %d", docs[i].ID)
		}
		docs[i].DownloadURL = url
	}
	return docs, nil
}

func (s *documentService) getDocument(ctx context.Context, docID int) (*PurchaseOrderDocument, error) {
	d := &PurchaseOrderDocument{}
	if err := s.pool.QueryRow(ctx, `
		SELECT id, order_id, filename, content_type, storage_backend, object_key, uploaded_by, created_at
		FROM purchase_order_documents
		WHERE id = $1`,
		docID,
	).Scan(
		&d.ID, &d.OrderID, &d.Filename, &d.ContentType,
		&d.StorageBackend, &d.ObjectKey, &d.UploadedBy, &d.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("get document %d: %w", docID, err)
	}
	return d, nil
}
