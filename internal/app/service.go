package app

import (
	"context"
	"io"

	"github.com/invopop/jsonschema"
)

// ApplicationService is the single interface the web adapter calls. It
// decouples presentation from business logic. Implementations must
// contain no display logic of any kind.
type ApplicationService interface {
	// AuthenticateUser verifies credentials and returns a session on success.
	AuthenticateUser(ctx context.Context, username, password string) (*UserSession, error)

	// GetUser returns user profile by ID.
	GetUser(ctx context.Context, userID int) (*UserResult, error)

	// ListStores returns all active stores.
	ListStores(ctx context.Context) (*StoresResult, error)

	// ListDevices returns all active catalog devices.
	ListDevices(ctx context.Context) (*DevicesResult, error)

	// CreatePurchaseOrder creates a new BORRADOR purchase order.
	CreatePurchaseOrder(ctx context.Context, req CreatePurchaseOrderRequest) (*PurchaseOrderResult, error)

	// GetPurchaseOrder returns a purchase order with items, returns,
	// documents and events.
	GetPurchaseOrder(ctx context.Context, orderID int) (*PurchaseOrderResult, error)

	// ListPurchaseOrders returns order headers, newest first.
	ListPurchaseOrders(ctx context.Context, storeID int, status string, limit int) (*PurchaseOrdersResult, error)

	// TransitionPurchaseOrder moves an order to a requested status.
	TransitionPurchaseOrder(ctx context.Context, req TransitionRequest) (*PurchaseOrderResult, error)

	// CancelPurchaseOrder moves an order to CANCELADA. Received stock is
	// frozen, not reversed.
	CancelPurchaseOrder(ctx context.Context, req CancelRequest) (*PurchaseOrderResult, error)

	// ReceivePurchaseOrder applies a goods receipt and rederives the status.
	ReceivePurchaseOrder(ctx context.Context, req ReceiveRequest) (*ReceiveResult, error)

	// RegisterReturn records a post-receipt return and posts its credit note.
	RegisterReturn(ctx context.Context, req RegisterReturnRequest) (*ReturnResult, error)

	// ApproveReturn stamps the approver on a pending return.
	ApproveReturn(ctx context.Context, req ApproveReturnRequest) (*ReturnResult, error)

	// UploadDocument attaches a file to an order.
	UploadDocument(ctx context.Context, req UploadDocumentRequest) (*DocumentResult, error)

	// ListDocuments returns an order's documents with resolved download URLs.
	ListDocuments(ctx context.Context, orderID int) (*DocumentsResult, error)

	// ImportPurchaseOrders runs a best-effort bulk import from a CSV or
	// XLSX upload. Row errors are collected in the result, not returned
	// as the call's error.
	ImportPurchaseOrders(ctx context.Context, filename string, file io.Reader, reason string, actorID int) (*ImportResult, error)

	// CreatePurchaseRecord appends an ad-hoc purchase to the supplier ledger.
	CreatePurchaseRecord(ctx context.Context, req PurchaseRecordRequest) (*LedgerEntryResult, error)

	// ListPurchaseRecords returns supplier ledger entries, newest first.
	ListPurchaseRecords(ctx context.Context, supplier string, limit int) (*LedgerEntriesResult, error)

	// GetSupplierBalances returns the net position per supplier.
	GetSupplierBalances(ctx context.Context) (*SupplierBalancesResult, error)

	// SaveTemplate snapshots an order payload under a name.
	SaveTemplate(ctx context.Context, req SaveTemplateRequest) (*TemplateResult, error)

	// ListTemplates returns all recurring order templates.
	ListTemplates(ctx context.Context) (*TemplatesResult, error)

	// GetTemplate returns one template by id.
	GetTemplate(ctx context.Context, templateID int) (*TemplateResult, error)

	// ApplyTemplate projects a template into a prefilled draft without
	// side effects.
	ApplyTemplate(ctx context.Context, templateID int) (*DraftResult, error)

	// ExecuteTemplate replays a template through the order creation path.
	ExecuteTemplate(ctx context.Context, templateID int, reason string, actorID int) (*PurchaseOrderResult, error)

	// TemplatePayloadSchema returns the JSON Schema template payloads
	// must satisfy.
	TemplatePayloadSchema() *jsonschema.Schema
}
