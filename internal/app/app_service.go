package app

import (
	"context"
	"io"

	"purchasing-engine/internal/core"

	"github.com/invopop/jsonschema"
	"github.com/jackc/pgx/v5/pgxpool"
)

type appService struct {
	pool      *pgxpool.Pool
	users     core.UserService
	catalog   core.CatalogService
	orders    core.PurchaseOrderService
	returns   core.ReturnsService
	documents core.DocumentService
	importer  core.ImportService
	templates core.TemplateService
	ledger    *core.SupplierLedger
}

// NewAppService constructs an appService that satisfies ApplicationService.
func NewAppService(
	pool *pgxpool.Pool,
	users core.UserService,
	catalog core.CatalogService,
	orders core.PurchaseOrderService,
	returns core.ReturnsService,
	documents core.DocumentService,
	importer core.ImportService,
	templates core.TemplateService,
	ledger *core.SupplierLedger,
) ApplicationService {
	return &appService{
		pool:      pool,
		users:     users,
		catalog:   catalog,
		orders:    orders,
		returns:   returns,
		documents: documents,
		importer:  importer,
		templates: templates,
		ledger:    ledger,
	}
}

// AuthenticateUser verifies credentials and returns a session on success.
func (s *appService) AuthenticateUser(ctx context.Context, username, password string) (*UserSession, error) {
	u, err := s.users.Authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}
	return &UserSession{UserID: u.ID, Username: u.Username, Role: u.Role, StoreID: u.StoreID}, nil
}

// GetUser returns user profile by ID.
func (s *appService) GetUser(ctx context.Context, userID int) (*UserResult, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &UserResult{User: u}, nil
}

// ListStores returns all active stores.
func (s *appService) ListStores(ctx context.Context) (*StoresResult, error) {
	stores, err := s.catalog.GetStores(ctx)
	if err != nil {
		return nil, err
	}
	return &StoresResult{Stores: stores}, nil
}

// ListDevices returns all active catalog devices.
func (s *appService) ListDevices(ctx context.Context) (*DevicesResult, error) {
	devices, err := s.catalog.GetDevices(ctx)
	if err != nil {
		return nil, err
	}
	return &DevicesResult{Devices: devices}, nil
}

// CreatePurchaseOrder creates a new BORRADOR purchase order.
func (s *appService) CreatePurchaseOrder(ctx context.Context, req CreatePurchaseOrderRequest) (*PurchaseOrderResult, error) {
	items := make([]core.ItemInput, len(req.Items))
	for i, it := range req.Items {
		items[i] = core.ItemInput{DeviceID: it.DeviceID, Quantity: it.Quantity, UnitCost: it.UnitCost}
	}
	po, err := s.orders.CreateOrder(ctx, core.CreateOrderInput{
		StoreID:  req.StoreID,
		Supplier: req.Supplier,
		Items:    items,
		Notes:    req.Notes,
		Reason:   req.Reason,
		ActorID:  req.ActorID,
	})
	if err != nil {
		return nil, err
	}
	return &PurchaseOrderResult{Order: po}, nil
}

// GetPurchaseOrder returns a purchase order with its full aggregate.
func (s *appService) GetPurchaseOrder(ctx context.Context, orderID int) (*PurchaseOrderResult, error) {
	po, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &PurchaseOrderResult{Order: po}, nil
}

// ListPurchaseOrders returns order headers, newest first.
func (s *appService) ListPurchaseOrders(ctx context.Context, storeID int, status string, limit int) (*PurchaseOrdersResult, error) {
	orders, err := s.orders.ListOrders(ctx, core.ListOrdersFilter{
		StoreID: storeID,
		Status:  core.Status(status),
		Limit:   limit,
	})
	if err != nil {
		return nil, err
	}
	return &PurchaseOrdersResult{Orders: orders}, nil
}

// TransitionPurchaseOrder moves an order to a requested status.
func (s *appService) TransitionPurchaseOrder(ctx context.Context, req TransitionRequest) (*PurchaseOrderResult, error) {
	po, err := s.orders.TransitionStatus(ctx, req.OrderID, core.Status(req.Target), req.Note, req.Reason, req.ActorID, req.ExpectedVersion)
	if err != nil {
		return nil, err
	}
	return &PurchaseOrderResult{Order: po}, nil
}

// CancelPurchaseOrder moves an order to CANCELADA.
func (s *appService) CancelPurchaseOrder(ctx context.Context, req CancelRequest) (*PurchaseOrderResult, error) {
	po, err := s.orders.CancelOrder(ctx, req.OrderID, req.Note, req.Reason, req.ActorID, req.ExpectedVersion)
	if err != nil {
		return nil, err
	}
	return &PurchaseOrderResult{Order: po}, nil
}

// ReceivePurchaseOrder applies a goods receipt and rederives the status.
func (s *appService) ReceivePurchaseOrder(ctx context.Context, req ReceiveRequest) (*ReceiveResult, error) {
	lines := make([]core.ReceiveLine, len(req.Lines))
	for i, l := range req.Lines {
		lines[i] = core.ReceiveLine{DeviceID: l.DeviceID, Quantity: l.Quantity, BatchCode: l.BatchCode}
	}
	res, err := s.orders.Receive(ctx, req.OrderID, lines, req.Reason, req.ActorID, req.ExpectedVersion)
	if err != nil {
		return nil, err
	}
	return &ReceiveResult{Order: res.Order, EventID: res.EventID.String()}, nil
}

// RegisterReturn records a post-receipt return and posts its credit note.
func (s *appService) RegisterReturn(ctx context.Context, req RegisterReturnRequest) (*ReturnResult, error) {
	r, err := s.returns.RegisterReturn(ctx, core.RegisterReturnInput{
		OrderID:     req.OrderID,
		DeviceID:    req.DeviceID,
		Quantity:    req.Quantity,
		Reason:      req.Reason,
		ReasonText:  req.ReasonText,
		Category:    core.ReturnCategory(req.Category),
		Disposition: core.Disposition(req.Disposition),
		WarehouseID: req.WarehouseID,
		ActorID:     req.ActorID,
	})
	if err != nil {
		return nil, err
	}
	return &ReturnResult{Return: r}, nil
}

// ApproveReturn stamps the approver on a pending return.
func (s *appService) ApproveReturn(ctx context.Context, req ApproveReturnRequest) (*ReturnResult, error) {
	r, err := s.returns.ApproveReturn(ctx, req.OrderID, req.ReturnID, req.Reason, req.ActorID)
	if err != nil {
		return nil, err
	}
	return &ReturnResult{Return: r}, nil
}

// UploadDocument attaches a file to an order.
func (s *appService) UploadDocument(ctx context.Context, req UploadDocumentRequest) (*DocumentResult, error) {
	doc, err := s.documents.UploadDocument(ctx, req.OrderID, req.Filename, req.ContentType, req.Body, req.Reason, req.ActorID)
	if err != nil {
		return nil, err
	}
	return &DocumentResult{Document: doc}, nil
}

// ListDocuments returns an order's documents with resolved download URLs.
func (s *appService) ListDocuments(ctx context.Context, orderID int) (*DocumentsResult, error) {
	docs, err := s.documents.ListDocuments(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &DocumentsResult{Documents: docs}, nil
}

// ImportPurchaseOrders runs a best-effort bulk import from an upload.
func (s *appService) ImportPurchaseOrders(ctx context.Context, filename string, file io.Reader, reason string, actorID int) (*ImportResult, error) {
	res, err := s.importer.ImportFromFile(ctx, filename, file, reason, actorID)
	if err != nil {
		return nil, err
	}
	return &ImportResult{Imported: res.Imported, Orders: res.Orders, Errors: res.Errors}, nil
}

// CreatePurchaseRecord appends an ad-hoc purchase to the supplier ledger.
func (s *appService) CreatePurchaseRecord(ctx context.Context, req PurchaseRecordRequest) (*LedgerEntryResult, error) {
	entry, err := s.ledger.RecordPurchase(ctx, core.RecordPurchaseInput{
		Supplier:      req.Supplier,
		Amount:        req.Amount,
		TaxRate:       req.TaxRate,
		PaymentMethod: req.PaymentMethod,
		Notes:         req.Notes,
		Reason:        req.Reason,
		ActorID:       req.ActorID,
	})
	if err != nil {
		return nil, err
	}
	return &LedgerEntryResult{Entry: entry}, nil
}

// ListPurchaseRecords returns supplier ledger entries, newest first.
func (s *appService) ListPurchaseRecords(ctx context.Context, supplier string, limit int) (*LedgerEntriesResult, error) {
	entries, err := s.ledger.ListEntries(ctx, supplier, limit)
	if err != nil {
		return nil, err
	}
	return &LedgerEntriesResult{Entries: entries}, nil
}

// GetSupplierBalances returns the net position per supplier.
func (s *appService) GetSupplierBalances(ctx context.Context) (*SupplierBalancesResult, error) {
	balances, err := s.ledger.GetSupplierBalances(ctx)
	if err != nil {
		return nil, err
	}
	return &SupplierBalancesResult{Balances: balances}, nil
}

// SaveTemplate snapshots an order payload under a name.
func (s *appService) SaveTemplate(ctx context.Context, req SaveTemplateRequest) (*TemplateResult, error) {
	items := make([]core.TemplateItem, len(req.Payload.Items))
	for i, it := range req.Payload.Items {
		items[i] = core.TemplateItem{DeviceID: it.DeviceID, Quantity: it.Quantity, UnitCost: it.UnitCost}
	}
	t, err := s.templates.SaveTemplate(ctx, req.Name, core.TemplatePayload{
		StoreID:  req.Payload.StoreID,
		Supplier: req.Payload.Supplier,
		Items:    items,
		Notes:    req.Payload.Notes,
	}, req.Reason, req.ActorID)
	if err != nil {
		return nil, err
	}
	return &TemplateResult{Template: t}, nil
}

// ListTemplates returns all recurring order templates.
func (s *appService) ListTemplates(ctx context.Context) (*TemplatesResult, error) {
	templates, err := s.templates.ListTemplates(ctx)
	if err != nil {
		return nil, err
	}
	return &TemplatesResult{Templates: templates}, nil
}

// GetTemplate returns one template by id.
func (s *appService) GetTemplate(ctx context.Context, templateID int) (*TemplateResult, error) {
	t, err := s.templates.GetTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}
	return &TemplateResult{Template: t}, nil
}

// ApplyTemplate projects a template into a prefilled draft.
func (s *appService) ApplyTemplate(ctx context.Context, templateID int) (*DraftResult, error) {
	t, err := s.templates.GetTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}
	draft, err := s.templates.ApplyTemplate(t)
	if err != nil {
		return nil, err
	}
	return &DraftResult{Draft: draft}, nil
}

// ExecuteTemplate replays a template through the order creation path.
func (s *appService) ExecuteTemplate(ctx context.Context, templateID int, reason string, actorID int) (*PurchaseOrderResult, error) {
	po, err := s.templates.ExecuteTemplate(ctx, templateID, reason, actorID)
	if err != nil {
		return nil, err
	}
	return &PurchaseOrderResult{Order: po}, nil
}

// TemplatePayloadSchema returns the JSON Schema template payloads must satisfy.
func (s *appService) TemplatePayloadSchema() *jsonschema.Schema {
	return s.templates.PayloadSchema()
}
