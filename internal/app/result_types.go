package app

import "purchasing-engine/internal/core"

// UserSession is the authenticated identity handed to the web adapter.
type UserSession struct {
	UserID   int
	Username string
	Role     string
	StoreID  *int
}

// UserResult is returned by GetUser.
type UserResult struct {
	User *core.User
}

// StoresResult is returned by ListStores.
type StoresResult struct {
	Stores []core.Store
}

// DevicesResult is returned by ListDevices.
type DevicesResult struct {
	Devices []core.Device
}

// PurchaseOrderResult is returned by order lifecycle operations.
type PurchaseOrderResult struct {
	Order *core.PurchaseOrder
}

// PurchaseOrdersResult is returned by ListPurchaseOrders.
type PurchaseOrdersResult struct {
	Orders []core.PurchaseOrder
}

// ReceiveResult is returned by ReceivePurchaseOrder. EventID is the
// dedupe key the inventory collaborator sees.
type ReceiveResult struct {
	Order   *core.PurchaseOrder
	EventID string
}

// ReturnResult is returned by return operations.
type ReturnResult struct {
	Return *core.PurchaseReturn
}

// DocumentResult is returned by UploadDocument.
type DocumentResult struct {
	Document *core.PurchaseOrderDocument
}

// DocumentsResult is returned by ListDocuments.
type DocumentsResult struct {
	Documents []core.PurchaseOrderDocument
}

// ImportResult is returned by ImportPurchaseOrders.
type ImportResult struct {
	Imported int
	Orders   []core.PurchaseOrder
	Errors   []core.RowError
}

// LedgerEntryResult is returned by CreatePurchaseRecord.
type LedgerEntryResult struct {
	Entry *core.LedgerEntry
}

// LedgerEntriesResult is returned by ListPurchaseRecords.
type LedgerEntriesResult struct {
	Entries []core.LedgerEntry
}

// SupplierBalancesResult is returned by GetSupplierBalances.
type SupplierBalancesResult struct {
	Balances []core.SupplierBalance
}

// TemplateResult is returned by template operations.
type TemplateResult struct {
	Template *core.RecurringOrder
}

// TemplatesResult is returned by ListTemplates.
type TemplatesResult struct {
	Templates []core.RecurringOrder
}

// DraftResult is the prefilled order draft an applied template projects.
type DraftResult struct {
	Draft *core.CreateOrderInput
}
