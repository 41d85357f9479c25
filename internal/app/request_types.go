package app

import (
	"io"

	"github.com/shopspring/decimal"
)

// CreatePurchaseOrderRequest is the input for creating a new purchase order.
type CreatePurchaseOrderRequest struct {
	StoreID  int
	Supplier string
	Notes    string
	Reason   string
	ActorID  int
	Items    []ItemInput
}

// ItemInput is a single line within a CreatePurchaseOrderRequest.
type ItemInput struct {
	DeviceID int
	Quantity int
	UnitCost decimal.Decimal
}

// TransitionRequest is the input for a direct status change.
type TransitionRequest struct {
	OrderID         int
	Target          string
	Note            string
	Reason          string
	ActorID         int
	ExpectedVersion *int // nil skips the optimistic check
}

// CancelRequest is the input for cancelling an order.
type CancelRequest struct {
	OrderID         int
	Note            string
	Reason          string
	ActorID         int
	ExpectedVersion *int
}

// ReceiveRequest is the input for a goods receipt against an order.
type ReceiveRequest struct {
	OrderID         int
	Reason          string
	ActorID         int
	ExpectedVersion *int
	Lines           []ReceiveLineInput
}

// ReceiveLineInput is a single line in a ReceiveRequest.
type ReceiveLineInput struct {
	DeviceID  int
	Quantity  int
	BatchCode string
}

// RegisterReturnRequest is the input for recording a post-receipt return.
type RegisterReturnRequest struct {
	OrderID     int
	DeviceID    int
	Quantity    int
	Reason      string
	ReasonText  string
	Category    string
	Disposition string
	WarehouseID *string
	ActorID     int
}

// ApproveReturnRequest is the input for approving a pending return.
type ApproveReturnRequest struct {
	OrderID  int
	ReturnID int
	Reason   string
	ActorID  int
}

// UploadDocumentRequest is the input for attaching a file to an order.
type UploadDocumentRequest struct {
	OrderID     int
	Filename    string
	ContentType string
	Body        io.Reader
	Reason      string
	ActorID     int
}

// PurchaseRecordRequest is the input for an ad-hoc supplier ledger entry.
type PurchaseRecordRequest struct {
	Supplier      string
	Amount        decimal.Decimal
	TaxRate       decimal.Decimal
	PaymentMethod string
	Notes         string
	Reason        string
	ActorID       int
}

// SaveTemplateRequest is the input for snapshotting a recurring template.
type SaveTemplateRequest struct {
	Name    string
	Payload TemplatePayloadInput
	Reason  string
	ActorID int
}

// TemplatePayloadInput mirrors the stored template payload.
type TemplatePayloadInput struct {
	StoreID  int
	Supplier string
	Notes    string
	Items    []TemplateItemInput
}

// TemplateItemInput is a single line within a template payload.
type TemplateItemInput struct {
	DeviceID int
	Quantity int
	UnitCost string
}
