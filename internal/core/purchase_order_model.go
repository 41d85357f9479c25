package core

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PurchaseOrder is the aggregate root of the purchasing engine. Items,
// returns, documents and events belong to their order and have no
// independent lifecycle.
type PurchaseOrder struct {
	ID          int
	OrderNumber *string // assigned on PENDIENTE, gapless per year
	StoreID     int
	StoreCode   string
	StoreName   string
	Supplier    string
	Status      Status
	Notes       string
	Version     int
	CreatedBy   int
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ClosedAt    *time.Time
	Items       []PurchaseOrderItem
	Returns     []PurchaseReturn
	Documents   []PurchaseOrderDocument
	Events      []StatusEvent
}

// PurchaseOrderItem is one ordered device line.
type PurchaseOrderItem struct {
	ID          int
	OrderID     int
	DeviceID    int
	DeviceSKU   string
	DeviceName  string
	QtyOrdered  int
	QtyReceived int
	UnitCost    decimal.Decimal
}

// Remaining returns the quantity still expected for this line.
func (it PurchaseOrderItem) Remaining() int {
	return it.QtyOrdered - it.QtyReceived
}

// StatusEvent is one append-only audit trail entry. Rows are never
// updated or deleted.
type StatusEvent struct {
	ID        int
	OrderID   int
	Status    Status
	Note      string
	Reason    string
	ActorID   int
	CreatedAt time.Time
}

// PurchaseOrderDocument is an uploaded attachment, immutable once stored.
type PurchaseOrderDocument struct {
	ID             int
	OrderID        int
	Filename       string
	ContentType    string
	StorageBackend string
	ObjectKey      string
	UploadedBy     int
	CreatedAt      time.Time
	DownloadURL    string // resolved at read time, not persisted
}

// ItemInput holds the fields required to create an order line.
type ItemInput struct {
	DeviceID int
	Quantity int
	UnitCost decimal.Decimal
}

// CreateOrderInput holds everything needed to create a draft order.
type CreateOrderInput struct {
	StoreID  int
	Supplier string
	Items    []ItemInput
	Notes    string
	Reason   string
	ActorID  int
}

// ReceiveLine is one line of a receiving call.
type ReceiveLine struct {
	DeviceID  int
	Quantity  int
	BatchCode string
}

// ReceiveResult reports the outcome of a receiving call. EventID groups
// the receipt rows written by the call and keys the inventory
// collaborator's dedupe.
type ReceiveResult struct {
	Order   *PurchaseOrder
	EventID uuid.UUID
}

// ListOrdersFilter narrows ListOrders. Zero values mean "no filter".
type ListOrdersFilter struct {
	StoreID int
	Status  Status
	Limit   int
}

// PurchaseOrderService provides the order lifecycle: creation, direct
// status transitions, cancellation and goods receiving. Every mutation
// passes the audit gate, bumps the order version and appends a
// StatusEvent inside the same transaction.
type PurchaseOrderService interface {
	// CreateOrder creates a new BORRADOR order with its lines.
	CreateOrder(ctx context.Context, input CreateOrderInput) (*PurchaseOrder, error)

	// GetOrder returns an order with items, returns, documents and events.
	GetOrder(ctx context.Context, orderID int) (*PurchaseOrder, error)

	// ListOrders returns order headers, newest first.
	ListOrders(ctx context.Context, filter ListOrdersFilter) ([]PurchaseOrder, error)

	// TransitionStatus moves an order to a caller-requested state.
	// Moving to PENDIENTE assigns the gapless order number. PARCIAL and
	// COMPLETADA are rejected: only receiving derives them.
	// expectedVersion, when non-nil, makes the call fail with
	// ConcurrentModification if the stored version differs.
	TransitionStatus(ctx context.Context, orderID int, target Status, note, reason string, actorID int, expectedVersion *int) (*PurchaseOrder, error)

	// CancelOrder moves an order to CANCELADA. Stock already received
	// stays counted; cancellation freezes quantities, it does not
	// reverse them.
	CancelOrder(ctx context.Context, orderID int, note, reason string, actorID int, expectedVersion *int) (*PurchaseOrder, error)

	// Receive applies one receiving call atomically: all lines are
	// validated and applied, the status is rederived, a stock-in event
	// per device is queued on the inventory outbox, and a StatusEvent is
	// appended — or nothing happens.
	Receive(ctx context.Context, orderID int, lines []ReceiveLine, reason string, actorID int, expectedVersion *int) (*ReceiveResult, error)
}
