package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Disposition classifies returned stock and governs whether it re-enters
// sellable inventory.
type Disposition string

const (
	DispositionResellable Disposition = "revendible"
	DispositionDefective  Disposition = "defectuoso"
	DispositionWriteOff   Disposition = "baja"
)

// ValidDisposition reports whether d is a known disposition.
func ValidDisposition(d Disposition) bool {
	switch d {
	case DispositionResellable, DispositionDefective, DispositionWriteOff:
		return true
	}
	return false
}

// ReturnCategory classifies why stock came back.
type ReturnCategory string

const (
	CategoryQuality   ReturnCategory = "calidad"
	CategoryWrongItem ReturnCategory = "error_pedido"
	CategoryTransport ReturnCategory = "transporte"
	CategoryOther     ReturnCategory = "otro"
)

// ValidReturnCategory reports whether c is a known category.
func ValidReturnCategory(c ReturnCategory) bool {
	switch c {
	case CategoryQuality, CategoryWrongItem, CategoryTransport, CategoryOther:
		return true
	}
	return false
}

// PurchaseReturn records stock sent back to the supplier. Rows are
// append-only; corrections are made with a compensating return.
type PurchaseReturn struct {
	ID               int
	OrderID          int
	DeviceID         int
	DeviceSKU        string
	Quantity         int
	Reason           string
	ReasonText       string
	Category         ReturnCategory
	Disposition      Disposition
	WarehouseID      *string
	LedgerEntryID    *int
	CreditNoteAmount decimal.Decimal
	ProcessedBy      int
	ApprovedBy       *int
	CreatedAt        time.Time
}

// RegisterReturnInput holds the fields of a return registration.
type RegisterReturnInput struct {
	OrderID     int
	DeviceID    int
	Quantity    int
	Reason      string
	ReasonText  string
	Category    ReturnCategory
	Disposition Disposition
	WarehouseID *string
	ActorID     int
}

// ReturnsService validates and records post-receipt returns.
type ReturnsService interface {
	// RegisterReturn records a return against received stock, posts the
	// supplier credit note and, for resellable dispositions, queues a
	// stock-in adjustment for the destination warehouse.
	RegisterReturn(ctx context.Context, input RegisterReturnInput) (*PurchaseReturn, error)

	// ApproveReturn stamps the approver on a pending return. Approving
	// an already-approved return fails.
	ApproveReturn(ctx context.Context, orderID, returnID int, reason string, actorID int) (*PurchaseReturn, error)
}
