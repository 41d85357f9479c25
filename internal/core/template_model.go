package core

import (
	"context"
	"time"

	"github.com/invopop/jsonschema"
)

// OrderTypePurchase is the only payload variant this engine replays.
// The order_type tag keeps the table open to other variants later.
const OrderTypePurchase = "purchase"

// TemplateItem is one line of a stored template payload.
type TemplateItem struct {
	DeviceID int    `json:"device_id" jsonschema:"required,minimum=1"`
	Quantity int    `json:"quantity" jsonschema:"required,minimum=1"`
	UnitCost string `json:"unit_cost" jsonschema:"required,pattern=^[0-9]+(\\.[0-9]+)?$"`
}

// TemplatePayload is the snapshot of a purchase form captured at save
// time. It is stored as JSONB tagged with order_type and validated
// structurally before every replay.
type TemplatePayload struct {
	StoreID  int            `json:"store_id" jsonschema:"required,minimum=1"`
	Supplier string         `json:"supplier" jsonschema:"required,minLength=1"`
	Items    []TemplateItem `json:"items" jsonschema:"required,minItems=1"`
	Notes    string         `json:"notes,omitempty"`
}

// RecurringOrder is a saved order payload that can be replayed on
// demand. Templates never auto-apply and never expire.
type RecurringOrder struct {
	ID         int
	Name       string
	OrderType  string
	StoreID    *int
	Payload    TemplatePayload
	CreatedBy  int
	LastUsedAt *time.Time
	CreatedAt  time.Time
}

// TemplateService stores and replays recurring order templates.
type TemplateService interface {
	// SaveTemplate snapshots a payload under a name.
	SaveTemplate(ctx context.Context, name string, payload TemplatePayload, reason string, actorID int) (*RecurringOrder, error)

	// GetTemplate returns one template by id.
	GetTemplate(ctx context.Context, templateID int) (*RecurringOrder, error)

	// ListTemplates returns all templates, newest first.
	ListTemplates(ctx context.Context) ([]RecurringOrder, error)

	// ApplyTemplate projects a template into a prefilled draft input.
	// It is pure: no persistence, no network calls, no last_used_at stamp.
	ApplyTemplate(t *RecurringOrder) (*CreateOrderInput, error)

	// ExecuteTemplate feeds the stored payload through the normal order
	// creation path and stamps last_used_at.
	ExecuteTemplate(ctx context.Context, templateID int, reason string, actorID int) (*PurchaseOrder, error)

	// PayloadSchema returns the JSON Schema a purchase payload must satisfy.
	PayloadSchema() *jsonschema.Schema
}
