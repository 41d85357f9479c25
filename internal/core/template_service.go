package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type templateService struct {
	pool   *pgxpool.Pool
	orders PurchaseOrderService
	schema *jsonschema.Schema
}

// NewTemplateService constructs a TemplateService. Execution goes
// through the given PurchaseOrderService so replayed payloads face the
// same invariant checks as manual creation.
func NewTemplateService(pool *pgxpool.Pool, orders PurchaseOrderService) TemplateService {
	reflector := jsonschema.Reflector{DoNotReference: true}
	return &templateService{
		pool:   pool,
		orders: orders,
		schema: reflector.Reflect(&TemplatePayload{}),
	}
}

// SaveTemplate snapshots a payload under a name.
func (s *templateService) SaveTemplate(ctx context.Context, name string, payload TemplatePayload, reason string, actorID int) (*RecurringOrder, error) {
	if err := ValidateReason(reason); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, E(KindValidation, "template name is required")
	}
	if err := validatePayload(payload); err != nil {
		return nil, err
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal template payload: %w", err)
	}

	var storeID *int
	if payload.StoreID != 0 {
		storeID = &payload.StoreID
	}

	var id int
	if err := s.pool.QueryRow(ctx, `
		INSERT INTO recurring_orders (name, order_type, store_id, payload, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		name, OrderTypePurchase, storeID, raw, actorID,
	).Scan(&id); err != nil {
		return nil, fmt.Errorf("insert template: %w", err)
	}
	return s.GetTemplate(ctx, id)
}

// GetTemplate returns one template by id.
func (s *templateService) GetTemplate(ctx context.Context, templateID int) (*RecurringOrder, error) {
	t := &RecurringOrder{}
	var raw []byte
	if err := s.pool.QueryRow(ctx, `
		SELECT id, name, order_type, store_id, payload, created_by, last_used_at, created_at
		FROM recurring_orders
		WHERE id = $1`,
		templateID,
	).Scan(&t.ID, &t.Name, &t.OrderType, &t.StoreID, &raw, &t.CreatedBy, &t.LastUsedAt, &t.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, E(KindTemplateNotFound, "template %d not found", templateID)
		}
		return nil, fmt.Errorf("get template %d: %w", templateID, err)
	}
	if err := json.Unmarshal(raw, &t.Payload); err != nil {
		return nil, fmt.Errorf("decode payload of template %d: %w", templateID, err)
	}
	return t, nil
}

// ListTemplates returns all templates, newest first.
func (s *templateService) ListTemplates(ctx context.Context) ([]RecurringOrder, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, order_type, store_id, payload, created_by, last_used_at, created_at
		FROM recurring_orders
		ORDER BY created_at DESC, id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var templates []RecurringOrder
	for rows.Next() {
		var t RecurringOrder
		var raw []byte
		if err := rows.Scan(&t.ID, &t.Name, &t.OrderType, &t.StoreID, &raw, &t.CreatedBy, &t.LastUsedAt, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		if err := json.Unmarshal(raw, &t.Payload); err != nil {
			return nil, fmt.Errorf("decode payload of template %d: %w", t.ID, err)
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

// ApplyTemplate projects a template into a prefilled draft input without
// side effects.
func (s *templateService) ApplyTemplate(t *RecurringOrder) (*CreateOrderInput, error) {
	if t.OrderType != OrderTypePurchase {
		return nil, E(KindValidation, "template %d has unsupported order type %q", t.ID, t.OrderType)
	}
	if err := validatePayload(t.Payload); err != nil {
		return nil, err
	}
	return payloadToInput(t.Payload)
}

// ExecuteTemplate replays the stored payload through the order creation
// path and stamps last_used_at.
func (s *templateService) ExecuteTemplate(ctx context.Context, templateID int, reason string, actorID int) (*PurchaseOrder, error) {
	if err := ValidateReason(reason); err != nil {
		return nil, err
	}

	t, err := s.GetTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}
	input, err := s.ApplyTemplate(t)
	if err != nil {
		return nil, err
	}
	input.Reason = reason
	input.ActorID = actorID

	po, err := s.orders.CreateOrder(ctx, *input)
	if err != nil {
		return nil, err
	}

	if _, err := s.pool.Exec(ctx,
		"UPDATE recurring_orders SET last_used_at = NOW() WHERE id = $1",
		templateID,
	); err != nil {
		return nil, fmt.Errorf("stamp last_used_at on template %d: %w", templateID, err)
	}
	return po, nil
}

// PayloadSchema returns the JSON Schema a purchase payload must satisfy.
func (s *templateService) PayloadSchema() *jsonschema.Schema {
	return s.schema
}

// validatePayload checks a payload structurally before storage or replay
// so an opaque blob never reaches the creation path.
func validatePayload(p TemplatePayload) error {
	if p.StoreID < 1 {
		return E(KindValidation, "payload: store_id must be at least 1")
	}
	if p.Supplier == "" {
		return E(KindValidation, "payload: supplier is required")
	}
	if len(p.Items) == 0 {
		return E(KindValidation, "payload: at least one item is required")
	}
	for i, it := range p.Items {
		if it.DeviceID < 1 {
			return E(KindValidation, "payload item %d: device_id must be at least 1", i+1)
		}
		if it.Quantity < 1 {
			return E(KindValidation, "payload item %d: quantity must be at least 1", i+1)
		}
		cost, err := decimal.NewFromString(it.UnitCost)
		if err != nil {
			return E(KindValidation, "payload item %d: unit_cost %q is not a number", i+1, it.UnitCost)
		}
		if cost.IsNegative() {
			return E(KindValidation, "payload item %d: unit_cost must not be negative", i+1)
		}
	}
	return nil
}

// payloadToInput converts a validated payload into a creation input.
func payloadToInput(p TemplatePayload) (*CreateOrderInput, error) {
	items := make([]ItemInput, len(p.Items))
	for i, it := range p.Items {
		cost, err := decimal.NewFromString(it.UnitCost)
		if err != nil {
			return nil, E(KindValidation, "payload item %d: unit_cost %q is not a number", i+1, it.UnitCost)
		}
		items[i] = ItemInput{DeviceID: it.DeviceID, Quantity: it.Quantity, UnitCost: cost}
	}
	return &CreateOrderInput{
		StoreID:  p.StoreID,
		Supplier: p.Supplier,
		Items:    items,
		Notes:    p.Notes,
	}, nil
}
