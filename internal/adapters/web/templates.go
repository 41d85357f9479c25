package web

import (
	"net/http"

	"purchasing-engine/internal/app"
	"purchasing-engine/internal/core"
)

// templateDTO is the JSON shape of a recurring order template.
type templateDTO struct {
	ID         int                 `json:"id"`
	Name       string              `json:"name"`
	OrderType  string              `json:"order_type"`
	StoreID    *int                `json:"store_id,omitempty"`
	Payload    templatePayloadDTO  `json:"payload"`
	CreatedBy  int                 `json:"created_by"`
	LastUsedAt *string             `json:"last_used_at,omitempty"`
	CreatedAt  string              `json:"created_at"`
}

type templatePayloadDTO struct {
	StoreID  int               `json:"store_id"`
	Supplier string            `json:"supplier"`
	Notes    string            `json:"notes,omitempty"`
	Items    []templateItemDTO `json:"items"`
}

type templateItemDTO struct {
	DeviceID int    `json:"device_id"`
	Quantity int    `json:"quantity"`
	UnitCost string `json:"unit_cost"`
}

func toTemplateDTO(t *core.RecurringOrder) templateDTO {
	dto := templateDTO{
		ID:        t.ID,
		Name:      t.Name,
		OrderType: t.OrderType,
		StoreID:   t.StoreID,
		CreatedBy: t.CreatedBy,
		CreatedAt: t.CreatedAt.Format(timeFormat),
		Payload: templatePayloadDTO{
			StoreID:  t.Payload.StoreID,
			Supplier: t.Payload.Supplier,
			Notes:    t.Payload.Notes,
		},
	}
	if t.LastUsedAt != nil {
		lastUsed := t.LastUsedAt.Format(timeFormat)
		dto.LastUsedAt = &lastUsed
	}
	for _, it := range t.Payload.Items {
		dto.Payload.Items = append(dto.Payload.Items, templateItemDTO{
			DeviceID: it.DeviceID,
			Quantity: it.Quantity,
			UnitCost: it.UnitCost,
		})
	}
	return dto
}

// apiListTemplates handles GET /api/recurring-orders.
func (h *Handler) apiListTemplates(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListTemplates(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	templates := make([]templateDTO, len(result.Templates))
	for i := range result.Templates {
		templates[i] = toTemplateDTO(&result.Templates[i])
	}
	writeJSON(w, map[string]any{"templates": templates})
}

// apiSaveTemplate handles POST /api/recurring-orders.
func (h *Handler) apiSaveTemplate(w http.ResponseWriter, r *http.Request) {
	claims := authFromContext(r.Context())
	var req struct {
		Name    string `json:"name"`
		Reason  string `json:"reason"`
		Payload struct {
			StoreID  int    `json:"store_id"`
			Supplier string `json:"supplier"`
			Notes    string `json:"notes"`
			Items    []struct {
				DeviceID int    `json:"device_id"`
				Quantity int    `json:"quantity"`
				UnitCost string `json:"unit_cost"`
			} `json:"items"`
		} `json:"payload"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	items := make([]app.TemplateItemInput, len(req.Payload.Items))
	for i, it := range req.Payload.Items {
		items[i] = app.TemplateItemInput{DeviceID: it.DeviceID, Quantity: it.Quantity, UnitCost: it.UnitCost}
	}

	result, err := h.svc.SaveTemplate(r.Context(), app.SaveTemplateRequest{
		Name: req.Name,
		Payload: app.TemplatePayloadInput{
			StoreID:  req.Payload.StoreID,
			Supplier: req.Payload.Supplier,
			Notes:    req.Payload.Notes,
			Items:    items,
		},
		Reason:  reasonFrom(r, req.Reason),
		ActorID: claims.UserID,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, toTemplateDTO(result.Template))
}

// apiTemplateSchema handles GET /api/recurring-orders/schema.
func (h *Handler) apiTemplateSchema(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.svc.TemplatePayloadSchema())
}

// apiGetTemplate handles GET /api/recurring-orders/{id}.
func (h *Handler) apiGetTemplate(w http.ResponseWriter, r *http.Request) {
	templateID, ok := intParam(w, r, "id")
	if !ok {
		return
	}
	result, err := h.svc.GetTemplate(r.Context(), templateID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, toTemplateDTO(result.Template))
}

// apiApplyTemplate handles POST /api/recurring-orders/{id}/apply. The
// response is a prefilled draft; nothing is persisted.
func (h *Handler) apiApplyTemplate(w http.ResponseWriter, r *http.Request) {
	templateID, ok := intParam(w, r, "id")
	if !ok {
		return
	}
	result, err := h.svc.ApplyTemplate(r.Context(), templateID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	type draftItemDTO struct {
		DeviceID int    `json:"device_id"`
		Quantity int    `json:"quantity"`
		UnitCost string `json:"unit_cost"`
	}
	type draftDTO struct {
		StoreID  int            `json:"store_id"`
		Supplier string         `json:"supplier"`
		Notes    string         `json:"notes,omitempty"`
		Items    []draftItemDTO `json:"items"`
	}
	draft := draftDTO{
		StoreID:  result.Draft.StoreID,
		Supplier: result.Draft.Supplier,
		Notes:    result.Draft.Notes,
	}
	for _, it := range result.Draft.Items {
		draft.Items = append(draft.Items, draftItemDTO{
			DeviceID: it.DeviceID,
			Quantity: it.Quantity,
			UnitCost: it.UnitCost.StringFixed(2),
		})
	}
	writeJSON(w, draft)
}

// apiExecuteTemplate handles POST /api/recurring-orders/{id}/execute.
func (h *Handler) apiExecuteTemplate(w http.ResponseWriter, r *http.Request) {
	claims := authFromContext(r.Context())
	templateID, ok := intParam(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.svc.ExecuteTemplate(r.Context(), templateID, reasonFrom(r, req.Reason), claims.UserID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, toPODTO(result.Order))
}
