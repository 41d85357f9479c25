package web

import (
	"net/http"
	"strconv"

	"purchasing-engine/internal/app"
	"purchasing-engine/internal/core"

	"github.com/shopspring/decimal"
)

// poItemDTO is the JSON shape of an order line.
type poItemDTO struct {
	ID          int    `json:"id"`
	DeviceID    int    `json:"device_id"`
	DeviceSKU   string `json:"device_sku"`
	DeviceName  string `json:"device_name"`
	QtyOrdered  int    `json:"qty_ordered"`
	QtyReceived int    `json:"qty_received"`
	UnitCost    string `json:"unit_cost"`
}

// poReturnDTO is the JSON shape of a return row.
type poReturnDTO struct {
	ID               int     `json:"id"`
	DeviceID         int     `json:"device_id"`
	DeviceSKU        string  `json:"device_sku"`
	Quantity         int     `json:"quantity"`
	Reason           string  `json:"reason"`
	ReasonText       string  `json:"reason_text,omitempty"`
	Category         string  `json:"category"`
	Disposition      string  `json:"disposition"`
	WarehouseID      *string `json:"warehouse_id,omitempty"`
	LedgerEntryID    *int    `json:"ledger_entry_id,omitempty"`
	CreditNoteAmount string  `json:"credit_note_amount"`
	ProcessedBy      int     `json:"processed_by"`
	ApprovedBy       *int    `json:"approved_by,omitempty"`
	CreatedAt        string  `json:"created_at"`
}

// poEventDTO is the JSON shape of an audit trail entry.
type poEventDTO struct {
	ID        int    `json:"id"`
	Status    string `json:"status"`
	Note      string `json:"note,omitempty"`
	Reason    string `json:"reason"`
	ActorID   int    `json:"actor_id"`
	CreatedAt string `json:"created_at"`
}

// poDocumentDTO is the JSON shape of an attached document.
type poDocumentDTO struct {
	ID          int    `json:"id"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	UploadedBy  int    `json:"uploaded_by"`
	CreatedAt   string `json:"created_at"`
	DownloadURL string `json:"download_url,omitempty"`
}

// poDTO is the JSON shape of a purchase order.
type poDTO struct {
	ID          int             `json:"id"`
	OrderNumber *string         `json:"order_number"`
	StoreID     int             `json:"store_id"`
	StoreCode   string          `json:"store_code"`
	StoreName   string          `json:"store_name"`
	Supplier    string          `json:"supplier"`
	Status      string          `json:"status"`
	Notes       string          `json:"notes,omitempty"`
	Version     int             `json:"version"`
	CreatedBy   int             `json:"created_by"`
	CreatedAt   string          `json:"created_at"`
	UpdatedAt   string          `json:"updated_at"`
	ClosedAt    *string         `json:"closed_at,omitempty"`
	Items       []poItemDTO     `json:"items,omitempty"`
	Returns     []poReturnDTO   `json:"returns,omitempty"`
	Documents   []poDocumentDTO `json:"documents,omitempty"`
	Events      []poEventDTO    `json:"events,omitempty"`
}

const timeFormat = "2006-01-02T15:04:05Z07:00"

func toPODTO(po *core.PurchaseOrder) poDTO {
	dto := poDTO{
		ID:          po.ID,
		OrderNumber: po.OrderNumber,
		StoreID:     po.StoreID,
		StoreCode:   po.StoreCode,
		StoreName:   po.StoreName,
		Supplier:    po.Supplier,
		Status:      string(po.Status),
		Notes:       po.Notes,
		Version:     po.Version,
		CreatedBy:   po.CreatedBy,
		CreatedAt:   po.CreatedAt.Format(timeFormat),
		UpdatedAt:   po.UpdatedAt.Format(timeFormat),
	}
	if po.ClosedAt != nil {
		closed := po.ClosedAt.Format(timeFormat)
		dto.ClosedAt = &closed
	}
	for _, it := range po.Items {
		dto.Items = append(dto.Items, poItemDTO{
			ID:          it.ID,
			DeviceID:    it.DeviceID,
			DeviceSKU:   it.DeviceSKU,
			DeviceName:  it.DeviceName,
			QtyOrdered:  it.QtyOrdered,
			QtyReceived: it.QtyReceived,
			UnitCost:    it.UnitCost.StringFixed(2),
		})
	}
	for _, ret := range po.Returns {
		dto.Returns = append(dto.Returns, toReturnDTO(&ret))
	}
	for _, doc := range po.Documents {
		dto.Documents = append(dto.Documents, toDocumentDTO(&doc))
	}
	for _, ev := range po.Events {
		dto.Events = append(dto.Events, poEventDTO{
			ID:        ev.ID,
			Status:    string(ev.Status),
			Note:      ev.Note,
			Reason:    ev.Reason,
			ActorID:   ev.ActorID,
			CreatedAt: ev.CreatedAt.Format(timeFormat),
		})
	}
	return dto
}

func toReturnDTO(r *core.PurchaseReturn) poReturnDTO {
	return poReturnDTO{
		ID:               r.ID,
		DeviceID:         r.DeviceID,
		DeviceSKU:        r.DeviceSKU,
		Quantity:         r.Quantity,
		Reason:           r.Reason,
		ReasonText:       r.ReasonText,
		Category:         string(r.Category),
		Disposition:      string(r.Disposition),
		WarehouseID:      r.WarehouseID,
		LedgerEntryID:    r.LedgerEntryID,
		CreditNoteAmount: r.CreditNoteAmount.StringFixed(2),
		ProcessedBy:      r.ProcessedBy,
		ApprovedBy:       r.ApprovedBy,
		CreatedAt:        r.CreatedAt.Format(timeFormat),
	}
}

func toDocumentDTO(d *core.PurchaseOrderDocument) poDocumentDTO {
	return poDocumentDTO{
		ID:          d.ID,
		Filename:    d.Filename,
		ContentType: d.ContentType,
		UploadedBy:  d.UploadedBy,
		CreatedAt:   d.CreatedAt.Format(timeFormat),
		DownloadURL: d.DownloadURL,
	}
}

// apiListOrders handles GET /api/purchases?store_id=&status=&limit=.
func (h *Handler) apiListOrders(w http.ResponseWriter, r *http.Request) {
	storeID, _ := strconv.Atoi(r.URL.Query().Get("store_id"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	status := r.URL.Query().Get("status")

	result, err := h.svc.ListPurchaseOrders(r.Context(), storeID, status, limit)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	orders := make([]poDTO, len(result.Orders))
	for i := range result.Orders {
		orders[i] = toPODTO(&result.Orders[i])
	}
	writeJSON(w, map[string]any{"orders": orders})
}

// apiCreateOrder handles POST /api/purchases.
func (h *Handler) apiCreateOrder(w http.ResponseWriter, r *http.Request) {
	claims := authFromContext(r.Context())
	var req struct {
		StoreID  int    `json:"store_id"`
		Supplier string `json:"supplier"`
		Notes    string `json:"notes"`
		Reason   string `json:"reason"`
		Items    []struct {
			DeviceID int    `json:"device_id"`
			Quantity int    `json:"quantity"`
			UnitCost string `json:"unit_cost"`
		} `json:"items"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	items := make([]app.ItemInput, len(req.Items))
	for i, it := range req.Items {
		cost, err := decimal.NewFromString(it.UnitCost)
		if err != nil {
			writeError(w, r, "invalid unit_cost on item "+strconv.Itoa(i+1), "VALIDATION", http.StatusBadRequest)
			return
		}
		items[i] = app.ItemInput{DeviceID: it.DeviceID, Quantity: it.Quantity, UnitCost: cost}
	}

	result, err := h.svc.CreatePurchaseOrder(r.Context(), app.CreatePurchaseOrderRequest{
		StoreID:  req.StoreID,
		Supplier: req.Supplier,
		Notes:    req.Notes,
		Reason:   reasonFrom(r, req.Reason),
		ActorID:  claims.UserID,
		Items:    items,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, toPODTO(result.Order))
}

// apiGetOrder handles GET /api/purchases/{id}.
func (h *Handler) apiGetOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}
	result, err := h.svc.GetPurchaseOrder(r.Context(), orderID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, toPODTO(result.Order))
}

// apiTransitionOrder handles POST /api/purchases/{id}/status.
func (h *Handler) apiTransitionOrder(w http.ResponseWriter, r *http.Request) {
	claims := authFromContext(r.Context())
	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}
	var req struct {
		Status          string `json:"status"`
		Note            string `json:"note"`
		Reason          string `json:"reason"`
		ExpectedVersion *int   `json:"expected_version"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.svc.TransitionPurchaseOrder(r.Context(), app.TransitionRequest{
		OrderID:         orderID,
		Target:          req.Status,
		Note:            req.Note,
		Reason:          reasonFrom(r, req.Reason),
		ActorID:         claims.UserID,
		ExpectedVersion: req.ExpectedVersion,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, toPODTO(result.Order))
}

// apiCancelOrder handles POST /api/purchases/{id}/cancel.
func (h *Handler) apiCancelOrder(w http.ResponseWriter, r *http.Request) {
	claims := authFromContext(r.Context())
	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}
	var req struct {
		Note            string `json:"note"`
		Reason          string `json:"reason"`
		ExpectedVersion *int   `json:"expected_version"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.svc.CancelPurchaseOrder(r.Context(), app.CancelRequest{
		OrderID:         orderID,
		Note:            req.Note,
		Reason:          reasonFrom(r, req.Reason),
		ActorID:         claims.UserID,
		ExpectedVersion: req.ExpectedVersion,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, toPODTO(result.Order))
}

// apiReceiveOrder handles POST /api/purchases/{id}/receive.
func (h *Handler) apiReceiveOrder(w http.ResponseWriter, r *http.Request) {
	claims := authFromContext(r.Context())
	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}
	var req struct {
		Reason          string `json:"reason"`
		ExpectedVersion *int   `json:"expected_version"`
		Items           []struct {
			DeviceID  int    `json:"device_id"`
			Quantity  int    `json:"quantity"`
			BatchCode string `json:"batch_code"`
		} `json:"items"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	lines := make([]app.ReceiveLineInput, len(req.Items))
	for i, it := range req.Items {
		lines[i] = app.ReceiveLineInput{DeviceID: it.DeviceID, Quantity: it.Quantity, BatchCode: it.BatchCode}
	}

	result, err := h.svc.ReceivePurchaseOrder(r.Context(), app.ReceiveRequest{
		OrderID:         orderID,
		Reason:          reasonFrom(r, req.Reason),
		ActorID:         claims.UserID,
		ExpectedVersion: req.ExpectedVersion,
		Lines:           lines,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, map[string]any{
		"order":    toPODTO(result.Order),
		"event_id": result.EventID,
	})
}

// apiRegisterReturn handles POST /api/purchases/{id}/returns.
func (h *Handler) apiRegisterReturn(w http.ResponseWriter, r *http.Request) {
	claims := authFromContext(r.Context())
	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}
	var req struct {
		DeviceID    int     `json:"device_id"`
		Quantity    int     `json:"quantity"`
		Reason      string  `json:"reason"`
		ReasonText  string  `json:"reason_text"`
		Category    string  `json:"category"`
		Disposition string  `json:"disposition"`
		WarehouseID *string `json:"warehouse_id"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.svc.RegisterReturn(r.Context(), app.RegisterReturnRequest{
		OrderID:     orderID,
		DeviceID:    req.DeviceID,
		Quantity:    req.Quantity,
		Reason:      reasonFrom(r, req.Reason),
		ReasonText:  req.ReasonText,
		Category:    req.Category,
		Disposition: req.Disposition,
		WarehouseID: req.WarehouseID,
		ActorID:     claims.UserID,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, toReturnDTO(result.Return))
}

// apiApproveReturn handles POST /api/purchases/{id}/returns/{returnID}/approve.
func (h *Handler) apiApproveReturn(w http.ResponseWriter, r *http.Request) {
	claims := authFromContext(r.Context())
	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}
	returnID, ok := intParam(w, r, "returnID")
	if !ok {
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.svc.ApproveReturn(r.Context(), app.ApproveReturnRequest{
		OrderID:  orderID,
		ReturnID: returnID,
		Reason:   reasonFrom(r, req.Reason),
		ActorID:  claims.UserID,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, toReturnDTO(result.Return))
}
