package web

import (
	"net/http"
	"strconv"

	"purchasing-engine/internal/app"
	"purchasing-engine/internal/core"

	"github.com/shopspring/decimal"
)

// ledgerEntryDTO is the JSON shape of a supplier ledger entry.
type ledgerEntryDTO struct {
	ID            int     `json:"id"`
	Supplier      string  `json:"supplier"`
	EntryType     string  `json:"entry_type"`
	ReferenceType *string `json:"reference_type,omitempty"`
	ReferenceID   *int    `json:"reference_id,omitempty"`
	Amount        string  `json:"amount"`
	TaxRate       string  `json:"tax_rate"`
	PaymentMethod string  `json:"payment_method,omitempty"`
	Notes         string  `json:"notes,omitempty"`
	CreatedBy     int     `json:"created_by"`
	CreatedAt     string  `json:"created_at"`
}

func toLedgerEntryDTO(e *core.LedgerEntry) ledgerEntryDTO {
	return ledgerEntryDTO{
		ID:            e.ID,
		Supplier:      e.Supplier,
		EntryType:     string(e.EntryType),
		ReferenceType: e.ReferenceType,
		ReferenceID:   e.ReferenceID,
		Amount:        e.Amount.StringFixed(2),
		TaxRate:       e.TaxRate.StringFixed(2),
		PaymentMethod: e.PaymentMethod,
		Notes:         e.Notes,
		CreatedBy:     e.CreatedBy,
		CreatedAt:     e.CreatedAt.Format(timeFormat),
	}
}

// apiListPurchaseRecords handles GET /api/purchases/records?supplier=&limit=.
func (h *Handler) apiListPurchaseRecords(w http.ResponseWriter, r *http.Request) {
	supplier := r.URL.Query().Get("supplier")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	result, err := h.svc.ListPurchaseRecords(r.Context(), supplier, limit)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	entries := make([]ledgerEntryDTO, len(result.Entries))
	for i := range result.Entries {
		entries[i] = toLedgerEntryDTO(&result.Entries[i])
	}
	writeJSON(w, map[string]any{"records": entries})
}

// apiCreatePurchaseRecord handles POST /api/purchases/records.
func (h *Handler) apiCreatePurchaseRecord(w http.ResponseWriter, r *http.Request) {
	claims := authFromContext(r.Context())
	var req struct {
		Supplier      string `json:"supplier"`
		Amount        string `json:"amount"`
		TaxRate       string `json:"tax_rate"`
		PaymentMethod string `json:"payment_method"`
		Notes         string `json:"notes"`
		Reason        string `json:"reason"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, r, "invalid amount", "VALIDATION", http.StatusBadRequest)
		return
	}
	taxRate := decimal.Zero
	if req.TaxRate != "" {
		if taxRate, err = decimal.NewFromString(req.TaxRate); err != nil {
			writeError(w, r, "invalid tax_rate", "VALIDATION", http.StatusBadRequest)
			return
		}
	}

	result, err := h.svc.CreatePurchaseRecord(r.Context(), app.PurchaseRecordRequest{
		Supplier:      req.Supplier,
		Amount:        amount,
		TaxRate:       taxRate,
		PaymentMethod: req.PaymentMethod,
		Notes:         req.Notes,
		Reason:        reasonFrom(r, req.Reason),
		ActorID:       claims.UserID,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, toLedgerEntryDTO(result.Entry))
}

// apiSupplierBalances handles GET /api/purchases/records/balances.
func (h *Handler) apiSupplierBalances(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.GetSupplierBalances(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	type balanceDTO struct {
		Supplier string `json:"supplier"`
		Balance  string `json:"balance"`
	}
	balances := make([]balanceDTO, len(result.Balances))
	for i, b := range result.Balances {
		balances[i] = balanceDTO{Supplier: b.Supplier, Balance: b.Balance.StringFixed(2)}
	}
	writeJSON(w, map[string]any{"balances": balances})
}
