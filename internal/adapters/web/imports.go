package web

import (
	"net/http"
)

// maxImportSize caps a bulk import upload.
const maxImportSize = 20 << 20 // 20 MB

// apiImportOrders handles POST /api/purchases/import (multipart CSV/XLSX).
// Row errors come back in the result body; only an unreadable file or a
// missing reason fails the request itself.
func (h *Handler) apiImportOrders(w http.ResponseWriter, r *http.Request) {
	claims := authFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxImportSize)
	if err := r.ParseMultipartForm(maxImportSize); err != nil {
		writeError(w, r, "invalid multipart request: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, "file field is required", "VALIDATION", http.StatusBadRequest)
		return
	}
	defer file.Close()

	reason := reasonFrom(r, r.FormValue("reason"))
	result, err := h.svc.ImportPurchaseOrders(r.Context(), header.Filename, file, reason, claims.UserID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	orders := make([]poDTO, len(result.Orders))
	for i := range result.Orders {
		orders[i] = toPODTO(&result.Orders[i])
	}
	writeJSON(w, map[string]any{
		"imported": result.Imported,
		"orders":   orders,
		"errors":   result.Errors,
	})
}
