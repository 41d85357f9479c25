package web

import (
	"net/http"
)

// apiListStores handles GET /api/stores.
func (h *Handler) apiListStores(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListStores(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	type storeDTO struct {
		ID   int    `json:"id"`
		Code string `json:"code"`
		Name string `json:"name"`
	}
	stores := make([]storeDTO, len(result.Stores))
	for i, st := range result.Stores {
		stores[i] = storeDTO{ID: st.ID, Code: st.Code, Name: st.Name}
	}
	writeJSON(w, map[string]any{"stores": stores})
}

// apiListDevices handles GET /api/devices.
func (h *Handler) apiListDevices(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListDevices(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	type deviceDTO struct {
		ID   int    `json:"id"`
		SKU  string `json:"sku"`
		Name string `json:"name"`
	}
	devices := make([]deviceDTO, len(result.Devices))
	for i, d := range result.Devices {
		devices[i] = deviceDTO{ID: d.ID, SKU: d.SKU, Name: d.Name}
	}
	writeJSON(w, map[string]any{"devices": devices})
}
