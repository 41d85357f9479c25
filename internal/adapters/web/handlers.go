package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"purchasing-engine/internal/app"

	"github.com/go-chi/chi/v5"
)

// Handler holds the ApplicationService and the chi router.
type Handler struct {
	svc       app.ApplicationService
	router    chi.Router
	jwtSecret string
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc app.ApplicationService, allowedOrigins, jwtSecret string) http.Handler {
	h := &Handler{
		svc:       svc,
		jwtSecret: jwtSecret,
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger)
	r.Use(Recoverer)
	r.Use(CORS(allowedOrigins))

	// ── Health and auth (public) ──────────────────────────────────────────────
	r.Get("/api/health", h.health)
	r.Post("/api/auth/login", h.login)
	r.Post("/api/auth/logout", h.logout)

	// ── Protected API routes (401 JSON if unauthenticated) ───────────────────
	r.Group(func(r chi.Router) {
		r.Use(h.RequireAuth)

		// Multipart uploads manage their own size limits inside the handler.
		r.Post("/api/purchases/import", h.apiImportOrders)
		r.Post("/api/purchases/{id}/documents", h.apiUploadDocument)

		// All other protected endpoints: 1 MB body limit.
		r.Group(func(r chi.Router) {
			r.Use(RequestBodyLimit(1 << 20)) // 1 MB

			r.Get("/api/auth/me", h.me)

			// Catalog
			r.Get("/api/stores", h.apiListStores)
			r.Get("/api/devices", h.apiListDevices)

			// Supplier ledger — static segments before {id}
			r.Get("/api/purchases/records", h.apiListPurchaseRecords)
			r.Post("/api/purchases/records", h.apiCreatePurchaseRecord)
			r.Get("/api/purchases/records/balances", h.apiSupplierBalances)

			// Purchase order lifecycle
			r.Get("/api/purchases", h.apiListOrders)
			r.Post("/api/purchases", h.apiCreateOrder)
			r.Get("/api/purchases/{id}", h.apiGetOrder)
			r.Post("/api/purchases/{id}/status", h.apiTransitionOrder)
			r.Post("/api/purchases/{id}/cancel", h.apiCancelOrder)
			r.Post("/api/purchases/{id}/receive", h.apiReceiveOrder)

			// Returns
			r.Post("/api/purchases/{id}/returns", h.apiRegisterReturn)
			r.Post("/api/purchases/{id}/returns/{returnID}/approve", h.apiApproveReturn)

			// Documents
			r.Get("/api/purchases/{id}/documents", h.apiListDocuments)

			// Recurring templates
			r.Get("/api/recurring-orders", h.apiListTemplates)
			r.Post("/api/recurring-orders", h.apiSaveTemplate)
			r.Get("/api/recurring-orders/schema", h.apiTemplateSchema)
			r.Get("/api/recurring-orders/{id}", h.apiGetTemplate)
			r.Post("/api/recurring-orders/{id}/apply", h.apiApplyTemplate)
			r.Post("/api/recurring-orders/{id}/execute", h.apiExecuteTemplate)
		})
	})

	h.router = r
	return r
}

// health returns service status.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Status string `json:"status"`
	}
	writeJSON(w, response{Status: "ok"})
}

// orderIDParam extracts the {id} URL parameter as an int.
func orderIDParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	return intParam(w, r, "id")
}

func intParam(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil {
		writeError(w, r, "invalid "+name+" parameter", "BAD_REQUEST", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// reasonFrom resolves the corporate justification: the X-Reason header
// wins, the body's reason field is the fallback. Length validation
// belongs to the core so the audit gate has a single owner.
func reasonFrom(r *http.Request, bodyReason string) string {
	if header := strings.TrimSpace(r.Header.Get("X-Reason")); header != "" {
		return header
	}
	return bodyReason
}

// decodeJSON decodes the request body into v and returns false + writes an appropriate
// error response on failure. Returns HTTP 413 when the body exceeds the size limit set
// by RequestBodyLimit middleware; HTTP 400 for all other decode errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return false
		}
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return false
	}
	return true
}
