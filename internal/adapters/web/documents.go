package web

import (
	"net/http"

	"purchasing-engine/internal/app"
)

// maxDocumentSize caps a single document upload.
const maxDocumentSize = 20 << 20 // 20 MB

// apiUploadDocument handles POST /api/purchases/{id}/documents (multipart).
func (h *Handler) apiUploadDocument(w http.ResponseWriter, r *http.Request) {
	claims := authFromContext(r.Context())
	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxDocumentSize)
	if err := r.ParseMultipartForm(maxDocumentSize); err != nil {
		writeError(w, r, "invalid multipart request: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, "file field is required", "VALIDATION", http.StatusBadRequest)
		return
	}
	defer file.Close()

	result, err := h.svc.UploadDocument(r.Context(), app.UploadDocumentRequest{
		OrderID:     orderID,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
		Reason:      reasonFrom(r, r.FormValue("reason")),
		ActorID:     claims.UserID,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, toDocumentDTO(result.Document))
}

// apiListDocuments handles GET /api/purchases/{id}/documents.
func (h *Handler) apiListDocuments(w http.ResponseWriter, r *http.Request) {
	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}
	result, err := h.svc.ListDocuments(r.Context(), orderID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	docs := make([]poDocumentDTO, len(result.Documents))
	for i := range result.Documents {
		docs[i] = toDocumentDTO(&result.Documents[i])
	}
	writeJSON(w, map[string]any{"documents": docs})
}
