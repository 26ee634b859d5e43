package web

import (
	"errors"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/tmendes/orderimport/internal/importer"
	"github.com/tmendes/orderimport/internal/logging"
)

// uploadFieldName is the multipart form field the order file arrives in.
const uploadFieldName = "file"

type createImportResponse struct {
	ImportID int64  `json:"import_id"`
	Status   string `json:"status"`
}

type importStatusResponse struct {
	ImportID  int64  `json:"import_id"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// handleCreateImport accepts a multipart order-file upload, stores the
// file, creates a pending import, and hands it to the background runner.
func (s *Server) handleCreateImport(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize)

	file, header, err := r.FormFile(uploadFieldName)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			respondError(w, r, http.StatusRequestEntityTooLarge, "file too large", err)
			return
		}
		respondError(w, r, http.StatusBadRequest, "missing file field", err)
		return
	}
	defer file.Close()

	if header.Filename == "" {
		respondError(w, r, http.StatusUnprocessableEntity, "file part has no filename", nil)
		return
	}

	mediaType, _, err := mime.ParseMediaType(header.Header.Get("Content-Type"))
	if err != nil || mediaType != "text/plain" {
		respondError(w, r, http.StatusUnsupportedMediaType, "file must be text/plain", err)
		return
	}

	fileRef, err := s.files.Save(file)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "failed to store file", err)
		return
	}

	importID, err := s.imports.Create(r.Context(), fileRef)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "failed to create import", err)
		return
	}

	s.queue.Enqueue(importID)

	logger.Info("import accepted",
		"import_id", importID,
		"filename", header.Filename,
		"size", header.Size,
	)

	respondJSON(w, http.StatusCreated, createImportResponse{
		ImportID: importID,
		Status:   string(importer.StatusPending),
	})
}

// handleImportStatus reports the lifecycle status of one import.
func (s *Server) handleImportStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "importID"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, r, http.StatusBadRequest, "invalid import id", err)
		return
	}

	imp, err := s.imports.Find(r.Context(), id)
	if err != nil {
		if errors.Is(err, importer.ErrImportNotFound) {
			respondError(w, r, http.StatusNotFound, "import not found", nil)
			return
		}
		respondError(w, r, http.StatusInternalServerError, "failed to load import", err)
		return
	}

	respondJSON(w, http.StatusOK, importStatusResponse{
		ImportID:  imp.ID,
		Status:    string(imp.Status),
		CreatedAt: imp.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: imp.UpdatedAt.UTC().Format(time.RFC3339),
	})
}
