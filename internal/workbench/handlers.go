package workbench

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ChumaSuey/TollPDFManager/internal/document"
	"github.com/ChumaSuey/TollPDFManager/internal/ledger"
)

// writeJSON writes a JSON response body
func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// writeError maps a service error to an HTTP status and JSON error body
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ledger.ErrInvalidInput),
		errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrMissingVerification),
		errors.Is(err, ledger.ErrMissingDocument):
		status = http.StatusBadRequest
	case errors.Is(err, ledger.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrStaleExtraction):
		status = http.StatusConflict
	}

	var writeErr *ledger.WriteError
	if errors.As(err, &writeErr) {
		slog.Error("Ledger write failed", "workbook", writeErr.Workbook, "error", writeErr.Err)
	}

	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// handleIndex serves the HTML interface
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

// handleListDocuments returns the annotated listing of the browsed folder
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	entries, err := s.service.Documents()
	if err != nil {
		slog.Error("Error listing documents", "error", err)
		writeError(w, err)
		return
	}
	if entries == nil {
		entries = []document.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleBrowse switches the browsed folder
func (s *Server) handleBrowse(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Dir string `json:"dir"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Dir == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "dir is required"})
		return
	}

	entries, err := s.service.SetBrowseDir(req.Dir)
	if err != nil {
		slog.Error("Error browsing folder", "dir", req.Dir, "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleOpenDocument opens a document for paging
func (s *Server) handleOpenDocument(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path string `json:"path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "path is required"})
		return
	}

	info, err := s.service.Open(req.Path)
	if err != nil {
		slog.Error("Error opening document", "path", req.Path, "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// handleCurrentPage returns the open page context
func (s *Server) handleCurrentPage(w http.ResponseWriter, r *http.Request) {
	info, err := s.service.CurrentPage()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// handlePageImage returns the rendered current page
func (s *Server) handlePageImage(w http.ResponseWriter, r *http.Request) {
	data, err := s.service.PageImage()
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(data)
}

// handleNextPage advances the page context
func (s *Server) handleNextPage(w http.ResponseWriter, r *http.Request) {
	s.handleNavigation(w, s.service.NextPage)
}

// handlePrevPage moves the page context back
func (s *Server) handlePrevPage(w http.ResponseWriter, r *http.Request) {
	s.handleNavigation(w, s.service.PrevPage)
}

func (s *Server) handleNavigation(w http.ResponseWriter, move func() (PageInfo, bool, error)) {
	info, moved, err := move()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"page":  info,
		"moved": moved,
	})
}

// handleZoom steps the viewer zoom
func (s *Server) handleZoom(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Direction string `json:"direction"` // "in" or "out"
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	delta := zoomStep
	switch req.Direction {
	case "in":
	case "out":
		delta = -zoomStep
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "direction must be 'in' or 'out'"})
		return
	}

	zoom := s.service.AdjustZoom(delta)
	writeJSON(w, http.StatusOK, map[string]float64{"zoom": zoom})
}

// handleExtract runs vision extraction for the current page
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	view, err := s.service.Extract()
	if err != nil {
		slog.Error("Error extracting tolls", "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleListItems returns the line-item table
func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Table())
}

// handleAddItem appends a line item
func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount   string `json:"amount"`
		Quantity string `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	id, err := s.service.AddItem(req.Amount, req.Quantity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"id":    id,
		"table": s.service.Table(),
	})
}

// handleDeleteItem removes a line item
func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "item ID required"})
		return
	}
	s.service.DeleteItems(id)
	writeJSON(w, http.StatusOK, s.service.Table())
}

// handleClearItems empties the table
func (s *Server) handleClearItems(w http.ResponseWriter, r *http.Request) {
	s.service.ClearItems()
	writeJSON(w, http.StatusOK, s.service.Table())
}

// handleBeginEdit starts editing a line item
func (s *Server) handleBeginEdit(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "item ID required"})
		return
	}

	amount, quantity, err := s.service.BeginEdit(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"id":       id,
		"amount":   amount,
		"quantity": quantity,
	})
}

// handleConfirmEdit applies an in-flight edit
func (s *Server) handleConfirmEdit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount   string `json:"amount"`
		Quantity string `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if err := s.service.ConfirmEdit(req.Amount, req.Quantity); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.service.Table())
}

// handleCancelEdit discards an in-flight edit
func (s *Server) handleCancelEdit(w http.ResponseWriter, r *http.Request) {
	s.service.CancelEdit()
	w.WriteHeader(http.StatusNoContent)
}

// handleSetVerified stores the operator's verified amount
func (s *Server) handleSetVerified(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	s.service.SetVerified(req.Value)
	w.WriteHeader(http.StatusNoContent)
}

// handleComparison returns the advisory AI-vs-verified diff
func (s *Server) handleComparison(w http.ResponseWriter, r *http.Request) {
	comparison, err := s.service.Comparison()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, comparison)
}

// handleCommit appends the reconciled page to the ledger
func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.Commit()
	if err != nil {
		slog.Error("Error committing record", "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// handleToggleFlag flips the review flag for a document
func (s *Server) handleToggleFlag(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path string `json:"path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "path is required"})
		return
	}

	flagged, err := s.service.ToggleFlag(req.Path)
	if err != nil {
		slog.Error("Error toggling flag", "path", req.Path, "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"flagged": flagged})
}

// handleToggleHighlight flips the highlight for a document
func (s *Server) handleToggleHighlight(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path string `json:"path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "path is required"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"highlighted": s.service.ToggleHighlight(req.Path)})
}

// handleExportStatus reports the ledger target folder and workbook
func (s *Server) handleExportStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.ExportStatus())
}

// handleSetExportFolder persists a new ledger target folder
func (s *Server) handleSetExportFolder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Folder string `json:"folder"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Folder == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "folder is required"})
		return
	}

	if err := s.service.SetExportFolder(req.Folder); err != nil {
		slog.Error("Error saving export folder", "folder", req.Folder, "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.service.ExportStatus())
}
