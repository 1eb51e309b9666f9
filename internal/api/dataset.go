package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/banshee-data/cocoset/internal/coco"
	"github.com/banshee-data/cocoset/internal/mask"
)

// convertResponse tags a batch conversion report with a job id so failures
// can be correlated with server logs.
type convertResponse struct {
	JobID  string `json:"job_id"`
	Target string `json:"target"`
	*mask.Report
}

// handleConvert runs a batch conversion of every stored segmentation to the
// requested target format. Unsupported source/target pairs are reported per
// annotation, not treated as a batch failure.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	targetParam := r.URL.Query().Get("target")
	if targetParam == "" {
		s.writeJSONError(w, http.StatusBadRequest, "'target' parameter is required")
		return
	}
	target, err := coco.ParseFormat(targetParam)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	jobID := uuid.New().String()
	report, err := mask.ConvertDataset(r.Context(), s.store.Annotations, target, s.workers)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("conversion %s failed: %v", jobID, err))
		return
	}

	s.writeJSON(w, http.StatusOK, convertResponse{
		JobID:  jobID,
		Target: target.String(),
		Report: report,
	})
}

// handleExport downloads the full store contents as a COCO JSON file.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	file, err := s.store.ExportDataset()
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("export failed: %v", err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", "attachment; filename=annotations_export.json")
	json.NewEncoder(w).Encode(file)
}

// handleImport loads a COCO JSON file into the store.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var file coco.File
	if err := json.NewDecoder(r.Body).Decode(&file); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}
	if err := s.store.ImportDataset(&file); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("import failed: %v", err))
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "imported",
		"images":      len(file.Images),
		"categories":  len(file.Categories),
		"annotations": len(file.Annotations),
	})
}
