package api

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/banshee-data/cocoset/internal/coco"
	"github.com/banshee-data/cocoset/internal/mask"
	"github.com/banshee-data/cocoset/internal/monitor"
)

// maxAnnotationsPerQuery is the maximum number of annotations returned by
// list queries. This prevents excessive response sizes for large datasets;
// clients can use the image_id filter for narrower queries.
const maxAnnotationsPerQuery = 1000

// handleAnnotations handles list and create operations.
func (s *Server) handleAnnotations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListAnnotations(w, r)
	case http.MethodPost:
		s.handleCreateAnnotation(w, r)
	default:
		s.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleListAnnotations lists annotations with optional filters.
func (s *Server) handleListAnnotations(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var anns []*coco.Annotation
	var err error
	if imageParam := query.Get("image_id"); imageParam != "" {
		imageID, perr := strconv.ParseInt(imageParam, 10, 64)
		if perr != nil {
			s.writeJSONError(w, http.StatusBadRequest, "invalid 'image_id' parameter")
			return
		}
		anns, err = s.store.Annotations.ListByImage(imageID)
	} else {
		anns, err = s.store.Annotations.Annotations()
	}
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("query failed: %v", err))
		return
	}

	if categoryParam := query.Get("category_id"); categoryParam != "" {
		categoryID, perr := strconv.ParseInt(categoryParam, 10, 64)
		if perr != nil {
			s.writeJSONError(w, http.StatusBadRequest, "invalid 'category_id' parameter")
			return
		}
		filtered := anns[:0]
		for _, ann := range anns {
			if ann.CategoryID == categoryID {
				filtered = append(filtered, ann)
			}
		}
		anns = filtered
	}

	if len(anns) > maxAnnotationsPerQuery {
		anns = anns[:maxAnnotationsPerQuery]
	}
	if anns == nil {
		anns = []*coco.Annotation{}
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"annotations": anns,
		"count":       len(anns),
	})
}

// handleCreateAnnotation creates a new annotation. An id is allocated when
// the request does not carry one.
func (s *Server) handleCreateAnnotation(w http.ResponseWriter, r *http.Request) {
	var ann coco.Annotation
	if err := json.NewDecoder(r.Body).Decode(&ann); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}

	if ann.ImageID == 0 {
		s.writeJSONError(w, http.StatusBadRequest, "image_id is required")
		return
	}
	if ann.CategoryID == 0 {
		s.writeJSONError(w, http.StatusBadRequest, "category_id is required")
		return
	}

	if ann.ID == 0 {
		id, err := s.store.Annotations.NextID()
		if err != nil {
			s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("allocate id: %v", err))
			return
		}
		ann.ID = id
	}

	if err := s.store.Annotations.Upsert(&ann); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("insert failed: %v", err))
		return
	}
	s.writeJSON(w, http.StatusCreated, &ann)
}

// handleAnnotationByID handles get, update, delete, and the mask.png / stats
// subresources of a specific annotation.
func (s *Server) handleAnnotationByID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/annotations/")
	idPart, sub, _ := strings.Cut(path, "/")

	id, err := strconv.ParseInt(strings.TrimSpace(idPart), 10, 64)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "annotation id is required")
		return
	}

	switch sub {
	case "":
	case "mask.png":
		s.handleAnnotationMask(w, r, id)
		return
	case "stats":
		s.handleAnnotationStats(w, r, id)
		return
	default:
		s.writeJSONError(w, http.StatusNotFound, "unknown annotation resource")
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.handleGetAnnotation(w, r, id)
	case http.MethodPut:
		s.handleUpdateAnnotation(w, r, id)
	case http.MethodDelete:
		s.handleDeleteAnnotation(w, r, id)
	default:
		s.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleGetAnnotation(w http.ResponseWriter, r *http.Request, id int64) {
	ann, err := s.store.Annotations.Get(id)
	if errors.Is(err, sql.ErrNoRows) {
		s.writeJSONError(w, http.StatusNotFound, "annotation not found")
		return
	}
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("query failed: %v", err))
		return
	}
	s.writeJSON(w, http.StatusOK, ann)
}

func (s *Server) handleUpdateAnnotation(w http.ResponseWriter, r *http.Request, id int64) {
	if _, err := s.store.Annotations.Get(id); errors.Is(err, sql.ErrNoRows) {
		s.writeJSONError(w, http.StatusNotFound, "annotation not found")
		return
	} else if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("query failed: %v", err))
		return
	}

	var ann coco.Annotation
	if err := json.NewDecoder(r.Body).Decode(&ann); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}
	ann.ID = id

	if err := s.store.Annotations.Upsert(&ann); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("update failed: %v", err))
		return
	}
	s.writeJSON(w, http.StatusOK, &ann)
}

func (s *Server) handleDeleteAnnotation(w http.ResponseWriter, r *http.Request, id int64) {
	deleted, err := s.store.Annotations.Delete(id)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("delete failed: %v", err))
		return
	}
	if !deleted {
		s.writeJSONError(w, http.StatusNotFound, "annotation not found")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":        "deleted",
		"annotation_id": id,
	})
}

// handleAnnotationMask renders the decoded segmentation as a PNG heat map.
func (s *Server) handleAnnotationMask(w http.ResponseWriter, r *http.Request, id int64) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	ann, err := s.store.Annotations.Get(id)
	if errors.Is(err, sql.ErrNoRows) {
		s.writeJSONError(w, http.StatusNotFound, "annotation not found")
		return
	}
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("query failed: %v", err))
		return
	}
	if ann.Segmentation == nil {
		s.writeJSONError(w, http.StatusNotFound, "annotation has no segmentation")
		return
	}

	m, err := maskForAnnotation(ann)
	if err != nil {
		s.writeJSONError(w, http.StatusUnprocessableEntity, fmt.Sprintf("cannot rasterise segmentation: %v", err))
		return
	}

	// ?save=1 writes the render into the plot directory instead of
	// streaming it back.
	if r.URL.Query().Get("save") == "1" {
		path, err := monitor.SaveMaskPNG(s.cfg.GetPlotDir(), id, m)
		if err != nil {
			s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("save failed: %v", err))
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]interface{}{
			"status": "saved",
			"path":   path,
		})
		return
	}

	// Render into a buffer first so a plot failure still produces a clean
	// JSON error instead of a truncated image.
	var buf bytes.Buffer
	if err := monitor.RenderMaskPNG(&buf, m, fmt.Sprintf("Annotation %d", id)); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("render failed: %v", err))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(buf.Bytes())
}

// handleAnnotationStats returns the area and bounding box derived from the
// stored segmentation.
func (s *Server) handleAnnotationStats(w http.ResponseWriter, r *http.Request, id int64) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	ann, err := s.store.Annotations.Get(id)
	if errors.Is(err, sql.ErrNoRows) {
		s.writeJSONError(w, http.StatusNotFound, "annotation not found")
		return
	}
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("query failed: %v", err))
		return
	}
	if ann.Segmentation == nil {
		s.writeJSONError(w, http.StatusNotFound, "annotation has no segmentation")
		return
	}

	area, err := mask.Area(ann.Segmentation)
	if err != nil {
		s.writeJSONError(w, http.StatusUnprocessableEntity, fmt.Sprintf("area failed: %v", err))
		return
	}
	bbox, err := mask.BoundingBox(ann.Segmentation)
	if err != nil {
		s.writeJSONError(w, http.StatusUnprocessableEntity, fmt.Sprintf("bounding box failed: %v", err))
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"annotation_id": id,
		"format":        ann.Segmentation.Format().String(),
		"area":          area,
		"bbox":          bbox,
	})
}

func maskForAnnotation(ann *coco.Annotation) (*mask.Mask, error) {
	return mask.ToMask(ann.Segmentation)
}
