// Package sqlite persists COCO annotations, images and categories in the
// cocoset database. AnnotationStore is the dataset collaborator the batch
// converter runs against: it provides snapshot enumeration and
// upsert-by-identifier.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/banshee-data/cocoset/internal/coco"
)

// AnnotationStore provides persistence for annotation records.
type AnnotationStore struct {
	db *sql.DB
}

// NewAnnotationStore creates a new AnnotationStore.
func NewAnnotationStore(db *sql.DB) *AnnotationStore {
	return &AnnotationStore{db: db}
}

const annotationColumns = `annotation_id, image_id, category_id, seg_format, seg_payload,
       area, bbox_json, iscrowd`

// Annotations returns every annotation, ordered by id. The result is a
// snapshot: rows are fully materialised before the method returns, so later
// upserts do not affect it.
func (s *AnnotationStore) Annotations() ([]*coco.Annotation, error) {
	rows, err := s.db.Query(`
		SELECT ` + annotationColumns + `
		FROM annotations
		ORDER BY annotation_id`)
	if err != nil {
		return nil, fmt.Errorf("query annotations: %w", err)
	}
	defer rows.Close()

	var anns []*coco.Annotation
	for rows.Next() {
		ann, err := scanAnnotation(rows)
		if err != nil {
			return nil, err
		}
		anns = append(anns, ann)
	}
	return anns, rows.Err()
}

// Get returns a single annotation by id.
func (s *AnnotationStore) Get(id int64) (*coco.Annotation, error) {
	row := s.db.QueryRow(`
		SELECT `+annotationColumns+`
		FROM annotations
		WHERE annotation_id = ?`, id)
	return scanAnnotation(row)
}

// ListByImage returns the annotations attached to one image, ordered by id.
func (s *AnnotationStore) ListByImage(imageID int64) ([]*coco.Annotation, error) {
	rows, err := s.db.Query(`
		SELECT `+annotationColumns+`
		FROM annotations
		WHERE image_id = ?
		ORDER BY annotation_id`, imageID)
	if err != nil {
		return nil, fmt.Errorf("query annotations for image %d: %w", imageID, err)
	}
	defer rows.Close()

	var anns []*coco.Annotation
	for rows.Next() {
		ann, err := scanAnnotation(rows)
		if err != nil {
			return nil, err
		}
		anns = append(anns, ann)
	}
	return anns, rows.Err()
}

// Upsert inserts or replaces an annotation by id.
func (s *AnnotationStore) Upsert(ann *coco.Annotation) error {
	segFormat, segPayload, err := encodeSegmentation(ann.Segmentation)
	if err != nil {
		return err
	}
	var bboxJSON interface{}
	if len(ann.BBox) > 0 {
		data, err := json.Marshal(ann.BBox)
		if err != nil {
			return fmt.Errorf("encode bbox: %w", err)
		}
		bboxJSON = string(data)
	}
	now := time.Now().UnixNano()

	return retryOnBusy(func() error {
		_, err := s.db.Exec(`
			INSERT INTO annotations (
				annotation_id, image_id, category_id, seg_format, seg_payload,
				area, bbox_json, iscrowd, created_at_ns, updated_at_ns
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(annotation_id) DO UPDATE SET
				image_id = excluded.image_id,
				category_id = excluded.category_id,
				seg_format = excluded.seg_format,
				seg_payload = excluded.seg_payload,
				area = excluded.area,
				bbox_json = excluded.bbox_json,
				iscrowd = excluded.iscrowd,
				updated_at_ns = excluded.updated_at_ns`,
			ann.ID, ann.ImageID, ann.CategoryID, segFormat, segPayload,
			ann.Area, bboxJSON, ann.IsCrowd, now, now,
		)
		return err
	})
}

// Delete removes an annotation. Reports whether a row was deleted.
func (s *AnnotationStore) Delete(id int64) (bool, error) {
	var affected int64
	err := retryOnBusy(func() error {
		result, err := s.db.Exec("DELETE FROM annotations WHERE annotation_id = ?", id)
		if err != nil {
			return err
		}
		affected, err = result.RowsAffected()
		return err
	})
	return affected > 0, err
}

// NextID returns an unused annotation id, one past the current maximum.
func (s *AnnotationStore) NextID() (int64, error) {
	var max sql.NullInt64
	if err := s.db.QueryRow("SELECT MAX(annotation_id) FROM annotations").Scan(&max); err != nil {
		return 0, fmt.Errorf("query max annotation id: %w", err)
	}
	return max.Int64 + 1, nil
}

// CountsByFormat returns the number of stored annotations per segmentation
// format.
func (s *AnnotationStore) CountsByFormat() (map[string]int, error) {
	rows, err := s.db.Query(`
		SELECT COALESCE(seg_format, ''), COUNT(*)
		FROM annotations
		GROUP BY seg_format`)
	if err != nil {
		return nil, fmt.Errorf("query format counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var format string
		var n int
		if err := rows.Scan(&format, &n); err != nil {
			return nil, err
		}
		counts[format] = n
	}
	return counts, rows.Err()
}

// Areas returns the stored area of every annotation, for dataset statistics.
func (s *AnnotationStore) Areas() ([]float64, error) {
	rows, err := s.db.Query("SELECT area FROM annotations")
	if err != nil {
		return nil, fmt.Errorf("query areas: %w", err)
	}
	defer rows.Close()

	var areas []float64
	for rows.Next() {
		var a float64
		if err := rows.Scan(&a); err != nil {
			return nil, err
		}
		areas = append(areas, a)
	}
	return areas, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAnnotation(row rowScanner) (*coco.Annotation, error) {
	var ann coco.Annotation
	var segFormat, segPayload, bboxJSON sql.NullString
	err := row.Scan(
		&ann.ID, &ann.ImageID, &ann.CategoryID, &segFormat, &segPayload,
		&ann.Area, &bboxJSON, &ann.IsCrowd,
	)
	if err != nil {
		return nil, err
	}
	if segFormat.Valid && segPayload.Valid {
		format, err := coco.ParseFormat(segFormat.String)
		if err != nil {
			return nil, fmt.Errorf("annotation %d: %w", ann.ID, err)
		}
		seg, err := coco.DecodeSegmentation(format, []byte(segPayload.String))
		if err != nil {
			return nil, fmt.Errorf("annotation %d: %w", ann.ID, err)
		}
		ann.Segmentation = seg
	}
	if bboxJSON.Valid && bboxJSON.String != "" {
		if err := json.Unmarshal([]byte(bboxJSON.String), &ann.BBox); err != nil {
			return nil, fmt.Errorf("annotation %d: decode bbox: %w", ann.ID, err)
		}
	}
	return &ann, nil
}

func encodeSegmentation(seg coco.Segmentation) (interface{}, interface{}, error) {
	if seg == nil {
		return nil, nil, nil
	}
	payload, err := json.Marshal(seg)
	if err != nil {
		return nil, nil, fmt.Errorf("encode segmentation: %w", err)
	}
	return seg.Format().String(), string(payload), nil
}
