package coco

import (
	"encoding/json"
	"fmt"
	"os"
)

// Image describes one image referenced by annotations.
type Image struct {
	ID       int64  `json:"id"`
	Width    uint32 `json:"width"`
	Height   uint32 `json:"height"`
	FileName string `json:"file_name"`
}

// Category describes one object category.
type Category struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Supercategory string `json:"supercategory,omitempty"`
}

// Annotation is one object instance: an image/category pair with exactly one
// segmentation variant, plus the derived area and bounding box fields carried
// by the COCO format. All fields other than the segmentation pass through
// conversions unmodified.
type Annotation struct {
	ID           int64        `json:"id"`
	ImageID      int64        `json:"image_id"`
	CategoryID   int64        `json:"category_id"`
	Segmentation Segmentation `json:"segmentation,omitempty"`
	Area         float64      `json:"area"`
	BBox         []float64    `json:"bbox,omitempty"`
	IsCrowd      int          `json:"iscrowd"`
}

// Clone returns a deep copy of the annotation.
func (a *Annotation) Clone() *Annotation {
	if a == nil {
		return nil
	}
	out := *a
	out.BBox = append([]float64(nil), a.BBox...)
	if a.Segmentation != nil {
		out.Segmentation = a.Segmentation.CloneSegmentation()
	}
	return &out
}

// UnmarshalJSON decodes an annotation, sniffing the segmentation variant from
// its JSON shape as COCO files do not carry an explicit discriminator.
func (a *Annotation) UnmarshalJSON(data []byte) error {
	type shadow struct {
		ID           int64           `json:"id"`
		ImageID      int64           `json:"image_id"`
		CategoryID   int64           `json:"category_id"`
		Segmentation json.RawMessage `json:"segmentation"`
		Area         float64         `json:"area"`
		BBox         []float64       `json:"bbox"`
		IsCrowd      int             `json:"iscrowd"`
	}
	var s shadow
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	a.ID = s.ID
	a.ImageID = s.ImageID
	a.CategoryID = s.CategoryID
	a.Area = s.Area
	a.BBox = s.BBox
	a.IsCrowd = s.IsCrowd
	a.Segmentation = nil
	if len(s.Segmentation) > 0 && string(s.Segmentation) != "null" {
		seg, err := sniffSegmentation(s.Segmentation)
		if err != nil {
			return fmt.Errorf("annotation %d: %w", s.ID, err)
		}
		a.Segmentation = seg
	}
	return nil
}

// File is the on-disk COCO dataset model.
type File struct {
	Images      []*Image      `json:"images"`
	Annotations []*Annotation `json:"annotations"`
	Categories  []*Category   `json:"categories"`
}

// LoadFile reads and parses a COCO JSON dataset file.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset file: %w", err)
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse dataset file: %w", err)
	}
	return &f, nil
}

// Write serialises the dataset model back to a COCO JSON file.
func (f *File) Write(path string) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode dataset file: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write dataset file: %w", err)
	}
	return nil
}
