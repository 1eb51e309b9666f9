package mask

import (
	"context"
	"fmt"
	"sync"

	"github.com/banshee-data/cocoset/internal/coco"
)

// Dataset is the annotation collection the batch converter runs against. Both
// the sqlite store and the in-memory dataset implement it. Annotations must
// return a snapshot: the converter writes upserts back while holding the
// slice, and must not observe its own writes.
type Dataset interface {
	Annotations() ([]*coco.Annotation, error)
	Upsert(*coco.Annotation) error
}

// Convert translates one segmentation value to the target format. The
// conversion matrix is total: every (source, target) pair either converts or
// returns an UnsupportedConversionError value, never aborts.
func Convert(seg coco.Segmentation, target coco.Format) (coco.Segmentation, error) {
	switch s := seg.(type) {
	case *coco.Rle:
		switch target {
		case coco.FormatRle:
			return s.CloneSegmentation(), nil
		case coco.FormatEncodedRle:
			return Encode(s)
		case coco.FormatPolygon, coco.FormatPolygonRS:
			return nil, &UnsupportedConversionError{From: s.Format(), To: target}
		}
	case *coco.EncodedRle:
		switch target {
		case coco.FormatRle:
			return Decode(s)
		case coco.FormatEncodedRle:
			return s.CloneSegmentation(), nil
		case coco.FormatPolygon, coco.FormatPolygonRS:
			return nil, &UnsupportedConversionError{From: s.Format(), To: target}
		}
	case *coco.PolygonRS:
		switch target {
		case coco.FormatRle:
			return FromPolygonRS(s).ToRle(), nil
		case coco.FormatPolygon:
			// Drop the size metadata, keep the coordinates.
			return coco.Polygon{append([]float64(nil), s.Counts...)}, nil
		case coco.FormatPolygonRS:
			return s.CloneSegmentation(), nil
		case coco.FormatEncodedRle:
			return nil, &UnsupportedConversionError{From: s.Format(), To: target}
		}
	case coco.Polygon:
		switch target {
		case coco.FormatPolygon:
			return s.CloneSegmentation(), nil
		case coco.FormatRle, coco.FormatEncodedRle, coco.FormatPolygonRS:
			return nil, &UnsupportedConversionError{From: s.Format(), To: target}
		}
	case nil:
		return nil, fmt.Errorf("annotation has no segmentation")
	}
	return nil, fmt.Errorf("unknown segmentation variant %T or target %s", seg, target)
}

// ToMask decodes any sized segmentation variant into a dense mask. The
// size-less polygon variant needs externally supplied dimensions; use
// FromPolygon for it.
func ToMask(seg coco.Segmentation) (*Mask, error) {
	switch s := seg.(type) {
	case *coco.Rle:
		return FromRle(s), nil
	case *coco.EncodedRle:
		rle, err := Decode(s)
		if err != nil {
			return nil, err
		}
		return FromRle(rle), nil
	case *coco.PolygonRS:
		return FromPolygonRS(s), nil
	case coco.Polygon:
		return nil, fmt.Errorf("size-less polygon needs explicit dimensions: use FromPolygon")
	}
	return nil, fmt.Errorf("unknown segmentation variant %T", seg)
}

// AnnotationError records a per-annotation failure during batch conversion.
type AnnotationError struct {
	AnnotationID int64  `json:"annotation_id"`
	Err          error  `json:"-"`
	Message      string `json:"error"`
}

// Report summarises a batch conversion run.
type Report struct {
	Target    coco.Format       `json:"-"`
	Total     int               `json:"total"`
	Converted int               `json:"converted"`
	Failures  []AnnotationError `json:"failures,omitempty"`
}

// ConvertDataset converts the segmentation of every annotation in the dataset
// to the target format. The compute phase fans out across a bounded worker
// pool: per-annotation conversions are independent and pure, so no ordering
// between annotations is observable. The commit phase then upserts the
// results serially and honours ctx cancellation; the caller needs exclusive
// access to the dataset for the whole call, or concurrent readers will see a
// mix of pre- and post-conversion entries.
//
// Annotations whose conversion leg is unsupported are reported in the result
// and left unmodified; only a failed snapshot or a cancelled commit aborts
// the run.
func ConvertDataset(ctx context.Context, ds Dataset, target coco.Format, workers int) (*Report, error) {
	anns, err := ds.Annotations()
	if err != nil {
		return nil, fmt.Errorf("snapshot annotations: %w", err)
	}
	if workers < 1 {
		workers = 1
	}
	if workers > len(anns) && len(anns) > 0 {
		workers = len(anns)
	}

	converted := make([]coco.Segmentation, len(anns))
	errs := make([]error, len(anns))

	indexes := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				converted[i], errs[i] = Convert(anns[i].Segmentation, target)
			}
		}()
	}
	for i := range anns {
		indexes <- i
	}
	close(indexes)
	wg.Wait()

	report := &Report{Target: target, Total: len(anns)}
	for i, ann := range anns {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("commit phase cancelled: %w", err)
		}
		if errs[i] != nil {
			report.Failures = append(report.Failures, AnnotationError{
				AnnotationID: ann.ID,
				Err:          errs[i],
				Message:      errs[i].Error(),
			})
			continue
		}
		next := ann.Clone()
		next.Segmentation = converted[i]
		if err := ds.Upsert(next); err != nil {
			report.Failures = append(report.Failures, AnnotationError{
				AnnotationID: ann.ID,
				Err:          err,
				Message:      err.Error(),
			})
			continue
		}
		report.Converted++
	}
	return report, nil
}
