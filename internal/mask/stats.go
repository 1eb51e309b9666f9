package mask

import (
	"github.com/banshee-data/cocoset/internal/coco"
)

// Area returns the number of foreground pixels of a sized segmentation,
// computed from its run-length form without materialising the mask.
func Area(seg coco.Segmentation) (uint64, error) {
	rle, err := toRle(seg)
	if err != nil {
		return 0, err
	}
	var area uint64
	for i := 1; i < len(rle.Counts); i += 2 {
		area += uint64(rle.Counts[i])
	}
	return area, nil
}

// BoundingBox returns the tight [x, y, width, height] box around the
// foreground of a sized segmentation. A segmentation with no foreground
// pixels yields a zero box.
func BoundingBox(seg coco.Segmentation) ([4]float64, error) {
	rle, err := toRle(seg)
	if err != nil {
		return [4]float64{}, err
	}
	height := int(rle.Size[0])
	if height == 0 {
		return [4]float64{}, nil
	}

	xMin, yMin := int(rle.Size[1]), height
	xMax, yMax := -1, -1
	pos := 0
	for i, run := range rle.Counts {
		if i%2 == 1 {
			// Column-major linear positions pos..pos+run-1 are foreground.
			for p := pos; p < pos+int(run); p++ {
				y, x := p%height, p/height
				if x < xMin {
					xMin = x
				}
				if x > xMax {
					xMax = x
				}
				if y < yMin {
					yMin = y
				}
				if y > yMax {
					yMax = y
				}
			}
		}
		pos += int(run)
	}
	if xMax < 0 {
		return [4]float64{}, nil
	}
	return [4]float64{
		float64(xMin),
		float64(yMin),
		float64(xMax - xMin + 1),
		float64(yMax - yMin + 1),
	}, nil
}

// toRle converts any sized segmentation to its run-length form.
func toRle(seg coco.Segmentation) (*coco.Rle, error) {
	switch s := seg.(type) {
	case *coco.Rle:
		return s, nil
	case *coco.EncodedRle:
		return Decode(s)
	case *coco.PolygonRS:
		return FromPolygonRS(s).ToRle(), nil
	}
	m, err := ToMask(seg)
	if err != nil {
		return nil, err
	}
	return m.ToRle(), nil
}
