package coco

import (
	"encoding/json"
	"fmt"
)

// Format selects one of the segmentation representations. It is used as the
// target selector for conversions and as the discriminator persisted alongside
// stored segmentations.
type Format int

const (
	// FormatRle is the uncompressed run-length encoding.
	FormatRle Format = iota
	// FormatEncodedRle is the compact ASCII run-length encoding.
	FormatEncodedRle
	// FormatPolygon is the size-less contour list used by COCO files.
	FormatPolygon
	// FormatPolygonRS is a single contour paired with the image size.
	FormatPolygonRS
)

// String returns the wire name of the format.
func (f Format) String() string {
	switch f {
	case FormatRle:
		return "rle"
	case FormatEncodedRle:
		return "encoded_rle"
	case FormatPolygon:
		return "polygon"
	case FormatPolygonRS:
		return "polygon_rs"
	}
	return fmt.Sprintf("format(%d)", int(f))
}

// ParseFormat parses a wire name into a Format.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "rle":
		return FormatRle, nil
	case "encoded_rle":
		return FormatEncodedRle, nil
	case "polygon":
		return FormatPolygon, nil
	case "polygon_rs":
		return FormatPolygonRS, nil
	}
	return 0, fmt.Errorf("unknown segmentation format %q", s)
}

// Segmentation is the closed union over the four representations of a mask.
// Exactly one variant is active per annotation. The sealed method keeps the
// set of variants fixed so conversion sites can enumerate every case.
type Segmentation interface {
	// Format reports which variant this value is.
	Format() Format
	// CloneSegmentation returns a deep copy.
	CloneSegmentation() Segmentation

	sealedSegmentation()
}

// Rle is the run-length form of a mask. Counts holds alternating
// background/foreground run lengths in column-major pixel order, starting
// with background. The first run may be zero when the mask starts on a
// foreground pixel. The counts always sum to Size[0]*Size[1].
type Rle struct {
	Size   []uint32 `json:"size"`
	Counts []uint32 `json:"counts"`
}

// EncodedRle is the compressed ASCII form of an Rle. Counts holds bytes in
// the range 48..111 and is byte-for-byte compatible with the COCO reference
// encoding.
type EncodedRle struct {
	Size   []uint32 `json:"size"`
	Counts string   `json:"counts"`
}

// PolygonRS is a single closed contour paired with the size of the image it
// is relative to. Counts holds flat alternating x,y coordinates; the last
// point may duplicate the first.
type PolygonRS struct {
	Size   []uint32  `json:"size"`
	Counts []float64 `json:"counts"`
}

// Polygon is the size-less contour list used by COCO files: one flat
// x,y coordinate list per contour. Width and height must be supplied
// externally to rasterize it.
type Polygon [][]float64

func (r *Rle) Format() Format        { return FormatRle }
func (e *EncodedRle) Format() Format { return FormatEncodedRle }
func (p *PolygonRS) Format() Format  { return FormatPolygonRS }
func (p Polygon) Format() Format     { return FormatPolygon }

func (r *Rle) sealedSegmentation()        {}
func (e *EncodedRle) sealedSegmentation() {}
func (p *PolygonRS) sealedSegmentation()  {}
func (p Polygon) sealedSegmentation()     {}

// CloneSegmentation returns a deep copy of the Rle.
func (r *Rle) CloneSegmentation() Segmentation {
	if r == nil {
		return nil
	}
	out := &Rle{
		Size:   append([]uint32(nil), r.Size...),
		Counts: append([]uint32(nil), r.Counts...),
	}
	return out
}

// CloneSegmentation returns a deep copy of the EncodedRle.
func (e *EncodedRle) CloneSegmentation() Segmentation {
	if e == nil {
		return nil
	}
	return &EncodedRle{Size: append([]uint32(nil), e.Size...), Counts: e.Counts}
}

// CloneSegmentation returns a deep copy of the PolygonRS.
func (p *PolygonRS) CloneSegmentation() Segmentation {
	if p == nil {
		return nil
	}
	return &PolygonRS{
		Size:   append([]uint32(nil), p.Size...),
		Counts: append([]float64(nil), p.Counts...),
	}
}

// CloneSegmentation returns a deep copy of the Polygon.
func (p Polygon) CloneSegmentation() Segmentation {
	if p == nil {
		return nil
	}
	out := make(Polygon, len(p))
	for i, contour := range p {
		out[i] = append([]float64(nil), contour...)
	}
	return out
}

// DecodeSegmentation decodes a stored segmentation payload for a known format.
// The payload layout matches the JSON encoding of the corresponding variant.
func DecodeSegmentation(format Format, payload []byte) (Segmentation, error) {
	switch format {
	case FormatRle:
		var r Rle
		if err := json.Unmarshal(payload, &r); err != nil {
			return nil, fmt.Errorf("decode rle payload: %w", err)
		}
		return &r, nil
	case FormatEncodedRle:
		var e EncodedRle
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, fmt.Errorf("decode encoded rle payload: %w", err)
		}
		return &e, nil
	case FormatPolygonRS:
		var p PolygonRS
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, fmt.Errorf("decode polygon_rs payload: %w", err)
		}
		return &p, nil
	case FormatPolygon:
		var p Polygon
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, fmt.Errorf("decode polygon payload: %w", err)
		}
		return p, nil
	}
	return nil, fmt.Errorf("unknown segmentation format %d", int(format))
}

// sniffSegmentation decodes a segmentation from a COCO file, where the
// variant is implied by the JSON shape: an array of coordinate arrays is a
// polygon, an object with a string counts field is an encoded RLE, and an
// object with a numeric counts array is an uncompressed RLE. COCO files never
// carry the sized polygon form; it is produced at dataset load time.
func sniffSegmentation(payload []byte) (Segmentation, error) {
	trimmed := firstNonSpace(payload)
	switch trimmed {
	case '[':
		var p Polygon
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, fmt.Errorf("decode polygon segmentation: %w", err)
		}
		return p, nil
	case '{':
		var probe struct {
			Size   []uint32        `json:"size"`
			Counts json.RawMessage `json:"counts"`
		}
		if err := json.Unmarshal(payload, &probe); err != nil {
			return nil, fmt.Errorf("decode rle segmentation: %w", err)
		}
		if firstNonSpace(probe.Counts) == '"' {
			var counts string
			if err := json.Unmarshal(probe.Counts, &counts); err != nil {
				return nil, fmt.Errorf("decode encoded rle counts: %w", err)
			}
			return &EncodedRle{Size: probe.Size, Counts: counts}, nil
		}
		var counts []uint32
		if err := json.Unmarshal(probe.Counts, &counts); err != nil {
			return nil, fmt.Errorf("decode rle counts: %w", err)
		}
		return &Rle{Size: probe.Size, Counts: counts}, nil
	}
	return nil, fmt.Errorf("unrecognised segmentation JSON shape")
}

func firstNonSpace(data []byte) byte {
	for _, b := range data {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		}
		return b
	}
	return 0
}
