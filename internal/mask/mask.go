// Package mask converts between the segmentation representations of an
// annotation: dense boolean masks, run-length encodings, the compact ASCII
// encoded RLE used by COCO files, and polygon contours.
package mask

import (
	"github.com/banshee-data/cocoset/internal/coco"
)

// Mask is a dense per-pixel membership grid: 1 marks pixels belonging to the
// object, 0 the background. Pixels are stored row-major; the RLE paths
// traverse columns explicitly because the run-length order is column-major
// and must not depend on the storage layout.
type Mask struct {
	Height int
	Width  int
	Pix    []uint8
}

// New returns a zeroed mask of the given dimensions.
func New(height, width int) *Mask {
	return &Mask{Height: height, Width: width, Pix: make([]uint8, height*width)}
}

// At returns the pixel at row y, column x.
func (m *Mask) At(y, x int) uint8 {
	return m.Pix[y*m.Width+x]
}

// Set writes the pixel at row y, column x.
func (m *Mask) Set(y, x int, v uint8) {
	m.Pix[y*m.Width+x] = v
}

// ToRle converts a mask to its run-length form. The mask is scanned in
// column-major order; runs alternate background/foreground starting with
// background, so a mask whose first pixel is foreground yields a leading
// zero-length run.
func (m *Mask) ToRle() *coco.Rle {
	previous := uint8(0)
	count := uint32(0)
	var counts []uint32
	for x := 0; x < m.Width; x++ {
		for y := 0; y < m.Height; y++ {
			if v := m.At(y, x); v != previous {
				counts = append(counts, count)
				previous = v
				count = 0
			}
			count++
		}
	}
	counts = append(counts, count)

	return &coco.Rle{
		Size:   []uint32{uint32(m.Height), uint32(m.Width)},
		Counts: counts,
	}
}

// FromRle converts a run-length encoding back to a dense mask. Runs fill
// consecutive positions of the column-major linear index space, alternating
// background and foreground. The counts must sum to Size[0]*Size[1]; that is
// the caller's precondition.
func FromRle(rle *coco.Rle) *Mask {
	height := int(rle.Size[0])
	width := int(rle.Size[1])
	m := New(height, width)

	pos := 0
	value := uint8(0)
	for _, run := range rle.Counts {
		for i := 0; i < int(run); i++ {
			m.Pix[(pos%height)*width+pos/height] = value
			pos++
		}
		value ^= 1
	}
	return m
}
