package mask

import (
	"fmt"
	"image"
	"math"
	"sort"

	"github.com/banshee-data/cocoset/internal/coco"
)

// FromPolygonRS rasterizes a sized polygon contour onto a mask of the size it
// carries. A closing point that duplicates the first is dropped to avoid a
// degenerate zero-length edge.
func FromPolygonRS(poly *coco.PolygonRS) *Mask {
	pts := pairPoints(poly.Counts)
	if n := len(pts); n > 1 && pts[0] == pts[n-1] {
		pts = pts[:n-1]
	}
	m := New(int(poly.Size[0]), int(poly.Size[1]))
	fillPolygon(m, pts)
	return m
}

// FromPolygon rasterizes a size-less polygon onto a mask of the given
// dimensions. Only the first contour is rasterized: multi-contour objects
// (annotations with holes) are not composited. That is a known gap carried
// over from the reference behaviour.
func FromPolygon(poly coco.Polygon, width, height int) (*Mask, error) {
	if len(poly) == 0 {
		return nil, fmt.Errorf("polygon has no contours")
	}
	m := New(height, width)
	fillPolygon(m, pairPoints(poly[0]))
	return m, nil
}

// pairPoints groups a flat x,y coordinate sequence into integer points.
// Coordinates are truncated, not rounded, matching the reference tools.
func pairPoints(flat []float64) []image.Point {
	pts := make([]image.Point, 0, len(flat)/2)
	for i := 0; i+1 < len(flat); i += 2 {
		pts = append(pts, image.Point{X: int(flat[i]), Y: int(flat[i+1])})
	}
	return pts
}

// fillPolygon writes the polygon interior and boundary onto the mask using an
// even-odd scan-line fill. Edges are counted with a half-open rule so each
// scanline crosses every non-horizontal edge at most once; the outline is then
// drawn explicitly so boundary pixels are always foreground.
func fillPolygon(m *Mask, pts []image.Point) {
	if len(pts) == 0 {
		return
	}
	if len(pts) == 1 {
		setClamped(m, pts[0].Y, pts[0].X)
		return
	}

	yMin, yMax := pts[0].Y, pts[0].Y
	for _, p := range pts[1:] {
		if p.Y < yMin {
			yMin = p.Y
		}
		if p.Y > yMax {
			yMax = p.Y
		}
	}
	if yMin < 0 {
		yMin = 0
	}
	if yMax > m.Height-1 {
		yMax = m.Height - 1
	}

	var xs []float64
	for y := yMin; y <= yMax; y++ {
		xs = xs[:0]
		for i := range pts {
			p0, p1 := pts[i], pts[(i+1)%len(pts)]
			if p0.Y == p1.Y {
				continue
			}
			lo, hi := p0, p1
			if lo.Y > hi.Y {
				lo, hi = hi, lo
			}
			if y < lo.Y || y >= hi.Y {
				continue
			}
			t := float64(y-lo.Y) / float64(hi.Y-lo.Y)
			xs = append(xs, float64(lo.X)+t*float64(hi.X-lo.X))
		}
		sort.Float64s(xs)
		for i := 0; i+1 < len(xs); i += 2 {
			x0 := int(math.Ceil(xs[i]))
			x1 := int(math.Floor(xs[i+1]))
			for x := x0; x <= x1; x++ {
				setClamped(m, y, x)
			}
		}
	}

	for i := range pts {
		drawLine(m, pts[i], pts[(i+1)%len(pts)])
	}
}

// drawLine writes a Bresenham line onto the mask, clamping to the grid.
func drawLine(m *Mask, a, b image.Point) {
	dx := abs(b.X - a.X)
	sx := 1
	if a.X > b.X {
		sx = -1
	}
	dy := -abs(b.Y - a.Y)
	sy := 1
	if a.Y > b.Y {
		sy = -1
	}
	err := dx + dy
	for {
		setClamped(m, a.Y, a.X)
		if a == b {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			a.X += sx
		}
		if e2 <= dx {
			err += dx
			a.Y += sy
		}
	}
}

func setClamped(m *Mask, y, x int) {
	if x >= 0 && x < m.Width && y >= 0 && y < m.Height {
		m.Set(y, x, 1)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
