// Package monitor renders annotation masks and dataset statistics for
// debugging. Single-mask renders go through gonum plot heat maps; the
// dataset dashboard is an echarts page.
package monitor

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/cocoset/internal/mask"
)

// maskGrid adapts a dense mask to the plotter grid interface. Rows are
// flipped so row 0 renders at the top, matching image orientation.
type maskGrid struct {
	m *mask.Mask
}

func (g maskGrid) Dims() (c, r int) { return g.m.Width, g.m.Height }
func (g maskGrid) X(c int) float64  { return float64(c) }
func (g maskGrid) Y(r int) float64  { return float64(r) }

func (g maskGrid) Z(c, r int) float64 {
	return float64(g.m.At(g.m.Height-1-r, c))
}

// RenderMaskPNG writes a heat-map PNG of the mask to w.
func RenderMaskPNG(w io.Writer, m *mask.Mask, title string) error {
	if m.Height == 0 || m.Width == 0 {
		return fmt.Errorf("cannot render empty %dx%d mask", m.Height, m.Width)
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "x"
	p.Y.Label.Text = "y"

	hm := plotter.NewHeatMap(maskGrid{m}, palette.Heat(12, 1))
	p.Add(hm)

	wt, err := p.WriterTo(8*vg.Inch, 8*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("render mask plot: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write mask plot: %w", err)
	}
	return nil
}

// SaveMaskPNG renders the mask into a timestamped file under dir and returns
// the file path.
func SaveMaskPNG(dir string, annotationID int64, m *mask.Mask) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create plot dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("annotation_%d_%s.png",
		annotationID, time.Now().Format("20060102_150405")))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create plot file: %w", err)
	}
	defer f.Close()
	if err := RenderMaskPNG(f, m, fmt.Sprintf("Annotation %d", annotationID)); err != nil {
		return "", err
	}
	return path, nil
}
