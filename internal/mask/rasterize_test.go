package mask

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/cocoset/internal/coco"
)

func TestFromPolygonRSRectangle(t *testing.T) {
	t.Parallel()
	poly := &coco.PolygonRS{
		Size:   []uint32{5, 5},
		Counts: []float64{1, 1, 3, 1, 3, 3, 1, 3},
	}
	want := maskOf(t, [][]uint8{
		{0, 0, 0, 0, 0},
		{0, 1, 1, 1, 0},
		{0, 1, 1, 1, 0},
		{0, 1, 1, 1, 0},
		{0, 0, 0, 0, 0},
	})
	got := FromPolygonRS(poly)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("rasterized mask mismatch (-want +got):\n%s", diff)
	}
}

func TestFromPolygonRSClosedContour(t *testing.T) {
	t.Parallel()
	open := &coco.PolygonRS{
		Size:   []uint32{5, 5},
		Counts: []float64{1, 1, 3, 1, 3, 3, 1, 3},
	}
	closed := &coco.PolygonRS{
		Size:   []uint32{5, 5},
		Counts: []float64{1, 1, 3, 1, 3, 3, 1, 3, 1, 1},
	}
	assert.Equal(t, FromPolygonRS(open), FromPolygonRS(closed),
		"a duplicated closing point must not change the rasterization")
}

func TestFromPolygonRSTriangle(t *testing.T) {
	t.Parallel()
	poly := &coco.PolygonRS{
		Size:   []uint32{5, 5},
		Counts: []float64{0, 0, 4, 0, 0, 4},
	}
	want := maskOf(t, [][]uint8{
		{1, 1, 1, 1, 1},
		{1, 1, 1, 1, 0},
		{1, 1, 1, 0, 0},
		{1, 1, 0, 0, 0},
		{1, 0, 0, 0, 0},
	})
	assert.Equal(t, want, FromPolygonRS(poly))
}

func TestFromPolygonRSToRle(t *testing.T) {
	t.Parallel()
	poly := &coco.PolygonRS{
		Size:   []uint32{4, 4},
		Counts: []float64{1, 1, 2, 1, 2, 2, 1, 2},
	}
	rle := FromPolygonRS(poly).ToRle()
	assert.Equal(t, &coco.Rle{Size: []uint32{4, 4}, Counts: []uint32{5, 2, 2, 2, 5}}, rle)
}

func TestFromPolygonFirstContourOnly(t *testing.T) {
	t.Parallel()
	poly := coco.Polygon{
		{1, 1, 2, 1, 2, 2, 1, 2},
		{0, 0, 0, 3, 3, 3}, // ignored: only the first contour is rasterized
	}
	m, err := FromPolygon(poly, 4, 4)
	require.NoError(t, err)
	want := maskOf(t, [][]uint8{
		{0, 0, 0, 0},
		{0, 1, 1, 0},
		{0, 1, 1, 0},
		{0, 0, 0, 0},
	})
	assert.Equal(t, want, m)
}

func TestFromPolygonEmpty(t *testing.T) {
	t.Parallel()
	_, err := FromPolygon(coco.Polygon{}, 4, 4)
	assert.Error(t, err)
}

func TestFillPolygonClampsOutOfRange(t *testing.T) {
	t.Parallel()
	// Coordinates partially outside the grid must not panic; pixels outside
	// the mask are simply dropped.
	poly := &coco.PolygonRS{
		Size:   []uint32{3, 3},
		Counts: []float64{-2, -2, 5, -2, 5, 5, -2, 5},
	}
	m := FromPolygonRS(poly)
	for _, v := range m.Pix {
		assert.Equal(t, uint8(1), v)
	}
}
