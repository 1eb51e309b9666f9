package mask

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/cocoset/internal/coco"
)

// maskOf builds a mask from row slices, for readable fixtures.
func maskOf(t *testing.T, rows [][]uint8) *Mask {
	t.Helper()
	require.NotEmpty(t, rows)
	m := New(len(rows), len(rows[0]))
	for y, row := range rows {
		require.Len(t, row, m.Width, "ragged fixture row")
		for x, v := range row {
			m.Set(y, x, v)
		}
	}
	return m
}

func rleFixtures(t *testing.T) []struct {
	name string
	mask *Mask
	rle  *coco.Rle
} {
	return []struct {
		name string
		mask *Mask
		rle  *coco.Rle
	}{
		{
			name: "square",
			mask: maskOf(t, [][]uint8{
				{0, 0, 0, 0},
				{0, 1, 1, 0},
				{0, 1, 1, 0},
				{0, 0, 0, 0},
			}),
			rle: &coco.Rle{Size: []uint32{4, 4}, Counts: []uint32{5, 2, 2, 2, 5}},
		},
		{
			name: "horizontal_line",
			mask: maskOf(t, [][]uint8{
				{0, 0, 0, 0, 0},
				{1, 1, 1, 1, 1},
				{0, 0, 0, 0, 0},
				{0, 0, 0, 0, 0},
			}),
			rle: &coco.Rle{Size: []uint32{4, 5}, Counts: []uint32{1, 1, 3, 1, 3, 1, 3, 1, 3, 1, 2}},
		},
		{
			name: "vertical_line",
			mask: maskOf(t, [][]uint8{
				{0, 0, 1, 0, 0},
				{0, 0, 1, 0, 0},
				{0, 0, 1, 0, 0},
				{0, 0, 1, 0, 0},
			}),
			rle: &coco.Rle{Size: []uint32{4, 5}, Counts: []uint32{8, 4, 8}},
		},
	}
}

func TestMaskToRle(t *testing.T) {
	t.Parallel()
	for _, tc := range rleFixtures(t) {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := tc.mask.ToRle()
			if diff := cmp.Diff(tc.rle, got); diff != "" {
				t.Errorf("ToRle mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRleToMask(t *testing.T) {
	t.Parallel()
	for _, tc := range rleFixtures(t) {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := FromRle(tc.rle)
			if diff := cmp.Diff(tc.mask, got); diff != "" {
				t.Errorf("FromRle mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMaskStartingForeground(t *testing.T) {
	t.Parallel()
	m := maskOf(t, [][]uint8{
		{1, 0},
		{1, 0},
	})
	rle := m.ToRle()
	require.NotEmpty(t, rle.Counts)
	assert.Equal(t, uint32(0), rle.Counts[0], "mask starting foreground must yield a leading zero run")
	assert.Equal(t, []uint32{0, 2, 2}, rle.Counts)

	back := FromRle(rle)
	assert.Equal(t, m, back)
}

func TestMaskRleRoundTrip(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 50; trial++ {
		h := 2 + rng.Intn(30)
		w := 2 + rng.Intn(30)
		m := New(h, w)
		for i := range m.Pix {
			m.Pix[i] = uint8(rng.Intn(2))
		}

		rle := m.ToRle()

		var sum uint64
		for _, c := range rle.Counts {
			sum += uint64(c)
		}
		require.Equal(t, uint64(h*w), sum, "rle counts must sum to height*width")

		back := FromRle(rle)
		require.Equal(t, m, back, "mask->rle->mask must be the identity (h=%d w=%d)", h, w)
	}
}
