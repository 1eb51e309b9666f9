package sqlite

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/cocoset/internal/coco"
	"github.com/banshee-data/cocoset/internal/db"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	d, err := db.NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return NewStore(d.DB)
}

func TestAnnotationStoreRoundTrip(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	ann := &coco.Annotation{
		ID:         7,
		ImageID:    1,
		CategoryID: 2,
		Segmentation: &coco.Rle{
			Size:   []uint32{3, 4},
			Counts: []uint32{2, 3, 7},
		},
		Area:    3,
		BBox:    []float64{0, 2, 2, 1},
		IsCrowd: 1,
	}
	require.NoError(t, store.Annotations.Upsert(ann))

	got, err := store.Annotations.Get(7)
	require.NoError(t, err)
	if diff := cmp.Diff(ann, got); diff != "" {
		t.Errorf("annotation mismatch (-want +got):\n%s", diff)
	}
}

func TestAnnotationStoreUpsertReplaces(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	ann := &coco.Annotation{
		ID:           1,
		ImageID:      1,
		CategoryID:   1,
		Segmentation: &coco.EncodedRle{Size: []uint32{2, 2}, Counts: "31"},
	}
	require.NoError(t, store.Annotations.Upsert(ann))

	ann.Segmentation = &coco.Rle{Size: []uint32{2, 2}, Counts: []uint32{3, 1}}
	ann.Area = 1
	require.NoError(t, store.Annotations.Upsert(ann))

	got, err := store.Annotations.Get(1)
	require.NoError(t, err)
	assert.Equal(t, coco.FormatRle, got.Segmentation.Format())
	assert.Equal(t, float64(1), got.Area)

	anns, err := store.Annotations.Annotations()
	require.NoError(t, err)
	assert.Len(t, anns, 1)
}

func TestAnnotationStoreListByImage(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	for _, ann := range []*coco.Annotation{
		{ID: 3, ImageID: 1, CategoryID: 1},
		{ID: 1, ImageID: 1, CategoryID: 1},
		{ID: 2, ImageID: 2, CategoryID: 1},
	} {
		require.NoError(t, store.Annotations.Upsert(ann))
	}

	anns, err := store.Annotations.ListByImage(1)
	require.NoError(t, err)
	require.Len(t, anns, 2)
	assert.Equal(t, int64(1), anns[0].ID)
	assert.Equal(t, int64(3), anns[1].ID)
}

func TestAnnotationStoreDelete(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	require.NoError(t, store.Annotations.Upsert(&coco.Annotation{ID: 5, ImageID: 1, CategoryID: 1}))

	deleted, err := store.Annotations.Delete(5)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = store.Annotations.Delete(5)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestAnnotationStoreCountsByFormat(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	for _, ann := range []*coco.Annotation{
		{ID: 1, ImageID: 1, CategoryID: 1, Segmentation: &coco.Rle{Size: []uint32{2, 2}, Counts: []uint32{4}}},
		{ID: 2, ImageID: 1, CategoryID: 1, Segmentation: &coco.Rle{Size: []uint32{2, 2}, Counts: []uint32{4}}},
		{ID: 3, ImageID: 1, CategoryID: 1, Segmentation: &coco.EncodedRle{Size: []uint32{2, 2}, Counts: "4"}},
	} {
		require.NoError(t, store.Annotations.Upsert(ann))
	}

	counts, err := store.Annotations.CountsByFormat()
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"rle": 2, "encoded_rle": 1}, counts)
}

func TestImportExportDataset(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	file := &coco.File{
		Images: []*coco.Image{
			{ID: 1, Width: 4, Height: 3, FileName: "a.png"},
		},
		Categories: []*coco.Category{
			{ID: 1, Name: "thing", Supercategory: "stuff"},
		},
		Annotations: []*coco.Annotation{
			{
				ID: 1, ImageID: 1, CategoryID: 1,
				Segmentation: coco.Polygon{{0, 0, 2, 0, 2, 2, 0, 2}},
			},
			{
				ID: 2, ImageID: 1, CategoryID: 1,
				Segmentation: &coco.Rle{Size: []uint32{3, 4}, Counts: []uint32{1, 2, 9}},
			},
		},
	}
	require.NoError(t, store.ImportDataset(file))

	got, err := store.ExportDataset()
	require.NoError(t, err)
	require.Len(t, got.Images, 1)
	require.Len(t, got.Categories, 1)
	require.Len(t, got.Annotations, 2)
	assert.Equal(t, "a.png", got.Images[0].FileName)
	assert.Equal(t, "thing", got.Categories[0].Name)

	// The size-less polygon picks up its image's dimensions on import.
	rs, ok := got.Annotations[0].Segmentation.(*coco.PolygonRS)
	require.True(t, ok)
	assert.Equal(t, []uint32{3, 4}, rs.Size)
	assert.Equal(t, []float64{0, 0, 2, 0, 2, 2, 0, 2}, rs.Counts)
}

func TestImportDatasetUnknownImage(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	file := &coco.File{
		Annotations: []*coco.Annotation{
			{ID: 1, ImageID: 99, CategoryID: 1, Segmentation: coco.Polygon{{0, 0, 1, 0, 1, 1}}},
		},
	}
	err := store.ImportDataset(file)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown image")
}
