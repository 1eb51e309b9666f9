package coco

import (
	"fmt"
	"sort"
	"sync"
)

// MemoryDataset is an in-memory annotation collection keyed by id. It backs
// the CLI converter; the server uses the sqlite store instead. On
// construction, size-less polygon segmentations are paired with their image's
// dimensions to form the sized polygon variant, so downstream conversions
// never need an image lookup.
type MemoryDataset struct {
	mu         sync.RWMutex
	anns       map[int64]*Annotation
	imgs       map[int64]*Image
	cats       map[int64]*Category
	annsPerImg map[int64][]int64
}

// NewMemoryDataset indexes a parsed COCO file. It fails if an annotation
// references an image that is not present in the file.
func NewMemoryDataset(f *File) (*MemoryDataset, error) {
	d := &MemoryDataset{
		anns:       make(map[int64]*Annotation, len(f.Annotations)),
		imgs:       make(map[int64]*Image, len(f.Images)),
		cats:       make(map[int64]*Category, len(f.Categories)),
		annsPerImg: make(map[int64][]int64),
	}
	for _, img := range f.Images {
		d.imgs[img.ID] = img
	}
	for _, cat := range f.Categories {
		d.cats[cat.ID] = cat
	}
	for _, ann := range f.Annotations {
		img, ok := d.imgs[ann.ImageID]
		if !ok {
			return nil, fmt.Errorf("annotation %d references unknown image %d", ann.ID, ann.ImageID)
		}
		ann = ann.Clone()
		if poly, ok := ann.Segmentation.(Polygon); ok && len(poly) > 0 {
			ann.Segmentation = &PolygonRS{
				Size:   []uint32{img.Height, img.Width},
				Counts: append([]float64(nil), poly[0]...),
			}
		}
		d.anns[ann.ID] = ann
		d.annsPerImg[ann.ImageID] = append(d.annsPerImg[ann.ImageID], ann.ID)
	}
	return d, nil
}

// Annotations returns a snapshot of every annotation, deep-copied so callers
// can mutate results without affecting the dataset. Order is by id.
func (d *MemoryDataset) Annotations() ([]*Annotation, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]*Annotation, 0, len(d.anns))
	for _, ann := range d.anns {
		out = append(out, ann.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Upsert inserts or replaces an annotation by id.
func (d *MemoryDataset) Upsert(ann *Annotation) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	prev, existed := d.anns[ann.ID]
	d.anns[ann.ID] = ann.Clone()
	if existed && prev.ImageID == ann.ImageID {
		return nil
	}
	if existed {
		ids := d.annsPerImg[prev.ImageID]
		for i, id := range ids {
			if id == ann.ID {
				d.annsPerImg[prev.ImageID] = append(ids[:i], ids[i+1:]...)
				break
			}
		}
	}
	d.annsPerImg[ann.ImageID] = append(d.annsPerImg[ann.ImageID], ann.ID)
	return nil
}

// Annotation returns the annotation with the given id.
func (d *MemoryDataset) Annotation(id int64) (*Annotation, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ann, ok := d.anns[id]
	if !ok {
		return nil, fmt.Errorf("annotation %d not found", id)
	}
	return ann.Clone(), nil
}

// Image returns the image with the given id.
func (d *MemoryDataset) Image(id int64) (*Image, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	img, ok := d.imgs[id]
	if !ok {
		return nil, fmt.Errorf("image %d not found", id)
	}
	return img, nil
}

// ImageAnnotations returns the annotations attached to one image.
func (d *MemoryDataset) ImageAnnotations(imgID int64) ([]*Annotation, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if _, ok := d.imgs[imgID]; !ok {
		return nil, fmt.Errorf("image %d not found", imgID)
	}
	ids := d.annsPerImg[imgID]
	out := make([]*Annotation, 0, len(ids))
	for _, id := range ids {
		out = append(out, d.anns[id].Clone())
	}
	return out, nil
}

// File rebuilds the on-disk dataset model from the current contents.
func (d *MemoryDataset) File() *File {
	d.mu.RLock()
	defer d.mu.RUnlock()
	f := &File{}
	for _, img := range d.imgs {
		f.Images = append(f.Images, img)
	}
	for _, cat := range d.cats {
		f.Categories = append(f.Categories, cat)
	}
	for _, ann := range d.anns {
		f.Annotations = append(f.Annotations, ann.Clone())
	}
	sort.Slice(f.Images, func(i, j int) bool { return f.Images[i].ID < f.Images[j].ID })
	sort.Slice(f.Categories, func(i, j int) bool { return f.Categories[i].ID < f.Categories[j].ID })
	sort.Slice(f.Annotations, func(i, j int) bool { return f.Annotations[i].ID < f.Annotations[j].ID })
	return f
}
