package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/banshee-data/cocoset/internal/coco"
)

// ImageStore provides persistence for image records.
type ImageStore struct {
	db *sql.DB
}

// NewImageStore creates a new ImageStore.
func NewImageStore(db *sql.DB) *ImageStore {
	return &ImageStore{db: db}
}

// Upsert inserts or replaces an image by id.
func (s *ImageStore) Upsert(img *coco.Image) error {
	return retryOnBusy(func() error {
		_, err := s.db.Exec(`
			INSERT INTO images (image_id, width, height, file_name)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(image_id) DO UPDATE SET
				width = excluded.width,
				height = excluded.height,
				file_name = excluded.file_name`,
			img.ID, img.Width, img.Height, img.FileName,
		)
		return err
	})
}

// Get returns a single image by id.
func (s *ImageStore) Get(id int64) (*coco.Image, error) {
	var img coco.Image
	err := s.db.QueryRow(`
		SELECT image_id, width, height, file_name
		FROM images WHERE image_id = ?`, id).
		Scan(&img.ID, &img.Width, &img.Height, &img.FileName)
	if err != nil {
		return nil, err
	}
	return &img, nil
}

// Images returns every image, ordered by id.
func (s *ImageStore) Images() ([]*coco.Image, error) {
	rows, err := s.db.Query(`
		SELECT image_id, width, height, file_name
		FROM images ORDER BY image_id`)
	if err != nil {
		return nil, fmt.Errorf("query images: %w", err)
	}
	defer rows.Close()

	var imgs []*coco.Image
	for rows.Next() {
		var img coco.Image
		if err := rows.Scan(&img.ID, &img.Width, &img.Height, &img.FileName); err != nil {
			return nil, err
		}
		imgs = append(imgs, &img)
	}
	return imgs, rows.Err()
}

// CategoryStore provides persistence for category records.
type CategoryStore struct {
	db *sql.DB
}

// NewCategoryStore creates a new CategoryStore.
func NewCategoryStore(db *sql.DB) *CategoryStore {
	return &CategoryStore{db: db}
}

// Upsert inserts or replaces a category by id.
func (s *CategoryStore) Upsert(cat *coco.Category) error {
	return retryOnBusy(func() error {
		_, err := s.db.Exec(`
			INSERT INTO categories (category_id, name, supercategory)
			VALUES (?, ?, ?)
			ON CONFLICT(category_id) DO UPDATE SET
				name = excluded.name,
				supercategory = excluded.supercategory`,
			cat.ID, cat.Name, cat.Supercategory,
		)
		return err
	})
}

// Categories returns every category, ordered by id.
func (s *CategoryStore) Categories() ([]*coco.Category, error) {
	rows, err := s.db.Query(`
		SELECT category_id, name, supercategory
		FROM categories ORDER BY category_id`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var cats []*coco.Category
	for rows.Next() {
		var cat coco.Category
		if err := rows.Scan(&cat.ID, &cat.Name, &cat.Supercategory); err != nil {
			return nil, err
		}
		cats = append(cats, &cat)
	}
	return cats, rows.Err()
}

// Store bundles the three record stores over one database handle.
type Store struct {
	Annotations *AnnotationStore
	Images      *ImageStore
	Categories  *CategoryStore
}

// NewStore creates stores for annotations, images and categories over db.
func NewStore(db *sql.DB) *Store {
	return &Store{
		Annotations: NewAnnotationStore(db),
		Images:      NewImageStore(db),
		Categories:  NewCategoryStore(db),
	}
}

// ImportDataset bulk-upserts the contents of a COCO file model. Size-less
// polygon segmentations are paired with their image's dimensions on the way
// in, matching the in-memory dataset's load behavior.
func (s *Store) ImportDataset(file *coco.File) error {
	dims := make(map[int64][2]uint32, len(file.Images))
	for _, img := range file.Images {
		if err := s.Images.Upsert(img); err != nil {
			return fmt.Errorf("import image %d: %w", img.ID, err)
		}
		dims[img.ID] = [2]uint32{img.Height, img.Width}
	}
	for _, cat := range file.Categories {
		if err := s.Categories.Upsert(cat); err != nil {
			return fmt.Errorf("import category %d: %w", cat.ID, err)
		}
	}
	for _, ann := range file.Annotations {
		ann := ann.Clone()
		if poly, ok := ann.Segmentation.(coco.Polygon); ok && len(poly) > 0 {
			size, found := dims[ann.ImageID]
			if !found {
				return fmt.Errorf("import annotation %d: unknown image %d", ann.ID, ann.ImageID)
			}
			ann.Segmentation = &coco.PolygonRS{
				Size:   []uint32{size[0], size[1]},
				Counts: append([]float64(nil), poly[0]...),
			}
		}
		if err := s.Annotations.Upsert(ann); err != nil {
			return fmt.Errorf("import annotation %d: %w", ann.ID, err)
		}
	}
	return nil
}

// ExportDataset materialises the full store contents as a COCO file model.
func (s *Store) ExportDataset() (*coco.File, error) {
	imgs, err := s.Images.Images()
	if err != nil {
		return nil, err
	}
	cats, err := s.Categories.Categories()
	if err != nil {
		return nil, err
	}
	anns, err := s.Annotations.Annotations()
	if err != nil {
		return nil, err
	}

	return &coco.File{
		Images:      imgs,
		Categories:  cats,
		Annotations: anns,
	}, nil
}
