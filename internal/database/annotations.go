package database

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/zZProgenitorZz/Data-Annotation-Tool/internal/models"
)

type Annotations struct {
	db *gorm.DB
}

// Create stores a new document for imageID. An image holds at most one
// document, so creating a second one is a conflict.
func (r *Annotations) Create(imageID string, shapes []models.Annotation) (models.ImageAnnotations, error) {
	var n int64
	if err := r.db.Model(&AnnotationDoc{}).Where("image_id = ?", imageID).Count(&n).Error; err != nil {
		return models.ImageAnnotations{}, errors.Wrap(err, "checking annotations")
	}
	if n > 0 {
		return models.ImageAnnotations{}, ErrConflict
	}

	doc := AnnotationDoc{
		ID:          uuid.NewString(),
		ImageID:     imageID,
		Annotations: withShapeIDs(shapes),
	}
	if err := r.db.Create(&doc).Error; err != nil {
		return models.ImageAnnotations{}, errors.Wrap(err, "inserting annotations")
	}
	return doc.toModel(), nil
}

func (r *Annotations) GetByImage(imageID string) (models.ImageAnnotations, error) {
	doc, err := r.find(imageID)
	if err != nil {
		return models.ImageAnnotations{}, err
	}
	return doc.toModel(), nil
}

func (r *Annotations) find(imageID string) (AnnotationDoc, error) {
	var doc AnnotationDoc
	if err := r.db.Where("image_id = ?", imageID).First(&doc).Error; err != nil {
		return AnnotationDoc{}, notFound(err, "finding annotations")
	}
	return doc, nil
}

// ListForDatasets returns the documents of every active image in the given datasets.
func (r *Annotations) ListForDatasets(datasetIDs []string) ([]models.ImageAnnotations, error) {
	if len(datasetIDs) == 0 {
		return []models.ImageAnnotations{}, nil
	}
	var rows []AnnotationDoc
	err := r.db.
		Joins("JOIN images ON images.id = image_annotations.image_id AND images.is_active = ?", true).
		Where("images.dataset_id IN ?", datasetIDs).
		Order("image_annotations.created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "listing annotations")
	}
	out := make([]models.ImageAnnotations, len(rows))
	for i, d := range rows {
		out[i] = d.toModel()
	}
	return out, nil
}

// Update replaces the whole shape list. It does not create a missing document.
func (r *Annotations) Update(imageID string, shapes []models.Annotation) (models.ImageAnnotations, error) {
	doc, err := r.find(imageID)
	if err != nil {
		return models.ImageAnnotations{}, err
	}
	doc.Annotations = withShapeIDs(shapes)
	if err := r.db.Save(&doc).Error; err != nil {
		return models.ImageAnnotations{}, errors.Wrap(err, "updating annotations")
	}
	return doc.toModel(), nil
}

func (r *Annotations) Delete(imageID string) error {
	res := r.db.Where("image_id = ?", imageID).Delete(&AnnotationDoc{})
	if res.Error != nil {
		return errors.Wrap(res.Error, "deleting annotations")
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// AddShape appends one shape, creating the document when the image has none.
func (r *Annotations) AddShape(imageID string, shape models.Annotation) (models.Annotation, error) {
	shape = withShapeIDs([]models.Annotation{shape})[0]

	err := r.db.Transaction(func(tx *gorm.DB) error {
		var doc AnnotationDoc
		err := tx.Where("image_id = ?", imageID).First(&doc).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			doc = AnnotationDoc{ID: uuid.NewString(), ImageID: imageID}
		} else if err != nil {
			return errors.Wrap(err, "finding annotations")
		}
		doc.Annotations = append(doc.Annotations, shape)
		if err := tx.Save(&doc).Error; err != nil {
			return errors.Wrap(err, "saving annotations")
		}
		return nil
	})
	if err != nil {
		return models.Annotation{}, err
	}
	return shape.Clone(), nil
}

func (r *Annotations) DeleteShape(imageID, shapeID string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var doc AnnotationDoc
		if err := tx.Where("image_id = ?", imageID).First(&doc).Error; err != nil {
			return notFound(err, "finding annotations")
		}

		kept := doc.Annotations[:0]
		for _, a := range doc.Annotations {
			if a.ID != shapeID {
				kept = append(kept, a)
			}
		}
		if len(kept) == len(doc.Annotations) {
			return ErrNotFound
		}
		doc.Annotations = kept
		if err := tx.Save(&doc).Error; err != nil {
			return errors.Wrap(err, "saving annotations")
		}
		return nil
	})
}

func withShapeIDs(shapes []models.Annotation) []models.Annotation {
	out := models.CloneAnnotations(shapes)
	for i := range out {
		if out[i].ID == "" {
			out[i].ID = uuid.NewString()
		}
	}
	return out
}
