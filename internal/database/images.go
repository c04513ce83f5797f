package database

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/zZProgenitorZz/Data-Annotation-Tool/internal/appinfo"
	"github.com/zZProgenitorZz/Data-Annotation-Tool/internal/models"
)

type Images struct {
	db *gorm.DB
}

// Create records an uploaded object as an image of an active dataset, opens
// its empty annotation document and refreshes the dataset's total_Images.
func (r *Images) Create(createdBy string, img models.Image) (models.Image, error) {
	row := Image{
		ID:          uuid.NewString(),
		DatasetID:   img.DatasetID,
		FileName:    img.FileName,
		FolderPath:  img.FolderPath,
		ObjectKey:   img.ObjectKey,
		Width:       img.Width,
		Height:      img.Height,
		FileSize:    img.FileSize,
		FileType:    img.FileType,
		ContentType: img.ContentType,
		CreatedBy:   createdBy,
		IsActive:    true,
	}

	err := r.db.Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&Dataset{}).Where("id = ? AND is_active = ?", img.DatasetID, true).Count(&n).Error; err != nil {
			return errors.Wrap(err, "checking dataset")
		}
		if n == 0 {
			return ErrNotFound
		}
		if err := tx.Create(&row).Error; err != nil {
			return errors.Wrap(err, "inserting image")
		}
		doc := AnnotationDoc{ID: uuid.NewString(), ImageID: row.ID, Annotations: []models.Annotation{}}
		if err := tx.Create(&doc).Error; err != nil {
			return errors.Wrap(err, "inserting annotation document")
		}
		return recount(tx, img.DatasetID)
	})
	if err != nil {
		return models.Image{}, err
	}

	appinfo.AddAsset(row.FileSize)
	return row.toModel(), nil
}

// ListByDataset returns the active images of an active dataset.
func (r *Images) ListByDataset(datasetID string) ([]models.Image, error) {
	var rows []Image
	err := r.db.
		Joins("JOIN datasets ON datasets.id = images.dataset_id AND datasets.is_active = ?", true).
		Where("images.dataset_id = ? AND images.is_active = ?", datasetID, true).
		Order("images.created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "listing images")
	}
	out := make([]models.Image, len(rows))
	for i, img := range rows {
		out[i] = img.toModel()
	}
	return out, nil
}

func (r *Images) Get(id string) (models.Image, error) {
	var row Image
	if err := r.db.Where("id = ? AND is_active = ?", id, true).First(&row).Error; err != nil {
		return models.Image{}, notFound(err, "finding image")
	}
	return row.toModel(), nil
}

// SoftDeleteMany deactivates the listed images that belong to datasetID and
// returns how many changed. Ids from other datasets are ignored.
func (r *Images) SoftDeleteMany(datasetID string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	var count, size int64
	err := r.db.Transaction(func(tx *gorm.DB) error {
		scope := tx.Model(&Image{}).Where("dataset_id = ? AND id IN ? AND is_active = ?", datasetID, ids, true)

		row := scope.Session(&gorm.Session{}).Select("count(*), IFNULL(SUM(file_size), 0)").Row()
		if err := row.Scan(&count, &size); err != nil {
			return errors.Wrap(err, "summing images")
		}
		if count == 0 {
			return nil
		}

		if err := scope.Session(&gorm.Session{}).Update("is_active", false).Error; err != nil {
			return errors.Wrap(err, "deactivating images")
		}
		return recount(tx, datasetID)
	})
	if err != nil {
		return 0, err
	}

	appinfo.RemoveAssets(count, size)
	return int(count), nil
}
