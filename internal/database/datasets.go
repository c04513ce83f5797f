package database

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/zZProgenitorZz/Data-Annotation-Tool/internal/appinfo"
	"github.com/zZProgenitorZz/Data-Annotation-Tool/internal/models"
)

type Datasets struct {
	db *gorm.DB
}

func (r *Datasets) Create(createdBy string, in models.DatasetInput) (models.Dataset, error) {
	status := in.Status
	if status == "" {
		status = models.StatusNotStarted
	}
	row := Dataset{
		ID:                   uuid.NewString(),
		Name:                 in.Name,
		Description:          in.Description,
		CreatedBy:            createdBy,
		Status:               status,
		AssignedTo:           append([]string{}, in.AssignedTo...),
		DateOfCollection:     in.DateOfCollection,
		LocationOfCollection: in.LocationOfCollection,
		IsActive:             true,
	}
	if err := r.db.Create(&row).Error; err != nil {
		return models.Dataset{}, errors.Wrap(err, "inserting dataset")
	}
	return row.toModel(), nil
}

// ListActive returns every active dataset, oldest first.
func (r *Datasets) ListActive() ([]models.Dataset, error) {
	var rows []Dataset
	if err := r.db.Where("is_active = ?", true).Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "listing datasets")
	}
	out := make([]models.Dataset, len(rows))
	for i, d := range rows {
		out[i] = d.toModel()
	}
	return out, nil
}

// Get returns an active dataset.
func (r *Datasets) Get(id string) (models.Dataset, error) {
	row, err := r.find(id)
	if err != nil {
		return models.Dataset{}, err
	}
	return row.toModel(), nil
}

func (r *Datasets) find(id string) (Dataset, error) {
	var row Dataset
	if err := r.db.Where("id = ? AND is_active = ?", id, true).First(&row).Error; err != nil {
		return Dataset{}, notFound(err, "finding dataset")
	}
	return row, nil
}

func (r *Datasets) Update(id string, patch models.DatasetPatch) (models.Dataset, error) {
	row, err := r.find(id)
	if err != nil {
		return models.Dataset{}, err
	}

	m := row.toModel()
	patch.Apply(&m)
	row.fromModel(m)

	if err := r.db.Save(&row).Error; err != nil {
		return models.Dataset{}, errors.Wrap(err, "updating dataset")
	}
	return row.toModel(), nil
}

// SoftDelete hides the dataset. Its rows stay in place and can be restored
// by patching is_active.
func (r *Datasets) SoftDelete(id string) error {
	res := r.db.Model(&Dataset{}).Where("id = ? AND is_active = ?", id, true).Update("is_active", false)
	if res.Error != nil {
		return errors.Wrap(res.Error, "deactivating dataset")
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// HardDelete removes the dataset together with its images, their annotation
// documents and remarks, and its labels.
func (r *Datasets) HardDelete(id string) error {
	var count, size int64
	err := r.db.Transaction(func(tx *gorm.DB) error {
		row := tx.Model(&Image{}).Where("dataset_id = ? AND is_active = ?", id, true).
			Select("count(*), IFNULL(SUM(file_size), 0)").Row()
		if err := row.Scan(&count, &size); err != nil {
			return errors.Wrap(err, "summing images")
		}

		imageIDs := tx.Model(&Image{}).Select("id").Where("dataset_id = ?", id)

		if err := tx.Where("image_id IN (?)", imageIDs).Delete(&AnnotationDoc{}).Error; err != nil {
			return errors.Wrap(err, "deleting annotations")
		}
		if err := tx.Where("dataset_id = ?", id).Delete(&Remark{}).Error; err != nil {
			return errors.Wrap(err, "deleting remarks")
		}
		if err := tx.Where("dataset_id = ?", id).Delete(&Image{}).Error; err != nil {
			return errors.Wrap(err, "deleting images")
		}
		if err := tx.Where("dataset_id = ?", id).Delete(&Label{}).Error; err != nil {
			return errors.Wrap(err, "deleting labels")
		}

		res := tx.Where("id = ?", id).Delete(&Dataset{})
		if res.Error != nil {
			return errors.Wrap(res.Error, "deleting dataset")
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	appinfo.RemoveAssets(count, size)
	return nil
}

// recount stores the number of active images as total_Images.
func recount(db *gorm.DB, datasetID string) error {
	var n int64
	if err := db.Model(&Image{}).Where("dataset_id = ? AND is_active = ?", datasetID, true).Count(&n).Error; err != nil {
		return errors.Wrap(err, "counting images")
	}
	if err := db.Model(&Dataset{}).Where("id = ?", datasetID).Update("total_images", n).Error; err != nil {
		return errors.Wrap(err, "updating total images")
	}
	return nil
}

// ObjectKeys lists the storage keys of every image row of the dataset,
// active or not.
func (r *Datasets) ObjectKeys(id string) ([]string, error) {
	var keys []string
	err := r.db.Model(&Image{}).Where("dataset_id = ? AND object_key <> ''", id).Pluck("object_key", &keys).Error
	if err != nil {
		return nil, errors.Wrap(err, "listing object keys")
	}
	return keys, nil
}
